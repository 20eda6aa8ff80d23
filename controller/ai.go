package controller

import (
	"fmt"
	"net/http"

	"chatrelay/service"

	"github.com/gin-gonic/gin"
)

// AIController exposes the completion provider directly, outside any room:
// no message is persisted and nothing is broadcast.
type AIController struct {
	completer service.Completer
}

func NewAIController(completer service.Completer) *AIController {
	return &AIController{completer: completer}
}

func (ctrl *AIController) GetResult(c *gin.Context) {
	prompt := c.Query("prompt")
	if prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	result, err := ctrl.completer.Complete(c.Request.Context(), prompt)
	if err != nil {
		logger.Warnf("[%s] completion failed: %s", c.GetString("requestId"), err)
		c.JSON(statusOf(fmt.Errorf("%w: %v", service.ErrProvider, err)), gin.H{"error": "Failed to generate a result"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}
