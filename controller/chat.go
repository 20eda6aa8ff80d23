package controller

import (
	"net/http"
	"strconv"

	"chatrelay/service"

	"github.com/gin-gonic/gin"
)

// ChatController serves the request/response side of the relay: history
// reads, sends, and conversation management. Membership is enforced per
// operation.
type ChatController struct {
	convs *service.ConversationService
	store *service.MessageService
	hub   *service.Hub
}

func NewChatController(convs *service.ConversationService, store *service.MessageService, hub *service.Hub) *ChatController {
	return &ChatController{convs: convs, store: store, hub: hub}
}

func conversationParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return 0, false
	}
	return uint(id), true
}

// History returns one pagination window of a conversation's log.
func (ctrl *ChatController) History(c *gin.Context) {
	conversationID, ok := conversationParam(c)
	if !ok {
		return
	}
	userID := authedUserID(c)

	if _, err := ctrl.convs.Resolve(conversationID); err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	member, err := ctrl.convs.IsMember(conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	history, err := ctrl.store.History(conversationID, page, limit)
	if err != nil {
		logger.Warnf("[%s] history read failed: %s", c.GetString("requestId"), err)
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, history)
}

// Send persists a message and relays it to every bound connection. The HTTP
// sender has no room binding of its own, so nothing is excluded from the
// fan-out.
func (ctrl *ChatController) Send(c *gin.Context) {
	conversationID, ok := conversationParam(c)
	if !ok {
		return
	}
	userID := authedUserID(c)

	var input struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	member, err := ctrl.convs.IsMember(conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	msg, err := ctrl.store.Append(conversationID, &userID, input.Content, false)
	if err != nil {
		logger.Warnf("[%s] append failed: %s", c.GetString("requestId"), err)
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	if err := ctrl.store.Enrich(msg); err != nil {
		logger.Warnf("[%s] enrich failed: %s", c.GetString("requestId"), err)
	}

	ctrl.hub.BroadcastExcludingSender(conversationID, nil, msg)
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// CreatePrivate resolves or lazily creates the 1:1 conversation with a peer.
func (ctrl *ChatController) CreatePrivate(c *gin.Context) {
	userID := authedUserID(c)

	var input struct {
		PeerID uint `json:"peer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	conv, err := ctrl.convs.CreatePrivate(userID, input.PeerID)
	if err != nil {
		logger.Warnf("[%s] create private failed: %s", c.GetString("requestId"), err)
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// CreateGroup creates a named group owned by the caller.
func (ctrl *ChatController) CreateGroup(c *gin.Context) {
	userID := authedUserID(c)

	var input struct {
		Name           string `json:"name" binding:"required"`
		ParticipantIDs []uint `json:"participant_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	conv, err := ctrl.convs.CreateGroup(userID, input.Name, input.ParticipantIDs)
	if err != nil {
		logger.Warnf("[%s] create group failed: %s", c.GetString("requestId"), err)
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}

	logger.Infof("[%s] Group %q created by user %d", c.GetString("requestId"), input.Name, userID)
	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

// AddMembers grows a group's membership.
func (ctrl *ChatController) AddMembers(c *gin.Context) {
	conversationID, ok := conversationParam(c)
	if !ok {
		return
	}
	userID := authedUserID(c)

	var input struct {
		ParticipantIDs []uint `json:"participant_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	conv, err := ctrl.convs.AddMembers(conversationID, userID, input.ParticipantIDs)
	if err != nil {
		logger.Warnf("[%s] add members failed: %s", c.GetString("requestId"), err)
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// List returns the caller's conversations, most recent first.
func (ctrl *ChatController) List(c *gin.Context) {
	userID := authedUserID(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	convs, err := ctrl.convs.ListForUser(userID, page, limit)
	if err != nil {
		logger.Warnf("[%s] list conversations failed: %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}
