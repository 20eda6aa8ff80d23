package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCompleter struct {
	gotPrompt string
	reply     string
	err       error
}

func (f *fixedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.gotPrompt = prompt
	return f.reply, f.err
}

func aiRequest(t *testing.T, completer *fixedCompleter, query string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/v1/ai/get-result", NewAIController(completer).GetResult)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/ai/get-result"+query, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGetResultReturnsCompletion(t *testing.T) {
	completer := &fixedCompleter{reply: "four"}
	w := aiRequest(t, completer, "?prompt=what+is+2%2B2")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":"four"}`, w.Body.String())
	assert.Equal(t, "what is 2+2", completer.gotPrompt)
}

func TestGetResultRequiresPrompt(t *testing.T) {
	w := aiRequest(t, &fixedCompleter{reply: "unused"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetResultReportsProviderFailure(t *testing.T) {
	completer := &fixedCompleter{err: errors.New("model overloaded")}
	w := aiRequest(t, completer, "?prompt=hello")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "model overloaded", "provider cause stays in the log")
}
