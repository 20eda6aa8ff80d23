package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"chatrelay/model"
	"chatrelay/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// A connection must show liveness within readWait: either an inbound frame
// or a pong to the server's periodic ping, so listen-only peers stay bound.
var (
	readWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSController is the connection gateway. Each connection walks
// Connecting -> Authenticated -> Bound -> Closed: credential and target
// conversation come from the handshake metadata, never from payloads; the
// conversation must exist, but membership is enforced per operation, not at
// bind time.
type WSController struct {
	hub       *service.Hub
	convs     *service.ConversationService
	store     *service.MessageService
	assistant *service.AssistantService
}

func NewWSController(hub *service.Hub, convs *service.ConversationService, store *service.MessageService, assistant *service.AssistantService) *WSController {
	return &WSController{hub: hub, convs: convs, store: store, assistant: assistant}
}

// Serve authenticates the handshake, binds the connection to its room and
// runs the relay loop until disconnect.
func (ctrl *WSController) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = tokenService.ExtractToken(c.Request)
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}
	details, err := tokenService.ExtractMetadata(token)
	if err != nil {
		logger.Warnf("[%s] ws handshake auth failed: %s", c.GetString("requestId"), err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	rawID := c.Query("conversationId")
	conversationID, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || conversationID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	if _, err := ctrl.convs.Resolve(uint(conversationID)); err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("[%s] ws upgrade failed: %s", c.GetString("requestId"), err)
		return
	}

	client := service.NewClient(details.UserID, details.UserName, uint(conversationID))
	ctrl.hub.Register(client)
	defer ctrl.hub.Unregister(client)

	// Writer: drains the client's send channel until unbind closes it, and
	// pings on a ticker. All writes happen on this goroutine.
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		defer conn.Close()
		for {
			select {
			case msg, ok := <-client.Outbound():
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		ev, err := model.DecodeClientEvent(data)
		if err != nil {
			ctrl.reply(client, model.ErrorEvent(err.Error()))
			continue
		}
		ctrl.handleSend(client, ev.Content)
	}
}

// handleSend is the inbound relay path: authorize, append, enrich, fan out
// to peers, then hand the content to the assistant trigger. The completion
// runs detached; only the append+broadcast of its reply synchronizes back.
func (ctrl *WSController) handleSend(client *service.Client, content string) {
	member, err := ctrl.convs.IsMember(client.ConversationID, client.UserID)
	if err != nil || !member {
		ctrl.reply(client, model.ErrorEvent("not a participant of this conversation"))
		return
	}

	senderID := client.UserID
	msg, err := ctrl.store.Append(client.ConversationID, &senderID, content, false)
	if err != nil {
		// Never broadcast a message that failed to persist.
		logger.Warnf("room %d: append from %s failed: %s", client.ConversationID, client.Username, err)
		ctrl.reply(client, model.ErrorEvent(err.Error()))
		return
	}
	if err := ctrl.store.Enrich(msg); err != nil {
		logger.Warnf("room %d: enrich failed: %s", client.ConversationID, err)
	}

	ctrl.hub.BroadcastExcludingSender(client.ConversationID, client, msg)

	if done := ctrl.assistant.Maybe(client.ConversationID, client.UserID, content); done != nil {
		go func() {
			if err := <-done; err != nil {
				// Private notice to the triggering sender only.
				ctrl.reply(client, model.ErrorEvent("assistant is unavailable right now"))
			}
		}()
	}
}

// reply delivers an event to a single client, best effort.
func (ctrl *WSController) reply(client *service.Client, ev *model.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	client.Deliver(data)
}
