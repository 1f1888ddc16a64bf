package routes

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/websocket"

	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/models"
	"pdf-chat-backend/services"
	"pdf-chat-backend/utils"
)

// socketBacklog is how many received messages may wait behind the turn in flight.
const socketBacklog = 8

func chatSocketHandler(chat *services.ChatService, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		documentID := c.Param("document_id")
		server := websocket.Server{
			Handler: func(ws *websocket.Conn) {
				serveChatSocket(ws, chat, documentID, timeout)
			},
		}
		server.ServeHTTP(c.Writer, c.Request)
	}
}

// serveChatSocket answers each text frame in arrival order. A failed turn is
// reported as a ChatError frame and the socket stays open. Closing the socket
// cancels the turn in flight; the session itself is left as is.
func serveChatSocket(ws *websocket.Conn, chat *services.ChatService, documentID string, timeout time.Duration) {
	defer ws.Close()

	ctx, cancel := context.WithCancel(ws.Request().Context())
	defer cancel()

	messages := make(chan string, socketBacklog)
	go func() {
		defer close(messages)
		defer cancel()
		for {
			var msg string
			if err := websocket.Message.Receive(ws, &msg); err != nil {
				if !errors.Is(err, io.EOF) {
					logger.Debug("chat socket read failed", "document_id", documentID, "error", err)
				}
				return
			}
			select {
			case messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Info("chat socket opened", "document_id", documentID)
	defer logger.Info("chat socket closed", "document_id", documentID)

	for msg := range messages {
		turnCtx, turnCancel := utils.WithCustomTimeout(ctx, timeout)
		result, err := chat.Respond(turnCtx, msg, documentID)
		turnCancel()
		if ctx.Err() != nil {
			return
		}

		var reply any = result
		if err != nil {
			logger.Warn("chat socket turn failed", "document_id", documentID, "error", err)
			reply = models.ChatError{Error: err.Error()}
		}
		if err := websocket.JSON.Send(ws, reply); err != nil {
			return
		}
	}
}
