package handler

import (
	"net/http"
	"slices"
	"time"

	subscription "anoa.com/mentorconnect/internal/modules/subscription/service"
	"anoa.com/mentorconnect/pkg/apperror"
	"anoa.com/mentorconnect/pkg/logger"
	"anoa.com/mentorconnect/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

type LiveHandler struct {
	hub      *subscription.Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewLiveHandler accepts websocket upgrades from allowedOrigins; an empty
// list or "*" allows any origin.
func NewLiveHandler(hub *subscription.Hub, allowedOrigins []string, log *zap.Logger) *LiveHandler {
	return &LiveHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
					return true
				}
				return slices.Contains(allowedOrigins, origin)
			},
		},
		log: logger.OrNop(log).With(zap.String("handler", "live")),
	}
}

// GetSnapshot returns the current state of the caller's four live views.
func (h *LiveHandler) GetSnapshot(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	session, err := h.hub.Acquire(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, apperror.New(http.StatusServiceUnavailable, "live views are unavailable", apperror.ErrUnavailable))
		h.log.Warn("failed to acquire live session", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	defer h.hub.Release(userID)

	c.JSON(http.StatusOK, gin.H{"data": session.Snapshot()})
}

// Stream pushes a snapshot over the websocket every time one of the views
// changes, starting with the current state.
func (h *LiveHandler) Stream(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	session, err := h.hub.Acquire(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, apperror.New(http.StatusServiceUnavailable, "live views are unavailable", apperror.ErrUnavailable))
		h.log.Warn("failed to acquire live session", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	defer h.hub.Release(userID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("failed to upgrade websocket", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	defer conn.Close()

	// Create a channel to signal client disconnect
	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	updates := session.Updates(c.Request.Context())
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				h.log.Debug("failed to write snapshot", zap.String("user_id", userID.String()), zap.Error(err))
				return
			}
		case <-clientClosed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
