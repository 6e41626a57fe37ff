package handler

import (
	"context"
	"net/http"

	"anoa.com/mentorconnect/internal/entity"
	connectionDto "anoa.com/mentorconnect/internal/modules/connection/dto"
	connection "anoa.com/mentorconnect/internal/modules/connection/service"
	"anoa.com/mentorconnect/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ConnectionHandler struct {
	service connection.ConnectionService
}

func NewConnectionHandler(service connection.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{service: service}
}

func (h *ConnectionHandler) SendRequest(c *gin.Context) {
	var req connectionDto.SendRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	created, err := h.service.SendRequest(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func (h *ConnectionHandler) AcceptRequest(c *gin.Context) {
	h.respond(c, h.service.AcceptRequest)
}

func (h *ConnectionHandler) RejectRequest(c *gin.Context) {
	h.respond(c, h.service.RejectRequest)
}

type transition func(ctx context.Context, actorID, requestID uuid.UUID) (*entity.ConnectionRequest, error)

func (h *ConnectionHandler) respond(c *gin.Context, action transition) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	requestID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	updated, err := action(c.Request.Context(), userID, requestID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (h *ConnectionHandler) CancelRequest(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	requestID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.CancelRequest(c.Request.Context(), userID, requestID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Connection request cancelled"})
}

func (h *ConnectionHandler) GetConnectionStatus(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	otherID, err := response.ParamUUID(c, "user_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	rel, err := h.service.GetConnectionStatus(c.Request.Context(), userID, otherID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	// data is null when the users have no relationship
	c.JSON(http.StatusOK, gin.H{"data": rel})
}

func (h *ConnectionHandler) ListIncoming(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	list, err := h.service.ListIncoming(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *ConnectionHandler) ListOutgoing(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	list, err := h.service.ListOutgoing(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *ConnectionHandler) ListConnections(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	list, err := h.service.ListConnections(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *ConnectionHandler) GetButtonText(c *gin.Context) {
	var q connectionDto.ButtonTextQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": h.service.GetRequestButtonText(q.FromRole, q.ToRole)})
}
