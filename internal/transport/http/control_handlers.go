package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ZakFarmer/rooklift-ws-service/internal/bus"
	"github.com/ZakFarmer/rooklift-ws-service/internal/core"
	"github.com/ZakFarmer/rooklift-ws-service/internal/proto"
	"github.com/ZakFarmer/rooklift-ws-service/internal/utils"
)

// ControlHandlers serves registration and broadcast requests.
type ControlHandlers struct {
	registry    *core.Registry
	router      *core.Router
	presence    bus.KeyValueStore
	presenceTTL time.Duration
	log         *zerolog.Logger
}

// NewControlHandlers creates the control-plane handlers. presence may be nil.
func NewControlHandlers(registry *core.Registry, router *core.Router, logger *zerolog.Logger, presence bus.KeyValueStore, presenceTTL time.Duration) *ControlHandlers {
	return &ControlHandlers{
		registry:    registry,
		router:      router,
		presence:    presence,
		presenceTTL: presenceTTL,
		log:         logger,
	}
}

// Register creates a pending connection entry and hands back its upgrade path.
// POST /register
func (h *ControlHandlers) Register(c *gin.Context) {
	var req proto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	token := utils.NewToken()
	h.registry.Register(token, *req.UserID, *req.GameID)

	if h.presence != nil && h.presenceTTL > 0 {
		value := fmt.Sprintf("%d:%d", *req.UserID, *req.GameID)
		if err := h.presence.SetWithTTL(c.Request.Context(), bus.PresenceKey(token), value, h.presenceTTL); err != nil {
			h.log.Warn().Err(err).Str("conn_id", token).Msg("failed to advertise presence")
		}
	}

	h.log.Info().
		Str("conn_id", token).
		Int64("user_id", *req.UserID).
		Int64("game_id", *req.GameID).
		Msg("connection registered")
	c.JSON(http.StatusOK, proto.RegisterResponse{URL: proto.WSPathPrefix + token, Token: token})
}

// Unregister drops a connection entry whether or not it is attached.
// DELETE /register/:id
func (h *ControlHandlers) Unregister(c *gin.Context) {
	id := c.Param("id")
	if !h.registry.Unregister(id) {
		c.JSON(http.StatusNotFound, proto.ErrorResponse{Error: core.ErrUnknownConnection.Error(), Code: core.ErrCodeNotFound})
		return
	}

	h.log.Info().Str("conn_id", id).Msg("connection unregistered")
	c.Status(http.StatusOK)
}

// Broadcast fans a message out to a game and mirrors it onto the bus.
// Only a bus failure fails the request; local delivery has happened by then.
// POST /broadcast
func (h *ControlHandlers) Broadcast(c *gin.Context) {
	var req proto.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid broadcast request")
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	msg := core.RelayMessage{SessionID: *req.GameID, UserID: req.UserID, Payload: *req.Message}
	delivery, err := h.router.Route(c.Request.Context(), msg)

	event := h.log.Debug()
	if err != nil {
		event = h.log.Error().Err(err)
	}
	event.Int64("game_id", msg.SessionID).
		Int("matched", delivery.Matched).
		Int("delivered", delivery.Delivered).
		Int("dropped", delivery.Dropped).
		Int("skipped", delivery.Skipped).
		Msg("broadcast routed")

	if err != nil {
		c.JSON(http.StatusBadGateway, proto.ErrorResponse{Error: "failed to publish to bus", Code: core.ErrCodeBusUnavailable})
		return
	}
	c.JSON(http.StatusOK, proto.BroadcastResponse{Matched: delivery.Matched, Delivered: delivery.Delivered})
}
