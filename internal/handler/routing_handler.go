package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-portal-api/internal/dto"
	"github.com/noah-isme/uni-portal-api/internal/service"
	appErrors "github.com/noah-isme/uni-portal-api/pkg/errors"
	"github.com/noah-isme/uni-portal-api/pkg/response"
)

// RoutingHandler exposes the admin policy endpoints: routing rules and
// deadline windows.
type RoutingHandler struct {
	routing   *service.RoutingService
	deadlines *service.DeadlineService
}

// NewRoutingHandler constructs handler.
func NewRoutingHandler(routing *service.RoutingService, deadlines *service.DeadlineService) *RoutingHandler {
	return &RoutingHandler{routing: routing, deadlines: deadlines}
}

// ListRules godoc
// @Summary List routing rules
// @Tags Routing
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/request_routing_rules [get]
func (h *RoutingHandler) ListRules(c *gin.Context) {
	rules, err := h.routing.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// GetRule godoc
// @Summary Get the routing rule for a request type
// @Tags Routing
// @Produce json
// @Param type path string true "Request type"
// @Success 200 {object} response.Envelope
// @Router /api/request_routing_rules/{type} [get]
func (h *RoutingHandler) GetRule(c *gin.Context) {
	rule, err := h.routing.Get(c.Request.Context(), c.Param("type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// UpdateRule godoc
// @Summary Set the destination for a request type
// @Tags Routing
// @Accept json
// @Produce json
// @Param type path string true "Request type"
// @Param payload body dto.UpdateRoutingRuleRequest true "Destination"
// @Success 200 {object} response.Envelope
// @Router /api/request_routing_rules/{type} [put]
func (h *RoutingHandler) UpdateRule(c *gin.Context) {
	var req dto.UpdateRoutingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.routing.Update(c.Request.Context(), c.Param("type"), req.Destination)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// ListDeadlines godoc
// @Summary List active deadline windows
// @Tags Deadlines
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/deadline_configs [get]
func (h *RoutingHandler) ListDeadlines(c *gin.Context) {
	configs, err := h.deadlines.ListConfigs(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, configs, nil)
}

// UpsertDeadline godoc
// @Summary Create or update a deadline window
// @Tags Deadlines
// @Accept json
// @Produce json
// @Param payload body dto.UpsertDeadlineConfigRequest true "Deadline payload"
// @Success 201 {object} response.Envelope
// @Router /api/deadline_configs [post]
func (h *RoutingHandler) UpsertDeadline(c *gin.Context) {
	var req dto.UpsertDeadlineConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	config, err := h.deadlines.UpsertConfig(c.Request.Context(), req.RequestType, req.DeadlineDays)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, config)
}

// DeactivateDeadline godoc
// @Summary Deactivate the deadline window for a request type
// @Tags Deadlines
// @Produce json
// @Param type path string true "Request type"
// @Success 204
// @Router /api/deadline_configs/{type} [delete]
func (h *RoutingHandler) DeactivateDeadline(c *gin.Context) {
	if err := h.deadlines.DeactivateConfig(c.Request.Context(), c.Param("type")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
