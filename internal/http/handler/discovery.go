package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"glowfeed.app/discovery/internal/http/dto"
	"glowfeed.app/discovery/internal/service"
)

type DiscoveryHandler struct {
	discoveryService service.DiscoveryService
}

func NewDiscoveryHandler(discoveryService service.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{discoveryService: discoveryService}
}

func (h *DiscoveryHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	out, err := h.discoveryService.Discover(ctx, req.Query, req.BypassCache)
	if err != nil {
		slog.ErrorContext(ctx, "discovery request failed", "error", err, "query", req.Query)
		c.JSON(http.StatusInternalServerError, dto.ToErrorResponse(req.Query, "discovery failed"))
		return
	}

	c.JSON(http.StatusOK, dto.ToSearchResponse(out))
}
