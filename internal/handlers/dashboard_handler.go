package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealdesk/internal/services"
)

type DashboardHandler struct {
	Service services.DashboardService
}

func NewDashboardHandler(service services.DashboardService) *DashboardHandler {
	return &DashboardHandler{Service: service}
}

func (h *DashboardHandler) Get(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}

	stats, err := h.Service.Stats(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
