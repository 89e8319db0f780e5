package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealdesk/internal/services"
)

// BoardHandler serves the grouped stages+deals view the kanban UI renders.
type BoardHandler struct {
	Deals  services.DealService
	Stages services.StageService
}

func NewBoardHandler(deals services.DealService, stages services.StageService) *BoardHandler {
	return &BoardHandler{Deals: deals, Stages: stages}
}

func (h *BoardHandler) Get(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}

	// first board load on an empty install seeds the default pipeline;
	// a no-op on every load after that
	if err := h.Stages.EnsureDefaults(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}

	includeClosed := c.Query("include_closed") == "true"
	view, err := h.Deals.Board(c.Request.Context(), ownerID, includeClosed)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
