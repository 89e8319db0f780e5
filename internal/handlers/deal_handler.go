package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dealdesk/internal/models"
	"dealdesk/internal/services"
)

type DealHandler struct {
	Service services.DealService
}

func NewDealHandler(service services.DealService) *DealHandler {
	return &DealHandler{Service: service}
}

type moveDealRequest struct {
	StageID int `json:"stage_id" binding:"required"`
}

type loseDealRequest struct {
	Reason *string `json:"reason"`
}

func (h *DealHandler) Create(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	var input models.DealInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deal, err := h.Service.Create(c.Request.Context(), ownerID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, deal)
}

func (h *DealHandler) GetByID(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	deal, err := h.Service.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

func (h *DealHandler) List(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}

	var filter models.DealFilter
	if v := c.Query("status"); v != "" {
		status := models.DealStatus(v)
		filter.Status = &status
	}
	if v := c.Query("stage_id"); v != "" {
		stageID, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stage_id"})
			return
		}
		filter.StageID = &stageID
	}

	deals, err := h.Service.List(c.Request.Context(), ownerID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deals)
}

func (h *DealHandler) Update(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input models.DealInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deal, err := h.Service.Update(c.Request.Context(), ownerID, id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

func (h *DealHandler) Delete(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.Service.Delete(c.Request.Context(), ownerID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Move is what the board's drag-and-drop calls once a card is dropped.
func (h *DealHandler) Move(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req moveDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deal, err := h.Service.MoveToStage(c.Request.Context(), ownerID, id, req.StageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

func (h *DealHandler) Win(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	deal, err := h.Service.MarkWon(c.Request.Context(), ownerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

func (h *DealHandler) Lose(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req loseDealRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	deal, err := h.Service.MarkLost(c.Request.Context(), ownerID, id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}
