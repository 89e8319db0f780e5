package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealdesk/internal/models"
	"dealdesk/internal/services"
)

type StageHandler struct {
	Service services.StageService
}

func NewStageHandler(service services.StageService) *StageHandler {
	return &StageHandler{Service: service}
}

type createStageRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

type reorderStagesRequest struct {
	OrderedIDs []int `json:"ordered_ids" binding:"required"`
}

func (h *StageHandler) List(c *gin.Context) {
	if _, ok := currentOwner(c); !ok {
		return
	}
	activeOnly := c.Query("active") == "true"

	stages, err := h.Service.List(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stages)
}

func (h *StageHandler) Create(c *gin.Context) {
	if _, ok := currentOwner(c); !ok {
		return
	}
	var req createStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stage, err := h.Service.Create(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stage)
}

func (h *StageHandler) Update(c *gin.Context) {
	if _, ok := currentOwner(c); !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var upd models.StageUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stage, err := h.Service.Update(c.Request.Context(), id, upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stage)
}

// Delete refuses to drop a stage that still has deals; the 409 body carries
// the blocking count so the UI can say "N deals still assigned".
func (h *StageHandler) Delete(c *gin.Context) {
	if _, ok := currentOwner(c); !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.Service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StageHandler) Reorder(c *gin.Context) {
	if _, ok := currentOwner(c); !ok {
		return
	}
	var req reorderStagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Service.Reorder(c.Request.Context(), req.OrderedIDs); err != nil {
		respondError(c, err)
		return
	}

	stages, err := h.Service.List(c.Request.Context(), false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stages)
}
