package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/virachai/vision-iq/internal/domain"
	"github.com/virachai/vision-iq/internal/modules/alignment"
	"github.com/virachai/vision-iq/internal/services"
)

type AlignmentHandler struct {
	align services.AlignmentService
}

func NewAlignmentHandler(align services.AlignmentService) *AlignmentHandler {
	return &AlignmentHandler{align: align}
}

// POST /api/storyboards/align
func (h *AlignmentHandler) AlignStoryboard(c *gin.Context) {
	var req struct {
		Scenes                    []domain.Scene `json:"scenes"`
		TopK                      int            `json:"top_k"`
		MoodConsistencyMultiplier float64        `json:"mood_consistency_multiplier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}

	matches, err := h.align.AlignStoryboard(c.Request.Context(), req.Scenes, alignment.Options{
		TopK:                      req.TopK,
		MoodConsistencyMultiplier: req.MoodConsistencyMultiplier,
	})
	if err != nil {
		RespondError(c, http.StatusBadRequest, "alignment_failed", err)
		return
	}

	RespondOK(c, gin.H{"scenes": matches})
}
