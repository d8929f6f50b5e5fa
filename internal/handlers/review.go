package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memodeck/memodeck/internal/middleware"
	"github.com/memodeck/memodeck/internal/services"
	"github.com/memodeck/memodeck/pkg/response"
)

type ReviewHandler struct {
	reviewService *services.ReviewService
}

func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

type gradeRequest struct {
	Grade *int `json:"grade" binding:"required"`
}

// Grade applies a recall grade to a flashcard
// POST /api/reviews/:flashcard_id/grade
func (h *ReviewHandler) Grade(c *gin.Context) {
	flashcardID, err := strconv.ParseUint(c.Param("flashcard_id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid flashcard id")
		return
	}

	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	review, err := h.reviewService.Grade(middleware.GetUserID(c), uint(flashcardID), *req.Grade)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, review)
}

// ListDue returns cards due for review
// GET /api/reviews/due?limit=
func (h *ReviewHandler) ListDue(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	due, err := h.reviewService.ListDue(middleware.GetUserID(c), time.Now(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"reviews": due, "count": len(due)})
}

// Stats summarizes the review workload
// GET /api/reviews/stats
func (h *ReviewHandler) Stats(c *gin.Context) {
	stats, err := h.reviewService.Stats(middleware.GetUserID(c), time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
