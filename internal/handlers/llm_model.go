package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/memodeck/memodeck/internal/services"
	"github.com/memodeck/memodeck/pkg/response"
)

// LLMModelHandler administers the model catalogue. All routes are
// admin-only.
type LLMModelHandler struct {
	registry *services.ModelRegistryService
	cache    *services.SemanticCache
}

func NewLLMModelHandler(registry *services.ModelRegistryService, cache *services.SemanticCache) *LLMModelHandler {
	return &LLMModelHandler{registry: registry, cache: cache}
}

// List returns the whole catalogue
// GET /api/llm-models
func (h *LLMModelHandler) List(c *gin.Context) {
	all, err := h.registry.ListAll()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, all)
}

// Create adds a catalogue entry
// POST /api/llm-models
func (h *LLMModelHandler) Create(c *gin.Context) {
	var req services.CreateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	m, err := h.registry.Create(&req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

// Update modifies a catalogue entry
// PUT /api/llm-models/:model_id
func (h *LLMModelHandler) Update(c *gin.Context) {
	var req services.UpdateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	m, err := h.registry.Update(c.Param("model_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, m)
}

// Delete removes a catalogue entry
// DELETE /api/llm-models/:model_id
func (h *LLMModelHandler) Delete(c *gin.Context) {
	if err := h.registry.Delete(c.Param("model_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": c.Param("model_id")})
}

// InvalidateCache drops cached generations, optionally scoped to one task
// POST /api/llm-models/cache/invalidate?task=
func (h *LLMModelHandler) InvalidateCache(c *gin.Context) {
	task := c.Query("task")
	if task != "" && task != services.TaskFlashcards && task != services.TaskQuiz {
		response.BadRequest(c, "task must be flashcards or quiz")
		return
	}

	deleted, err := h.cache.Invalidate(c.Request.Context(), task)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"invalidated": deleted, "task": task})
}
