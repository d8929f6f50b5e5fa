package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/memodeck/memodeck/internal/middleware"
	"github.com/memodeck/memodeck/internal/services"
	"github.com/memodeck/memodeck/pkg/response"
)

type MaterialHandler struct {
	materialService *services.MaterialService
}

func NewMaterialHandler(materialService *services.MaterialService) *MaterialHandler {
	return &MaterialHandler{materialService: materialService}
}

type createFolderRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

// CreateFolder creates a folder owned by the caller
// POST /api/folders
func (h *MaterialHandler) CreateFolder(c *gin.Context) {
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	folder, err := h.materialService.CreateFolder(middleware.GetUserID(c), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, folder)
}

// ListFolders lists the caller's folders
// GET /api/folders
func (h *MaterialHandler) ListFolders(c *gin.Context) {
	folders, err := h.materialService.ListFolders(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, folders)
}

type createMaterialRequest struct {
	FolderID uint   `json:"folder_id" binding:"required"`
	Title    string `json:"title" binding:"required,max=300"`
	Content  string `json:"content" binding:"required"`
}

// CreateMaterial stores a source document in one of the caller's folders
// POST /api/materials
func (h *MaterialHandler) CreateMaterial(c *gin.Context) {
	var req createMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	material, err := h.materialService.CreateMaterial(middleware.GetUserID(c), req.FolderID, req.Title, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, material)
}

// ListMaterials lists a folder's documents
// GET /api/folders/:folder_id/materials
func (h *MaterialHandler) ListMaterials(c *gin.Context) {
	folderID, err := strconv.ParseUint(c.Param("folder_id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid folder id")
		return
	}

	materials, err := h.materialService.ListMaterials(middleware.GetUserID(c), uint(folderID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, materials)
}
