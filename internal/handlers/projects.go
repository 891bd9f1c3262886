package handlers

import (
	"time"

	"site-ops-server/internal/middleware"
	"site-ops-server/internal/models"
	"site-ops-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ProjectHandler handles project registry requests. Projects are the sites
// that visits point at; scheduling itself treats the reference as opaque.
type ProjectHandler struct {
	DB *gorm.DB
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{DB: db}
}

// CreateProjectRequest represents the request body for registering a project.
type CreateProjectRequest struct {
	Name       string `json:"name" binding:"required"`
	ClientID   string `json:"clientId" binding:"omitempty,uuid"`
	ClientName string `json:"clientName" binding:"required"`
	Location   string `json:"location" binding:"required"`
	Status     string `json:"status" binding:"omitempty,oneof=planning active on-hold completed"`
	StartDate  string `json:"startDate"` // YYYY-MM-DD
	Summary    string `json:"summary"`
}

// CreateProject handles registering a new project (admin).
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	project := models.Project{
		Name:       req.Name,
		ClientID:   req.ClientID,
		ClientName: req.ClientName,
		Location:   req.Location,
		Status:     models.ProjectPlanning,
		Summary:    req.Summary,
	}
	if req.Status != "" {
		project.Status = models.ProjectStatus(req.Status)
	}
	if req.StartDate != "" {
		startDate, err := time.Parse(models.VisitDateLayout, req.StartDate)
		if err != nil {
			utils.BadRequest(c, "Invalid start date format (use YYYY-MM-DD)")
			return
		}
		project.StartDate = &startDate
	}

	if err := h.DB.Create(&project).Error; err != nil {
		utils.InternalServerError(c, "Failed to create project: "+err.Error())
		return
	}

	utils.Created(c, "Project created successfully", project)
}

// GetProjects handles fetching the project list. Clients see their own
// projects; supervisors and admins see all.
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	var projects []models.Project
	query := h.DB.Order("created_at desc")
	if userRole == models.RoleClient {
		query = query.Where("client_id = ?", userID)
	}
	if err := query.Find(&projects).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch projects: "+err.Error())
		return
	}

	utils.Success(c, "Projects fetched successfully", projects)
}

// GetProjectByID handles fetching a single project.
func (h *ProjectHandler) GetProjectByID(c *gin.Context) {
	projectID := c.Param("id")

	var project models.Project
	if err := h.DB.First(&project, "id = ?", projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Project not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RoleClient && project.ClientID != userID {
		utils.Forbidden(c, "You are not authorized to view this project")
		return
	}

	utils.Success(c, "Project fetched successfully", project)
}

// UpdateProjectRequest represents the request body for updating a project.
type UpdateProjectRequest struct {
	Name       string `json:"name"`
	ClientName string `json:"clientName"`
	Location   string `json:"location"`
	Status     string `json:"status" binding:"omitempty,oneof=planning active on-hold completed"`
	Summary    string `json:"summary"`
}

// UpdateProject handles updating a project (admin).
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	projectID := c.Param("id")

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var project models.Project
	if err := h.DB.First(&project, "id = ?", projectID).Error; err != nil {
		utils.NotFound(c, "Project not found")
		return
	}

	if req.Name != "" {
		project.Name = req.Name
	}
	if req.ClientName != "" {
		project.ClientName = req.ClientName
	}
	if req.Location != "" {
		project.Location = req.Location
	}
	if req.Status != "" {
		project.Status = models.ProjectStatus(req.Status)
	}
	if req.Summary != "" {
		project.Summary = req.Summary
	}

	if err := h.DB.Save(&project).Error; err != nil {
		utils.InternalServerError(c, "Failed to update project: "+err.Error())
		return
	}

	utils.Success(c, "Project updated successfully", project)
}

// DeleteProject handles removing a project (admin).
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	projectID := c.Param("id")

	var project models.Project
	if err := h.DB.First(&project, "id = ?", projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Project not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.DB.Delete(&models.Project{}, "id = ?", projectID).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete project: "+err.Error())
		return
	}

	utils.Success(c, "Project deleted successfully", nil)
}
