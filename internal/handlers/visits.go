package handlers

import (
	"errors"

	"site-ops-server/internal/metrics"
	"site-ops-server/internal/middleware"
	"site-ops-server/internal/models"
	"site-ops-server/internal/scheduler"
	"site-ops-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// VisitHandler handles visit scheduling requests. All lifecycle logic lives
// in the engine; the handler binds requests, enforces role access, and maps
// engine errors onto HTTP statuses.
type VisitHandler struct {
	Engine  *scheduler.Engine
	DB      *gorm.DB
	Metrics *metrics.Metrics
}

// NewVisitHandler creates a new VisitHandler.
func NewVisitHandler(engine *scheduler.Engine, db *gorm.DB, m *metrics.Metrics) *VisitHandler {
	return &VisitHandler{Engine: engine, DB: db, Metrics: m}
}

// respondEngineError translates the engine's typed errors into the response
// envelope.
func (h *VisitHandler) respondEngineError(c *gin.Context, err error) {
	var validationErr *scheduler.ValidationError
	var conflictErr *scheduler.ConflictError
	var transitionErr *scheduler.IllegalTransitionError
	var notFoundErr *scheduler.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		utils.BadRequest(c, validationErr.Error())
	case errors.As(err, &conflictErr):
		if h.Metrics != nil {
			h.Metrics.ConflictsRejected.Inc()
		}
		utils.Conflict(c, conflictErr.Error())
	case errors.As(err, &transitionErr):
		utils.Conflict(c, transitionErr.Error())
	case errors.As(err, &notFoundErr):
		utils.NotFound(c, notFoundErr.Error())
	default:
		utils.InternalServerError(c, "Scheduling operation failed: "+err.Error())
	}
}

// CreateVisitRequest represents the request body for booking a visit.
type CreateVisitRequest struct {
	SupervisorID      string `json:"supervisorId" binding:"required,uuid"`
	ProjectID         string `json:"projectId"`
	ProjectName       string `json:"projectName" binding:"required"`
	ClientName        string `json:"clientName" binding:"required"`
	Location          string `json:"location" binding:"required"`
	VisitDate         string `json:"visitDate" binding:"required"`
	VisitTime         string `json:"visitTime" binding:"required"`
	DurationMinutes   int    `json:"durationMinutes" binding:"required"`
	VisitType         string `json:"visitType"`
	Priority          string `json:"priority"`
	Notes             string `json:"notes"`
	IsRecurring       bool   `json:"isRecurring"`
	RecurrencePattern string `json:"recurrencePattern"`
}

// CreateVisit handles booking a new site visit.
// Initiated by a client or an admin on behalf of a supervisor.
func (h *VisitHandler) CreateVisit(c *gin.Context) {
	var req CreateVisitRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	// Verify the assigned field personnel exists and is a supervisor
	var supervisor models.User
	if err := h.DB.Where("id = ? AND role = ?", req.SupervisorID, models.RoleSupervisor).First(&supervisor).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Supervisor not found or user is not a supervisor")
		} else {
			utils.InternalServerError(c, "Database error verifying supervisor: "+err.Error())
		}
		return
	}

	visit, err := h.Engine.Create(models.VisitRecord{
		SupervisorID:      req.SupervisorID,
		ProjectID:         req.ProjectID,
		ProjectName:       req.ProjectName,
		ClientName:        req.ClientName,
		Location:          req.Location,
		VisitDate:         req.VisitDate,
		VisitTime:         req.VisitTime,
		DurationMinutes:   req.DurationMinutes,
		VisitType:         models.VisitType(req.VisitType),
		Priority:          models.VisitPriority(req.Priority),
		Notes:             req.Notes,
		IsRecurring:       req.IsRecurring,
		RecurrencePattern: models.RecurrencePattern(req.RecurrencePattern),
	})
	if err != nil {
		h.respondEngineError(c, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.VisitsCreated.Inc()
	}
	utils.Created(c, "Visit scheduled successfully", visit)
}

// visitFilterFromQuery builds an engine filter from the request query,
// scoping supervisors to their own visits.
func visitFilterFromQuery(c *gin.Context) scheduler.Filter {
	f := scheduler.Filter{
		Search:       c.Query("search"),
		Status:       models.VisitStatus(c.Query("status")),
		VisitType:    models.VisitType(c.Query("type")),
		SupervisorID: c.Query("supervisorId"),
		View:         scheduler.View(c.DefaultQuery("view", string(scheduler.ViewAll))),
		Reference:    c.Query("reference"),
		From:         c.Query("from"),
		To:           c.Query("to"),
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RoleSupervisor {
		f.SupervisorID = userID
	}
	return f
}

// GetVisits handles fetching the filtered, ordered visit list.
func (h *VisitHandler) GetVisits(c *gin.Context) {
	visits := h.Engine.Query(visitFilterFromQuery(c))
	utils.Success(c, "Visits fetched successfully", visits)
}

// GetVisitStats handles fetching aggregate counts over the filtered set.
func (h *VisitHandler) GetVisitStats(c *gin.Context) {
	stats := h.Engine.Stats(visitFilterFromQuery(c))
	utils.Success(c, "Visit stats computed successfully", stats)
}

// GetVisitByID handles fetching a single visit by its ID.
func (h *VisitHandler) GetVisitByID(c *gin.Context) {
	visit, err := h.Engine.Get(c.Param("id"))
	if err != nil {
		h.respondEngineError(c, err)
		return
	}

	if !h.canAccessVisit(c, &visit) {
		utils.Forbidden(c, "You are not authorized to view this visit")
		return
	}
	utils.Success(c, "Visit fetched successfully", visit)
}

// UpdateVisitRequest represents the request body for editing visit fields.
// Status is absent: it only changes through the transition endpoints.
type UpdateVisitRequest struct {
	ProjectID         *string `json:"projectId"`
	ProjectName       *string `json:"projectName"`
	ClientName        *string `json:"clientName"`
	Location          *string `json:"location"`
	VisitDate         *string `json:"visitDate"`
	VisitTime         *string `json:"visitTime"`
	DurationMinutes   *int    `json:"durationMinutes"`
	VisitType         *string `json:"visitType"`
	Priority          *string `json:"priority"`
	Notes             *string `json:"notes"`
	IsRecurring       *bool   `json:"isRecurring"`
	RecurrencePattern *string `json:"recurrencePattern"`
}

// UpdateVisit handles editing visit fields. A date, time, or duration change
// re-runs conflict detection inside the engine.
func (h *VisitHandler) UpdateVisit(c *gin.Context) {
	visitID := c.Param("id")

	var req UpdateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil { // Partial update
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	if !h.canMutateVisit(c, visitID) {
		return
	}

	patch := scheduler.Patch{
		ProjectID:       req.ProjectID,
		ProjectName:     req.ProjectName,
		ClientName:      req.ClientName,
		Location:        req.Location,
		VisitDate:       req.VisitDate,
		VisitTime:       req.VisitTime,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
		IsRecurring:     req.IsRecurring,
	}
	if req.VisitType != nil {
		vt := models.VisitType(*req.VisitType)
		patch.VisitType = &vt
	}
	if req.Priority != nil {
		p := models.VisitPriority(*req.Priority)
		patch.Priority = &p
	}
	if req.RecurrencePattern != nil {
		rp := models.RecurrencePattern(*req.RecurrencePattern)
		patch.RecurrencePattern = &rp
	}

	visit, err := h.Engine.Update(visitID, patch)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}
	utils.Success(c, "Visit updated successfully", visit)
}

// DeleteVisit handles the administrative hard removal of a visit.
func (h *VisitHandler) DeleteVisit(c *gin.Context) {
	if err := h.Engine.Delete(c.Param("id")); err != nil {
		h.respondEngineError(c, err)
		return
	}
	utils.Success(c, "Visit deleted successfully", nil)
}

// StartVisit handles checking in to a scheduled visit.
func (h *VisitHandler) StartVisit(c *gin.Context) {
	h.transition(c, models.StatusInProgress, h.Engine.Start, "Visit started successfully")
}

// CompleteVisit handles checking out of an in-progress visit.
func (h *VisitHandler) CompleteVisit(c *gin.Context) {
	h.transition(c, models.StatusCompleted, h.Engine.Complete, "Visit completed successfully")
}

// CancelVisit handles cancelling a scheduled or in-progress visit.
func (h *VisitHandler) CancelVisit(c *gin.Context) {
	h.transition(c, models.StatusCancelled, h.Engine.Cancel, "Visit cancelled successfully")
}

func (h *VisitHandler) transition(c *gin.Context, to models.VisitStatus, op func(string) (models.VisitRecord, error), message string) {
	visitID := c.Param("id")
	if !h.canMutateVisit(c, visitID) {
		return
	}

	visit, err := op(visitID)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.Transitions.WithLabelValues(string(to)).Inc()
	}
	utils.Success(c, message, visit)
}

// RescheduleVisitRequest represents the request body for rescheduling a visit.
type RescheduleVisitRequest struct {
	NewDate string `json:"newDate" binding:"required"`
	NewTime string `json:"newTime" binding:"required"`
}

// RescheduleVisit handles moving a scheduled visit to a new time window.
func (h *VisitHandler) RescheduleVisit(c *gin.Context) {
	visitID := c.Param("id")

	var req RescheduleVisitRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if !h.canMutateVisit(c, visitID) {
		return
	}

	visit, err := h.Engine.Reschedule(visitID, req.NewDate, req.NewTime)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.Transitions.WithLabelValues(string(models.StatusRescheduled)).Inc()
	}
	utils.Success(c, "Visit rescheduled successfully", visit)
}

// canAccessVisit reports whether the caller may read the visit: the owning
// supervisor, any admin, or a client (clients see the schedule of their
// projects; visibility is not sensitive here).
func (h *VisitHandler) canAccessVisit(c *gin.Context, visit *models.VisitRecord) bool {
	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	if userRole == models.RoleSupervisor {
		return userID == visit.SupervisorID
	}
	return true
}

// canMutateVisit enforces that only the owning supervisor or an admin mutates
// a visit. Writes the error response itself when access is denied.
func (h *VisitHandler) canMutateVisit(c *gin.Context, visitID string) bool {
	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	if userRole == models.RoleAdmin {
		return true
	}
	if userRole != models.RoleSupervisor {
		utils.Forbidden(c, "Only the assigned supervisor or an admin can modify a visit.")
		return false
	}

	visit, err := h.Engine.Get(visitID)
	if err != nil {
		h.respondEngineError(c, err)
		return false
	}
	if visit.SupervisorID != userID {
		utils.Forbidden(c, "You are not the supervisor assigned to this visit.")
		return false
	}
	return true
}
