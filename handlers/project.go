package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atelierhq/atelier/guard"
	"github.com/atelierhq/atelier/services"
)

// ProjectHandler handles project requests and every nested resource
type ProjectHandler struct {
	projectService *services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// CreateProject handles POST /api/accounts/:id/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	actorID := c.GetString("user_id")
	if actorID == "" {
		respondError(c, guard.ErrUnauthorized)
		return
	}

	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), actorID, input.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// ListAccountProjects handles GET /api/accounts/:id/projects
func (h *ProjectHandler) ListAccountProjects(c *gin.Context) {
	projects, err := h.projectService.ListProjectsByAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// GetProject handles GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// LinkProjectAccount handles PUT /api/projects/:id/accounts/rel/:fk
//
// The fk segment may be an account primary key or an email address.
func (h *ProjectHandler) LinkProjectAccount(c *gin.Context) {
	actorID := c.GetString("user_id")
	if err := h.projectService.LinkAccount(c.Request.Context(), actorID, c.Param("id"), c.Param("fk")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListProjectAccounts handles GET /api/projects/:id/accounts
func (h *ProjectHandler) ListProjectAccounts(c *gin.Context) {
	accounts, err := h.projectService.ListProjectAccounts(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// CreateRole handles POST /api/projects/:id/roles
func (h *ProjectHandler) CreateRole(c *gin.Context) {
	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := h.projectService.CreateRole(c.Request.Context(), c.Param("id"), input.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, role)
}

// LinkRole handles PUT /api/accounts/:id/roles/rel/:fk
//
// Only a director of the role's project may grant it; the guard pipeline
// enforces that and yields the fixed error taxonomy on refusal.
func (h *ProjectHandler) LinkRole(c *gin.Context) {
	actorID := c.GetString("user_id")
	if err := h.projectService.LinkRole(c.Request.Context(), actorID, c.Param("id"), c.Param("fk")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAccountRoles handles GET /api/accounts/:id/roles?project_id=...
func (h *ProjectHandler) ListAccountRoles(c *gin.Context) {
	projectID := c.Query("project_id")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id query parameter is required"})
		return
	}

	roles, err := h.projectService.ListAccountRolesInProject(c.Request.Context(), c.Param("id"), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

// CreateBug handles POST /api/projects/:id/bugs
//
// Anonymous requests reach the guard and are refused there, so the refusal
// carries the guard's own error shape rather than the middleware's.
func (h *ProjectHandler) CreateBug(c *gin.Context) {
	actorID := c.GetString("user_id")

	var input services.CreateBugInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bug, err := h.projectService.CreateBug(c.Request.Context(), actorID, c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bug)
}

// GetBug handles GET /api/bugs/:id
func (h *ProjectHandler) GetBug(c *gin.Context) {
	bug, err := h.projectService.GetBug(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bug)
}

// ListBugs handles GET /api/projects/:id/bugs
func (h *ProjectHandler) ListBugs(c *gin.Context) {
	bugs, err := h.projectService.ListBugs(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bugs": bugs})
}

// AssignBug handles PUT /api/bugs/:id/assignees/rel/:fk
func (h *ProjectHandler) AssignBug(c *gin.Context) {
	if err := h.projectService.AssignBug(c.Request.Context(), c.Param("id"), c.Param("fk")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateTask handles POST /api/projects/:id/tasks
func (h *ProjectHandler) CreateTask(c *gin.Context) {
	var input struct {
		Name  string `json:"name" binding:"required"`
		State string `json:"state"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.projectService.CreateTask(c.Request.Context(), c.Param("id"), input.Name, input.State)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// ListTasks handles GET /api/projects/:id/tasks
func (h *ProjectHandler) ListTasks(c *gin.Context) {
	tasks, err := h.projectService.ListTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// CreateMeeting handles POST /api/projects/:id/meetings
func (h *ProjectHandler) CreateMeeting(c *gin.Context) {
	var input struct {
		Subject string    `json:"subject" binding:"required"`
		Place   string    `json:"place"`
		Date    time.Time `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meeting, err := h.projectService.CreateMeeting(c.Request.Context(), c.Param("id"), input.Subject, input.Place, input.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meeting)
}

// CreateStep handles POST /api/projects/:id/steps
func (h *ProjectHandler) CreateStep(c *gin.Context) {
	var input struct {
		Name  string    `json:"name" binding:"required"`
		State string    `json:"state"`
		Date  time.Time `json:"date"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	step, err := h.projectService.CreateStep(c.Request.Context(), c.Param("id"), input.Name, input.State, input.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, step)
}
