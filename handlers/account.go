package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelierhq/atelier/services"
)

// AccountHandler handles account, collaborator, thread and message requests
type AccountHandler struct {
	accountService *services.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// GetAccount handles GET /api/accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	account, err := h.accountService.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// LinkCollaborator handles PUT /api/accounts/:id/collaborators/rel/:fk
func (h *AccountHandler) LinkCollaborator(c *gin.Context) {
	if err := h.accountService.AddCollaborator(c.Request.Context(), c.Param("id"), c.Param("fk")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCollaborators handles GET /api/accounts/:id/collaborators
func (h *AccountHandler) ListCollaborators(c *gin.Context) {
	accounts, err := h.accountService.ListCollaborators(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collaborators": accounts})
}

// CreateThread handles POST /api/accounts/:id/threads
func (h *AccountHandler) CreateThread(c *gin.Context) {
	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	thread, err := h.accountService.CreateThread(c.Request.Context(), c.Param("id"), input.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, thread)
}

// GetThread handles GET /api/threads/:id
func (h *AccountHandler) GetThread(c *gin.Context) {
	thread, err := h.accountService.GetThread(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

// LinkThreadAccount handles PUT /api/threads/:id/accounts/rel/:fk
//
// The fk segment may be an account primary key or an email address; email
// targets are resolved before the membership write.
func (h *AccountHandler) LinkThreadAccount(c *gin.Context) {
	actorID := c.GetString("user_id")
	if err := h.accountService.LinkThreadAccount(c.Request.Context(), actorID, c.Param("id"), c.Param("fk")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateMessage handles POST /api/threads/:id/messages
func (h *AccountHandler) CreateMessage(c *gin.Context) {
	actorID := c.GetString("user_id")
	if actorID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var input struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.accountService.CreateMessage(c.Request.Context(), actorID, c.Param("id"), input.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// GetMessage handles GET /api/messages/:id
func (h *AccountHandler) GetMessage(c *gin.Context) {
	message, err := h.accountService.GetMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, message)
}
