package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainerrors "antevus.backend/internal/domain/errors"
	"antevus.backend/internal/interfaces/http/response"
	"antevus.backend/internal/security/vault"
	"antevus.backend/pkg/metrics"
	"antevus.backend/pkg/redact"
)

type SessionHandler struct {
	vault *vault.Vault
}

func NewSessionHandler(v *vault.Vault) *SessionHandler {
	return &SessionHandler{vault: v}
}

// PutSession stores the payload for a thread. The payload is sanitized before
// it enters the vault, so secret-bearing fields never sit in memory verbatim.
func (h *SessionHandler) PutSession(c *gin.Context) {
	threadID := c.Param("threadId")
	if threadID == "" {
		response.Error(c, domainerrors.BadRequest("Thread ID is required"))
		return
	}

	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid session payload"))
		return
	}

	h.vault.Put(threadID, redact.SanitizeValue(payload))
	metrics.SessionVaultSize.Set(float64(h.vault.Status().Count))

	response.Success(c, http.StatusOK, gin.H{"message": "Session stored"})
}

// GetSession returns the thread's payload, refreshing its inactivity window.
func (h *SessionHandler) GetSession(c *gin.Context) {
	payload, ok := h.vault.Get(c.Param("threadId"))
	if !ok {
		response.Error(c, domainerrors.NotFound("Session not found"))
		return
	}

	response.Success(c, http.StatusOK, payload)
}

// DeleteSession removes the thread's session.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if !h.vault.Delete(c.Param("threadId")) {
		response.Error(c, domainerrors.NotFound("Session not found"))
		return
	}
	metrics.SessionVaultSize.Set(float64(h.vault.Status().Count))

	response.Success(c, http.StatusOK, gin.H{"message": "Session deleted"})
}

// Status reports vault occupancy.
func (h *SessionHandler) Status(c *gin.Context) {
	response.Success(c, http.StatusOK, h.vault.Status())
}

// ClearAll wipes every session. Admin only; wired to the shutdown path too.
func (h *SessionHandler) ClearAll(c *gin.Context) {
	cleared := h.vault.ClearAll(c.Request.Context())
	metrics.SessionVaultSize.Set(0)

	response.Success(c, http.StatusOK, gin.H{"cleared": cleared})
}
