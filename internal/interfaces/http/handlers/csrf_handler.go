package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainerrors "antevus.backend/internal/domain/errors"
	"antevus.backend/internal/interfaces/http/middleware"
	"antevus.backend/internal/interfaces/http/response"
	"antevus.backend/internal/security/csrf"
)

type CSRFHandler struct {
	manager *csrf.Manager
	window  time.Duration
}

func NewCSRFHandler(manager *csrf.Manager, window time.Duration) *CSRFHandler {
	if window <= 0 {
		window = csrf.DefaultWindow
	}
	return &CSRFHandler{manager: manager, window: window}
}

// IssueToken hands the authenticated subject a fresh anti-forgery token.
// Any previously issued token for the subject stops validating.
func (h *CSRFHandler) IssueToken(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		response.AbortUnauthorized(c, "User not authenticated")
		return
	}

	token, err := h.manager.Issue(userID.String())
	if err != nil {
		response.Error(c, domainerrors.InternalError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"csrfToken":        token,
		"expiresInSeconds": int(h.window.Seconds()),
	})
}
