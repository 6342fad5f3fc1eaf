package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"antevus.backend/internal/domain/entities"
	domainerrors "antevus.backend/internal/domain/errors"
	"antevus.backend/internal/interfaces/http/middleware"
	"antevus.backend/internal/interfaces/http/response"
	"antevus.backend/internal/usecases"
)

type ApiKeyHandler struct {
	apiKeyUsecase *usecases.ApiKeyUsecase
}

func NewApiKeyHandler(apiKeyUsecase *usecases.ApiKeyUsecase) *ApiKeyHandler {
	return &ApiKeyHandler{
		apiKeyUsecase: apiKeyUsecase,
	}
}

// CreateApiKey issues a new API key. The plaintext key appears in this
// response and nowhere else.
func (h *ApiKeyHandler) CreateApiKey(c *gin.Context) {
	var input entities.CreateApiKeyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		response.AbortUnauthorized(c, "User not authenticated")
		return
	}

	resp, err := h.apiKeyUsecase.CreateApiKey(c.Request.Context(), userID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp)
}

// ListApiKeys lists the current user's API keys, without key material.
func (h *ApiKeyHandler) ListApiKeys(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		response.AbortUnauthorized(c, "User not authenticated")
		return
	}

	apiKeys, err := h.apiKeyUsecase.ListApiKeys(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, apiKeys)
}

// RevokeApiKey revokes one of the current user's API keys.
func (h *ApiKeyHandler) RevokeApiKey(c *gin.Context) {
	apiKeyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid API key ID"))
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		response.AbortUnauthorized(c, "User not authenticated")
		return
	}

	revoked, err := h.apiKeyUsecase.RevokeApiKey(c.Request.Context(), apiKeyID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !revoked {
		response.Error(c, domainerrors.NotFound("API key not found"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "API key revoked"})
}
