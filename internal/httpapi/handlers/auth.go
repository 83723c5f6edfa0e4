package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bioterms-backend/internal/httpapi/middleware"
	"github.com/yungbote/bioterms-backend/internal/httpapi/response"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/users"
)

type AuthHandler struct {
	repo users.Repo
	auth *middleware.AuthMiddleware
	log  *logger.Logger
}

func NewAuthHandler(repo users.Repo, auth *middleware.AuthMiddleware, log *logger.Logger) *AuthHandler {
	return &AuthHandler{repo: repo, auth: auth, log: log.With("handler", "AuthHandler")}
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	user, err := ah.repo.Get(c.Request.Context(), req.Username)
	if err != nil {
		ah.log.Error("login lookup failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "internal", fmt.Errorf("internal error"))
		return
	}
	invalid := fmt.Errorf("invalid username or password")
	if user == nil {
		response.RespondError(c, http.StatusUnauthorized, "invalid_credentials", invalid)
		return
	}
	ok, err := users.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil || !ok {
		response.RespondError(c, http.StatusUnauthorized, "invalid_credentials", invalid)
		return
	}

	token, err := ah.auth.IssueToken(user.Username)
	if err != nil {
		ah.log.Error("token issue failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "internal", fmt.Errorf("internal error"))
		return
	}
	response.RespondOK(c, gin.H{
		"access_token": token,
		"expires_in":   int(middleware.AdminTokenTTL.Seconds()),
	})
}
