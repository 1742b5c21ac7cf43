package handlers

import (
	"net/http"

	"venuebook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// log returns the handler logger annotated with the request path and actor.
func (h *Handler) log(c *gin.Context) *zap.Logger {
	logger := h.Logger.With(zap.String("path", c.FullPath()))
	if s, ok := utils.GetSession(c); ok {
		logger = logger.With(zap.String("userId", s.UserID))
	}
	return logger
}

func (h *Handler) fail(c *gin.Context, err error) {
	utils.RespondError(c, h.log(c), err)
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	utils.JSONError(c, h.log(c), http.StatusBadRequest, "invalid_request", "Invalid request body", err.Error())
}

// session returns the caller's Session. Routes using it sit behind RequireAuth.
func (h *Handler) session(c *gin.Context) (utils.Session, bool) {
	s, ok := utils.GetSession(c)
	if !ok {
		utils.JSONError(c, h.log(c), http.StatusUnauthorized, "unauthorized", "Authentication required", "")
	}
	return s, ok
}

// optionalSession returns the Session when the caller sent a valid token.
func optionalSession(c *gin.Context) *utils.Session {
	if s, ok := utils.GetSession(c); ok {
		return &s
	}
	return nil
}
