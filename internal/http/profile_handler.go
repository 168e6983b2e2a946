package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"satya-chat/internal/repository"
)

// ProfileHandler expone la lectura de perfiles por id. La identidad es
// propiedad de un sistema externo; aquí no hay escritura.
type ProfileHandler struct {
	logger *zap.Logger
	users  repository.UserRepository
	pool   *pgxpool.Pool
}

func NewProfileHandler(logger *zap.Logger, users repository.UserRepository, pool *pgxpool.Pool) *ProfileHandler {
	return &ProfileHandler{logger: logger, users: users, pool: pool}
}

// GetProfile maneja GET /api/profile/:userId.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("profile lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Health maneja GET /healthz.
func (h *ProfileHandler) Health(c *gin.Context) {
	if h.pool != nil {
		if err := h.pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "store unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
