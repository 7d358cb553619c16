package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"skattjakt-backend/internal/models"
	"skattjakt-backend/internal/services"
)

type SessionHandler struct {
	redisService *services.RedisService
	jwtService   *services.JWTService
	engine       *services.HuntEngine
}

func NewSessionHandler(redisService *services.RedisService, jwtService *services.JWTService, engine *services.HuntEngine) *SessionHandler {
	return &SessionHandler{
		redisService: redisService,
		jwtService:   jwtService,
		engine:       engine,
	}
}

// CreateSession issues an anonymous session: one per browser instance, the
// key under which all hunt progress is stored.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	session := &models.SessionRecord{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
	}

	if err := h.redisService.StoreSession(session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create session",
			"details": err.Error(),
		})
		return
	}

	token, err := h.jwtService.GenerateToken(session.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to issue token",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": session.ID,
		"token":      token,
	})
}

func (h *SessionHandler) GetCurrentSession(c *gin.Context) {
	sessionID := c.GetString("session_id")

	session, err := h.redisService.GetSession(sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired or invalid"})
		return
	}

	state, err := h.engine.State(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load hunt state",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": gin.H{
			"session_id":    session.ID,
			"created_at":    session.CreatedAt,
			"last_accessed": session.LastAccessed,
		},
		"hunt": gin.H{
			"phase":        state.Phase,
			"puzzle_index": state.PuzzleIndex,
			"puzzle_count": state.PuzzleCount,
			"elapsed":      state.Elapsed,
		},
	})
}
