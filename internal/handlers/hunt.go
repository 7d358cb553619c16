package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skattjakt-backend/internal/models"
	"skattjakt-backend/internal/services"
)

type HuntHandler struct {
	engine        *services.HuntEngine
	redisService  *services.RedisService
	maxPhotoBytes int64
}

func NewHuntHandler(engine *services.HuntEngine, redisService *services.RedisService, maxPhotoBytes int64) *HuntHandler {
	return &HuntHandler{
		engine:        engine,
		redisService:  redisService,
		maxPhotoBytes: maxPhotoBytes,
	}
}

func (h *HuntHandler) GetState(c *gin.Context) {
	sessionID := c.GetString("session_id")

	state, err := h.engine.State(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load hunt state",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   state,
	})
}

func (h *HuntHandler) Start(c *gin.Context) {
	sessionID := c.GetString("session_id")

	state, err := h.engine.Start(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to start hunt",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   state,
	})
}

func (h *HuntHandler) Submit(c *gin.Context) {
	sessionID := c.GetString("session_id")

	var req models.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	result, state, err := h.engine.Submit(c.Request.Context(), sessionID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to submit answer",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
		"state":   state,
	})
}

// SubmitFinal takes the documentation form as multipart: exactly one photo
// file plus the latin_name and team_name fields.
func (h *HuntHandler) SubmitFinal(c *gin.Context) {
	sessionID := c.GetString("session_id")

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid form",
			"details": err.Error(),
		})
		return
	}

	files := form.File["photo"]
	if len(files) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Exactly one photo is required",
		})
		return
	}

	file := files[0]
	if file.Size > h.maxPhotoBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Photo too large",
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to read photo",
			"details": err.Error(),
		})
		return
	}
	defer src.Close()

	photo, err := io.ReadAll(io.LimitReader(src, h.maxPhotoBytes+1))
	if err != nil || int64(len(photo)) > h.maxPhotoBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read photo",
		})
		return
	}

	state, err := h.engine.SubmitFinalDocument(
		c.Request.Context(),
		sessionID,
		c.PostForm("latin_name"),
		c.PostForm("team_name"),
		file.Filename,
		file.Header.Get("Content-Type"),
		photo,
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to submit final document",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   state,
	})
}

// Reset clears this session's hunt so it can be played again from the intro.
func (h *HuntHandler) Reset(c *gin.Context) {
	sessionID := c.GetString("session_id")

	if err := h.engine.Reset(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reset hunt",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

func (h *HuntHandler) GetSubmissions(c *gin.Context) {
	sessionID := c.GetString("session_id")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 {
		limit = 50
	}

	records, err := h.redisService.GetSubmissions(sessionID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get submissions",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"submissions": records,
		"count":       len(records),
	})
}

// GetPhoto serves the uploaded documentation photo back for the summary view.
func (h *HuntHandler) GetPhoto(c *gin.Context) {
	sessionID := c.GetString("session_id")

	doc, err := h.redisService.GetFinalDocument(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No final document",
		})
		return
	}

	photo, err := h.redisService.GetFinalPhoto(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No photo",
		})
		return
	}

	contentType := doc.PhotoContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, photo)
}
