package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skattjakt-backend/internal/models"
)

// PagesHandler serves the static informational tabs. Viewing a page never
// touches hunt state and never pauses the timer.
type PagesHandler struct {
	catalog *models.Catalog
}

func NewPagesHandler(catalog *models.Catalog) *PagesHandler {
	return &PagesHandler{catalog: catalog}
}

func (h *PagesHandler) ListPages(c *gin.Context) {
	pages := []gin.H{}
	for key, page := range h.catalog.StaticPages {
		pages = append(pages, gin.H{
			"key":   key,
			"title": page.Title,
			"icon":  page.IconRef,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"pages":   pages,
	})
}

func (h *PagesHandler) GetPage(c *gin.Context) {
	key := c.Param("key")

	page, ok := h.catalog.StaticPages[key]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Page not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"key":     key,
		"page":    page,
	})
}
