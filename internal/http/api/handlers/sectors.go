package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stafftrack/attendance/internal/models"
	"gorm.io/gorm"
)

// SectorHandler serves the sector endpoints.
type SectorHandler struct {
	db *gorm.DB
}

// NewSectorHandler constructs a SectorHandler.
func NewSectorHandler(db *gorm.DB) *SectorHandler {
	return &SectorHandler{db: db}
}

// List returns all sectors.
func (h *SectorHandler) List(c *gin.Context) {
	var sectors []models.Sector
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("name").Find(&sectors).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sectors"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sectors": sectors})
}

type createSectorRequest struct {
	Name string `json:"name"`
}

// Create adds a sector.
func (h *SectorHandler) Create(c *gin.Context) {
	var req createSectorRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	sector := models.Sector{Name: req.Name}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&sector).Error; errCreate != nil {
		if isUniqueViolation(errCreate) {
			c.JSON(http.StatusConflict, gin.H{"error": "sector already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create sector"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sector": sector})
}
