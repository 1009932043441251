package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"secadvisor-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Default and ceiling for the selection-history listing.
const (
	listPersonasDefaultLimit = 20
	listPersonasMaxLimit     = 100
)

// PersonaStore is the persistence surface the persona handler needs.
// Satisfied by repository.PersonaRepository.
type PersonaStore interface {
	Create(ctx context.Context, persona *models.Persona) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Persona, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Persona, error)
}

// PersonaHandler handles HTTP requests for persona selections
type PersonaHandler struct {
	personaRepo PersonaStore
}

// NewPersonaHandler creates a new persona handler
func NewPersonaHandler(personaRepo PersonaStore) *PersonaHandler {
	return &PersonaHandler{personaRepo: personaRepo}
}

// CreatePersonaRequest represents the request body for recording a
// persona selection
type CreatePersonaRequest struct {
	Name       string `json:"name"`
	SelectedAt string `json:"selected_at"`
}

// CreatePersona handles POST /api/personas
func (h *PersonaHandler) CreatePersona(c *gin.Context) {
	var req CreatePersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Name == "" || req.SelectedAt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name or selected_at"})
		return
	}

	selectedAt, err := time.Parse(time.RFC3339, req.SelectedAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid selected_at timestamp, expected RFC 3339"})
		return
	}

	persona := &models.Persona{
		Name:       req.Name,
		SelectedAt: selectedAt,
	}

	if err := h.personaRepo.Create(c.Request.Context(), persona); err != nil {
		log.Printf("Error saving persona selection: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save persona selection",
			"details": errorDetails(err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": persona})
}

// GetPersona handles GET /api/personas/:id
func (h *PersonaHandler) GetPersona(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid persona id"})
		return
	}

	persona, err := h.personaRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Persona selection not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch persona selection",
			"details": errorDetails(err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": persona})
}

// ListPersonas handles GET /api/personas, most recent selections first.
func (h *PersonaHandler) ListPersonas(c *gin.Context) {
	limit := listPersonasDefaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}
	if limit > listPersonasMaxLimit {
		limit = listPersonasMaxLimit
	}

	personas, err := h.personaRepo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list persona selections",
			"details": errorDetails(err),
		})
		return
	}

	if personas == nil {
		personas = []*models.Persona{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": personas, "count": len(personas)})
}
