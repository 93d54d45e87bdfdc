package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-match/internal/catalog"
	"persona-match/internal/domain"
	"persona-match/internal/service"
)

// PersonaHandler mantiene dependencias para los endpoints de personas y matches.
type PersonaHandler struct {
	logger     *zap.Logger
	catalog    *catalog.Catalog
	personas   *service.PersonaService
	selections *service.SelectionService
	matches    *service.MatchService
	limiter    service.PersonaRateLimiter
}

// NewPersonaHandler crea una instancia de PersonaHandler con dependencias necesarias.
func NewPersonaHandler(
	logger *zap.Logger,
	cat *catalog.Catalog,
	personas *service.PersonaService,
	selections *service.SelectionService,
	matches *service.MatchService,
	limiter service.PersonaRateLimiter,
) *PersonaHandler {
	return &PersonaHandler{
		logger:     logger,
		catalog:    cat,
		personas:   personas,
		selections: selections,
		matches:    matches,
		limiter:    limiter,
	}
}

// ListTraits maneja GET /persona/traits. Devuelve el catalogo plano en orden
// estable de categoria; el cliente agrupa para renderizar.
func (h *PersonaHandler) ListTraits(c *gin.Context) {
	var traits []domain.Trait
	for _, group := range h.catalog.ListTraits() {
		traits = append(traits, group.Traits...)
	}
	c.JSON(http.StatusOK, traits)
}

// GeneratePersona maneja POST /persona/generate.
func (h *PersonaHandler) GeneratePersona(c *gin.Context) {
	var req struct {
		SelectedTraitIDs []string `json:"selectedTraitIds" binding:"required"`
		IsSelf           *bool    `json:"isSelf"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid generate persona request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if h.limiter != nil && !h.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many persona generations"})
		return
	}

	role := domain.RoleSelf
	if req.IsSelf != nil && !*req.IsSelf {
		role = domain.RoleDesired
	}

	persona, err := h.personas.Generate(req.SelectedTraitIDs, role)
	if err != nil {
		h.renderPersonaError(c, err)
		return
	}
	c.JSON(http.StatusOK, persona)
}

// SaveSelection maneja POST /persona/save/:userId.
func (h *PersonaHandler) SaveSelection(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var sel domain.PersonaSelection
	if err := c.ShouldBindJSON(&sel); err != nil {
		h.logger.Warn("invalid save selection request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.selections.Save(c.Request.Context(), userID, sel); err != nil {
		switch {
		case errors.Is(err, service.ErrEmptySelection),
			errors.Is(err, service.ErrSelfPersonaMissing),
			errors.Is(err, service.ErrInvalidPersona),
			errors.Is(err, catalog.ErrUnknownTrait):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("save selection failed", zap.Int64("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save selection"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// GetMatches maneja GET /persona/matches/:userId.
func (h *PersonaHandler) GetMatches(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	matches, err := h.matches.Matches(c.Request.Context(), userID, limit)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelectionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no selection saved for user"})
		case errors.Is(err, service.ErrSelfPersonaMissing):
			c.JSON(http.StatusConflict, gin.H{"error": "self persona required before matching"})
		default:
			h.logger.Error("get matches failed", zap.Int64("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute matches"})
		}
		return
	}
	c.JSON(http.StatusOK, matches)
}

func (h *PersonaHandler) renderPersonaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptySelection):
		c.JSON(http.StatusBadRequest, gin.H{"error": "select at least one trait"})
	case errors.Is(err, catalog.ErrUnknownTrait):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDegenerateEmbedding):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "trait combination has no usable embedding"})
	default:
		h.logger.Error("generate persona failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate persona"})
	}
}

func parseUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId must be a positive integer"})
		return 0, false
	}
	return userID, true
}
