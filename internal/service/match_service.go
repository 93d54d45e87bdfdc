package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"persona-match/internal/domain"
	"persona-match/internal/repository"
)

// DefaultMatchLimit es el tope de candidatos cuando el caller no pide otro.
const DefaultMatchLimit = 20

// MatchService calcula el ranking de matches de un usuario. No guarda estado
// entre llamadas: cada request opera sobre un snapshot estable del indice,
// asi que los saves concurrentes nunca producen una vista a medias.
type MatchService struct {
	logger     *zap.Logger
	selections *SelectionService
	users      repository.UserRepository
}

func NewMatchService(logger *zap.Logger, selections *SelectionService, users repository.UserRepository) *MatchService {
	return &MatchService{
		logger:     logger,
		selections: selections,
		users:      users,
	}
}

// Matches devuelve hasta limit candidatos para userID, ordenados por similitud
// descendente con desempate por id ascendente. El embedding de consulta es el
// de la persona deseada si existe; si no, el de la propia (un usuario que no
// especifico que busca se matchea con su propia descripcion).
func (s *MatchService) Matches(ctx context.Context, userID int64, limit int) ([]domain.Match, error) {
	if limit <= 0 {
		limit = DefaultMatchLimit
	}

	sel, err := s.selections.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(sel.SelfPersona.Embedding) == 0 {
		return nil, ErrSelfPersonaMissing
	}

	query := sel.SelfPersona.Embedding
	if sel.DesiredMatch != nil && len(sel.DesiredMatch.Embedding) > 0 {
		query = sel.DesiredMatch.Embedding
	}

	snapshot := s.selections.IndexSnapshot()
	// Rankeo sin tope: un candidato que se cae en la hidratacion (remove
	// concurrente, sin entrada de directorio) no debe achicar la pagina
	// cuando quedan mas rankeados detras.
	candidates := snapshot.Rank(query, userID, 0)

	matches := make([]domain.Match, 0, limit)
	for _, c := range candidates {
		if len(matches) == limit {
			break
		}
		candidateSel, err := s.selections.Get(ctx, c.UserID)
		if err != nil {
			// El snapshot puede ir por detras del store si hubo un remove
			// concurrente; el candidato simplemente se omite.
			continue
		}

		user, err := s.users.GetByID(ctx, c.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				s.logger.Warn("match candidate without directory entry", zap.Int64("user_id", c.UserID))
				continue
			}
			return nil, err
		}

		matches = append(matches, domain.Match{
			UserID:      c.UserID,
			Name:        user.Name,
			Email:       user.Email,
			Similarity:  c.Similarity,
			SelfPersona: candidateSel.SelfPersona,
		})
	}
	return matches, nil
}
