package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"persona-match/internal/catalog"
	"persona-match/internal/domain"
)

// SelectionRepository es el espejo durable de las selecciones de persona.
// El store autoritativo vive en memoria; este repositorio solo persiste y
// rehidrata, nunca se consulta en el camino caliente de matching.
type SelectionRepository interface {
	Upsert(ctx context.Context, sel domain.PersonaSelection) error
	GetByUserID(ctx context.Context, userID int64) (domain.PersonaSelection, error)
	Delete(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]domain.PersonaSelection, error)
}

// PgSelectionRepository implementa SelectionRepository usando pgxpool.
// Los embeddings se guardan como columnas pgvector; los traits de cada
// persona se reconstruyen desde el catalogo al leer (solo ids en disco).
type PgSelectionRepository struct {
	pool    *pgxpool.Pool
	catalog *catalog.Catalog
}

func NewPgSelectionRepository(pool *pgxpool.Pool, cat *catalog.Catalog) *PgSelectionRepository {
	return &PgSelectionRepository{pool: pool, catalog: cat}
}

func (r *PgSelectionRepository) Upsert(ctx context.Context, sel domain.PersonaSelection) error {
	const query = `
		INSERT INTO persona_selections (
			user_id, selected_trait_ids,
			self_trait_ids, self_summary, self_embedding,
			desired_trait_ids, desired_summary, desired_embedding,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id)
		DO UPDATE SET
			selected_trait_ids = EXCLUDED.selected_trait_ids,
			self_trait_ids = EXCLUDED.self_trait_ids,
			self_summary = EXCLUDED.self_summary,
			self_embedding = EXCLUDED.self_embedding,
			desired_trait_ids = EXCLUDED.desired_trait_ids,
			desired_summary = EXCLUDED.desired_summary,
			desired_embedding = EXCLUDED.desired_embedding,
			updated_at = EXCLUDED.updated_at
	`

	var (
		desiredIDs       []string
		desiredSummary   interface{}
		desiredEmbedding interface{}
	)
	if sel.DesiredMatch != nil {
		desiredIDs = traitIDs(sel.DesiredMatch.Traits)
		desiredSummary = sel.DesiredMatch.Summary
		desiredEmbedding = pgvector.NewVector(sel.DesiredMatch.Embedding)
	}

	_, err := r.pool.Exec(ctx, query,
		sel.UserID,
		sel.SelectedTraitIDs,
		traitIDs(sel.SelfPersona.Traits),
		sel.SelfPersona.Summary,
		pgvector.NewVector(sel.SelfPersona.Embedding),
		desiredIDs,
		desiredSummary,
		desiredEmbedding,
		time.Now().UTC(),
	)
	return err
}

func (r *PgSelectionRepository) GetByUserID(ctx context.Context, userID int64) (domain.PersonaSelection, error) {
	const query = selectionColumns + ` WHERE user_id = $1`
	row := r.pool.QueryRow(ctx, query, userID)
	sel, err := r.scanSelection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PersonaSelection{}, err
	}
	return sel, err
}

func (r *PgSelectionRepository) Delete(ctx context.Context, userID int64) error {
	const query = `DELETE FROM persona_selections WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

func (r *PgSelectionRepository) List(ctx context.Context) ([]domain.PersonaSelection, error) {
	const query = selectionColumns + ` ORDER BY user_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var selections []domain.PersonaSelection
	for rows.Next() {
		sel, err := r.scanSelection(rows)
		if err != nil {
			return nil, err
		}
		selections = append(selections, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return selections, nil
}

const selectionColumns = `
	SELECT user_id, selected_trait_ids,
		self_trait_ids, self_summary, self_embedding,
		desired_trait_ids, desired_summary, desired_embedding
	FROM persona_selections`

type pgxRow interface {
	Scan(...interface{}) error
}

func (r *PgSelectionRepository) scanSelection(row pgxRow) (domain.PersonaSelection, error) {
	var (
		sel              domain.PersonaSelection
		selfIDs          []string
		selfEmbedding    pgvector.Vector
		desiredIDs       []string
		desiredSummary   *string
		desiredEmbedding *pgvector.Vector
	)
	if err := row.Scan(
		&sel.UserID,
		&sel.SelectedTraitIDs,
		&selfIDs,
		&sel.SelfPersona.Summary,
		&selfEmbedding,
		&desiredIDs,
		&desiredSummary,
		&desiredEmbedding,
	); err != nil {
		return domain.PersonaSelection{}, err
	}

	selfTraits, err := r.catalog.Resolve(selfIDs)
	if err != nil {
		return domain.PersonaSelection{}, err
	}
	sel.SelfPersona.Traits = selfTraits
	sel.SelfPersona.Embedding = selfEmbedding.Slice()

	if desiredEmbedding != nil {
		desiredTraits, err := r.catalog.Resolve(desiredIDs)
		if err != nil {
			return domain.PersonaSelection{}, err
		}
		desired := domain.Persona{
			Traits:    desiredTraits,
			Embedding: desiredEmbedding.Slice(),
		}
		if desiredSummary != nil {
			desired.Summary = *desiredSummary
		}
		sel.DesiredMatch = &desired
	}
	return sel, nil
}

func traitIDs(traits []domain.Trait) []string {
	ids := make([]string, len(traits))
	for i, t := range traits {
		ids[i] = t.ID
	}
	return ids
}
