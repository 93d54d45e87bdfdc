package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"persona-match/internal/catalog"
	"persona-match/internal/domain"
	"persona-match/internal/index"
	"persona-match/internal/repository"
)

var (
	ErrSelectionNotFound  = errors.New("selection not found")
	ErrSelfPersonaMissing = errors.New("self persona missing")
	ErrInvalidPersona     = errors.New("invalid persona")
)

// unitNormTolerance acepta el error de redondeo de embeddings que viajaron
// como JSON float32 por la capa de presentacion.
const unitNormTolerance = 1e-4

// SelectionService es el store autoritativo de selecciones junto con el
// indice de similitud. Ambos forman un unico dominio de consistencia: los
// escritores se serializan bajo mu y publican registro e indice juntos,
// mientras que los lectores solo leen punteros atomicos y nunca esperan a
// un escritor (ni a la I/O del espejo durable).
//
// El espejo se escribe antes de publicar: si falla, nada cambia en memoria
// y no hace falta rollback. Tras un crash el espejo puede ir por delante de
// la memoria, pero la memoria se rehidrata del espejo, asi que converge.
type SelectionService struct {
	logger  *zap.Logger
	catalog *catalog.Catalog
	idx     *index.Index
	mirror  repository.SelectionRepository // opcional; nil = sin persistencia

	mu      sync.Mutex // serializa escritores; los lectores no la toman
	records atomic.Pointer[map[int64]domain.PersonaSelection]
}

// NewSelectionService crea el store en memoria. mirror puede ser nil.
func NewSelectionService(logger *zap.Logger, cat *catalog.Catalog, idx *index.Index, mirror repository.SelectionRepository) *SelectionService {
	s := &SelectionService{
		logger:  logger,
		catalog: cat,
		idx:     idx,
		mirror:  mirror,
	}
	empty := make(map[int64]domain.PersonaSelection)
	s.records.Store(&empty)
	return s
}

// Save valida y reemplaza completa la seleccion de un usuario. El espejo
// durable se escribe primero; recien con ese ack se publican registro e
// indice, asi que un fallo del espejo nunca deja una mutacion parcial.
func (s *SelectionService) Save(ctx context.Context, userID int64, sel domain.PersonaSelection) error {
	sel.UserID = userID

	traits, err := s.catalog.Resolve(sel.SelectedTraitIDs)
	if err != nil {
		return err
	}
	if len(traits) == 0 {
		return ErrEmptySelection
	}
	sel.SelectedTraitIDs = traitIDsOf(traits)

	if len(sel.SelfPersona.Embedding) == 0 {
		return ErrSelfPersonaMissing
	}
	if err := s.validatePersona(sel.SelfPersona); err != nil {
		return err
	}
	if sel.DesiredMatch != nil {
		if err := s.validatePersona(*sel.DesiredMatch); err != nil {
			return err
		}
	}

	var desiredEmbedding []float32
	if sel.DesiredMatch != nil {
		desiredEmbedding = sel.DesiredMatch.Embedding
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mirror != nil {
		if err := s.mirror.Upsert(ctx, sel); err != nil {
			s.logger.Error("selection mirror upsert failed", zap.Int64("user_id", userID), zap.Error(err))
			return err
		}
	}

	next := s.cloneRecords()
	next[userID] = copySelection(sel)
	s.records.Store(&next)
	s.idx.Upsert(userID, sel.SelfPersona.Embedding, desiredEmbedding)
	return nil
}

// Get devuelve una copia de la seleccion guardada de un usuario. Lectura
// lock-free: solo carga el puntero vigente.
func (s *SelectionService) Get(_ context.Context, userID int64) (domain.PersonaSelection, error) {
	sel, ok := (*s.records.Load())[userID]
	if !ok {
		return domain.PersonaSelection{}, ErrSelectionNotFound
	}
	return copySelection(sel), nil
}

// Remove elimina registro y entrada de indice juntos (operacion administrativa).
func (s *SelectionService) Remove(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := (*s.records.Load())[userID]; !ok {
		return ErrSelectionNotFound
	}

	if s.mirror != nil {
		if err := s.mirror.Delete(ctx, userID); err != nil {
			s.logger.Error("selection mirror delete failed", zap.Int64("user_id", userID), zap.Error(err))
			return err
		}
	}

	next := s.cloneRecords()
	delete(next, userID)
	s.records.Store(&next)
	s.idx.Remove(userID)
	return nil
}

// IndexSnapshot expone la vista inmutable vigente del indice para ranking.
func (s *SelectionService) IndexSnapshot() *index.Snapshot {
	return s.idx.Snapshot()
}

// Rehydrate reconstruye store e indice desde el espejo durable. Se llama una
// vez al arrancar; el indice es derivable del store, asi que un reinicio
// nunca pierde consistencia.
func (s *SelectionService) Rehydrate(ctx context.Context) error {
	if s.mirror == nil {
		return nil
	}
	selections, err := s.mirror.List(ctx)
	if err != nil {
		return err
	}

	records := make(map[int64]domain.PersonaSelection, len(selections))
	entries := make([]index.Entry, 0, len(selections))
	for _, sel := range selections {
		records[sel.UserID] = copySelection(sel)
		entry := index.Entry{UserID: sel.UserID, Self: sel.SelfPersona.Embedding}
		if sel.DesiredMatch != nil {
			entry.Desired = sel.DesiredMatch.Embedding
		}
		entries = append(entries, entry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records.Store(&records)
	s.idx.Replace(entries)

	s.logger.Info("selection store rehydrated", zap.Int("selections", len(selections)))
	return nil
}

// cloneRecords copia el mapa vigente para publicarlo modificado. Solo se
// llama bajo mu; las selecciones son inmutables y se comparten entre mapas.
func (s *SelectionService) cloneRecords() map[int64]domain.PersonaSelection {
	cur := *s.records.Load()
	next := make(map[int64]domain.PersonaSelection, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	return next
}

// validatePersona chequea dimension y norma unitaria del embedding recibido.
func (s *SelectionService) validatePersona(p domain.Persona) error {
	if len(p.Embedding) != s.catalog.Dimension() {
		return ErrInvalidPersona
	}
	var sq float64
	for _, v := range p.Embedding {
		sq += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sq)-1) > unitNormTolerance {
		return ErrInvalidPersona
	}
	for _, t := range p.Traits {
		if _, err := s.catalog.Lookup(t.ID); err != nil {
			return err
		}
	}
	return nil
}

func copySelection(sel domain.PersonaSelection) domain.PersonaSelection {
	ids := make([]string, len(sel.SelectedTraitIDs))
	copy(ids, sel.SelectedTraitIDs)
	sel.SelectedTraitIDs = ids
	sel.SelfPersona = copyPersona(sel.SelfPersona)
	if sel.DesiredMatch != nil {
		desired := copyPersona(*sel.DesiredMatch)
		sel.DesiredMatch = &desired
	}
	return sel
}

func traitIDsOf(traits []domain.Trait) []string {
	ids := make([]string, len(traits))
	for i, t := range traits {
		ids[i] = t.ID
	}
	return ids
}
