package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"

	"persona-match/internal/catalog"
	"persona-match/internal/domain"
)

var (
	ErrEmptySelection      = errors.New("no traits selected")
	ErrDegenerateEmbedding = errors.New("degenerate embedding")
)

// normEpsilon es el umbral bajo el cual la media de vectores se considera
// numericamente degenerada (cancelacion patologica).
const normEpsilon = 1e-9

// PersonaService genera personas a partir de conjuntos de traits.
// Generate es una funcion pura: para un mismo (set de ids, rol) el resultado
// es identico byte a byte en cada llamada. La cache por fingerprint solo
// ahorra recomputo; la correccion nunca depende de ella.
type PersonaService struct {
	catalog *catalog.Catalog

	mu    sync.RWMutex
	cache map[string]domain.Persona
}

func NewPersonaService(cat *catalog.Catalog) *PersonaService {
	return &PersonaService{
		catalog: cat,
		cache:   make(map[string]domain.Persona),
	}
}

// Generate construye la persona para un conjunto de trait ids y un rol.
// Deduplica los ids (la capa de presentacion puede mandar repetidos),
// promedia los vectores de los traits y normaliza L2 el resultado.
// El rol solo cambia el encabezado del resumen, nunca el embedding.
func (s *PersonaService) Generate(selectedTraitIDs []string, role domain.PersonaRole) (domain.Persona, error) {
	traits, err := s.catalog.Resolve(selectedTraitIDs)
	if err != nil {
		return domain.Persona{}, err
	}
	if len(traits) == 0 {
		return domain.Persona{}, ErrEmptySelection
	}

	key := fingerprint(traits, role)

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return copyPersona(cached), nil
	}

	embedding, err := meanNormalized(traits, s.catalog.Dimension())
	if err != nil {
		return domain.Persona{}, err
	}

	persona := domain.Persona{
		Traits:    traits,
		Summary:   buildSummary(traits, role),
		Embedding: embedding,
	}

	s.mu.Lock()
	s.cache[key] = copyPersona(persona)
	s.mu.Unlock()

	return persona, nil
}

// fingerprint deriva la clave canonica de memoizacion: sha256 sobre los ids
// unicos ordenados mas el rol.
func fingerprint(traits []domain.Trait, role domain.PersonaRole) string {
	ids := make([]string, len(traits))
	for i, t := range traits {
		ids[i] = t.ID
	}
	sort.Strings(ids)

	h := sha256.New()
	h.Write([]byte(role))
	for _, id := range ids {
		h.Write([]byte{0})
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// meanNormalized promedia los vectores y normaliza L2. La acumulacion se hace
// en float64 para que el resultado no dependa del orden de redondeo.
func meanNormalized(traits []domain.Trait, dimension int) ([]float32, error) {
	sum := make([]float64, dimension)
	for _, t := range traits {
		for i, v := range t.Vector {
			sum[i] += float64(v)
		}
	}

	n := float64(len(traits))
	var sq float64
	for i := range sum {
		sum[i] /= n
		sq += sum[i] * sum[i]
	}

	norm := math.Sqrt(sq)
	if norm < normEpsilon {
		return nil, ErrDegenerateEmbedding
	}

	out := make([]float32, dimension)
	for i := range sum {
		out[i] = float32(sum[i] / norm)
	}
	return out, nil
}

// buildSummary arma el resumen deterministico: categorias en orden de catalogo,
// nombres unidos con ", ", grupos unidos con "; ". El rol elige el encabezado,
// siguiendo las pestañas de la UI ("Who I Am" / "Who I'm Looking For").
func buildSummary(traits []domain.Trait, role domain.PersonaRole) string {
	var groups []string
	var current string
	var names []string

	flush := func() {
		if current != "" {
			groups = append(groups, current+" ("+strings.Join(names, ", ")+")")
		}
	}
	for _, t := range traits {
		if t.Category != current {
			flush()
			current = t.Category
			names = names[:0]
		}
		names = append(names, t.Name)
	}
	flush()

	prefix := "Who I am: "
	if role == domain.RoleDesired {
		prefix = "Who I'm looking for: "
	}
	return prefix + strings.Join(groups, "; ") + "."
}

func copyPersona(p domain.Persona) domain.Persona {
	traits := make([]domain.Trait, len(p.Traits))
	for i, t := range p.Traits {
		vec := make([]float32, len(t.Vector))
		copy(vec, t.Vector)
		t.Vector = vec
		traits[i] = t
	}
	embedding := make([]float32, len(p.Embedding))
	copy(embedding, p.Embedding)
	return domain.Persona{Traits: traits, Summary: p.Summary, Embedding: embedding}
}
