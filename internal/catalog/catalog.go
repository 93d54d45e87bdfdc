package catalog

import (
	"errors"
	"fmt"

	"persona-match/internal/domain"
)

var ErrUnknownTrait = errors.New("unknown trait")

// CategoryGroup agrupa los traits de una categoria preservando el orden del catalogo.
// Se modela como lista explicita (no mapa) para que el orden sea reproducible.
type CategoryGroup struct {
	Category string         `json:"category"`
	Traits   []domain.Trait `json:"traits"`
}

// Catalog es el registro estatico de traits disponibles. Se construye una vez
// al inicio del proceso y es de solo lectura despues.
type Catalog struct {
	dimension int
	ordered   []domain.Trait
	byID      map[string]domain.Trait
	groups    []CategoryGroup
}

// New construye el catalogo desde la tabla de definiciones estatica.
// Las categorias quedan en orden de primera aparicion; los traits de cada
// categoria preservan el orden de definicion.
func New() *Catalog {
	c := &Catalog{
		dimension: embeddingDimension,
		byID:      make(map[string]domain.Trait, len(definitions)),
	}

	groupIdx := make(map[string]int)
	for _, t := range definitions {
		if len(t.Vector) != embeddingDimension {
			panic(fmt.Sprintf("catalog: trait %q has vector of length %d, want %d", t.ID, len(t.Vector), embeddingDimension))
		}
		if _, dup := c.byID[t.ID]; dup {
			panic(fmt.Sprintf("catalog: duplicate trait id %q", t.ID))
		}
		c.byID[t.ID] = t
		c.ordered = append(c.ordered, t)

		idx, ok := groupIdx[t.Category]
		if !ok {
			idx = len(c.groups)
			groupIdx[t.Category] = idx
			c.groups = append(c.groups, CategoryGroup{Category: t.Category})
		}
		c.groups[idx].Traits = append(c.groups[idx].Traits, t)
	}
	return c
}

// Dimension devuelve la dimension fija D de todos los vectores del catalogo.
func (c *Catalog) Dimension() int {
	return c.dimension
}

// ListTraits devuelve los traits agrupados por categoria, en orden estable.
func (c *Catalog) ListTraits() []CategoryGroup {
	groups := make([]CategoryGroup, len(c.groups))
	for i, g := range c.groups {
		traits := make([]domain.Trait, len(g.Traits))
		for j, t := range g.Traits {
			traits[j] = copyTrait(t)
		}
		groups[i] = CategoryGroup{Category: g.Category, Traits: traits}
	}
	return groups
}

// Lookup busca un trait por id.
func (c *Catalog) Lookup(id string) (domain.Trait, error) {
	t, ok := c.byID[id]
	if !ok {
		return domain.Trait{}, fmt.Errorf("%w: %q", ErrUnknownTrait, id)
	}
	return copyTrait(t), nil
}

// Resolve deduplica un conjunto de ids y devuelve los traits correspondientes
// en orden de catalogo (la capa de presentacion manda listas con posibles
// repetidos; aca se tratan como un set). Un id desconocido corta con
// ErrUnknownTrait; un conjunto vacio devuelve nil sin error.
func (c *Catalog) Resolve(ids []string) ([]domain.Trait, error) {
	selected := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, err := c.Lookup(id); err != nil {
			return nil, err
		}
		selected[id] = struct{}{}
	}
	if len(selected) == 0 {
		return nil, nil
	}

	traits := make([]domain.Trait, 0, len(selected))
	for _, t := range c.ordered {
		if _, ok := selected[t.ID]; ok {
			traits = append(traits, copyTrait(t))
		}
	}
	return traits, nil
}

// copyTrait copia el vector para que los callers no puedan mutar el catalogo.
func copyTrait(t domain.Trait) domain.Trait {
	vec := make([]float32, len(t.Vector))
	copy(vec, t.Vector)
	t.Vector = vec
	return t
}
