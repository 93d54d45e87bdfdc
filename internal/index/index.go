// Package index mantiene la proyeccion en memoria de embeddings por usuario
// usada para el ranking de matches. Es una cache derivada del store, nunca
// la fuente de verdad: se puede reconstruir completa en cualquier momento.
package index

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Entry son los embeddings indexados de un usuario. Desired puede ser nil.
type Entry struct {
	UserID  int64
	Self    []float32
	Desired []float32
}

// Candidate es un resultado de ranking: usuario + similitud coseno en [0,1].
type Candidate struct {
	UserID     int64
	Similarity float64
}

// Index publica snapshots inmutables mediante swap atomico de puntero.
// Los escritores reconstruyen el mapa bajo mu; los lectores solo leen el
// puntero, asi un ranking largo nunca bloquea a los writers ni observa un
// estado a medio escribir.
type Index struct {
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
}

func New() *Index {
	idx := &Index{}
	idx.snap.Store(&Snapshot{entries: map[int64]Entry{}})
	return idx
}

// Upsert reemplaza los embeddings de un usuario. Idempotente.
func (i *Index) Upsert(userID int64, self, desired []float32) {
	entry := Entry{UserID: userID, Self: copyVec(self), Desired: copyVec(desired)}

	i.mu.Lock()
	defer i.mu.Unlock()
	next := i.rebuild()
	next[userID] = entry
	i.snap.Store(&Snapshot{entries: next})
}

// Remove elimina la entrada de un usuario, si existe.
func (i *Index) Remove(userID int64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	next := i.rebuild()
	delete(next, userID)
	i.snap.Store(&Snapshot{entries: next})
}

// Replace descarta todo el indice y lo reconstruye desde cero (rehidratacion).
func (i *Index) Replace(entries []Entry) {
	next := make(map[int64]Entry, len(entries))
	for _, e := range entries {
		next[e.UserID] = Entry{UserID: e.UserID, Self: copyVec(e.Self), Desired: copyVec(e.Desired)}
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.snap.Store(&Snapshot{entries: next})
}

// Snapshot devuelve la vista inmutable vigente. Costo: una lectura de puntero.
func (i *Index) Snapshot() *Snapshot {
	return i.snap.Load()
}

// rebuild copia el mapa vigente; las entradas son inmutables y se comparten.
func (i *Index) rebuild() map[int64]Entry {
	cur := i.snap.Load().entries
	next := make(map[int64]Entry, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	return next
}

// Snapshot es una vista congelada del indice. Seguro para lecturas concurrentes.
type Snapshot struct {
	entries map[int64]Entry
}

func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Entry devuelve la entrada de un usuario, si esta indexado.
func (s *Snapshot) Entry(userID int64) (Entry, bool) {
	e, ok := s.entries[userID]
	return e, ok
}

// Rank escanea todos los usuarios con self embedding (excluyendo excludeID),
// calcula la similitud coseno contra query y devuelve hasta limit candidatos
// ordenados por similitud descendente, con desempate por userID ascendente.
// Los embeddings son unitarios, asi que coseno = producto punto; valores
// negativos se recortan a 0 para mantener el rango [0,1].
func (s *Snapshot) Rank(query []float32, excludeID int64, limit int) []Candidate {
	candidates := make([]Candidate, 0, len(s.entries))
	for id, e := range s.entries {
		if id == excludeID || e.Self == nil {
			continue
		}
		sim := dot(query, e.Self)
		if sim < 0 {
			sim = 0
		} else if sim > 1 {
			sim = 1
		}
		candidates = append(candidates, Candidate{UserID: id, Similarity: sim})
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].Similarity != candidates[b].Similarity {
			return candidates[a].Similarity > candidates[b].Similarity
		}
		return candidates[a].UserID < candidates[b].UserID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func copyVec(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
