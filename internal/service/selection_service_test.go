package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"persona-match/internal/catalog"
	"persona-match/internal/domain"
	"persona-match/internal/index"
	"persona-match/internal/repository"
)

type mockSelectionMirror struct {
	selections map[int64]domain.PersonaSelection
	failUpsert bool
	failDelete bool
}

func newMockSelectionMirror() *mockSelectionMirror {
	return &mockSelectionMirror{selections: make(map[int64]domain.PersonaSelection)}
}

func (m *mockSelectionMirror) Upsert(_ context.Context, sel domain.PersonaSelection) error {
	if m.failUpsert {
		return errors.New("mirror down")
	}
	m.selections[sel.UserID] = sel
	return nil
}

func (m *mockSelectionMirror) GetByUserID(_ context.Context, userID int64) (domain.PersonaSelection, error) {
	sel, ok := m.selections[userID]
	if !ok {
		return domain.PersonaSelection{}, errors.New("not found")
	}
	return sel, nil
}

func (m *mockSelectionMirror) Delete(_ context.Context, userID int64) error {
	if m.failDelete {
		return errors.New("mirror down")
	}
	delete(m.selections, userID)
	return nil
}

func (m *mockSelectionMirror) List(_ context.Context) ([]domain.PersonaSelection, error) {
	out := make([]domain.PersonaSelection, 0, len(m.selections))
	for _, sel := range m.selections {
		out = append(out, sel)
	}
	return out, nil
}

// personaWithEmbedding arma una persona valida (traits reales del catalogo)
// con un embedding unitario elegido a mano.
func personaWithEmbedding(t *testing.T, cat *catalog.Catalog, ids []string, embedding []float32) domain.Persona {
	t.Helper()
	traits, err := cat.Resolve(ids)
	if err != nil {
		t.Fatalf("resolve traits: %v", err)
	}
	return domain.Persona{Traits: traits, Summary: "test persona", Embedding: embedding}
}

func axisEmbedding(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis] = 1
	return v
}

func newSelectionServiceForTest(mirror repository.SelectionRepository) (*SelectionService, *catalog.Catalog, *index.Index) {
	cat := catalog.New()
	idx := index.New()
	svc := NewSelectionService(zap.NewNop(), cat, idx, mirror)
	return svc, cat, idx
}

func TestSaveRequiresSelfPersona(t *testing.T) {
	svc, _, _ := newSelectionServiceForTest(nil)

	err := svc.Save(context.Background(), 1, domain.PersonaSelection{
		SelectedTraitIDs: []string{"hiking"},
	})
	if !errors.Is(err, ErrSelfPersonaMissing) {
		t.Fatalf("expected ErrSelfPersonaMissing, got %v", err)
	}
}

func TestSaveValidatesSelection(t *testing.T) {
	svc, cat, _ := newSelectionServiceForTest(nil)
	self := personaWithEmbedding(t, cat, []string{"hiking"}, axisEmbedding(cat.Dimension(), 0))

	t.Run("empty trait set", func(t *testing.T) {
		err := svc.Save(context.Background(), 1, domain.PersonaSelection{SelfPersona: self})
		if !errors.Is(err, ErrEmptySelection) {
			t.Fatalf("expected ErrEmptySelection, got %v", err)
		}
	})

	t.Run("unknown trait id", func(t *testing.T) {
		err := svc.Save(context.Background(), 1, domain.PersonaSelection{
			SelectedTraitIDs: []string{"bogus"},
			SelfPersona:      self,
		})
		if !errors.Is(err, catalog.ErrUnknownTrait) {
			t.Fatalf("expected ErrUnknownTrait, got %v", err)
		}
	})

	t.Run("non unit embedding", func(t *testing.T) {
		bad := personaWithEmbedding(t, cat, []string{"hiking"}, []float32{2, 0, 0, 0, 0, 0, 0, 0})
		err := svc.Save(context.Background(), 1, domain.PersonaSelection{
			SelectedTraitIDs: []string{"hiking"},
			SelfPersona:      bad,
		})
		if !errors.Is(err, ErrInvalidPersona) {
			t.Fatalf("expected ErrInvalidPersona, got %v", err)
		}
	})

	t.Run("wrong dimension", func(t *testing.T) {
		bad := personaWithEmbedding(t, cat, []string{"hiking"}, []float32{1, 0})
		err := svc.Save(context.Background(), 1, domain.PersonaSelection{
			SelectedTraitIDs: []string{"hiking"},
			SelfPersona:      bad,
		})
		if !errors.Is(err, ErrInvalidPersona) {
			t.Fatalf("expected ErrInvalidPersona, got %v", err)
		}
	})
}

func TestSaveDeduplicatesTraitIDs(t *testing.T) {
	svc, cat, _ := newSelectionServiceForTest(nil)
	self := personaWithEmbedding(t, cat, []string{"hiking"}, axisEmbedding(cat.Dimension(), 0))

	err := svc.Save(context.Background(), 1, domain.PersonaSelection{
		SelectedTraitIDs: []string{"hiking", "reading", "hiking", "reading"},
		SelfPersona:      self,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sel, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(sel.SelectedTraitIDs, []string{"hiking", "reading"}) {
		t.Fatalf("expected deduplicated ids in catalog order, got %v", sel.SelectedTraitIDs)
	}
}

func TestSavePublishesIndexAtomically(t *testing.T) {
	svc, cat, idx := newSelectionServiceForTest(nil)
	dim := cat.Dimension()
	self := personaWithEmbedding(t, cat, []string{"hiking"}, axisEmbedding(dim, 0))
	desired := personaWithEmbedding(t, cat, []string{"reading"}, axisEmbedding(dim, 1))

	err := svc.Save(context.Background(), 1, domain.PersonaSelection{
		SelectedTraitIDs: []string{"hiking"},
		SelfPersona:      self,
		DesiredMatch:     &desired,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry, ok := idx.Snapshot().Entry(1)
	if !ok {
		t.Fatalf("expected index entry after save")
	}
	if !reflect.DeepEqual(entry.Self, self.Embedding) {
		t.Fatalf("index self embedding does not match saved persona")
	}
	if !reflect.DeepEqual(entry.Desired, desired.Embedding) {
		t.Fatalf("index desired embedding does not match saved persona")
	}
}

func TestSaveReplacesWholeRecord(t *testing.T) {
	svc, cat, idx := newSelectionServiceForTest(nil)
	dim := cat.Dimension()
	selfA := personaWithEmbedding(t, cat, []string{"hiking"}, axisEmbedding(dim, 0))
	desired := personaWithEmbedding(t, cat, []string{"reading"}, axisEmbedding(dim, 1))
	selfB := personaWithEmbedding(t, cat, []string{"creative"}, axisEmbedding(dim, 2))

	if err := svc.Save(context.Background(), 1, domain.PersonaSelection{
		SelectedTraitIDs: []string{"hiking"},
		SelfPersona:      selfA,
		DesiredMatch:     &desired,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Save(context.Background(), 1, domain.PersonaSelection{
		SelectedTraitIDs: []string{"creative"},
		SelfPersona:      selfB,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sel, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.DesiredMatch != nil {
		t.Fatalf("expected desired persona dropped by wholesale replace")
	}
	entry, _ := idx.Snapshot().Entry(1)
	if entry.Desired != nil {
		t.Fatalf("expected desired embedding cleared in index")
	}
	if !reflect.DeepEqual(entry.Self, selfB.Embedding) {
		t.Fatalf("expected replaced self embedding in index")
	}
}

func TestSavePublishesNothingOnMirrorFailure(t *testing.T) {
	mirror := newMockSelectionMirror()
	svc, cat, idx := newSelectionServiceForTest(mirror)
	dim := cat.Dimension()
	selfA := personaWithEmbedding(t, cat, []string{"hiking"}, axisEmbedding(dim, 0))
	selfB := personaWithEmbedding(t, cat, []string{"creative"}, axisEmbedding(dim, 1))

	t.Run("no prior record", func(t *testing.T) {
		mirror.failUpsert = true
		err := svc.Save(context.Background(), 1, domain.PersonaSelection{
			SelectedTraitIDs: []string{"hiking"},
			SelfPersona:      selfA,
		})
		if err == nil {
			t.Fatalf("expected mirror failure to surface")
		}
		if _, err := svc.Get(context.Background(), 1); !errors.Is(err, ErrSelectionNotFound) {
			t.Fatalf("expected no record after failed save, got %v", err)
		}
		if _, ok := idx.Snapshot().Entry(1); ok {
			t.Fatalf("expected no index entry after failed save")
		}
	})

	t.Run("prior record untouched", func(t *testing.T) {
		mirror.failUpsert = false
		if err := svc.Save(context.Background(), 1, domain.PersonaSelection{
			SelectedTraitIDs: []string{"hiking"},
			SelfPersona:      selfA,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		mirror.failUpsert = true
		err := svc.Save(context.Background(), 1, domain.PersonaSelection{
			SelectedTraitIDs: []string{"creative"},
			SelfPersona:      selfB,
		})
		if err == nil {
			t.Fatalf("expected mirror failure to surface")
		}

		sel, err := svc.Get(context.Background(), 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(sel.SelfPersona.Embedding, selfA.Embedding) {
			t.Fatalf("expected prior record to survive failed save")
		}
		entry, _ := idx.Snapshot().Entry(1)
		if !reflect.DeepEqual(entry.Self, selfA.Embedding) {
			t.Fatalf("expected prior index entry to survive failed save")
		}
	})
}

// stallingMirror deja al escritor parado dentro de Upsert hasta que el test
// lo libere, simulando una ida a Postgres lenta.
type stallingMirror struct {
	stall   bool
	entered chan struct{}
	release chan struct{}
}

func (m *stallingMirror) Upsert(_ context.Context, _ domain.PersonaSelection) error {
	if m.stall {
		close(m.entered)
		<-m.release
	}
	return nil
}

func (m *stallingMirror) GetByUserID(_ context.Context, _ int64) (domain.PersonaSelection, error) {
	return domain.PersonaSelection{}, errors.New("not found")
}

func (m *stallingMirror) Delete(_ context.Context, _ int64) error { return nil }

func (m *stallingMirror) List(_ context.Context) ([]domain.PersonaSelection, error) {
	return nil, nil
}

func TestGetDoesNotBlockOnMirrorIO(t *testing.T) {
	mirror := &stallingMirror{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, cat, _ := newSelectionServiceForTest(mirror)
	dim := cat.Dimension()
	selfA := personaWithEmbedding(t, cat, []string{"hiking"}, axisEmbedding(dim, 0))
	selfB := personaWithEmbedding(t, cat, []string{"reading"}, axisEmbedding(dim, 1))

	if err := svc.Save(context.Background(), 1, domain.PersonaSelection{
		SelectedTraitIDs: []string{"hiking"},
		SelfPersona:      selfA,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mirror.stall = true
	saveDone := make(chan error, 1)
	go func() {
		saveDone <- svc.Save(context.Background(), 2, domain.PersonaSelection{
			SelectedTraitIDs: []string{"reading"},
			SelfPersona:      selfB,
		})
	}()
	<-mirror.entered

	// Con el escritor parado en la I/O del espejo, las lecturas deben seguir
	// respondiendo con el estado previo en vez de esperar al lock de escritura.
	got := make(chan error, 1)
	go func() {
		_, err := svc.Get(context.Background(), 1)
		got <- err
	}()
	select {
	case err := <-got:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Get blocked behind a writer waiting on mirror I/O")
	}

	if _, err := svc.Get(context.Background(), 2); !errors.Is(err, ErrSelectionNotFound) {
		t.Fatalf("save in flight must not be visible yet, got %v", err)
	}

	close(mirror.release)
	if err := <-saveDone; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(context.Background(), 2); err != nil {
		t.Fatalf("expected record visible after save completed, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	svc, cat, idx := newSelectionServiceForTest(nil)
	self := personaWithEmbedding(t, cat, []string{"hiking"}, axisEmbedding(cat.Dimension(), 0))

	if err := svc.Save(context.Background(), 1, domain.PersonaSelection{
		SelectedTraitIDs: []string{"hiking"},
		SelfPersona:      self,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Remove(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(context.Background(), 1); !errors.Is(err, ErrSelectionNotFound) {
		t.Fatalf("expected ErrSelectionNotFound after remove, got %v", err)
	}
	if _, ok := idx.Snapshot().Entry(1); ok {
		t.Fatalf("expected index entry removed together with record")
	}

	if err := svc.Remove(context.Background(), 1); !errors.Is(err, ErrSelectionNotFound) {
		t.Fatalf("expected ErrSelectionNotFound for missing record, got %v", err)
	}
}

func TestRehydrate(t *testing.T) {
	mirror := newMockSelectionMirror()
	svc, cat, _ := newSelectionServiceForTest(mirror)
	dim := cat.Dimension()

	for id := int64(1); id <= 3; id++ {
		self := personaWithEmbedding(t, cat, []string{"hiking"}, axisEmbedding(dim, int(id-1)))
		if err := svc.Save(context.Background(), id, domain.PersonaSelection{
			SelectedTraitIDs: []string{"hiking"},
			SelfPersona:      self,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Proceso nuevo: store vacio, mismo espejo.
	restarted, _, _ := newSelectionServiceForTest(mirror)
	if err := restarted.Rehydrate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if restarted.IndexSnapshot().Len() != 3 {
		t.Fatalf("expected 3 index entries after rehydration, got %d", restarted.IndexSnapshot().Len())
	}
	sel, err := restarted.Get(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.UserID != 2 {
		t.Fatalf("unexpected rehydrated record: %+v", sel)
	}
}
