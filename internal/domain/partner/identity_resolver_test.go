package partner

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryEntities struct {
	byID  map[string]*Entity
	order []string
}

func newMemoryEntities() *memoryEntities {
	return &memoryEntities{byID: make(map[string]*Entity)}
}

func (m *memoryEntities) FindByID(_ context.Context, id string) (*Entity, error) {
	if e, ok := m.byID[id]; ok {
		return e, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memoryEntities) FindByName(_ context.Context, name string) (*Entity, error) {
	for _, id := range m.order {
		if m.byID[id].Name == name {
			return m.byID[id], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryEntities) Create(_ context.Context, e *Entity) error {
	if _, ok := m.byID[e.ID]; ok {
		return shared.ErrAlreadyExists
	}
	m.byID[e.ID] = e
	m.order = append(m.order, e.ID)
	return nil
}

func (m *memoryEntities) Save(_ context.Context, e *Entity) error {
	m.byID[e.ID] = e
	return nil
}

func (m *memoryEntities) List(_ context.Context, _ EntityFilter) ([]Entity, int64, error) {
	out := make([]Entity, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.byID[id])
	}
	return out, int64(len(out)), nil
}

func (m *memoryEntities) ListIDs(_ context.Context) ([]string, error) {
	ids := append([]string(nil), m.order...)
	sort.Strings(ids)
	return ids, nil
}

// prefixSimilarity scores by shared prefix length, case-insensitively
type prefixSimilarity struct{}

func (prefixSimilarity) Score(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 100
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return 100 * float64(n) / float64(longest)
}

type fixedIDs struct {
	ids []string
}

func (f *fixedIDs) NewID() string {
	id := f.ids[0]
	f.ids = f.ids[1:]
	return id
}

func strPtr(s string) *string { return &s }

func TestIdentityResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("registers unknown id with given name", func(t *testing.T) {
		repo := newMemoryEntities()
		r := NewIdentityResolver(prefixSimilarity{})

		res, err := r.Resolve(ctx, repo, NewCandidate(strPtr("CL-001"), strPtr("Acme Corp")))

		require.NoError(t, err)
		assert.Equal(t, ClassificationAccepted, res.Classification)
		assert.True(t, res.Created)
		assert.Equal(t, "CL-001", res.EntityID())
		assert.Equal(t, "Acme Corp", repo.byID["CL-001"].Name)
	})

	t.Run("heals missing id from exact name", func(t *testing.T) {
		repo := newMemoryEntities()
		r := NewIdentityResolver(prefixSimilarity{})
		_, err := r.Resolve(ctx, repo, NewCandidate(strPtr("CL-001"), strPtr("Acme Corp")))
		require.NoError(t, err)

		res, err := r.Resolve(ctx, repo, NewCandidate(strPtr("N/A"), strPtr("Acme Corp")))

		require.NoError(t, err)
		assert.Equal(t, ClassificationAccepted, res.Classification)
		assert.False(t, res.Created)
		assert.Equal(t, "CL-001", res.EntityID())
	})

	t.Run("keeps stored name on close match", func(t *testing.T) {
		repo := newMemoryEntities()
		_ = repo.Create(ctx, mustEntity(t, "CL-001", "Acme Corporation"))
		r := NewIdentityResolver(prefixSimilarity{})

		res, err := r.Resolve(ctx, repo, NewCandidate(strPtr("CL-001"), strPtr("acme corporatio")))

		require.NoError(t, err)
		assert.Equal(t, ClassificationAccepted, res.Classification)
		assert.Equal(t, "Acme Corporation", res.Entity.Name)
		assert.Equal(t, "Acme Corporation", repo.byID["CL-001"].Name)
	})

	t.Run("routes divergent name to typo review", func(t *testing.T) {
		repo := newMemoryEntities()
		_ = repo.Create(ctx, mustEntity(t, "CL-001", "Acme Corp"))
		r := NewIdentityResolver(prefixSimilarity{})

		res, err := r.Resolve(ctx, repo, NewCandidate(strPtr("CL-001"), strPtr("Zenith Ltd")))

		require.NoError(t, err)
		assert.Equal(t, ClassificationTypoReview, res.Classification)
		assert.Nil(t, res.Entity)
		assert.Empty(t, res.EntityID())
		assert.Equal(t, "Acme Corp", res.StoredName)
		assert.Len(t, repo.order, 1)
	})

	t.Run("threshold is configurable", func(t *testing.T) {
		repo := newMemoryEntities()
		_ = repo.Create(ctx, mustEntity(t, "CL-001", "Acme Corp"))
		r := NewIdentityResolver(prefixSimilarity{}, WithThreshold(100))

		res, err := r.Resolve(ctx, repo, NewCandidate(strPtr("CL-001"), strPtr("Zenith Ltd")))

		require.NoError(t, err)
		assert.Equal(t, ClassificationAccepted, res.Classification)
	})

	t.Run("quarantines when id and name are placeholders", func(t *testing.T) {
		repo := newMemoryEntities()
		r := NewIdentityResolver(prefixSimilarity{})

		res, err := r.Resolve(ctx, repo, NewCandidate(strPtr("unknown"), strPtr(" NULL ")))

		require.NoError(t, err)
		assert.Equal(t, ClassificationIrreconcilable, res.Classification)
		assert.Empty(t, repo.order)
	})

	t.Run("id only uses id as name for new entity", func(t *testing.T) {
		repo := newMemoryEntities()
		r := NewIdentityResolver(prefixSimilarity{})

		res, err := r.Resolve(ctx, repo, NewCandidate(strPtr("SUP-9"), nil))

		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.Equal(t, "SUP-9", res.Entity.Name)
	})

	t.Run("mints id for unknown name and skips collisions", func(t *testing.T) {
		repo := newMemoryEntities()
		_ = repo.Create(ctx, mustEntity(t, "ENT-AAAAAA", "Taken"))
		r := NewIdentityResolver(prefixSimilarity{}, WithIDGenerator(&fixedIDs{ids: []string{"ENT-AAAAAA", "ENT-BBBBBB"}}))

		res, err := r.Resolve(ctx, repo, NewCandidate(nil, strPtr("Globex")))

		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.Equal(t, "ENT-BBBBBB", res.EntityID())
	})

	t.Run("same input resolves to the same entity", func(t *testing.T) {
		repo := newMemoryEntities()
		r := NewIdentityResolver(prefixSimilarity{})

		first, err := r.Resolve(ctx, repo, NewCandidate(nil, strPtr("Initech")))
		require.NoError(t, err)
		second, err := r.Resolve(ctx, repo, NewCandidate(nil, strPtr("Initech")))
		require.NoError(t, err)

		assert.Equal(t, first.EntityID(), second.EntityID())
		assert.False(t, second.Created)
		assert.Len(t, repo.order, 1)
	})
}

func TestTaggedIDGenerator_NewID(t *testing.T) {
	id := TaggedIDGenerator{Tag: "VEN"}.NewID()

	assert.Regexp(t, `^VEN-[0-9A-F]{6}$`, id)
	assert.Regexp(t, `^ENT-[0-9A-F]{6}$`, TaggedIDGenerator{}.NewID())
}

func mustEntity(t *testing.T, id, name string) *Entity {
	t.Helper()
	e, err := NewEntity(id, name)
	require.NoError(t, err)
	return e
}
