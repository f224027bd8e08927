package partner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/meritledger/backend/internal/domain/shared"
)

const (
	// DefaultSimilarityThreshold is the largest dissimilarity, in points on a
	// 0-100 scale, that is still treated as the same name.
	DefaultSimilarityThreshold = 15.0
	// DefaultIDTag prefixes minted entity ids
	DefaultIDTag = "ENT"

	maxMintAttempts = 5
)

// Classification is the terminal routing decision for one document
type Classification string

const (
	ClassificationAccepted       Classification = "Accepted"
	ClassificationIrreconcilable Classification = "Irreconcilable"
	ClassificationTypoReview     Classification = "TypoReview"
)

// String returns the string representation
func (c Classification) String() string {
	return string(c)
}

// Similarity scores two names from 0 (unrelated) to 100 (identical), case-insensitively
type Similarity interface {
	Score(a, b string) float64
}

// IDGenerator mints ids for entities first seen without one
type IDGenerator interface {
	NewID() string
}

// TaggedIDGenerator mints ids of the form TAG-XXXXXX
type TaggedIDGenerator struct {
	Tag string
}

// NewID returns the tag followed by six random upper-case hex digits
func (g TaggedIDGenerator) NewID() string {
	tag := g.Tag
	if tag == "" {
		tag = DefaultIDTag
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return tag + "-" + strings.ToUpper(suffix)
}

// Candidate is the (id, name) pair read from a document. Nil means absent.
type Candidate struct {
	ID   *string
	Name *string
}

// NewCandidate builds a candidate, treating placeholder tokens as absent
func NewCandidate(id, name *string) Candidate {
	return Candidate{ID: shared.PresentPtr(id), Name: shared.PresentPtr(name)}
}

// Resolution is the outcome of resolving a candidate
type Resolution struct {
	Classification Classification
	Entity         *Entity
	Created        bool
	Similarity     float64
	Reason         string
	// StoredName is the name on record when the candidate was sent to typo review
	StoredName     string
}

// EntityID returns the resolved id, or empty when the document was not accepted
func (r *Resolution) EntityID() string {
	if r.Entity == nil {
		return ""
	}
	return r.Entity.ID
}

// IdentityResolver maps a candidate to a canonical entity. Its only side
// effect is registering entities it has never seen.
type IdentityResolver struct {
	similarity Similarity
	threshold  float64
	ids        IDGenerator
}

// ResolverOption configures an IdentityResolver
type ResolverOption func(*IdentityResolver)

// WithThreshold sets the dissimilarity threshold in points
func WithThreshold(threshold float64) ResolverOption {
	return func(r *IdentityResolver) {
		r.threshold = threshold
	}
}

// WithIDGenerator sets the generator used for minted ids
func WithIDGenerator(ids IDGenerator) ResolverOption {
	return func(r *IdentityResolver) {
		r.ids = ids
	}
}

// NewIdentityResolver creates a resolver around a similarity function
func NewIdentityResolver(similarity Similarity, opts ...ResolverOption) *IdentityResolver {
	r := &IdentityResolver{
		similarity: similarity,
		threshold:  DefaultSimilarityThreshold,
		ids:        TaggedIDGenerator{Tag: DefaultIDTag},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Threshold returns the configured dissimilarity threshold
func (r *IdentityResolver) Threshold() float64 {
	return r.threshold
}

// Resolve classifies the candidate against the entity store
func (r *IdentityResolver) Resolve(ctx context.Context, entities EntityRepository, c Candidate) (*Resolution, error) {
	switch {
	case c.ID == nil && c.Name == nil:
		return &Resolution{
			Classification: ClassificationIrreconcilable,
			Reason:         "Entity name and id are both missing",
		}, nil
	case c.ID == nil:
		return r.resolveByName(ctx, entities, *c.Name)
	default:
		return r.resolveByID(ctx, entities, *c.ID, c.Name)
	}
}

func (r *IdentityResolver) resolveByName(ctx context.Context, entities EntityRepository, name string) (*Resolution, error) {
	existing, err := entities.FindByName(ctx, name)
	if err == nil {
		return &Resolution{
			Classification: ClassificationAccepted,
			Entity:         existing,
			Similarity:     100,
			Reason:         "Id healed from exact name match",
		}, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("find entity by name: %w", err)
	}

	id, err := r.mintID(ctx, entities)
	if err != nil {
		return nil, err
	}
	return r.register(ctx, entities, id, name, "Registered with minted id")
}

func (r *IdentityResolver) resolveByID(ctx context.Context, entities EntityRepository, id string, name *string) (*Resolution, error) {
	existing, err := entities.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("find entity by id: %w", err)
		}
		display := id
		if name != nil {
			display = *name
		}
		return r.register(ctx, entities, id, display, "Registered from document")
	}

	if name == nil {
		return &Resolution{
			Classification: ClassificationAccepted,
			Entity:         existing,
			Similarity:     100,
			Reason:         "Matched by id",
		}, nil
	}

	score := r.similarity.Score(*name, existing.Name)
	if 100-score > r.threshold {
		return &Resolution{
			Classification: ClassificationTypoReview,
			Similarity:     score,
			StoredName:     existing.Name,
			Reason: fmt.Sprintf("Name %q differs from stored name %q for id %s (similarity %.1f)",
				*name, existing.Name, id, score),
		}, nil
	}
	return &Resolution{
		Classification: ClassificationAccepted,
		Entity:         existing,
		Similarity:     score,
		Reason:         "Matched by id, stored name kept",
	}, nil
}

func (r *IdentityResolver) register(ctx context.Context, entities EntityRepository, id, name, reason string) (*Resolution, error) {
	e, err := NewEntity(id, name)
	if err != nil {
		return nil, err
	}
	if err := entities.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("register entity %s: %w", id, err)
	}
	return &Resolution{
		Classification: ClassificationAccepted,
		Entity:         e,
		Created:        true,
		Similarity:     100,
		Reason:         reason,
	}, nil
}

func (r *IdentityResolver) mintID(ctx context.Context, entities EntityRepository) (string, error) {
	for i := 0; i < maxMintAttempts; i++ {
		id := r.ids.NewID()
		_, err := entities.FindByID(ctx, id)
		if errors.Is(err, shared.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("check minted id: %w", err)
		}
	}
	return "", shared.NewDomainError(shared.ErrAlreadyExists.Code, "Could not mint a unique entity id")
}
