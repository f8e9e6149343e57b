// Package cart owns the shopping cart state for the current browsing session.
//
// The store keeps the line list in memory as the single source of truth,
// derives both totals on demand, and write-through persists a versioned
// envelope to the durable key-value store after every mutation. Persistence
// is best effort: a failed write is logged and swallowed, because losing the
// write-through must never break in-memory shopping behavior.
package cart

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/storage"
)

// envelopeVersion tags the persisted schema. Anything else found on load is
// treated like a malformed blob and reset to an empty cart.
const envelopeVersion = 1

// Line pairs one product with a quantity. At most one line exists per
// product id; a product absent from the list means quantity zero.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Snapshot is the cart state plus its derived totals, in the shape both the
// persisted envelope and the HTTP layer use. The totals are recomputed from
// the line list at the moment the snapshot is taken, never stored separately.
type Snapshot struct {
	Items      []Line  `json:"items"`
	TotalItems int     `json:"totalItems"`
	TotalPrice float64 `json:"totalPrice"`
}

type envelope struct {
	State   Snapshot `json:"state"`
	Version int      `json:"version"`
}

// Store is the cart state container. Construct exactly one per process with
// NewStore and inject it; there is no ambient singleton.
type Store struct {
	mu     sync.Mutex
	items  []Line
	kv     storage.KV
	logger *slog.Logger
}

// NewStore creates a cart store and rehydrates it from the durable medium.
// A missing, malformed or mis-versioned envelope yields an empty cart.
func NewStore(ctx context.Context, kv storage.KV, logger *slog.Logger) *Store {
	s := &Store{
		kv:     kv,
		logger: logger.With("component", "cart"),
	}
	s.load(ctx)
	return s
}

// AddItem merges quantity into the existing line for the product, or appends
// a new line at the end so insertion order is the order of first addition.
// Quantity >= 1 is the caller's contract; the store does not clamp here.
func (s *Store) AddItem(ctx context.Context, product catalog.Product, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].Product.ID == product.ID {
			s.items[i].Quantity += quantity
			s.persist(ctx)
			return
		}
	}
	s.items = append(s.items, Line{Product: product, Quantity: quantity})
	s.persist(ctx)
}

// RemoveItem deletes the line for the product id. Removing an absent id is a no-op.
func (s *Store) RemoveItem(ctx context.Context, productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLine(productID)
	s.persist(ctx)
}

// UpdateQuantity sets the line's quantity to the given absolute value.
// A quantity <= 0 behaves exactly like RemoveItem. An absent id is a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, productID int, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLine(productID)
		s.persist(ctx)
		return
	}
	for i := range s.items {
		if s.items[i].Product.ID == productID {
			s.items[i].Quantity = quantity
			break
		}
	}
	s.persist(ctx)
}

// Clear empties the cart unconditionally.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.persist(ctx)
}

// Items returns a copy of the current line list.
func (s *Store) Items() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Line, len(s.items))
	copy(items, s.items)
	return items
}

// TotalItems folds the quantities over the current lines.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalItems, _ := s.totals()
	return totalItems
}

// TotalPrice folds quantity times unit price over the current lines.
func (s *Store) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, totalPrice := s.totals()
	return totalPrice
}

// Snapshot returns the line list together with freshly computed totals.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot()
}

// removeLine deletes the line for productID, preserving the order of the rest.
// Callers must hold s.mu.
func (s *Store) removeLine(productID int) {
	for i := range s.items {
		if s.items[i].Product.ID == productID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// totals recomputes both aggregates from the line list. Callers must hold s.mu.
func (s *Store) totals() (int, float64) {
	totalItems := 0
	totalPrice := 0.0
	for i := range s.items {
		totalItems += s.items[i].Quantity
		totalPrice += float64(s.items[i].Quantity) * s.items[i].Product.Price
	}
	return totalItems, totalPrice
}

func (s *Store) snapshot() Snapshot {
	items := make([]Line, len(s.items))
	copy(items, s.items)
	totalItems, totalPrice := s.totals()
	return Snapshot{
		Items:      items,
		TotalItems: totalItems,
		TotalPrice: totalPrice,
	}
}

// persist writes the full envelope through to the durable medium.
// Failures are logged and ignored. Callers must hold s.mu.
func (s *Store) persist(ctx context.Context) {
	blob, err := json.Marshal(envelope{State: s.snapshot(), Version: envelopeVersion})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to serialize cart state", "error", err)
		return
	}
	if err := s.kv.Set(ctx, storage.CartKey, blob); err != nil {
		s.logger.WarnContext(ctx, "Failed to persist cart state", "error", err)
	}
}

// load rehydrates the line list from the durable medium, degrading to an
// empty cart on any read or parse problem.
func (s *Store) load(ctx context.Context) {
	blob, ok, err := s.kv.Get(ctx, storage.CartKey)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read persisted cart state", "error", err)
		return
	}
	if !ok {
		return
	}
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		s.logger.WarnContext(ctx, "Discarding malformed persisted cart state", "error", err)
		return
	}
	if env.Version != envelopeVersion {
		s.logger.WarnContext(ctx, "Discarding persisted cart state with unknown version", "version", env.Version)
		return
	}
	// Only the line list is restored; totals are derived state.
	s.items = env.State.Items
}
