// Package session owns the authenticated identity for the current browsing
// session. It records login outcomes; credential verification happens
// upstream, never here.
//
// Persistence follows the same write-through discipline as the cart store:
// every mutation serializes the full envelope to the durable key-value store,
// failures are logged and swallowed, and construction rehydrates once.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/storage"
)

const envelopeVersion = 1

// ErrNoSession is returned by UpdateUser when nobody is logged in.
var ErrNoSession = errors.New("no active session")

// Snapshot is the session state in persisted-envelope shape.
// IsAuthenticated is derived: true iff both user and token are present.
type Snapshot struct {
	User            *catalog.User `json:"user"`
	Token           *string       `json:"token"`
	IsAuthenticated bool          `json:"isAuthenticated"`
}

type envelope struct {
	State   Snapshot `json:"state"`
	Version int      `json:"version"`
}

// UserPatch is a partial identity update. Only non-nil fields are applied.
type UserPatch struct {
	Email    *string          `json:"email"`
	Username *string          `json:"username"`
	Password *string          `json:"password"`
	Name     *catalog.Name    `json:"name"`
	Address  *catalog.Address `json:"address"`
	Phone    *string          `json:"phone"`
}

// Store is the session state container. One instance per process,
// constructed and injected explicitly.
type Store struct {
	mu     sync.Mutex
	user   *catalog.User
	token  string
	kv     storage.KV
	logger *slog.Logger
}

// NewStore creates a session store and rehydrates it from the durable medium.
// A missing, malformed or mis-versioned envelope yields a logged-out session.
func NewStore(ctx context.Context, kv storage.KV, logger *slog.Logger) *Store {
	s := &Store{
		kv:     kv,
		logger: logger.With("component", "session"),
	}
	s.load(ctx)
	return s
}

// Login unconditionally replaces any existing identity/token pair.
func (s *Store) Login(ctx context.Context, user catalog.User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := user
	s.user = &u
	s.token = token
	s.persist(ctx)
}

// Logout clears the identity and token. Idempotent.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	s.token = ""
	s.persist(ctx)
}

// UpdateUser shallow-merges the patch into the current identity, leaving
// unspecified fields and the token untouched.
// Returns ErrNoSession when nobody is logged in: a partial identity is never
// fabricated.
func (s *Store) UpdateUser(ctx context.Context, patch UserPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return ErrNoSession
	}
	if patch.Email != nil {
		s.user.Email = *patch.Email
	}
	if patch.Username != nil {
		s.user.Username = *patch.Username
	}
	if patch.Password != nil {
		s.user.Password = *patch.Password
	}
	if patch.Name != nil {
		s.user.Name = *patch.Name
	}
	if patch.Address != nil {
		s.user.Address = *patch.Address
	}
	if patch.Phone != nil {
		s.user.Phone = *patch.Phone
	}
	s.persist(ctx)
	return nil
}

// User returns a copy of the logged-in identity, or nil.
func (s *Store) User() *catalog.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token returns the opaque bearer token, or the empty string.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token
}

// IsAuthenticated is true iff both an identity and a token are present.
// It is never settable independently.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.user != nil && s.token != ""
}

// Snapshot returns the session state in envelope shape.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot()
}

func (s *Store) snapshot() Snapshot {
	snap := Snapshot{
		IsAuthenticated: s.user != nil && s.token != "",
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	if s.token != "" {
		t := s.token
		snap.Token = &t
	}
	return snap
}

// EncodedEnvelope returns the current state as the URL-encoded persisted
// envelope, suitable for mirroring into the request-scoped cookie the route
// guard reads.
func (s *Store) EncodedEnvelope() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := json.Marshal(envelope{State: s.snapshot(), Version: envelopeVersion})
	if err != nil {
		return "", fmt.Errorf("failed to serialize session envelope: %w", err)
	}
	return url.QueryEscape(string(blob)), nil
}

// persist writes the full envelope through to the durable medium.
// Failures are logged and ignored. Callers must hold s.mu.
func (s *Store) persist(ctx context.Context) {
	blob, err := json.Marshal(envelope{State: s.snapshot(), Version: envelopeVersion})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to serialize session state", "error", err)
		return
	}
	if err := s.kv.Set(ctx, storage.SessionKey, blob); err != nil {
		s.logger.WarnContext(ctx, "Failed to persist session state", "error", err)
	}
}

// load rehydrates the session, degrading to logged-out on any problem.
func (s *Store) load(ctx context.Context) {
	blob, ok, err := s.kv.Get(ctx, storage.SessionKey)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read persisted session state", "error", err)
		return
	}
	if !ok {
		return
	}
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		s.logger.WarnContext(ctx, "Discarding malformed persisted session state", "error", err)
		return
	}
	if env.Version != envelopeVersion {
		s.logger.WarnContext(ctx, "Discarding persisted session state with unknown version", "version", env.Version)
		return
	}
	s.user = env.State.User
	if env.State.Token != nil {
		s.token = *env.State.Token
	}
}
