// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
// Code is organised into three layers:
//
//   Gateway (HTTP handlers, CLI) → parses input, renders output
//   Service (Business layer)      → validates, enforces rules, owns state
//   Repository (Data layer)       → reads/writes the persisted record
//
// The SnippetStore is the only service. It keeps the snippet collection in
// memory and writes the whole collection through to a repository after every
// mutation. Reads never touch the repository.
//
// DEPENDENCY INJECTION:
// SnippetStore takes a repository.StateRepository (interface), NOT a
// *sqlite.DB. Tests pass a hand-written in-memory mock (see snippet_test.go).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/tinkers/internal/apperror"
	"github.com/sakif/tinkers/internal/model"
	"github.com/sakif/tinkers/internal/repository"
)

// Validation constants.
const (
	MaxSnippetNameLength = 100
	MaxCodeLength        = 100000 // ~100KB of code

	// DefaultNamespace is the key the collection is persisted under.
	DefaultNamespace = "tinkers-snippets"
)

// SnippetPatch lists the fields an Update changes. Nil fields are left alone.
type SnippetPatch struct {
	Name     *string `json:"name,omitempty"`
	Language *string `json:"language,omitempty"`
	Code     *string `json:"code,omitempty"`
}

// StoreOption configures a SnippetStore.
type StoreOption func(*SnippetStore)

// WithClock replaces time.Now. Tests use it to pin timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *SnippetStore) { s.now = now }
}

// SnippetStore holds the user's named snippets and which one is active.
//
// All methods are safe for concurrent use. The in-memory collection is
// authoritative: a failed write is logged and the mutation still stands.
type SnippetStore struct {
	mu        sync.Mutex
	state     model.SnippetCollection
	repo      repository.StateRepository
	namespace string
	logger    *slog.Logger
	now       func() time.Time
}

// NewSnippetStore loads the collection persisted under namespace.
//
// A namespace that was never written starts empty. A record that cannot be
// decoded is logged, copied aside under "<namespace>.corrupt" and the store
// starts empty. Only a failing repository is returned as an error.
func NewSnippetStore(ctx context.Context, repo repository.StateRepository, namespace string, logger *slog.Logger, opts ...StoreOption) (*SnippetStore, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	s := &SnippetStore{
		state:     model.SnippetCollection{Snippets: []model.Snippet{}},
		repo:      repo,
		namespace: namespace,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := repo.Load(ctx, namespace)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("no saved snippets, starting empty", slog.String("namespace", namespace))
			return s, nil
		}
		return nil, fmt.Errorf("loading snippets: %w", err)
	}

	state, err := model.DecodeCollection(data)
	if err != nil {
		s.logger.Error("saved snippets are unreadable, starting empty",
			slog.String("namespace", namespace),
			slog.String("error", err.Error()),
		)
		if err := repo.Save(ctx, namespace+".corrupt", data); err != nil {
			s.logger.Error("failed to keep a copy of unreadable snippets",
				slog.String("namespace", namespace),
				slog.String("error", err.Error()),
			)
		}
		return s, nil
	}

	s.state = state
	s.logger.Info("snippets loaded",
		slog.String("namespace", namespace),
		slog.Int("count", len(state.Snippets)),
	)
	return s, nil
}

// Add validates and appends a new snippet, then makes it the active one.
func (s *SnippetStore) Add(ctx context.Context, name, language, code string) (*model.Snippet, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	language = strings.TrimSpace(language)
	if language == "" {
		return nil, apperror.ValidationFailed("language", "language is required")
	}
	if err := validateCode(code); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := model.Timestamp(s.now())
	snippet := model.Snippet{
		ID:        xid.New().String(),
		Name:      name,
		Language:  language,
		Code:      code,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.state.Snippets = append(s.state.Snippets, snippet)
	id := snippet.ID
	s.state.ActiveSnippetID = &id
	s.persist(ctx)

	s.logger.Info("snippet added",
		slog.String("id", snippet.ID),
		slog.String("name", snippet.Name),
		slog.String("language", snippet.Language),
	)
	return &snippet, nil
}

// Update applies patch to the snippet with the given id and bumps UpdatedAt.
//
// The patch is validated first. An unknown id is a silent no-op and does not
// write to the repository. An empty patch still counts as a modification.
func (s *SnippetStore) Update(ctx context.Context, id string, patch SnippetPatch) error {
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		if err := validateName(trimmed); err != nil {
			return err
		}
		patch.Name = &trimmed
	}
	if patch.Language != nil {
		trimmed := strings.TrimSpace(*patch.Language)
		if trimmed == "" {
			return apperror.ValidationFailed("language", "language is required")
		}
		patch.Language = &trimmed
	}
	if patch.Code != nil {
		if err := validateCode(*patch.Code); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.state.IndexOf(id)
	if i < 0 {
		s.logger.Debug("update of unknown snippet ignored", slog.String("id", id))
		return nil
	}

	snippet := &s.state.Snippets[i]
	if patch.Name != nil {
		snippet.Name = *patch.Name
	}
	if patch.Language != nil {
		snippet.Language = *patch.Language
	}
	if patch.Code != nil {
		snippet.Code = *patch.Code
	}
	snippet.UpdatedAt = s.nextStamp(snippet.UpdatedAt)
	s.persist(ctx)

	s.logger.Info("snippet updated", slog.String("id", id))
	return nil
}

// Delete removes the snippet and clears the active id if it pointed at it.
// Deleting an unknown id does nothing.
func (s *SnippetStore) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.state.IndexOf(id)
	if i < 0 {
		return
	}

	s.state.Snippets = append(s.state.Snippets[:i], s.state.Snippets[i+1:]...)
	if s.state.ActiveSnippetID != nil && *s.state.ActiveSnippetID == id {
		s.state.ActiveSnippetID = nil
	}
	s.persist(ctx)

	s.logger.Info("snippet deleted", slog.String("id", id))
}

// SetActive records which snippet is active. nil clears it.
// The id is not checked against the collection; GetActive reports a stale
// id as "no active snippet".
func (s *SnippetStore) SetActive(ctx context.Context, id *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == nil {
		s.state.ActiveSnippetID = nil
	} else {
		v := *id
		s.state.ActiveSnippetID = &v
	}
	s.persist(ctx)
}

// GetActive returns a copy of the active snippet.
func (s *SnippetStore) GetActive() (*model.Snippet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.ActiveSnippetID == nil {
		return nil, false
	}
	return s.get(*s.state.ActiveSnippetID)
}

// Get returns a copy of the snippet with the given id.
func (s *SnippetStore) Get(id string) (*model.Snippet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

// List returns a deep copy of the whole collection in insertion order.
func (s *SnippetStore) List() model.SnippetCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *SnippetStore) get(id string) (*model.Snippet, bool) {
	i := s.state.IndexOf(id)
	if i < 0 {
		return nil, false
	}
	snippet := s.state.Snippets[i]
	return &snippet, true
}

// nextStamp returns the current time, or prev+1ms when the clock has not
// moved past prev.
func (s *SnippetStore) nextStamp(prev time.Time) time.Time {
	now := model.Timestamp(s.now())
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}

// persist writes the collection through. Callers hold s.mu, so writes reach
// the repository in mutation order.
func (s *SnippetStore) persist(ctx context.Context) {
	data, err := model.EncodeCollection(s.state)
	if err != nil {
		s.logger.Error("failed to encode snippets", slog.String("error", err.Error()))
		return
	}

	// A request that ends right after the mutation must not abort the write.
	if err := s.repo.Save(context.WithoutCancel(ctx), s.namespace, data); err != nil {
		s.logger.Error("failed to save snippets",
			slog.String("namespace", s.namespace),
			slog.String("error", err.Error()),
		)
	}
}

func validateName(name string) error {
	if name == "" {
		return apperror.ValidationFailed("name", "snippet name is required")
	}
	if len(name) > MaxSnippetNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("snippet name must be %d characters or less", MaxSnippetNameLength))
	}
	return nil
}

func validateCode(code string) error {
	if len(code) > MaxCodeLength {
		return apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}
	return nil
}
