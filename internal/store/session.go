package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/campusudc/asesorias-api/internal/models"
	appErrors "github.com/campusudc/asesorias-api/pkg/errors"
)

type tokenVerifier interface {
	SessionFromToken(accessToken string) (*models.Identity, error)
	SignOut(ctx context.Context, accessToken string) error
}

type profileReader interface {
	ProfileByID(ctx context.Context, id string) (*models.Profile, error)
}

// SessionStore holds the authenticated identity and derived role for one
// client session. It moves from uninitialized to ready exactly once per
// lifecycle; Initialize always terminates in a ready state, degrading to
// anonymous on any auth failure so callers blocked on readiness never hang.
type SessionStore struct {
	auth   tokenVerifier
	data   profileReader
	logger *zap.Logger

	initMu sync.Mutex

	mu          sync.RWMutex
	token       string
	identity    *models.Identity
	profile     *models.Profile
	degraded    bool
	initialized bool
	ready       chan struct{}
}

// NewSessionStore constructs an uninitialized session store bound to an
// access token (empty for an anonymous session).
func NewSessionStore(auth tokenVerifier, data profileReader, logger *zap.Logger, accessToken string) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		auth:   auth,
		data:   data,
		logger: logger,
		token:  accessToken,
		ready:  make(chan struct{}),
	}
}

// Initialize resolves the current session and its profile. A missing profile
// row is a valid empty state, not an error; any other failure is recorded and
// the session degrades to anonymous rather than blocking startup.
func (s *SessionStore) Initialize(ctx context.Context) {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.RLock()
	done := s.initialized
	token := s.token
	s.mu.RUnlock()
	if done {
		return
	}

	var (
		identity *models.Identity
		profile  *models.Profile
		degraded bool
	)

	identity, err := s.auth.SessionFromToken(token)
	if err != nil {
		s.logger.Debug("session token rejected", zap.Error(err))
		identity = nil
	}

	if identity != nil {
		profile, err = s.data.ProfileByID(ctx, identity.ID)
		if err != nil {
			if appErrors.Is(err, appErrors.ErrNotFound) {
				profile = &models.Profile{ID: identity.ID, Email: identity.Email, Role: models.RoleGuest}
			} else {
				s.logger.Warn("profile fetch failed, session degraded", zap.String("user_id", identity.ID), zap.Error(err))
				profile = nil
				degraded = true
			}
		}
	}

	s.mu.Lock()
	s.identity = identity
	s.profile = profile
	s.degraded = degraded
	s.markReadyLocked()
	s.mu.Unlock()
}

// Login records the identity and profile synchronously. The credential
// exchange itself happens at the auth service before this is called.
func (s *SessionStore) Login(session SessionToken, profile *models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = session.AccessToken
	s.identity = &session.Identity
	s.profile = profile
	s.degraded = false
	s.markReadyLocked()
}

// SessionToken carries the minted token and its identity into Login.
type SessionToken struct {
	AccessToken string
	Identity    models.Identity
}

// Logout signs out remotely, clears identity and profile, and resets the
// readiness signal so the store requires re-initialization. Local state is
// cleared even when the remote sign-out fails; the failure is returned so the
// caller can report it.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	var err error
	if token != "" {
		err = s.auth.SignOut(ctx, token)
	}

	s.mu.Lock()
	s.token = ""
	s.identity = nil
	s.profile = nil
	s.degraded = false
	s.initialized = false
	s.ready = make(chan struct{})
	s.mu.Unlock()

	return err
}

func (s *SessionStore) markReadyLocked() {
	if !s.initialized {
		s.initialized = true
		close(s.ready)
	}
}

// Ready returns a channel closed once the store reaches a ready state.
func (s *SessionStore) Ready() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// WaitReady blocks until the store is ready or the context expires.
func (s *SessionStore) WaitReady(ctx context.Context) error {
	select {
	case <-s.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Identity returns the authenticated identity, or nil for anonymous sessions.
func (s *SessionStore) Identity() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Profile returns the loaded profile, or nil.
func (s *SessionStore) Profile() *models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Token returns the access token bound to this session.
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether an identity is present.
func (s *SessionStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

// Degraded reports whether the last profile fetch failed non-fatally.
func (s *SessionStore) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// Role returns the profile's role, defaulting to guest when absent.
func (s *SessionStore) Role() models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil || s.profile.Role == "" {
		return models.RoleGuest
	}
	return s.profile.Role
}

// IsAdmin reports whether the current role is admin.
func (s *SessionStore) IsAdmin() bool { return s.Role() == models.RoleAdmin }

// IsProfessor reports whether the current role is professor.
func (s *SessionStore) IsProfessor() bool { return s.Role() == models.RoleProfessor }

// IsStudent reports whether the current role is student.
func (s *SessionStore) IsStudent() bool { return s.Role() == models.RoleStudent }
