package store

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/campusudc/asesorias-api/internal/backend"
	"github.com/campusudc/asesorias-api/internal/models"
	appErrors "github.com/campusudc/asesorias-api/pkg/errors"
)

type registryData interface {
	ProfileByID(ctx context.Context, id string) (*models.Profile, error)
	ProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	CreateProfile(ctx context.Context, profile *models.Profile) error
}

// SessionRegistry owns one session store per access token. Stores are
// constructed and initialized on first sight of a token; the registry is the
// only place that builds them, so the guard and handlers share state for the
// same client session.
type SessionRegistry struct {
	auth   backend.AuthService
	data   registryData
	logger *zap.Logger

	bootstrapAdmins     map[string]struct{}
	bootstrapProfessors map[string]struct{}

	mu       sync.Mutex
	sessions map[string]*SessionStore
}

// NewSessionRegistry constructs the registry. adminEmails and professorEmails
// pick the role provisioned on a first login; everyone else starts as student.
func NewSessionRegistry(auth backend.AuthService, data registryData, logger *zap.Logger, adminEmails, professorEmails []string) *SessionRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRegistry{
		auth:                auth,
		data:                data,
		logger:              logger,
		bootstrapAdmins:     emailSet(adminEmails),
		bootstrapProfessors: emailSet(professorEmails),
		sessions:            make(map[string]*SessionStore),
	}
}

func emailSet(emails []string) map[string]struct{} {
	set := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		set[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}
	return set
}

// Session returns the initialized session store for a token. An empty token
// yields a fresh anonymous store, ready immediately.
func (r *SessionRegistry) Session(ctx context.Context, accessToken string) *SessionStore {
	if accessToken == "" {
		anon := NewSessionStore(r.auth, r.data, r.logger, "")
		anon.Initialize(ctx)
		return anon
	}

	r.mu.Lock()
	sess, ok := r.sessions[accessToken]
	if !ok {
		sess = NewSessionStore(r.auth, r.data, r.logger, accessToken)
		r.sessions[accessToken] = sess
	}
	r.mu.Unlock()

	sess.Initialize(ctx)
	return sess
}

// Drop forgets the store bound to a token, typically after logout.
func (r *SessionRegistry) Drop(accessToken string) {
	if accessToken == "" {
		return
	}
	r.mu.Lock()
	delete(r.sessions, accessToken)
	r.mu.Unlock()
}

// SignIn exchanges credentials at the auth service, loads or provisions the
// usuarios profile, and records the session. Provisioning happens on the first
// login only: a missing profile row is created with the bootstrap role for the
// email (student by default).
func (r *SessionRegistry) SignIn(ctx context.Context, email, password string) (*backend.Session, *models.Profile, error) {
	session, err := r.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	profile, err := r.data.ProfileByEmail(ctx, session.Identity.Email)
	if err != nil {
		if !appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, nil, err
		}
		profile = &models.Profile{
			ID:       session.Identity.ID,
			FullName: "Nuevo usuario",
			Email:    session.Identity.Email,
			Role:     r.bootstrapRole(session.Identity.Email),
		}
		if err := r.data.CreateProfile(ctx, profile); err != nil {
			return nil, nil, err
		}
		r.logger.Info("provisioned first-login profile",
			zap.String("user_id", profile.ID),
			zap.String("role", string(profile.Role)))
	}

	sess := NewSessionStore(r.auth, r.data, r.logger, session.AccessToken)
	sess.Login(SessionToken{AccessToken: session.AccessToken, Identity: session.Identity}, profile)

	r.mu.Lock()
	r.sessions[session.AccessToken] = sess
	r.mu.Unlock()

	return session, profile, nil
}

func (r *SessionRegistry) bootstrapRole(email string) models.Role {
	key := strings.ToLower(strings.TrimSpace(email))
	if _, ok := r.bootstrapAdmins[key]; ok {
		return models.RoleAdmin
	}
	if _, ok := r.bootstrapProfessors[key]; ok {
		return models.RoleProfessor
	}
	return models.RoleStudent
}
