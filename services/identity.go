// Package services holds the stateful storefront components. Each service owns its state and
// is handed its collaborators explicitly; handlers receive references to them.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go-storefront/auth"
	"go-storefront/errs"
	"go-storefront/models"
	"go-storefront/policy"
	"go-storefront/store"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidCredentials = errs.E(errs.KindUnauthorized, "identity.login", "Invalid credentials", nil)
	ErrSignupFailed       = errs.E(errs.KindInvalid, "identity.signup", "Signup failed", nil)
	ErrNotSignedIn        = errs.E(errs.KindUnauthorized, "identity.session", "Not signed in", nil)
)

// SignedIn is the outcome of a successful login or signup.
type SignedIn struct {
	Session *auth.Session `json:"session"`
	Profile *models.User  `json:"profile"`
}

// Identity resolves auth sessions to application profiles and publishes the current profile
// of every signed-in uid.
type Identity struct {
	provider auth.Provider
	users    store.Collection[models.User]
	policy   *policy.Policy
	logger   zerolog.Logger

	mu          sync.RWMutex
	profiles    map[string]*models.User
	loading     int
	unsubscribe func()
}

func NewIdentity(provider auth.Provider, users store.Collection[models.User], p *policy.Policy, logger zerolog.Logger) *Identity {
	return &Identity{
		provider: provider,
		users:    users,
		policy:   p,
		logger:   logger,
		profiles: make(map[string]*models.User),
	}
}

// Start subscribes to session changes. Only one subscription is ever active.
func (i *Identity) Start() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.unsubscribe != nil {
		return
	}
	i.unsubscribe = i.provider.Subscribe(i.onSessionChange)
}

func (i *Identity) Close() {
	i.mu.Lock()
	unsubscribe := i.unsubscribe
	i.unsubscribe = nil
	i.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (i *Identity) onSessionChange(ev auth.Event) {
	if ev.Session == nil {
		i.publish(ev.UID, nil)
		return
	}
	i.setLoading(true)
	defer i.setLoading(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if i.policy.IsAdminEmail(ev.Session.Email) {
		if err := i.ensureAdminProfile(ctx, ev.Session); err != nil {
			i.logger.Error().Err(err).Str("uid", ev.UID).Msg("failed to ensure admin profile")
		}
	}
	i.publish(ev.UID, i.loadProfile(ctx, ev.Session))
}

func (i *Identity) ensureAdminProfile(ctx context.Context, s *auth.Session) error {
	_, err := i.users.Get(ctx, s.UID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	err = i.users.Insert(ctx, models.User{
		ID:          s.UID,
		Email:       s.Email,
		DisplayName: "Admin",
		Role:        models.RoleAdmin,
		CreatedAt:   time.Now().UTC(),
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil
	}
	return err
}

// loadProfile reads the profile document, defaulting it when missing or unreadable, and
// resolves the effective role.
func (i *Identity) loadProfile(ctx context.Context, s *auth.Session) *models.User {
	profile, err := i.users.Get(ctx, s.UID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			i.logger.Warn().Err(err).Str("uid", s.UID).Msg("failed to load profile, using defaults")
		}
		profile = models.User{
			ID:          s.UID,
			Email:       s.Email,
			DisplayName: displayNameFromEmail(s.Email),
		}
	}
	if profile.Email == "" {
		profile.Email = s.Email
	}
	profile.Role = i.policy.RoleFor(s.Email, profile.Role)
	return &profile
}

func (i *Identity) Login(ctx context.Context, email, password string) (*SignedIn, error) {
	session, err := i.provider.SignIn(ctx, email, password)
	if err != nil {
		logFailure(i.logger, err).Str("email", email).Msg("login failed")
		return nil, ErrInvalidCredentials
	}
	profile := i.loadProfile(ctx, session)
	i.publish(session.UID, profile)
	return &SignedIn{Session: session, Profile: cloneUser(profile)}, nil
}

func (i *Identity) Signup(ctx context.Context, email, password, displayName string) (*SignedIn, error) {
	session, err := i.provider.SignUp(ctx, email, password)
	if err != nil {
		logFailure(i.logger, err).Str("email", email).Msg("signup failed")
		return nil, ErrSignupFailed
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = displayNameFromEmail(session.Email)
	}
	profile := &models.User{
		ID:          session.UID,
		Email:       session.Email,
		DisplayName: displayName,
		Role:        i.policy.RoleFor(session.Email, ""),
		CreatedAt:   time.Now().UTC(),
	}
	if err := i.users.Put(ctx, profile.ID, *profile); err != nil {
		i.logger.Error().Err(err).Str("uid", profile.ID).Msg("failed to write profile")
		return nil, ErrSignupFailed
	}
	i.publish(profile.ID, profile)
	return &SignedIn{Session: session, Profile: cloneUser(profile)}, nil
}

func (i *Identity) Logout(ctx context.Context, token string) error {
	session, err := i.provider.Verify(token)
	if err != nil {
		return ErrNotSignedIn
	}
	if err := i.provider.SignOut(ctx, token); err != nil {
		return ErrNotSignedIn
	}
	i.publish(session.UID, nil)
	return nil
}

// Authenticate resolves a bearer token to the published profile, loading it when this
// instance has not seen the session yet.
func (i *Identity) Authenticate(ctx context.Context, token string) (*models.User, error) {
	session, err := i.provider.Verify(token)
	if err != nil {
		return nil, ErrNotSignedIn
	}
	if profile := i.Current(session.UID); profile != nil {
		return profile, nil
	}
	profile := i.loadProfile(ctx, session)
	i.publish(session.UID, profile)
	return cloneUser(profile), nil
}

// Current returns the published profile of uid, or nil when no user is signed in under it.
func (i *Identity) Current(uid string) *models.User {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return cloneUser(i.profiles[uid])
}

func (i *Identity) Loading() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.loading > 0
}

func (i *Identity) publish(uid string, profile *models.User) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if profile == nil {
		delete(i.profiles, uid)
		return
	}
	i.profiles[uid] = profile
}

func (i *Identity) setLoading(on bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if on {
		i.loading++
	} else if i.loading > 0 {
		i.loading--
	}
}

// logFailure keeps rejected credentials at info level and surfaces store failures as errors.
func logFailure(logger zerolog.Logger, err error) *zerolog.Event {
	if auth.IsAuthError(err) {
		return logger.Info().Err(err)
	}
	return logger.Error().Err(err)
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func displayNameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
