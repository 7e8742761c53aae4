package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-storefront/models"
	"go-storefront/store"
	"go-storefront/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// LocalProvider keeps bcrypt credentials in the document store and issues HS256 tokens.
type LocalProvider struct {
	creds  store.Collection[models.Credential]
	tokens *utils.TokenIssuer

	mu      sync.Mutex
	revoked map[string]time.Time // token id -> expiry
	subs    map[int]func(Event)
	nextSub int
}

func NewLocalProvider(creds store.Collection[models.Credential], tokens *utils.TokenIssuer) *LocalProvider {
	return &LocalProvider{
		creds:   creds,
		tokens:  tokens,
		revoked: make(map[string]time.Time),
		subs:    make(map[int]func(Event)),
	}
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	existing, err := p.creds.Where(ctx, "email", email)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrEmailInUse
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	cred := models.Credential{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.creds.Insert(ctx, cred); err != nil {
		return nil, err
	}
	return p.issue(cred)
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	found, err := p.creds.Where(ctx, "email", strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrInvalidCredentials
	}
	cred := found[0]
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return p.issue(cred)
}

func (p *LocalProvider) issue(cred models.Credential) (*Session, error) {
	token, claims, err := p.tokens.GenerateJWT(cred.ID, cred.Email)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	session := &Session{
		UID:       cred.ID,
		Email:     cred.Email,
		Token:     token,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}
	p.publish(Event{UID: cred.ID, Session: session})
	return session, nil
}

func (p *LocalProvider) SignOut(_ context.Context, token string) error {
	claims, err := p.tokens.ParseJWT(token)
	if err != nil {
		return ErrInvalidToken
	}

	p.mu.Lock()
	now := time.Now()
	for id, exp := range p.revoked {
		if now.After(exp) {
			delete(p.revoked, id)
		}
	}
	p.revoked[claims.Id] = time.Unix(claims.ExpiresAt, 0)
	p.mu.Unlock()

	p.publish(Event{UID: claims.UserID})
	return nil
}

func (p *LocalProvider) Verify(token string) (*Session, error) {
	claims, err := p.tokens.ParseJWT(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	p.mu.Lock()
	_, revoked := p.revoked[claims.Id]
	p.mu.Unlock()
	if revoked {
		return nil, ErrInvalidToken
	}
	return &Session{
		UID:       claims.UserID,
		Email:     claims.Email,
		Token:     token,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, nil
}

func (p *LocalProvider) Subscribe(fn func(Event)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *LocalProvider) publish(ev Event) {
	p.mu.Lock()
	subs := make([]func(Event), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// IsAuthError reports whether err is one of the provider's own failures rather than a
// storage or infrastructure error.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrEmailInUse) ||
		errors.Is(err, ErrWeakPassword) || errors.Is(err, ErrInvalidToken)
}
