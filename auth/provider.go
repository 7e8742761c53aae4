// Package auth is the identity provider: email/password sign-up and sign-in, sign-out, and a
// session-change notification stream.
package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailInUse         = errors.New("email already in use")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidToken       = errors.New("invalid or expired session")
)

// Session is an authenticated identity issued by the provider.
type Session struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Event is delivered to subscribers on every session change. Session is nil on sign-out.
type Event struct {
	UID     string
	Session *Session
}

type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	Verify(token string) (*Session, error)
	Subscribe(fn func(Event)) (unsubscribe func())
}
