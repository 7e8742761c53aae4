package auth

import (
	"context"
	"testing"
	"time"

	"go-storefront/store"
	"go-storefront/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T) *LocalProvider {
	t.Helper()
	db := store.OpenMemory(store.NewMemoryStore())
	return NewLocalProvider(db.Credentials, utils.NewTokenIssuer("test-secret", time.Hour))
}

func TestSignUpSignInVerify(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	up, err := p.SignUp(ctx, "ann@shop.test", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, up.UID)

	in, err := p.SignIn(ctx, "ann@shop.test", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, up.UID, in.UID)

	s, err := p.Verify(in.Token)
	require.NoError(t, err)
	assert.Equal(t, "ann@shop.test", s.Email)
}

func TestSignUpRejections(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	_, err := p.SignUp(ctx, "ann@shop.test", "123")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = p.SignUp(ctx, "ann@shop.test", "hunter22")
	require.NoError(t, err)
	_, err = p.SignUp(ctx, "ann@shop.test", "hunter22")
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestSignInWrongPassword(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)
	_, err := p.SignUp(ctx, "ann@shop.test", "hunter22")
	require.NoError(t, err)

	_, err = p.SignIn(ctx, "ann@shop.test", "wrong-one")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = p.SignIn(ctx, "nobody@shop.test", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignOutRevokesAndNotifies(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	var events []Event
	unsubscribe := p.Subscribe(func(ev Event) { events = append(events, ev) })

	s, err := p.SignUp(ctx, "ann@shop.test", "hunter22")
	require.NoError(t, err)
	require.NoError(t, p.SignOut(ctx, s.Token))

	_, err = p.Verify(s.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.Len(t, events, 2)
	assert.NotNil(t, events[0].Session)
	assert.Nil(t, events[1].Session)
	assert.Equal(t, s.UID, events[1].UID)

	unsubscribe()
	_, err = p.SignIn(ctx, "ann@shop.test", "hunter22")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestVerifyRejectsForeignToken(t *testing.T) {
	p := newProvider(t)
	other := utils.NewTokenIssuer("other-secret", time.Hour)
	token, _, err := other.GenerateJWT("u1", "x@shop.test")
	require.NoError(t, err)

	_, err = p.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.True(t, IsAuthError(err))
}
