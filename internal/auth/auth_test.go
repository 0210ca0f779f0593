package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/domain"
)

const testSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestJWTVerifier(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Unix()

	t.Run("valid token", func(t *testing.T) {
		uid, err := v.Verify(ctx, signToken(t, jwt.MapClaims{"sub": "user-123", "exp": exp}))
		require.NoError(t, err)
		assert.Equal(t, "user-123", uid)
	})

	t.Run("missing sub", func(t *testing.T) {
		_, err := v.Verify(ctx, signToken(t, jwt.MapClaims{"exp": exp}))
		assert.ErrorIs(t, err, ErrMissingSub)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := v.Verify(ctx, signToken(t, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Hour).Unix()}))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTVerifier("a-different-secret-that-is-long-enough")
		_, err := other.Verify(ctx, signToken(t, jwt.MapClaims{"sub": "u", "exp": exp}))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify(ctx, "invalid-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

type fakeIDTokens struct {
	uid string
	err error
}

func (f fakeIDTokens) VerifyIDToken(context.Context, string) (*fbauth.Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fbauth.Token{UID: f.uid}, nil
}

func TestFirebaseVerifier(t *testing.T) {
	uid, err := NewFirebaseVerifier(fakeIDTokens{uid: "fb-1"}).Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "fb-1", uid)

	_, err = NewFirebaseVerifier(fakeIDTokens{err: errors.New("revoked")}).Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSession_SignInAndOut(t *testing.T) {
	s := NewSession(NewJWTVerifier(testSecret), nil)

	var mu sync.Mutex
	var seen []State
	unsubscribe := s.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	_, ok := s.CurrentUserID()
	assert.False(t, ok)

	uid, err := s.SignIn(context.Background(), signToken(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()}))
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
	assert.Equal(t, State{UserID: "u1", Authenticated: true}, s.State())

	// same user again is not a transition
	s.SetUser("u1")
	s.SignOut()

	unsubscribe()
	s.SetUser("u2")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{
		{UserID: "u1", Authenticated: true},
		{UserID: "", Authenticated: false},
	}, seen)
}

func TestSession_SignInFailures(t *testing.T) {
	disabled := NewSession(nil, nil)
	assert.False(t, disabled.SignInEnabled())
	_, err := disabled.SignIn(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	s := NewSession(NewJWTVerifier(testSecret), nil)
	_, err = s.SignIn(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	_, err = s.SignIn(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, ok := s.CurrentUserID()
	assert.False(t, ok)
}
