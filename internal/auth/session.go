package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/domain"
)

// UserSource answers "who is signed in right now". Remote stores resolve the
// owner through it on every call.
type UserSource interface {
	CurrentUserID() (string, bool)
}

// State is one observed authentication status.
type State struct {
	UserID        string
	Authenticated bool
}

// TokenVerifier turns a bearer token into a user id.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Session holds the device's current user and notifies subscribers about
// every status change. A nil verifier disables sign-in.
type Session struct {
	verifier TokenVerifier
	logger   *zap.Logger

	mu      sync.RWMutex
	userID  string
	subs    map[int]func(State)
	nextSub int
}

func NewSession(verifier TokenVerifier, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		verifier: verifier,
		logger:   logger,
		subs:     make(map[int]func(State)),
	}
}

// CurrentUserID implements UserSource.
func (s *Session) CurrentUserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != ""
}

func (s *Session) State() State {
	id, ok := s.CurrentUserID()
	return State{UserID: id, Authenticated: ok}
}

// SignInEnabled reports whether tokens can be verified at all.
func (s *Session) SignInEnabled() bool {
	return s.verifier != nil
}

// Subscribe registers fn for status changes. Callbacks run synchronously on
// the goroutine that changed the status and must not block.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SignIn verifies token and makes its subject the current user.
func (s *Session) SignIn(ctx context.Context, token string) (string, error) {
	if s.verifier == nil {
		return "", fmt.Errorf("%w: sign-in is not configured", domain.ErrAuthRequired)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: token required", domain.ErrAuthRequired)
	}

	userID, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrAuthRequired, err)
	}
	s.SetUser(userID)
	return userID, nil
}

// SignOut clears the current user.
func (s *Session) SignOut() {
	s.SetUser("")
}

// SetUser switches the current user, "" meaning signed out, and notifies
// subscribers when the value actually changed.
func (s *Session) SetUser(userID string) {
	userID = strings.TrimSpace(userID)

	s.mu.Lock()
	if s.userID == userID {
		s.mu.Unlock()
		return
	}
	s.userID = userID
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	st := State{UserID: userID, Authenticated: userID != ""}
	s.logger.Info("auth state changed", zap.Bool("authenticated", st.Authenticated), zap.String("user_id", userID))
	for _, fn := range subs {
		fn(st)
	}
}
