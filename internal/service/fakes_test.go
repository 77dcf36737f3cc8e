package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/session-auth/internal/domain"
	"github.com/prperemyshlev/session-auth/internal/repository"
	"github.com/prperemyshlev/session-auth/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testTokenSecret  = "test-token-secret-that-is-at-least-32-characters"
	testSignedSecret = "test-signed-secret-that-is-at-least-32-characters"
	testPassword     = "Password123"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memUserRepo honors the unique email index of the users table.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("create: %w", repository.ErrDuplicateEmail)
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id, passwordHash string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	r.users[id] = u
	return nil
}

func (r *memUserRepo) SetUnconfirmedEmail(_ context.Context, id, email string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.UnconfirmedEmail = &email
	u.UpdatedAt = updatedAt
	r.users[id] = u
	return nil
}

func (r *memUserRepo) ConfirmEmail(_ context.Context, id string, pending *string, confirmedAt time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || !sameEmail(u.UnconfirmedEmail, pending) {
		return nil, repository.ErrNotFound
	}
	if u.UnconfirmedEmail == nil && u.ConfirmedAt != nil {
		return nil, repository.ErrNotFound
	}

	if u.UnconfirmedEmail != nil {
		for otherID, other := range r.users {
			if otherID != id && other.Email == *u.UnconfirmedEmail {
				return nil, fmt.Errorf("confirm: %w", repository.ErrDuplicateEmail)
			}
		}
		u.Email = *u.UnconfirmedEmail
		u.UnconfirmedEmail = nil
	}
	u.ConfirmedAt = &confirmedAt
	u.UpdatedAt = confirmedAt
	r.users[id] = u

	confirmed := u
	return &confirmed, nil
}

func sameEmail(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// memTokenRepo honors the unique user_id, token and refresh_token indexes of
// the oauth_access_tokens table.
type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]domain.OAuthAccessToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]domain.OAuthAccessToken)}
}

func (r *memTokenRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

func (r *memTokenRepo) CreateIfAbsent(_ context.Context, token *domain.OAuthAccessToken) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.UserID == token.UserID {
			return false, nil
		}
	}
	return true, r.insertLocked(token)
}

func (r *memTokenRepo) insertLocked(token *domain.OAuthAccessToken) error {
	for _, t := range r.tokens {
		if t.UserID == token.UserID || t.Token == token.Token || t.RefreshToken == token.RefreshToken {
			return repository.ErrDuplicateToken
		}
	}
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	r.tokens[token.ID] = *token
	return nil
}

func (r *memTokenRepo) find(match func(domain.OAuthAccessToken) bool) (*domain.OAuthAccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if match(t) {
			found := t
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memTokenRepo) GetByToken(_ context.Context, token string) (*domain.OAuthAccessToken, error) {
	return r.find(func(t domain.OAuthAccessToken) bool { return t.Token == token })
}

func (r *memTokenRepo) GetByRefreshToken(_ context.Context, refreshToken string) (*domain.OAuthAccessToken, error) {
	return r.find(func(t domain.OAuthAccessToken) bool { return t.RefreshToken == refreshToken })
}

func (r *memTokenRepo) GetByUserID(_ context.Context, userID string) (*domain.OAuthAccessToken, error) {
	return r.find(func(t domain.OAuthAccessToken) bool { return t.UserID == userID })
}

func (r *memTokenRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.tokens, id)
	return nil
}

func (r *memTokenRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r *memTokenRepo) Rotate(_ context.Context, oldID string, next *domain.OAuthAccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.tokens[oldID]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.tokens, oldID)
	if err := r.insertLocked(next); err != nil {
		r.tokens[oldID] = old
		return err
	}
	return nil
}

type sentMessage struct {
	email string
	token string
}

type recordingNotifier struct {
	mu            sync.Mutex
	confirmations []sentMessage
	resets        []sentMessage
}

func (n *recordingNotifier) SendConfirmation(_ context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, sentMessage{email: email, token: token})
	return nil
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, sentMessage{email: email, token: token})
	return nil
}

func (n *recordingNotifier) lastConfirmation(t *testing.T) sentMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.confirmations) == 0 {
		t.Fatal("no confirmation sent")
	}
	return n.confirmations[len(n.confirmations)-1]
}

func (n *recordingNotifier) lastReset(t *testing.T) sentMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.resets) == 0 {
		t.Fatal("no password reset sent")
	}
	return n.resets[len(n.resets)-1]
}

// unavailableTokenRepo fails every lookup the way a lost database connection does.
type unavailableTokenRepo struct {
	*memTokenRepo
}

var errConnectionRefused = errors.New("connection refused")

func (unavailableTokenRepo) GetByToken(context.Context, string) (*domain.OAuthAccessToken, error) {
	return nil, errConnectionRefused
}

type testEnv struct {
	clock    *fakeClock
	users    *memUserRepo
	tokens   *memTokenRepo
	notifier *recordingNotifier
	store    *CredentialStore
	signed   *SignedTokenService
	manager  *TokenManager
	auth     AuthService
}

func newTestEnv(t *testing.T, requireConfirmation bool, metrics *Metrics) *testEnv {
	t.Helper()

	env := &testEnv{
		clock:    newFakeClock(),
		users:    newMemUserRepo(),
		tokens:   newMemTokenRepo(),
		notifier: &recordingNotifier{},
	}

	logger := zap.NewNop()
	jwtManager := utils.NewJWTManager(testTokenSecret, 24*time.Hour)
	codec := utils.NewSignedTokenCodec(testSignedSecret, map[domain.TokenPurpose]time.Duration{
		domain.PurposeConfirmEmail:  24 * time.Hour,
		domain.PurposeResetPassword: 15 * time.Minute,
	}, env.clock.Now)

	env.store = NewCredentialStore(env.users, bcrypt.MinCost, requireConfirmation, env.clock.Now)
	env.signed = NewSignedTokenService(codec, env.users, logger)
	env.manager = NewTokenManager(env.tokens, jwtManager, env.clock.Now, logger, metrics)
	env.auth = NewAuthService(env.store, env.signed, env.manager, env.notifier, logger, metrics)

	return env
}

// confirmedUser registers email and confirms it directly in the store.
func (e *testEnv) confirmedUser(t *testing.T, email string) *domain.User {
	t.Helper()

	user, err := e.store.Register(context.Background(), email, testPassword)
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	if _, err := e.store.ConfirmEmail(context.Background(), user); err != nil {
		t.Fatalf("confirm %s: %v", email, err)
	}
	return user
}
