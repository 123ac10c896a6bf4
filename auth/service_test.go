package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Trident14/EMP-backend/apperror"
	"github.com/Trident14/EMP-backend/config"
)

// fakeUserStore is an in-memory UserStore with the same uniqueness contract
// as the Postgres implementation.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*User // keyed by id
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*User)}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.NewConflictError("username already exists", nil)
		}
		if u.Email == user.Email {
			return apperror.NewConflictError("email already exists", nil)
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFoundError("user not found", nil)
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperror.NewNotFoundError("user not found", nil)
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecret: "test-secret", TokenDuration: time.Hour}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	store := newFakeUserStore()
	svc := NewAuthService(store, testAuthConfig())

	user, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email, "email must be stored lowercased")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte("secret123")))
	assert.False(t, user.IsGuest)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	store := newFakeUserStore()
	svc := NewAuthService(store, testAuthConfig())

	_, err := svc.Register(context.Background(), RegisterRequest{Username: "alice", Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterRequest{Username: "bob", Email: "a@b.com", Password: "pw"})
	require.Error(t, err)
	assert.True(t, apperror.IsConflictError(err))
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	store := newFakeUserStore()
	svc := NewAuthService(store, testAuthConfig())

	registered, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)

	claims, err := VerifyToken(resp.AccessToken, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	t.Parallel()

	store := newFakeUserStore()
	svc := NewAuthService(store, testAuthConfig())

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	// Wrong password and unknown email must be indistinguishable.
	_, errWrongPw := svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "nope"})
	_, errNoUser := svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "nope"})

	require.Error(t, errWrongPw)
	require.Error(t, errNoUser)
	assert.True(t, apperror.IsAuthError(errWrongPw))
	assert.True(t, apperror.IsAuthError(errNoUser))
	assert.Equal(t, errWrongPw.Error(), errNoUser.Error())
}

func TestVerifyToken_Expired(t *testing.T) {
	t.Parallel()

	cfg := config.AuthConfig{JWTSecret: "test-secret", TokenDuration: -time.Minute}
	svc := NewAuthService(newFakeUserStore(), cfg)

	token, _, err := svc.signToken(&User{ID: "u1", Username: "alice"})
	require.NoError(t, err)

	_, err = VerifyToken(token, "test-secret")
	assert.Error(t, err)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(newFakeUserStore(), testAuthConfig())
	token, _, err := svc.signToken(&User{ID: "u1", Username: "alice"})
	require.NoError(t, err)

	_, err = VerifyToken(token, "other-secret")
	assert.Error(t, err)
}

func TestVerifyToken_Garbage(t *testing.T) {
	t.Parallel()

	_, err := VerifyToken("not.a.token", "test-secret")
	assert.Error(t, err)
}
