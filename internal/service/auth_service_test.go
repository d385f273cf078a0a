package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type mockAuthStore struct {
	users         map[string]*models.User
	sessions      map[string]*models.RefreshToken
	revokedAll    []string
	lastLogin     map[string]time.Time
	passwords     map[string]string
	authAuditLogs []*models.AuditLog
}

func newMockAuthStore(users ...*models.User) *mockAuthStore {
	store := &mockAuthStore{
		users:     map[string]*models.User{},
		sessions:  map[string]*models.RefreshToken{},
		lastLogin: map[string]time.Time{},
		passwords: map[string]string{},
	}
	for _, u := range users {
		store.users[u.ID] = u
	}
	return store
}

func (m *mockAuthStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin[id] = ts
	return nil
}

func (m *mockAuthStore) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwords[id] = passwordHash
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthStore) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	for _, sess := range m.sessions {
		if sess.UserID == userID {
			sess.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.sessions[token.Token] = token
	return nil
}

func (m *mockAuthStore) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	sess, ok := m.sessions[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return sess, nil
}

func (m *mockAuthStore) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, sess := range m.sessions {
		if sess.ID == id {
			sess.Revoked = true
			sess.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.authAuditLogs = append(m.authAuditLogs, log)
	return nil
}

func authFixture(t *testing.T, store *mockAuthStore) *AuthService {
	t.Helper()
	return NewAuthService(store, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "uni-adp-api",
	})
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthLoginOpensSession(t *testing.T) {
	store := newMockAuthStore(&models.User{
		ID: "usr-1", Email: "ada@uni.edu", FullName: "Ada Obi",
		PasswordHash: hashFor(t, "secret123"), Role: models.RoleRegistry, Active: true,
	})
	svc := authFixture(t, store)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@uni.edu", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	require.Contains(t, store.sessions, res.RefreshToken)
	assert.Contains(t, store.lastLogin, "usr-1")
	require.Len(t, store.authAuditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, store.authAuditLogs[0].Action)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	store := newMockAuthStore(&models.User{
		ID: "usr-1", Email: "ada@uni.edu", PasswordHash: hashFor(t, "secret123"), Active: true,
	})
	svc := authFixture(t, store)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@uni.edu", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.sessions)
}

func TestAuthLoginUnknownEmailSameError(t *testing.T) {
	svc := authFixture(t, newMockAuthStore())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@uni.edu", Password: "whatever"})
	require.Error(t, err)
	// indistinguishable from a bad password
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	store := newMockAuthStore(&models.User{
		ID: "usr-1", Email: "ada@uni.edu", PasswordHash: hashFor(t, "secret123"), Active: false,
	})
	svc := authFixture(t, store)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@uni.edu", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	store := newMockAuthStore(&models.User{ID: "usr-1", Email: "ada@uni.edu", Active: true, Role: models.RoleAdmin})
	store.sessions["old-token"] = &models.RefreshToken{
		ID: "rt-1", UserID: "usr-1", Token: "old-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	svc := authFixture(t, store)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEqual(t, "old-token", res.RefreshToken)
	assert.True(t, store.sessions["old-token"].Revoked)
	assert.Contains(t, store.sessions, res.RefreshToken)
}

func TestAuthRefreshRejectsExpired(t *testing.T) {
	store := newMockAuthStore(&models.User{ID: "usr-1", Active: true})
	store.sessions["stale"] = &models.RefreshToken{
		ID: "rt-1", UserID: "usr-1", Token: "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	svc := authFixture(t, store)

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthLogoutRequiresOwnership(t *testing.T) {
	store := newMockAuthStore(&models.User{ID: "usr-1", Active: true})
	store.sessions["tok"] = &models.RefreshToken{
		ID: "rt-1", UserID: "usr-1", Token: "tok",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	svc := authFixture(t, store)

	err := svc.Logout(context.Background(), "tok", "usr-2", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), "tok", "usr-1", models.LoginRequest{}))
	assert.True(t, store.sessions["tok"].Revoked)
}

func TestAuthChangePasswordKillsSessions(t *testing.T) {
	store := newMockAuthStore(&models.User{ID: "usr-1", PasswordHash: hashFor(t, "old-pass"), Active: true})
	svc := authFixture(t, store)

	err := svc.ChangePassword(context.Background(), "usr-1", models.ChangePasswordRequest{
		OldPassword: "old-pass", NewPassword: "brand-new-pass",
	})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(store.passwords["usr-1"]), []byte("brand-new-pass")))
	assert.Contains(t, store.revokedAll, "usr-1")
}

func TestAuthChangePasswordWrongOld(t *testing.T) {
	store := newMockAuthStore(&models.User{ID: "usr-1", PasswordHash: hashFor(t, "old-pass"), Active: true})
	svc := authFixture(t, store)

	err := svc.ChangePassword(context.Background(), "usr-1", models.ChangePasswordRequest{
		OldPassword: "not-it", NewPassword: "brand-new-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthAccessTokenRoundTrip(t *testing.T) {
	svc := authFixture(t, newMockAuthStore())
	token, _, err := svc.signAccessToken(&models.User{ID: "usr-1", Email: "ada@uni.edu", Role: models.RoleAdmin})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Nil(t, claims.StudentID)
}

func TestAuthAccessTokenCarriesLinkedStudent(t *testing.T) {
	svc := authFixture(t, newMockAuthStore())
	studentID := "stu-1"
	token, _, err := svc.signAccessToken(&models.User{
		ID: "usr-2", Email: "ada@uni.edu", Role: models.RoleStudent, LinkedStudentID: &studentID,
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.NotNil(t, claims.StudentID)
	assert.Equal(t, "stu-1", *claims.StudentID)
}

func TestAuthValidateTokenWrongSecret(t *testing.T) {
	issuer := authFixture(t, newMockAuthStore())
	token, _, err := issuer.signAccessToken(&models.User{ID: "usr-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	verifier := NewAuthService(newMockAuthStore(), nil, nil, AuthConfig{AccessTokenSecret: "different"})
	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
