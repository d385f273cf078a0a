package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	byEmail   map[string]*models.User
	created   []*models.User
	updated   []*models.User
	deleted   []string
	auditLogs []*models.AuditLog
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.created = append(m.created, user)
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.updated = append(m.updated, user)
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func userFixture(t *testing.T) (*UserService, *mockUserRepo) {
	t.Helper()
	repo := &mockUserRepo{
		users: map[string]*models.User{
			"usr-1": {ID: "usr-1", Email: "reg@example.edu", Role: models.RoleRegistry, Active: true},
		},
		byEmail: map[string]*models.User{},
	}
	return NewUserService(repo, nil, nil), repo
}

func TestUserCreateHashesPassword(t *testing.T) {
	svc, repo := userFixture(t)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "Lecturer@Example.edu",
		FullName: "Dr. Bello",
		Role:     models.RoleLecturer,
		Active:   true,
		Password: "s3cret-pass",
	}, "usr-admin", models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "lecturer@example.edu", user.Email)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.auditLogs[0].Action)
}

func TestUserCreateRejectsUnknownRole(t *testing.T) {
	svc, _ := userFixture(t)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "x@example.edu",
		FullName: "X",
		Role:     "SUPERADMIN",
		Password: "s3cret-pass",
	}, "usr-admin", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserCreateLinkedStudentOnlyForStudents(t *testing.T) {
	svc, repo := userFixture(t)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:           "staff@example.edu",
		FullName:        "Staff",
		Role:            models.RoleRegistry,
		LinkedStudentID: strPtr("stu-1"),
		Password:        "s3cret-pass",
	}, "usr-admin", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:           "student@example.edu",
		FullName:        "Ada Obi",
		Role:            models.RoleStudent,
		LinkedStudentID: strPtr("stu-1"),
		Active:          true,
		Password:        "s3cret-pass",
	}, "usr-admin", models.LoginRequest{})
	require.NoError(t, err)
	require.NotNil(t, user.LinkedStudentID)
	assert.Equal(t, "stu-1", *user.LinkedStudentID)
	assert.Len(t, repo.created, 1)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	svc, repo := userFixture(t)
	repo.byEmail["taken@example.edu"] = &models.User{ID: "usr-2", Email: "taken@example.edu"}

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "taken@example.edu",
		FullName: "Dup",
		Role:     models.RoleLecturer,
		Password: "s3cret-pass",
	}, "usr-admin", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserUpdateClearsLinkOnRoleChange(t *testing.T) {
	svc, repo := userFixture(t)
	link := "stu-1"
	repo.users["usr-2"] = &models.User{ID: "usr-2", Email: "s@example.edu", Role: models.RoleStudent, LinkedStudentID: &link, Active: true}

	user, err := svc.Update(context.Background(), "usr-2", UpdateUserRequest{
		FullName: "Promoted",
		Role:     models.RoleLecturer,
	}, "usr-admin", models.LoginRequest{})
	require.NoError(t, err)
	assert.Nil(t, user.LinkedStudentID)
	require.Len(t, repo.updated, 1)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserUpdate, repo.auditLogs[0].Action)
}

func TestUserUpdateKeepsLinkWhenOmitted(t *testing.T) {
	svc, repo := userFixture(t)
	link := "stu-1"
	repo.users["usr-2"] = &models.User{ID: "usr-2", Email: "s@example.edu", Role: models.RoleStudent, LinkedStudentID: &link, Active: true}

	user, err := svc.Update(context.Background(), "usr-2", UpdateUserRequest{
		FullName: "Ada Obi",
		Role:     models.RoleStudent,
	}, "usr-admin", models.LoginRequest{})
	require.NoError(t, err)
	require.NotNil(t, user.LinkedStudentID)
	assert.Equal(t, "stu-1", *user.LinkedStudentID)
}

func TestUserUpdateNotFound(t *testing.T) {
	svc, _ := userFixture(t)

	_, err := svc.Update(context.Background(), "usr-404", UpdateUserRequest{
		FullName: "Ghost",
		Role:     models.RoleLecturer,
	}, "usr-admin", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserDeleteAudited(t *testing.T) {
	svc, repo := userFixture(t)

	require.NoError(t, svc.Delete(context.Background(), "usr-1", "usr-admin", models.LoginRequest{}))
	assert.Equal(t, []string{"usr-1"}, repo.deleted)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserDelete, repo.auditLogs[0].Action)
}
