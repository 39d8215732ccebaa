package users

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/testutil"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryCreateNormalizesIdentifiers(t *testing.T) {
	repo := NewRepository(testutil.OpenDB(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{FullName: " Ada ", Username: " Ada ", Email: "ADA@Example.com", PasswordHash: "h"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "ada", user.Username)
	assert.Equal(t, enums.RoleUser, user.Role)

	byIdent, err := repo.FindByIdentifier(ctx, "ADA")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byIdent.ID)

	byEmail, err := repo.FindByIdentifier(ctx, "ada@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	emailTaken, usernameTaken, err := repo.ExistsByEmailOrUsername(ctx, "ada@example.com", "other")
	require.NoError(t, err)
	assert.True(t, emailTaken)
	assert.False(t, usernameTaken)
}

func TestRepositoryFindByContactUsesPhone(t *testing.T) {
	repo := NewRepository(testutil.OpenDB(t))
	ctx := context.Background()
	phone := "+15550001111"

	user, err := repo.Create(ctx, CreateUserDTO{FullName: "P", Username: "p", Email: "p@example.com", Phone: &phone, PasswordHash: "h"})
	require.NoError(t, err)

	found, err := repo.FindByContact(ctx, " +15550001111 ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByContact(ctx, "+19999999999")
	assert.Error(t, err)
}

func TestRepositoryImplementsSessionStore(t *testing.T) {
	repo := NewRepository(testutil.OpenDB(t))
	ctx := context.Background()
	user, err := repo.Create(ctx, CreateUserDTO{FullName: "S", Username: "s", Email: "s@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = repo.LoadSession(ctx, user.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	mgr, err := session.NewManager(repo, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60})
	require.NoError(t, err)

	issued, err := mgr.Issue(ctx, user.ID)
	require.NoError(t, err)

	active, err := mgr.IsActive(ctx, user.ID, issued.SessionID)
	require.NoError(t, err)
	assert.True(t, active)

	userID, rotated, err := mgr.Rotate(ctx, issued.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.NotEqual(t, issued.SessionID, rotated.SessionID)

	_, _, err = mgr.Rotate(ctx, issued.RefreshToken)
	assert.ErrorIs(t, err, session.ErrInvalidRefreshToken)

	active, err = mgr.IsActive(ctx, user.ID, issued.SessionID)
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, mgr.Revoke(ctx, user.ID))
	active, err = mgr.IsActive(ctx, user.ID, rotated.SessionID)
	require.NoError(t, err)
	assert.False(t, active)
	_, _, err = mgr.Rotate(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, session.ErrInvalidRefreshToken)
}

func TestReplaceSessionIsCompareAndSwap(t *testing.T) {
	repo := NewRepository(testutil.OpenDB(t))
	ctx := context.Background()
	user, err := repo.Create(ctx, CreateUserDTO{FullName: "C", Username: "c", Email: "c@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	expires := time.Now().Add(time.Hour).UTC()
	require.NoError(t, repo.SaveSession(ctx, user.ID, session.Record{SessionID: "s1", RefreshTokenHash: "h1", ExpiresAt: expires}))

	ok, err := repo.ReplaceSession(ctx, user.ID, "stale", session.Record{SessionID: "s2", RefreshTokenHash: "h2", ExpiresAt: expires})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ReplaceSession(ctx, user.ID, "h1", session.Record{SessionID: "s2", RefreshTokenHash: "h2", ExpiresAt: expires})
	require.NoError(t, err)
	assert.True(t, ok)

	id, rec, err := repo.FindByRefreshHash(ctx, "h2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	assert.Equal(t, "s2", rec.SessionID)
}

func TestRepositoryListFiltersAndPaginates(t *testing.T) {
	conn := testutil.OpenDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		testutil.MustCreateUser(t, conn, enums.RoleUser)
	}
	admin := testutil.MustCreateUser(t, conn, enums.RoleAdmin)

	rows, total, err := repo.List(ctx, ListQuery{}, pagination.Page{Number: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, rows, 2)

	role := enums.RoleAdmin
	rows, total, err = repo.List(ctx, ListQuery{Role: &role}, pagination.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, admin.ID, rows[0].ID)

	rows, _, err = repo.List(ctx, ListQuery{Search: admin.Username}, pagination.Page{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Error(t, repo.UpdateRole(ctx, uuid.New(), enums.RoleAdmin))
}
