package users

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/media"
	"github.com/angelmondragon/storefront-backend/internal/testutil"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubImages struct {
	uploaded  []string
	deleted   []string
	uploadErr error
}

func (s *stubImages) Upload(ctx context.Context, kind media.Kind, ownerID uuid.UUID, file media.File) (*dbtypes.Image, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	object := string(kind) + "/" + ownerID.String() + "/" + uuid.NewString()
	s.uploaded = append(s.uploaded, object)
	return &dbtypes.Image{URL: "https://cdn.test/" + object, Object: object}, nil
}

func (s *stubImages) Delete(ctx context.Context, objects ...string) error {
	s.deleted = append(s.deleted, objects...)
	return nil
}

func TestUpdateProfile(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc, err := NewService(NewRepository(conn), nil)
	require.NoError(t, err)
	ctx := context.Background()

	user := testutil.MustCreateUser(t, conn, enums.RoleUser)
	other := testutil.MustCreateUser(t, conn, enums.RoleUser)

	name := "New Name"
	phone := "+15550000000"
	dto, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{FullName: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "New Name", dto.FullName)
	require.NotNil(t, dto.Phone)
	assert.Equal(t, phone, *dto.Phone)

	taken := other.Username
	_, err = svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{Username: &taken})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	blank := "  "
	_, err = svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{FullName: &blank})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateProfile(ctx, uuid.New(), UpdateProfileInput{FullName: &name})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateAvatarReplacesPreviousObject(t *testing.T) {
	conn := testutil.OpenDB(t)
	images := &stubImages{}
	svc, err := NewService(NewRepository(conn), images)
	require.NoError(t, err)
	ctx := context.Background()
	user := testutil.MustCreateUser(t, conn, enums.RoleUser)

	first, err := svc.UpdateAvatar(ctx, user.ID, media.File{Path: "/tmp/a", Size: 1})
	require.NoError(t, err)
	require.NotNil(t, first.AvatarURL)

	_, err = svc.UpdateAvatar(ctx, user.ID, media.File{Path: "/tmp/b", Size: 1})
	require.NoError(t, err)
	require.Len(t, images.uploaded, 2)
	assert.Equal(t, []string{images.uploaded[0]}, images.deleted)

	images.uploadErr = pkgerrors.New(pkgerrors.CodeValidation, "bad image")
	_, err = svc.UpdateAvatar(ctx, user.ID, media.File{Path: "/tmp/c", Size: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestChangeRoleAndList(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc, err := NewService(NewRepository(conn), nil)
	require.NoError(t, err)
	ctx := context.Background()
	admin := testutil.MustCreateUser(t, conn, enums.RoleAdmin)
	user := testutil.MustCreateUser(t, conn, enums.RoleUser)

	dto, err := svc.ChangeRole(ctx, admin.ID, user.ID, enums.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, dto.Role)

	_, err = svc.ChangeRole(ctx, admin.ID, admin.ID, enums.RoleUser)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.ChangeRole(ctx, admin.ID, user.ID, enums.Role("root"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	res, err := svc.List(ctx, ListQuery{}, pagination.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Users, 2)
	assert.Equal(t, int64(2), res.Meta.Total)
	assert.Equal(t, 1, res.Meta.TotalPages)
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(nil, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}
