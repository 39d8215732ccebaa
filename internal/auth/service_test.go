package auth

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/media"
	"github.com/angelmondragon/storefront-backend/internal/otp"
	"github.com/angelmondragon/storefront-backend/internal/testutil"
	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testJWT = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "storefront",
	ExpirationMinutes:      15,
	RefreshTokenTTLMinutes: 60,
}

func fastPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

type stubOTP struct {
	valid    map[string]string
	verified []string
	sent     []string
}

func (s *stubOTP) Send(ctx context.Context, contact string, purpose enums.OTPPurpose) (*otp.SendResult, error) {
	s.sent = append(s.sent, contact+"/"+purpose.String())
	return &otp.SendResult{Contact: contact, Purpose: purpose.String()}, nil
}

func (s *stubOTP) Verify(ctx context.Context, contact string, purpose enums.OTPPurpose, code string) error {
	key := contact + "/" + purpose.String()
	if s.valid[key] != code {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid otp")
	}
	delete(s.valid, key)
	s.verified = append(s.verified, key)
	return nil
}

type stubImages struct {
	deleted []string
}

func (s *stubImages) Upload(ctx context.Context, kind media.Kind, ownerID uuid.UUID, file media.File) (*dbtypes.Image, error) {
	object := string(kind) + "/" + ownerID.String() + "/a.png"
	return &dbtypes.Image{URL: "https://cdn.test/" + object, Object: object}, nil
}

func (s *stubImages) Delete(ctx context.Context, objects ...string) error {
	s.deleted = append(s.deleted, objects...)
	return nil
}

type fixture struct {
	conn    *gorm.DB
	svc     Service
	otp     *stubOTP
	images  *stubImages
	session *session.Manager
}

func newFixture(t *testing.T, requireOTP bool) *fixture {
	t.Helper()
	conn := testutil.OpenDB(t)
	repo := users.NewRepository(conn)
	mgr, err := session.NewManager(repo, testJWT)
	require.NoError(t, err)
	otpSvc := &stubOTP{valid: map[string]string{}}
	images := &stubImages{}
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: mgr,
		OTP:            otpSvc,
		Images:         images,
		JWTConfig:      testJWT,
		PasswordConfig: fastPasswordConfig(),
		OTPConfig:      config.OTPConfig{RequireOnRegister: requireOTP},
	})
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc, otp: otpSvc, images: images, session: mgr}
}

func registerRequest(password string) RegisterRequest {
	return RegisterRequest{FullName: "Ada Lovelace", Username: "Ada", Email: "Ada@Example.com", Password: password}
}

func TestRegisterPasswordLength(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registerRequest("12345"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	resp, err := f.svc.Register(ctx, registerRequest("123456"))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Tokens.AccessToken)
	assert.NotEmpty(t, resp.Tokens.RefreshToken)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, enums.RoleUser, resp.User.Role)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	active, err := f.session.IsActive(ctx, claims.UserID, claims.SessionID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestRegisterConflicts(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registerRequest("123456"))
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, registerRequest("123456"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	req := registerRequest("123456")
	req.Email = "other@example.com"
	_, err = f.svc.Register(ctx, req)
	require.Error(t, err)
	assert.Equal(t, "username already taken", pkgerrors.As(err).Message())
}

func TestRegisterWithAvatarAndRequiredOTP(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	req := registerRequest("123456")
	req.Avatar = &media.File{Path: "/tmp/x", Size: 10}
	_, err := f.svc.Register(ctx, req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	f.otp.valid["ada@example.com/register"] = "111111"
	req.OTP = "111111"
	resp, err := f.svc.Register(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, resp.User.AvatarURL)
	assert.Contains(t, *resp.User.AvatarURL, resp.User.ID.String())
	assert.Equal(t, []string{"ada@example.com/register"}, f.otp.verified)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, registerRequest("123456"))
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginRequest{Identifier: "nobody", Password: "123456"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Login(ctx, LoginRequest{Identifier: "ada", Password: "654321"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	byUsername, err := f.svc.Login(ctx, LoginRequest{Identifier: "ADA", Password: "123456"})
	require.NoError(t, err)
	require.NotNil(t, byUsername.User.LastLoginAt)

	byEmail, err := f.svc.Login(ctx, LoginRequest{Identifier: "ada@example.com", Password: "123456"})
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, byUsername.Tokens.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "second login rotates the session")

	_, err = f.svc.Refresh(ctx, byEmail.Tokens.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, registerRequest("123456"))
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	_, err = f.svc.Refresh(ctx, "not-a-token")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	refreshed, err := f.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, reg.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)

	_, err = f.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	require.NoError(t, f.svc.Logout(ctx, reg.User.ID))
	_, err = f.svc.Refresh(ctx, refreshed.Tokens.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	claims, err := pkgAuth.ParseAccessToken(testJWT, refreshed.Tokens.AccessToken)
	require.NoError(t, err)
	active, err := f.session.IsActive(ctx, claims.UserID, claims.SessionID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestLoginWithOTP(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, registerRequest("123456"))
	require.NoError(t, err)

	_, err = f.svc.LoginWithOTP(ctx, OTPLoginRequest{Contact: "ada@example.com", Code: "000000"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	f.otp.valid["ada@example.com/login"] = "424242"
	resp, err := f.svc.LoginWithOTP(ctx, OTPLoginRequest{Contact: " ADA@example.com ", Code: "424242"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, resp.User.ID)
}

func TestResetAndChangePassword(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, registerRequest("123456"))
	require.NoError(t, err)

	sent, err := f.svc.ForgotPassword(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "forgot", sent.Purpose)

	f.otp.valid["ada@example.com/forgot"] = "999999"
	err = f.svc.ResetPassword(ctx, ResetPasswordRequest{Contact: "ada@example.com", Code: "999999", NewPassword: "short"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, f.svc.ResetPassword(ctx, ResetPasswordRequest{Contact: "ada@example.com", Code: "999999", NewPassword: "abcdef"}))
	_, err = f.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Login(ctx, LoginRequest{Identifier: "ada", Password: "123456"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	_, err = f.svc.Login(ctx, LoginRequest{Identifier: "ada", Password: "abcdef"})
	require.NoError(t, err)

	_, err = f.svc.ChangePassword(ctx, reg.User.ID, ChangePasswordRequest{CurrentPassword: "wrong1", NewPassword: "zzzzzz"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	changed, err := f.svc.ChangePassword(ctx, reg.User.ID, ChangePasswordRequest{CurrentPassword: "abcdef", NewPassword: "zzzzzz"})
	require.NoError(t, err)
	assert.NotEmpty(t, changed.Tokens.AccessToken)
	_, err = f.svc.Login(ctx, LoginRequest{Identifier: "ada", Password: "zzzzzz"})
	require.NoError(t, err)
}
