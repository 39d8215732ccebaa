package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/testutil"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingTransport struct {
	codes map[string]string
	err   error
}

func (r *recordingTransport) Deliver(ctx context.Context, contact string, purpose enums.OTPPurpose, code string) error {
	if r.err != nil {
		return r.err
	}
	r.codes[contact+"/"+purpose.String()] = code
	return nil
}

type fixture struct {
	conn      *gorm.DB
	svc       Service
	transport *recordingTransport
	clock     *time.Time
	user      *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithAttempts(t, 3)
}

func newFixtureWithAttempts(t *testing.T, maxAttempts int) *fixture {
	t.Helper()
	conn := testutil.OpenDB(t)
	transport := &recordingTransport{codes: map[string]string{}}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(conn),
		Users:     users.NewRepository(conn),
		Transport: transport,
		Config:    config.OTPConfig{TTL: 5 * time.Minute, MaxAttempts: maxAttempts, BcryptCost: 4},
		Now:       func() time.Time { return *clock },
	})
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc, transport: transport, clock: clock, user: testutil.MustCreateUser(t, conn, enums.RoleUser)}
}

func (f *fixture) code(contact string, purpose enums.OTPPurpose) string {
	return f.transport.codes[contact+"/"+purpose.String()]
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestSendAndVerifyConsumesCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Send(ctx, f.user.Email, enums.OTPPurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Add(5*time.Minute), res.ExpiresAt)

	code := f.code(f.user.Email, enums.OTPPurposeLogin)
	require.Len(t, code, 6)

	require.NoError(t, f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeLogin, code))

	err = f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeLogin, code)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestConcurrentVerifyConsumesCodeOnce(t *testing.T) {
	f := newFixtureWithAttempts(t, 10)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.user.Email, enums.OTPPurposeLogin)
	require.NoError(t, err)
	code := f.code(f.user.Email, enums.OTPPurposeLogin)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeLogin, code)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestConcurrentGuessesRespectAttemptCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.user.Email, enums.OTPPurposeLogin)
	require.NoError(t, err)
	code := f.code(f.user.Email, enums.OTPPurposeLogin)
	bad := wrongCode(code)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeLogin, bad)
		}(i)
	}
	wg.Wait()

	compared := 0
	for _, err := range errs {
		require.Error(t, err)
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			compared++
		}
	}
	assert.LessOrEqual(t, compared, 3)

	err = f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeLogin, code)
	assert.Error(t, err)
}

func TestPurposesAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.user.Email, enums.OTPPurposeLogin)
	require.NoError(t, err)

	err = f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeForgot, f.code(f.user.Email, enums.OTPPurposeLogin))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestResendInvalidatesPreviousCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var first string
	for {
		_, err := f.svc.Send(ctx, f.user.Email, enums.OTPPurposeForgot)
		require.NoError(t, err)
		if first == "" {
			first = f.code(f.user.Email, enums.OTPPurposeForgot)
			continue
		}
		if f.code(f.user.Email, enums.OTPPurposeForgot) != first {
			break
		}
	}

	err := f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeForgot, first)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.NoError(t, f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeForgot, f.code(f.user.Email, enums.OTPPurposeForgot)))
}

func TestAttemptsExhaustionDeletesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.user.Email, enums.OTPPurposeLogin)
	require.NoError(t, err)
	code := f.code(f.user.Email, enums.OTPPurposeLogin)
	bad := wrongCode(code)

	for i := 0; i < 3; i++ {
		err := f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeLogin, bad)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "attempt %d", i)
	}

	err = f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeLogin, code)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestExpiredCodeIsDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.user.Email, enums.OTPPurposeLogin)
	require.NoError(t, err)
	code := f.code(f.user.Email, enums.OTPPurposeLogin)

	*f.clock = f.clock.Add(5 * time.Minute)
	err = f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeLogin, code)
	require.Error(t, err)
	assert.Equal(t, "otp expired", pkgerrors.As(err).Message())

	err = f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeLogin, code)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestExhaustedRecordLeftBehindIsRateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.conn.Create(&models.OTPCode{
		Contact:     f.user.Email,
		Purpose:     enums.OTPPurposeLogin,
		CodeHash:    "x",
		ExpiresAt:   f.clock.Add(time.Minute),
		Attempts:    3,
		MaxAttempts: 3,
	}).Error)

	err := f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeLogin, "123456")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRateLimit))

	err = f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeLogin, "123456")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSendChecksAccountState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.user.Email, enums.OTPPurposeRegister)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = f.svc.Send(ctx, "nobody@example.com", enums.OTPPurposeForgot)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Send(ctx, "NEW@Example.com", enums.OTPPurposeRegister)
	require.NoError(t, err)
	assert.NotEmpty(t, f.code("new@example.com", enums.OTPPurposeRegister))

	_, err = f.svc.Send(ctx, "", enums.OTPPurposeRegister)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.Send(ctx, "x@example.com", enums.OTPPurpose("spam"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTransportFailureRemovesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.transport.err = errors.New("smtp down")

	_, err := f.svc.Send(ctx, f.user.Email, enums.OTPPurposeLogin)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var count int64
	require.NoError(t, f.conn.Model(&models.OTPCode{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPurgeExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.user.Email, enums.OTPPurposeLogin)
	require.NoError(t, err)

	purged, err := f.svc.PurgeExpired(ctx, *f.clock)
	require.NoError(t, err)
	assert.Zero(t, purged)

	purged, err = f.svc.PurgeExpired(ctx, f.clock.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestCheckKeepsCodeAndCountsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.user.Email, enums.OTPPurposeLogin)
	require.NoError(t, err)
	code := f.code(f.user.Email, enums.OTPPurposeLogin)
	bad := wrongCode(code)

	for i := 0; i < 5; i++ {
		require.NoError(t, f.svc.Check(ctx, f.user.Email, enums.OTPPurposeLogin, code), "check %d", i)
	}

	var stored models.OTPCode
	require.NoError(t, f.conn.First(&stored).Error)
	assert.Zero(t, stored.Attempts)

	for i := 0; i < 2; i++ {
		err := f.svc.Check(ctx, f.user.Email, enums.OTPPurposeLogin, bad)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	}
	require.NoError(t, f.svc.Verify(ctx, f.user.Email, enums.OTPPurposeLogin, code))

	err = f.svc.Check(ctx, f.user.Email, enums.OTPPurposeLogin, code)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
