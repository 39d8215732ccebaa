package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type otpPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type otpPurgeJob struct {
	logg *logger.Logger
	otp  otpPurger
	now  func() time.Time
}

func NewOTPPurgeJob(logg *logger.Logger, purger otpPurger) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if purger == nil {
		return nil, fmt.Errorf("otp service required")
	}
	return &otpPurgeJob{logg: logg, otp: purger, now: time.Now}, nil
}

func (j *otpPurgeJob) Name() string { return "otp-purge" }

func (j *otpPurgeJob) Run(ctx context.Context) error {
	removed, err := j.otp.PurgeExpired(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("purge expired otp codes: %w", err)
	}
	j.logg.InfoFields(ctx, "otp purge complete", map[string]any{"rows_deleted": removed})
	return nil
}
