package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type codSettler interface {
	SettleCOD(ctx context.Context, opts orders.SettleOptions) (int64, error)
}

type codSettlementJob struct {
	logg   *logger.Logger
	orders codSettler
}

// NewCODSettlementJob marks aged cash-on-delivery orders paid. Delivery status is left alone.
func NewCODSettlementJob(logg *logger.Logger, settler codSettler) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if settler == nil {
		return nil, fmt.Errorf("order service required")
	}
	return &codSettlementJob{logg: logg, orders: settler}, nil
}

func (j *codSettlementJob) Name() string { return "cod-settlement" }

func (j *codSettlementJob) Run(ctx context.Context) error {
	settled, err := j.orders.SettleCOD(ctx, orders.SettleOptions{})
	if err != nil {
		return err
	}
	j.logg.InfoFields(ctx, "cod settlement complete", map[string]any{"orders_settled": settled})
	return nil
}
