package admin

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Service computes the admin dashboard rollups on demand.
type Service interface {
	Summary(ctx context.Context) (*Summary, error)
	MonthlySales(ctx context.Context, year *int) ([]MonthlySales, error)
	CategoryDistribution(ctx context.Context) ([]CategoryBucket, error)
	// StatusDistribution reports every known status, zero counts included.
	StatusDistribution(ctx context.Context) ([]StatusCount, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("admin repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	summary, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load summary")
	}
	return summary, nil
}

func (s *service) MonthlySales(ctx context.Context, year *int) ([]MonthlySales, error) {
	if year != nil && (*year < 1970 || *year > 9999) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "year %d out of range", *year)
	}
	rows, err := s.repo.MonthlySales(ctx, year)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load monthly sales")
	}
	out := make([]MonthlySales, 0, len(rows))
	for _, row := range rows {
		out = append(out, MonthlySales{
			Year:    row.Year,
			Month:   row.Month,
			Orders:  row.Orders,
			Revenue: types.Money(row.Revenue),
		})
	}
	return out, nil
}

func (s *service) CategoryDistribution(ctx context.Context) ([]CategoryBucket, error) {
	buckets, err := s.repo.CategoryDistribution(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category distribution")
	}
	return buckets, nil
}

func (s *service) StatusDistribution(ctx context.Context) ([]StatusCount, error) {
	counts, err := s.repo.StatusDistribution(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load status distribution")
	}
	statuses := enums.OrderStatuses()
	out := make([]StatusCount, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, StatusCount{Status: status, Orders: counts[status]})
	}
	return out, nil
}
