package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"go.uber.org/multierr"
)

type unsettledOrderReader interface {
	ListUnsettledOlderThan(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

// UnsettledAuditJobParams configure the unsettled-orders audit.
type UnsettledAuditJobParams struct {
	Logger           *logger.Logger
	Orders           unsettledOrderReader
	Metrics          *metrics.SettlementMetrics
	MinAge           time.Duration
	DeliveryFeeCents int64
}

// NewUnsettledAuditJob builds the cron job that reports aged unsettled
// gateway orders. Unsettled orders never expire; this job only surfaces them.
func NewUnsettledAuditJob(params UnsettledAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.MinAge <= 0 {
		return nil, fmt.Errorf("min age must be positive")
	}
	return &unsettledAuditJob{
		logg:             params.Logger,
		orders:           params.Orders,
		metrics:          params.Metrics,
		minAge:           params.MinAge,
		deliveryFeeCents: params.DeliveryFeeCents,
		now:              time.Now,
	}, nil
}

type unsettledAuditJob struct {
	logg             *logger.Logger
	orders           unsettledOrderReader
	metrics          *metrics.SettlementMetrics
	minAge           time.Duration
	deliveryFeeCents int64
	now              func() time.Time
}

func (j *unsettledAuditJob) Name() string { return "unsettled-orders" }

func (j *unsettledAuditJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.minAge)
	aged, err := j.orders.ListUnsettledOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query unsettled orders: %w", err)
	}

	var errs []error
	mismatches := 0
	for _, order := range aged {
		orderCtx := j.logg.WithOrderID(ctx, order.ID.String())
		orderCtx = j.logg.WithFields(orderCtx, map[string]any{
			"method":    order.PaymentMethod.String(),
			"age_hours": int(j.now().UTC().Sub(order.CreatedAt).Hours()),
		})
		j.logg.Warn(orderCtx, "order awaiting settlement")

		recomputed, err := snapshotAmountCents(order, j.deliveryFeeCents)
		if err != nil {
			errs = append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if recomputed != order.AmountCents {
			mismatches++
			mismatchCtx := j.logg.WithFields(orderCtx, map[string]any{
				"stored_cents":     order.AmountCents,
				"recomputed_cents": recomputed,
			})
			j.logg.Error(mismatchCtx, "order amount does not match its item snapshot", nil)
		}
	}

	j.metrics.SetUnsettled(len(aged))
	summaryCtx := j.logg.WithFields(ctx, map[string]any{
		"count":      len(aged),
		"mismatches": mismatches,
	})
	j.logg.Info(summaryCtx, "unsettled order audit complete")
	return multierr.Combine(errs...)
}

// snapshotAmountCents re-derives the order amount from its immutable item
// snapshot. The stored amount was fixed at creation, so a divergence means
// the row was tampered with or a pricing bug shipped.
func snapshotAmountCents(order models.Order, deliveryFeeCents int64) (int64, error) {
	if len(order.Items) == 0 {
		return 0, fmt.Errorf("order has no item snapshot")
	}
	total := deliveryFeeCents
	for _, item := range order.Items {
		if item.Quantity <= 0 {
			return 0, fmt.Errorf("snapshot item %s has non-positive quantity", item.ProductID)
		}
		total += item.UnitPriceCents * int64(item.Quantity)
	}
	return total, nil
}
