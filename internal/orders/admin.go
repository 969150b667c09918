package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminService exposes the back-office order mutations.
type AdminService interface {
	List(ctx context.Context, params pagination.Params) (*List, error)
	SetStatus(ctx context.Context, id uuid.UUID, target enums.OrderStatus) (*models.Order, error)
	SetRefunded(ctx context.Context, id uuid.UUID, refunded bool) (*models.Order, error)
	SetEstimatedDelivery(ctx context.Context, id uuid.UUID, ts time.Time) (*models.Order, error)
}

type adminService struct {
	repo Repository
}

// NewAdminService builds the admin order service.
func NewAdminService(repo Repository) (AdminService, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &adminService{repo: repo}, nil
}

func (s *adminService) List(ctx context.Context, params pagination.Params) (*List, error) {
	list, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// SetStatus moves an order to any valid target; terminal orders absorb and
// reject further transitions. Setting the current status is a no-op.
func (s *adminService) SetStatus(ctx context.Context, id uuid.UUID, target enums.OrderStatus) (*models.Order, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status == target {
		return order, nil
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s and cannot change status", order.Status))
	}

	ok, err := s.repo.UpdateFieldsUnlessStatus(ctx, id, map[string]any{"status": target.String()},
		enums.OrderStatusDelivered, enums.OrderStatusCanceled)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		// A concurrent transition reached a terminal status after the read.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"order is terminal and cannot change status")
	}
	order.Status = target
	return order, nil
}

// SetRefunded marks a canceled, gateway-paid order as refunded. The flag is
// monotonic and COD orders have nothing to refund.
func (s *adminService) SetRefunded(ctx context.Context, id uuid.UUID, refunded bool) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.PaymentMethod == enums.PaymentMethodCOD {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "cod orders are not refundable")
	}
	if order.Refunded == refunded {
		return order, nil
	}
	if !refunded {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "refund flag cannot be cleared")
	}
	if order.Status != enums.OrderStatusCanceled {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "only canceled orders can be refunded")
	}

	// A filtered write means a concurrent refund landed first; the flag is
	// monotonic so the end state matches either way.
	if _, err := s.repo.MarkRefunded(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update refund flag")
	}
	order.Refunded = true
	return order, nil
}

// SetEstimatedDelivery records the promised delivery date. Delivered orders
// no longer accept one.
func (s *adminService) SetEstimatedDelivery(ctx context.Context, id uuid.UUID, ts time.Time) (*models.Order, error) {
	if ts.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated delivery timestamp is required")
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status == enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already delivered")
	}

	ok, err := s.repo.UpdateFieldsUnlessStatus(ctx, id,
		map[string]any{"estimated_delivery": ts}, enums.OrderStatusDelivered)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update estimated delivery")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already delivered")
	}
	order.EstimatedDelivery = &ts
	return order, nil
}

func (s *adminService) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
