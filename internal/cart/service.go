package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// LineRef addresses one cart line by its composite path.
type LineRef struct {
	ProductID uuid.UUID
	Variant   string
	Size      string
}

// Service exposes cart persistence operations.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, ref LineRef) error
	SetQuantity(ctx context.Context, userID uuid.UUID, ref LineRef, quantity int) error
	Get(ctx context.Context, userID uuid.UUID) (View, error)
	Lines(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     Repository
	tx       txRunner
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
	}, nil
}

// Add increments the addressed line by one, creating it at qty 1 when absent.
func (s *service) Add(ctx context.Context, userID uuid.UUID, ref LineRef) error {
	ref, err := normalizeRef(userID, ref)
	if err != nil {
		return err
	}

	product, err := s.products.FindByID(ctx, ref.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		line, err := txRepo.FindLineForUpdate(ctx, userID, ref.ProductID, ref.Variant, ref.Size)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return txRepo.Create(ctx, &models.CartItem{
					UserID:    userID,
					ProductID: ref.ProductID,
					Variant:   ref.Variant,
					Size:      ref.Size,
					Quantity:  1,
				})
			}
			return err
		}
		line.Quantity++
		return txRepo.Save(ctx, line)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart line")
	}
	return nil
}

// SetQuantity assigns an exact quantity to an existing line. Zero is allowed
// and retained as a tombstone; the path is never created here.
func (s *service) SetQuantity(ctx context.Context, userID uuid.UUID, ref LineRef, quantity int) error {
	ref, err := normalizeRef(userID, ref)
	if err != nil {
		return err
	}
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		line, err := txRepo.FindLineForUpdate(ctx, userID, ref.ProductID, ref.Variant, ref.Size)
		if err != nil {
			return err
		}
		line.Quantity = quantity
		return txRepo.Save(ctx, line)
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	return nil
}

// Get returns a snapshot of the nested cart view.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	items, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return BuildView(items), nil
}

// Lines returns the user's non-tombstoned cart lines.
func (s *service) Lines(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	items, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	active := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if item.Quantity > 0 {
			active = append(active, item)
		}
	}
	return active, nil
}

// Clear removes every line for the user, tombstones included.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func normalizeRef(userID uuid.UUID, ref LineRef) (LineRef, error) {
	if userID == uuid.Nil {
		return ref, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if ref.ProductID == uuid.Nil {
		return ref, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	ref.Variant = strings.TrimSpace(ref.Variant)
	ref.Size = strings.TrimSpace(ref.Size)
	if ref.Size == "" {
		return ref, pkgerrors.New(pkgerrors.CodeValidation, "size is required")
	}
	return ref, nil
}
