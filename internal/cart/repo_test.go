package cart

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	cartItems := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant TEXT NOT NULL DEFAULT '',
  size TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_path
  ON cart_items (user_id, product_id, variant, size);`
	require.NoError(t, db.Exec(cartItems).Error)
	return db
}

func newCartLine(userID, productID uuid.UUID, variant, size string, qty int) *models.CartItem {
	return &models.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Variant:   variant,
		Size:      size,
		Quantity:  qty,
	}
}

func TestRepositoryCreateAndFindByUser(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	otherUser := uuid.New()
	productID := uuid.New()

	require.NoError(t, repo.Create(context.Background(), newCartLine(userID, productID, "black", "M", 2)))
	require.NoError(t, repo.Create(context.Background(), newCartLine(userID, productID, "black", "L", 0)))
	require.NoError(t, repo.Create(context.Background(), newCartLine(otherUser, productID, "black", "M", 9)))

	items, err := repo.FindByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, userID, item.UserID)
	}
}

func TestRepositoryUniquePathConstraint(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	productID := uuid.New()

	require.NoError(t, repo.Create(context.Background(), newCartLine(userID, productID, "black", "M", 1)))
	err := repo.Create(context.Background(), newCartLine(userID, productID, "black", "M", 3))
	require.Error(t, err)
}

func TestRepositorySaveUpdatesQuantity(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	line := newCartLine(userID, uuid.New(), "red", "S", 1)
	require.NoError(t, repo.Create(context.Background(), line))

	line.Quantity = 0
	require.NoError(t, repo.Save(context.Background(), line))

	items, err := repo.FindByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0, items[0].Quantity)
}

func TestRepositoryDeleteByUserRemovesTombstones(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	require.NoError(t, repo.Create(context.Background(), newCartLine(userID, uuid.New(), "black", "M", 2)))
	require.NoError(t, repo.Create(context.Background(), newCartLine(userID, uuid.New(), "red", "L", 0)))

	require.NoError(t, repo.DeleteByUser(context.Background(), userID))

	items, err := repo.FindByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, items)
}
