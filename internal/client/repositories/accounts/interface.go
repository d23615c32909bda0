package accounts

import (
	"context"

	"github.com/okatkov/mxkeeper/internal/client/models"
)

// Repository describes storage operations for locally known accounts.
// Implementations are backed by a local SQLite database. All operations are
// atomic with respect to a single record only; a read-modify-write must be
// expressed as Get followed by Update, and callers must tolerate a
// concurrent Delete making that Update fail with common.ErrorNotFound.
type Repository interface {
	// List returns all stored accounts in insertion order.
	List(ctx context.Context) ([]models.LocalAccount, error)

	// Get returns the account with the given user id, or common.ErrorNotFound.
	Get(ctx context.Context, userID string) (*models.LocalAccount, error)

	// Upsert inserts a new account or replaces an existing one by UserID.
	Upsert(ctx context.Context, account *models.LocalAccount) error

	// Update rewrites an existing account. It fails with common.ErrorNotFound
	// when the record no longer exists, so a stale read never resurrects a
	// deleted account.
	Update(ctx context.Context, account *models.LocalAccount) error

	// Delete removes the account. Fails with common.ErrorNotFound if absent.
	Delete(ctx context.Context, userID string) error

	// Clear removes every stored account.
	Clear(ctx context.Context) error
}
