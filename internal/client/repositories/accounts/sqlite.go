package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/okatkov/mxkeeper/internal/client/models"
	"github.com/okatkov/mxkeeper/internal/common"
	"github.com/okatkov/mxkeeper/internal/cryptox"
	"github.com/okatkov/mxkeeper/internal/dbx"
)

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or
// *sql.Tx). Secret columns (password, token, refresh token) are sealed with
// AES-GCM under the device-local key before they touch the database.
type SQLiteRepository struct {
	db  dbx.DBTX
	key []byte
}

// NewSQLiteRepository returns a repository bound to the given DBTX. The key
// is the 32-byte device-local sealing key.
func NewSQLiteRepository(db dbx.DBTX, key []byte) *SQLiteRepository {
	return &SQLiteRepository{db: db, key: key}
}

// Rekey swaps the sealing key. Only valid while the store holds no sealed
// rows, such as right after Clear.
func (r *SQLiteRepository) Rekey(key []byte) {
	r.key = key
}

func (r *SQLiteRepository) seal(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	return cryptox.SealString(plain, r.key)
}

func (r *SQLiteRepository) open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	return cryptox.OpenString(sealed, r.key)
}

type sealedSecrets struct {
	password, token, refreshToken string
}

func (r *SQLiteRepository) sealSecrets(a *models.LocalAccount) (s sealedSecrets, err error) {
	if s.password, err = r.seal(a.Password); err != nil {
		return s, fmt.Errorf("seal password: %w", err)
	}
	if s.token, err = r.seal(a.Token); err != nil {
		return s, fmt.Errorf("seal token: %w", err)
	}
	if s.refreshToken, err = r.seal(a.RefreshToken); err != nil {
		return s, fmt.Errorf("seal refresh token: %w", err)
	}
	return s, nil
}

const accountColumns = `user_id, home_server_url, username, password, token, device_id, refresh_token, is_new, unread_count`

func (r *SQLiteRepository) scanAccount(scan func(dest ...any) error) (*models.LocalAccount, error) {
	a := &models.LocalAccount{}
	var password, token, refreshToken string
	if err := scan(&a.UserID, &a.HomeServerURL, &a.Username, &password, &token,
		&a.DeviceID, &refreshToken, &a.IsNew, &a.UnreadCount); err != nil {
		return nil, err
	}

	var err error
	if a.Password, err = r.open(password); err != nil {
		return nil, fmt.Errorf("open password: %w", err)
	}
	if a.Token, err = r.open(token); err != nil {
		return nil, fmt.Errorf("open token: %w", err)
	}
	if a.RefreshToken, err = r.open(refreshToken); err != nil {
		return nil, fmt.Errorf("open refresh token: %w", err)
	}
	return a, nil
}

// List returns every stored account ordered by insertion.
func (r *SQLiteRepository) List(ctx context.Context) ([]models.LocalAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY rowid`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select accounts: %w", err)
	}
	defer rows.Close()

	var result []models.LocalAccount
	for rows.Next() {
		a, err := r.scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns a single account by user id.
func (r *SQLiteRepository) Get(ctx context.Context, userID string) (*models.LocalAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)

	a, err := r.scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", userID, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// Upsert inserts the account or replaces an existing row with the same id.
func (r *SQLiteRepository) Upsert(ctx context.Context, a *models.LocalAccount) error {
	s, err := r.sealSecrets(a)
	if err != nil {
		return err
	}

	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			home_server_url = excluded.home_server_url,
			username = excluded.username,
			password = excluded.password,
			token = excluded.token,
			device_id = excluded.device_id,
			refresh_token = excluded.refresh_token,
			is_new = excluded.is_new,
			unread_count = excluded.unread_count
	`
	_, err = r.db.ExecContext(ctx, query,
		a.UserID, a.HomeServerURL, a.Username, s.password, s.token,
		a.DeviceID, s.refreshToken, a.IsNew, a.UnreadCount)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

// Update rewrites an existing account and fails with common.ErrorNotFound
// when the row is gone.
func (r *SQLiteRepository) Update(ctx context.Context, a *models.LocalAccount) error {
	s, err := r.sealSecrets(a)
	if err != nil {
		return err
	}

	query := `UPDATE accounts SET
			home_server_url = ?, username = ?, password = ?, token = ?,
			device_id = ?, refresh_token = ?, is_new = ?, unread_count = ?
		WHERE user_id = ?`
	res, err := r.db.ExecContext(ctx, query,
		a.HomeServerURL, a.Username, s.password, s.token,
		a.DeviceID, s.refreshToken, a.IsNew, a.UnreadCount, a.UserID)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("account %s: %w", a.UserID, common.ErrorNotFound)
	}
	return nil
}

// Delete removes the account by user id.
func (r *SQLiteRepository) Delete(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("account %s: %w", userID, common.ErrorNotFound)
	}
	return nil
}

// Clear removes all accounts.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("failed to clear accounts: %w", err)
	}
	return nil
}
