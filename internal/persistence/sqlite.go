// Package persistence is the durable storage backend behind the
// account, order and notification store interfaces, kept behind those
// interfaces so the engine stays agnostic to the storage technology.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"giftmarket/internal/account"
	"giftmarket/internal/notification"
	"giftmarket/internal/order"
)

// Compile-time interface checks.
var _ account.Store = (*AccountStore)(nil)
var _ order.Store = (*OrderStore)(nil)
var _ notification.Store = (*NotificationStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id              TEXT PRIMARY KEY,
	display_name    TEXT NOT NULL DEFAULT '',
	ton_wallet      TEXT NOT NULL DEFAULT '',
	card_number     TEXT NOT NULL DEFAULT '',
	card_bank       TEXT NOT NULL DEFAULT '',
	telegram        TEXT NOT NULL DEFAULT '',
	role            TEXT NOT NULL DEFAULT 'trader',
	completed_deals INTEGER NOT NULL DEFAULT 0,
	volumes         TEXT NOT NULL DEFAULT '{}',
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	code              TEXT NOT NULL UNIQUE,
	seller_id         TEXT NOT NULL,
	buyer_id          TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL,
	channel           TEXT NOT NULL,
	amount            TEXT NOT NULL,
	currency          TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	seller_requisites TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'active',
	fast_tracked      INTEGER NOT NULL DEFAULT 0,
	fast_tracked_by   TEXT NOT NULL DEFAULT '',
	fast_tracked_at   TEXT,
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders(seller_id);
CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id);

CREATE TABLE IF NOT EXISTS notifications (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	recipient_id TEXT NOT NULL,
	category     TEXT NOT NULL,
	message      TEXT NOT NULL,
	read_flag    INTEGER NOT NULL DEFAULT 0,
	read_at      TEXT,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, read_flag);
`

// DB wraps the shared SQLite handle and hands out the three stores
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at dbPath and bootstraps
// the schema
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer connection sidesteps SQLITE_BUSY under the
	// engine's concurrent shards.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Accounts returns the account store view of the database
func (d *DB) Accounts() *AccountStore { return &AccountStore{db: d.db} }

// Orders returns the order store view of the database
func (d *DB) Orders() *OrderStore { return &OrderStore{db: d.db} }

// Notifications returns the notification store view of the database
func (d *DB) Notifications() *NotificationStore { return &NotificationStore{db: d.db} }

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// ---------------------------------------------------------------------------
// AccountStore
// ---------------------------------------------------------------------------

// AccountStore implements account.Store backed by SQLite
type AccountStore struct {
	db *sql.DB
}

// Upsert creates the account on first contact or updates its display name
func (s *AccountStore) Upsert(ctx context.Context, id, displayName string) (*account.Account, error) {
	now := fmtTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = CASE WHEN excluded.display_name <> '' THEN excluded.display_name ELSE accounts.display_name END,
			updated_at = excluded.updated_at`,
		id, displayName, now, now)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Get retrieves an account by external id
func (s *AccountStore) Get(ctx context.Context, id string) (*account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, ton_wallet, card_number, card_bank, telegram,
		       role, completed_deals, volumes, created_at, updated_at
		FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// UpdateRequisites applies a partial requisites update
func (s *AccountStore) UpdateRequisites(ctx context.Context, id string, upd account.RequisitesUpdate) (*account.Account, error) {
	var sets []string
	var args []any
	if upd.TonWallet != nil {
		sets = append(sets, "ton_wallet = ?")
		args = append(args, *upd.TonWallet)
	}
	if upd.CardNumber != nil {
		sets = append(sets, "card_number = ?")
		args = append(args, *upd.CardNumber)
	}
	if upd.CardBank != nil {
		sets = append(sets, "card_bank = ?")
		args = append(args, *upd.CardBank)
	}
	if upd.Telegram != nil {
		sets = append(sets, "telegram = ?")
		args = append(args, *upd.Telegram)
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, fmtTime(time.Now()), id)

		res, err := s.db.ExecContext(ctx,
			"UPDATE accounts SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, account.ErrNotFound
		}
	}

	return s.Get(ctx, id)
}

// SetRole replaces the account's role
func (s *AccountStore) SetRole(ctx context.Context, id string, role account.Role) (*account.Account, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET role = ?, updated_at = ? WHERE id = ?",
		string(role), fmtTime(time.Now()), id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, account.ErrNotFound
	}
	return s.Get(ctx, id)
}

// ApplySettlement accrues completion statistics for both parties in
// one transaction
func (s *AccountStore) ApplySettlement(ctx context.Context, settlement account.Settlement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := fmtTime(time.Now())

	var volumesJSON string
	err = tx.QueryRowContext(ctx,
		"SELECT volumes FROM accounts WHERE id = ?", settlement.SellerID).Scan(&volumesJSON)
	if err == sql.ErrNoRows {
		return account.ErrNotFound
	}
	if err != nil {
		return err
	}

	volumes := make(map[string]decimal.Decimal)
	if err := json.Unmarshal([]byte(volumesJSON), &volumes); err != nil {
		return fmt.Errorf("decode volumes for %s: %w", settlement.SellerID, err)
	}
	volumes[settlement.Currency] = volumes[settlement.Currency].Add(settlement.Amount)
	encoded, err := json.Marshal(volumes)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE accounts
		SET completed_deals = completed_deals + 1, volumes = ?, updated_at = ?
		WHERE id = ?`,
		string(encoded), now, settlement.SellerID)
	if err != nil {
		return err
	}

	if settlement.BuyerID != "" {
		res, err := tx.ExecContext(ctx, `
			UPDATE accounts
			SET completed_deals = completed_deals + 1, updated_at = ?
			WHERE id = ?`,
			now, settlement.BuyerID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return account.ErrNotFound
		}
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var a account.Account
	var role, volumesJSON, createdAt, updatedAt string

	err := row.Scan(&a.ID, &a.DisplayName,
		&a.Requisites.TonWallet, &a.Requisites.CardNumber,
		&a.Requisites.CardBank, &a.Requisites.Telegram,
		&role, &a.Stats.CompletedDeals, &volumesJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, account.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.Role = account.Role(role)
	a.Stats.Volumes = make(map[string]decimal.Decimal)
	if err := json.Unmarshal([]byte(volumesJSON), &a.Stats.Volumes); err != nil {
		return nil, fmt.Errorf("decode volumes for %s: %w", a.ID, err)
	}
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)

	return &a, nil
}

// ---------------------------------------------------------------------------
// OrderStore
// ---------------------------------------------------------------------------

// OrderStore implements order.Store backed by SQLite
type OrderStore struct {
	db *sql.DB
}

const orderColumns = `id, code, seller_id, buyer_id, category, channel, amount, currency,
	description, seller_requisites, status, fast_tracked, fast_tracked_by, fast_tracked_at,
	created_at, updated_at`

// Create persists a new order; the unique index on code makes the
// check-and-insert atomic
func (s *OrderStore) Create(ctx context.Context, o *order.Order) (*order.Order, error) {
	now := time.Now()
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (code, seller_id, buyer_id, category, channel, amount, currency,
			description, seller_requisites, status, fast_tracked, fast_tracked_by, fast_tracked_at,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Code, o.SellerID, o.BuyerID, string(o.Category), string(o.Channel),
		o.Amount.String(), o.Currency, o.Description, o.SellerRequisites,
		string(o.Status), boolToInt(o.FastTracked), o.FastTrackedBy, nullTime(o.FastTrackedAt),
		fmtTime(createdAt), fmtTime(createdAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, order.ErrCodeTaken
		}
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// GetByID retrieves an order by sequence id
func (s *OrderStore) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = ?", id)
	return scanOrder(row)
}

// GetByCode retrieves an order by its shareable code
func (s *OrderStore) GetByCode(ctx context.Context, code string) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE code = ?", code)
	return scanOrder(row)
}

// ListByAccount retrieves orders where the account is seller or buyer,
// newest first
func (s *OrderStore) ListByAccount(ctx context.Context, accountID string) ([]*order.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE seller_id = ? OR buyer_id = ? ORDER BY created_at DESC, id DESC",
		accountID, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Update persists changes to an existing order
func (s *OrderStore) Update(ctx context.Context, o *order.Order) (*order.Order, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET buyer_id = ?, status = ?, fast_tracked = ?, fast_tracked_by = ?, fast_tracked_at = ?,
			updated_at = ?
		WHERE id = ?`,
		o.BuyerID, string(o.Status), boolToInt(o.FastTracked), o.FastTrackedBy,
		nullTime(o.FastTrackedAt), fmtTime(time.Now()), o.ID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, order.ErrNotFound
	}
	return s.GetByID(ctx, o.ID)
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var o order.Order
	var category, channel, amount, status, createdAt, updatedAt string
	var fastTracked int
	var fastTrackedAt sql.NullString

	err := row.Scan(&o.ID, &o.Code, &o.SellerID, &o.BuyerID, &category, &channel,
		&amount, &o.Currency, &o.Description, &o.SellerRequisites, &status,
		&fastTracked, &o.FastTrackedBy, &fastTrackedAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	o.Category = order.Category(category)
	o.Channel = order.Channel(channel)
	o.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("decode amount for order %d: %w", o.ID, err)
	}
	o.Status = order.Status(status)
	o.FastTracked = fastTracked != 0
	if fastTrackedAt.Valid {
		t := parseTime(fastTrackedAt.String)
		o.FastTrackedAt = &t
	}
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)

	return &o, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

// ---------------------------------------------------------------------------
// NotificationStore
// ---------------------------------------------------------------------------

// NotificationStore implements notification.Store backed by SQLite
type NotificationStore struct {
	db *sql.DB
}

// Append persists a new notification, assigning its sequence id
func (s *NotificationStore) Append(ctx context.Context, n *notification.Notification) (*notification.Notification, error) {
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (recipient_id, category, message, read_flag, created_at)
		VALUES (?, ?, ?, 0, ?)`,
		n.RecipientID, n.Category, n.Message, fmtTime(createdAt))
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

// MarkRead sets the read flag and read timestamp
func (s *NotificationStore) MarkRead(ctx context.Context, id int64) (*notification.Notification, error) {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read_flag = 1, read_at = ? WHERE id = ? AND read_flag = 0",
		fmtTime(time.Now()), id)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

// ListByRecipient returns a recipient's notifications newest first
func (s *NotificationStore) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]*notification.Notification, error) {
	query := `
		SELECT id, recipient_id, category, message, read_flag, read_at, created_at
		FROM notifications WHERE recipient_id = ?`
	if unreadOnly {
		query += " AND read_flag = 0"
	}
	query += " ORDER BY id DESC"
	args := []any{recipientID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*notification.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Delete removes a single notification
func (s *NotificationStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

// PurgeByRecipient removes all notifications for a recipient
func (s *NotificationStore) PurgeByRecipient(ctx context.Context, recipientID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE recipient_id = ?", recipientID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *NotificationStore) get(ctx context.Context, id int64) (*notification.Notification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, recipient_id, category, message, read_flag, read_at, created_at
		FROM notifications WHERE id = ?`, id)
	return scanNotification(row)
}

func scanNotification(row rowScanner) (*notification.Notification, error) {
	var n notification.Notification
	var readFlag int
	var readAt sql.NullString
	var createdAt string

	err := row.Scan(&n.ID, &n.RecipientID, &n.Category, &n.Message, &readFlag, &readAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, notification.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	n.Read = readFlag != 0
	if readAt.Valid {
		t := parseTime(readAt.String)
		n.ReadAt = &t
	}
	n.CreatedAt = parseTime(createdAt)

	return &n, nil
}
