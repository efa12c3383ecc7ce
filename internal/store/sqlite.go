package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	_ "modernc.org/sqlite"

	"github.com/akozyrev/marketlink/internal/types"
)

// SQLite is the shipped Store implementation.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// New opens (creating if needed) the database at dbPath.
func New(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS credentials (
		user_id TEXT NOT NULL,
		marketplace TEXT NOT NULL,
		api_key TEXT,
		client_id TEXT,
		cookies_json TEXT,
		saved_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, marketplace)
	);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		marketplace TEXT NOT NULL,
		status TEXT NOT NULL,
		marketplace_order_id TEXT,
		items_json TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
	CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) Credentials(userID string, m types.Marketplace) (*types.Credentials, error) {
	var (
		apiKey, clientID sql.NullString
		cookiesJSON      sql.NullString
		savedAt          time.Time
	)
	err := s.db.QueryRow(`
		SELECT api_key, client_id, cookies_json, saved_at
		FROM credentials WHERE user_id = ? AND marketplace = ?
	`, userID, m.String()).Scan(&apiKey, &clientID, &cookiesJSON, &savedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	creds := &types.Credentials{
		APIKey:   apiKey.String,
		ClientID: clientID.String,
		SavedAt:  savedAt,
	}
	if cookiesJSON.Valid && cookiesJSON.String != "" {
		var cookies []*network.Cookie
		if err := json.Unmarshal([]byte(cookiesJSON.String), &cookies); err != nil {
			return nil, fmt.Errorf("decode stored cookies: %w", err)
		}
		creds.Cookies = cookies
	}
	return creds, nil
}

func (s *SQLite) SaveCredentials(userID string, m types.Marketplace, creds *types.Credentials) error {
	var cookiesJSON []byte
	if len(creds.Cookies) > 0 {
		var err error
		cookiesJSON, err = json.Marshal(creds.Cookies)
		if err != nil {
			return fmt.Errorf("encode cookies: %w", err)
		}
	}

	savedAt := creds.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO credentials (user_id, marketplace, api_key, client_id, cookies_json, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, marketplace) DO UPDATE SET
			api_key = excluded.api_key,
			client_id = excluded.client_id,
			cookies_json = excluded.cookies_json,
			saved_at = excluded.saved_at
	`, userID, m.String(), creds.APIKey, creds.ClientID, string(cookiesJSON), savedAt)
	return err
}

func (s *SQLite) CreateOrder(o *types.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO orders (id, user_id, marketplace, status, marketplace_order_id, items_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.UserID, o.Marketplace.String(), string(o.Status), o.MarketplaceOrderID,
		string(itemsJSON), o.CreatedAt, o.UpdatedAt)
	return err
}

func (s *SQLite) Order(id string) (*types.Order, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, marketplace, status, marketplace_order_id, items_json, created_at, updated_at
		FROM orders WHERE id = ?
	`, id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *SQLite) UpdateOrderStatus(id string, status types.Status) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRow(`SELECT status FROM orders WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !types.Status(current).CanTransition(status) {
		return fmt.Errorf("illegal order transition %s -> %s", current, status)
	}

	_, err = tx.Exec(`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) SetMarketplaceOrderID(id, marketplaceOrderID string) error {
	res, err := s.db.Exec(`UPDATE orders SET marketplace_order_id = ?, updated_at = ? WHERE id = ?`,
		marketplaceOrderID, time.Now(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) OpenOrders() ([]types.Order, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, marketplace, status, marketplace_order_id, items_json, created_at, updated_at
		FROM orders
		WHERE status IN (?, ?, ?, ?)
		ORDER BY created_at
	`, string(types.StatusPending), string(types.StatusProcessing),
		string(types.StatusCompleted), string(types.StatusShipped))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []types.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*types.Order, error) {
	var (
		o           types.Order
		marketplace string
		status      string
		mpOrderID   sql.NullString
		itemsJSON   string
	)
	err := row.Scan(&o.ID, &o.UserID, &marketplace, &status, &mpOrderID, &itemsJSON,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Marketplace = types.Marketplace(marketplace)
	o.Status = types.Status(status)
	o.MarketplaceOrderID = mpOrderID.String
	if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	return &o, nil
}
