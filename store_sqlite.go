package folio

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	trade_date TEXT NOT NULL,
	payload    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, trade_date);
`

// SQLiteStore keeps the append-only log in a SQLite database. The payload
// column holds each record's canonical encoding, so dedup comparisons behave
// identically to the file backend.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLiteStore opens (and if necessary creates) the database at path.
// Use ":memory:" for an ephemeral store. A nil logger disables logging.
func OpenSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database at %q: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	logger.Info("sqlite ledger store opened", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// AppendRecord inserts the record. The primary key makes a re-append of the
// same ID a no-op at the storage layer too; the ledger has already verified
// the payloads match.
func (s *SQLiteStore) AppendRecord(rec TransactionRecord) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO transactions (id, account_id, trade_date, payload) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.AccountID, rec.TradeDate.String(), string(rec.canonical()),
	)
	if err != nil {
		return fmt.Errorf("inserting transaction %s: %w", rec.ID, err)
	}
	s.logger.Debug("record appended", zap.String("id", rec.ID))
	return nil
}

// Load rebuilds a ledger from the stored log in insertion order.
func (s *SQLiteStore) Load() (*Ledger, error) {
	rows, err := s.db.Query(`SELECT payload FROM transactions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("reading transactions: %w", err)
	}
	defer rows.Close()

	ledger := NewLedger()
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rec TransactionRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decoding stored transaction: %w", err)
		}
		if _, err := ledger.Append(rec); err != nil {
			return nil, fmt.Errorf("replaying stored transaction %s: %w", rec.ID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.logger.Info("ledger loaded", zap.Int("records", ledger.Len()))
	return ledger, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
