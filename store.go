package folio

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// Store persists the ledger as an append-only log. Each record is one
// immutably keyed entry; backends are interchangeable because the ledger's
// logic never depends on where the log lives.
type Store interface {
	// AppendRecord durably appends one committed record.
	AppendRecord(rec TransactionRecord) error
	// Load rebuilds a ledger from the log, through the ordinary append path.
	Load() (*Ledger, error)
	Close() error
}

// FileStore keeps the log as a JSONL file, one record per line. The file is
// human-readable and diff-friendly, which makes the ledger auditable with
// nothing but a pager.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a store over a JSONL file. The file is created on
// first append. A nil logger disables logging.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}
}

// AppendRecord appends the record's canonical line to the file.
func (s *FileStore) AppendRecord(rec TransactionRecord) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening ledger file %q: %w", s.path, err)
	}
	defer f.Close()

	if err := EncodeRecord(f, rec); err != nil {
		return fmt.Errorf("writing to ledger file %q: %w", s.path, err)
	}
	s.logger.Debug("record appended", zap.String("file", s.path), zap.String("id", rec.ID))
	return nil
}

// Load reads the whole log. A missing file yields an empty ledger.
func (s *FileStore) Load() (*Ledger, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		s.logger.Info("ledger file does not exist, starting empty", zap.String("file", s.path))
		return NewLedger(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger file %q: %w", s.path, err)
	}
	defer f.Close()

	ledger, err := DecodeLedger(f)
	if err != nil {
		return nil, fmt.Errorf("loading ledger file %q: %w", s.path, err)
	}
	s.logger.Info("ledger loaded",
		zap.String("file", s.path),
		zap.Int("records", ledger.Len()))
	return ledger, nil
}

// Close is a no-op: every append opens and closes the file.
func (s *FileStore) Close() error { return nil }

// SaveSnapshot writes a full consistent copy of the view to w, for rewriting
// a log into a fresh backend.
func SaveSnapshot(w io.Writer, view *LedgerView) error {
	return EncodeLedger(w, view)
}
