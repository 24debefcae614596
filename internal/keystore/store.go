package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
	"github.com/ggonzalez94/transfer-cli/internal/keys"
)

// Store is the machine-local credential store the keychain signing strategy
// reads. Keys are stored per (account id, network) pair.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

// Entry is one stored access key.
type Entry struct {
	AccountID string
	Network   string
	PublicKey string
	AddedAt   time.Time
}

func Open(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create keystore directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite keystore: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"CREATE TABLE IF NOT EXISTS access_keys (account_id TEXT NOT NULL, network TEXT NOT NULL, public_key TEXT NOT NULL, secret_key TEXT NOT NULL, added_at INTEGER NOT NULL, PRIMARY KEY (account_id, network));",
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init keystore schema: %w", err)
		}
	}

	return &Store{db: db, lock: flock.New(lockPath)}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get looks up the signing key stored for the account on the given network.
// A miss is a typed key-not-found error, fatal for the keychain strategy.
func (s *Store) Get(accountID, network string) (keys.KeyPair, error) {
	var secret string
	err := s.db.QueryRow(
		"SELECT secret_key FROM access_keys WHERE account_id = ? AND network = ?",
		accountID, network,
	).Scan(&secret)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return keys.KeyPair{}, clierr.New(clierr.CodeKeyNotFound,
				fmt.Sprintf("no key found in keystore for account <%s> on network <%s>", accountID, network))
		}
		return keys.KeyPair{}, fmt.Errorf("keystore read: %w", err)
	}
	pair, err := keys.ParseSecretKey(secret)
	if err != nil {
		return keys.KeyPair{}, clierr.Wrap(clierr.CodeBadKey, "stored key is malformed", err)
	}
	return pair, nil
}

// Put stores or replaces the key for (account id, network).
func (s *Store) Put(accountID, network string, pair keys.KeyPair) error {
	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock keystore: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock keystore: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	_, err = s.db.Exec(`
		INSERT INTO access_keys (account_id, network, public_key, secret_key, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(account_id, network) DO UPDATE SET
			public_key=excluded.public_key,
			secret_key=excluded.secret_key,
			added_at=excluded.added_at
	`, accountID, network, pair.Public.String(), pair.SecretString(), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("keystore write: %w", err)
	}
	return nil
}

// List returns stored entries without secret material, ordered by account.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query("SELECT account_id, network, public_key, added_at FROM access_keys ORDER BY account_id, network")
	if err != nil {
		return nil, fmt.Errorf("keystore list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var entry Entry
		var addedUnix int64
		if err := rows.Scan(&entry.AccountID, &entry.Network, &entry.PublicKey, &addedUnix); err != nil {
			return nil, fmt.Errorf("keystore scan: %w", err)
		}
		entry.AddedAt = time.Unix(addedUnix, 0).UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}
