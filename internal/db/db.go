package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const defaultDBName = "stub.db"

// Config selects the stub database. An empty Dir opens a private in-memory
// database that lives as long as the returned handle.
type Config struct {
	Dir string
}

// Path returns the db file path under dir.
func Path(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, ".suivi", defaultDBName)
}

// Open opens the SQLite database with foreign keys on.
func Open(cfg Config) (*sql.DB, error) {
	if cfg.Dir == "" {
		return openMemory()
	}
	if err := os.MkdirAll(filepath.Dir(Path(cfg.Dir)), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", Path(cfg.Dir))
	return sql.Open("sqlite", dsn)
}

// openMemory names each database so handles opened in the same process stay
// isolated, and pins the pool to one connection so every query sees it.
func openMemory() (*sql.DB, error) {
	dsn := fmt.Sprintf("file:mem-%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	return conn, nil
}
