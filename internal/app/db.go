package app

import (
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // SQLite driver
)

// sqlitePragmas are applied to every pooled connection.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
	"foreign_keys(ON)",
}

// OpenDatabase opens the suite's SQLite database at path.
func OpenDatabase(path string) (*sql.DB, error) {
	dsn := "file:" + path
	for i, p := range sqlitePragmas {
		sep := "&"
		if i == 0 {
			sep = "?"
		}
		dsn += sep + "_pragma=" + p
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return db, nil
}

// OpenStorage creates the storage root if needed and opens the database in it.
func (c *Config) OpenStorage() (*sql.DB, error) {
	root, err := ExpandPath(c.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("expanding storage root path: %w", err)
	}
	c.Storage.Root = root
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	path, err := c.DatabasePath()
	if err != nil {
		return nil, err
	}
	return OpenDatabase(path)
}
