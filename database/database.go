package database

import (
	"database/sql"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Open connects to the SQLite3 file at path and brings its schema up to date.
func Open(path string) (db *sql.DB, err error) {
	db, err = sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	err = migrateDB(db)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	return db, nil
}

// foreign keys and the busy timeout are per connection, so they go in the DSN
func dsn(path string) string {
	params := url.Values{
		"_foreign_keys": {"on"},
		"_busy_timeout": {"5000"},
		"_journal_mode": {"WAL"},
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + params.Encode()
}
