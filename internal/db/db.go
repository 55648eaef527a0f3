package db

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog"
)

var ErrNotInitialized = errors.New("database not initialized")

type DB interface {
	InitDB() error

	Get() *sql.DB
	Close() error

	Query(query string, args ...any) (*sql.Rows, error)
	Exec(query string, args ...any) (sql.Result, error)
}

var dbLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	dbLogger = l
}
