package db

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const failedToInitDB = "Failed to initialize database: %v"

const select1 = `SELECT 1`
const insertMedia = `INSERT INTO media (id, object_key, url) VALUES (?, ?, ?)`

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	db := NewSQLite(":memory:")
	if err := db.InitDB(); err != nil {
		t.Fatalf(failedToInitDB, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func columns(t *testing.T, db *SQLite, table string) map[string]bool {
	t.Helper()
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("Failed to get %s table info: %v", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			t.Fatalf("Failed to scan column info: %v", err)
		}
		cols[name] = true
	}
	return cols
}

func TestNewSQLite(t *testing.T) {
	db := NewSQLite(":memory:")

	if db == nil {
		t.Fatal("Expected non-nil SQLite instance")
	}
	if db.Get() != nil {
		t.Error("Expected connection to be nil initially")
	}
}

func TestSchema(t *testing.T) {
	db := newTestDB(t)

	t.Run("Tables exist", func(t *testing.T) {
		for _, table := range []string{"documents", "media"} {
			rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table)
			if err != nil {
				t.Fatalf("Failed to query for table %s: %v", table, err)
			}
			if !rows.Next() {
				t.Errorf("Expected table %s to exist", table)
			}
			rows.Close()
		}
	})

	t.Run("Table columns", func(t *testing.T) {
		expected := map[string][]string{
			"documents": {"id", "kind", "title", "content", "content_hash", "featured_media_id", "created_at", "modified_at"},
			"media":     {"id", "object_key", "url", "content_type", "width", "height", "size", "variants", "created_at"},
		}
		for table, want := range expected {
			cols := columns(t, db, table)
			for _, col := range want {
				if !cols[col] {
					t.Errorf("Expected %s table to have column %s", table, col)
				}
			}
		}
	})

	t.Run("Foreign keys are enabled", func(t *testing.T) {
		var enabled int
		if err := db.Get().QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
			t.Fatalf("Failed to check foreign keys: %v", err)
		}
		if enabled != 1 {
			t.Error("Expected foreign keys to be enabled")
		}
	})

	t.Run("InitDB is repeatable", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cms.db")
		for i := 0; i < 2; i++ {
			db := NewSQLite(path)
			if err := db.InitDB(); err != nil {
				t.Fatalf(failedToInitDB, err)
			}
			db.Close()
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected database file to be created: %v", err)
		}
	})
}

func TestFeaturedMediaReference(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.Exec(insertMedia, "m1", "images/m1.png", "/media/images/m1.png"); err != nil {
		t.Fatalf("Failed to insert media: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO documents (id, kind, title, featured_media_id) VALUES (?, ?, ?, ?)`,
		"d1", "news", "Noticia", "m1"); err != nil {
		t.Fatalf("Failed to insert document: %v", err)
	}

	t.Run("Unknown media is rejected", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO documents (id, kind, featured_media_id) VALUES (?, ?, ?)`, "d2", "news", "missing")
		if err == nil {
			t.Fatal("Expected foreign key violation")
		}
		if !strings.Contains(err.Error(), "FOREIGN KEY") {
			t.Errorf("Expected FOREIGN KEY error, got: %v", err)
		}
	})

	t.Run("Deleting media clears the reference", func(t *testing.T) {
		if _, err := db.Exec(`DELETE FROM media WHERE id = ?`, "m1"); err != nil {
			t.Fatalf("Failed to delete media: %v", err)
		}

		var featured sql.NullString
		if err := db.Get().QueryRow(`SELECT featured_media_id FROM documents WHERE id = ?`, "d1").Scan(&featured); err != nil {
			t.Fatalf("Failed to query document: %v", err)
		}
		if featured.Valid {
			t.Errorf("Expected featured media to be cleared, got %q", featured.String)
		}
	})
}

func TestSQLiteErrorHandling(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	t.Run("Uninitialized database", func(t *testing.T) {
		db := NewSQLite(":memory:")

		if _, err := db.Query(select1); !errors.Is(err, ErrNotInitialized) {
			t.Errorf("Expected ErrNotInitialized from Query, got %v", err)
		}
		if _, err := db.Exec(select1); !errors.Is(err, ErrNotInitialized) {
			t.Errorf("Expected ErrNotInitialized from Exec, got %v", err)
		}
	})

	t.Run("Invalid SQL", func(t *testing.T) {
		db := newTestDB(t)

		if _, err := db.Query("INVALID SQL SYNTAX"); err == nil {
			t.Error("Expected error for invalid SQL query")
		}
		if _, err := db.Exec("INVALID SQL SYNTAX"); err == nil {
			t.Error("Expected error for invalid SQL exec")
		}
	})

	t.Run("Constraint violation", func(t *testing.T) {
		db := newTestDB(t)

		if _, err := db.Exec(insertMedia, "dup", "a", "/a"); err != nil {
			t.Fatalf("Failed to insert first media: %v", err)
		}
		_, err := db.Exec(insertMedia, "dup", "b", "/b")
		if err == nil {
			t.Fatal("Expected constraint violation error for duplicate id")
		}
		if !strings.Contains(err.Error(), "UNIQUE") && !strings.Contains(err.Error(), "constraint") {
			t.Errorf("Expected UNIQUE constraint error, got: %v", err)
		}
	})
}

func TestSQLiteClose(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	t.Run("Close uninitialized database", func(t *testing.T) {
		if err := NewSQLite(":memory:").Close(); err != nil {
			t.Errorf("Expected no error closing uninitialized database, got: %v", err)
		}
	})

	t.Run("Close database twice", func(t *testing.T) {
		db := NewSQLite(":memory:")
		if err := db.InitDB(); err != nil {
			t.Fatalf(failedToInitDB, err)
		}

		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database first time: %v", err)
		}
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database second time: %v", err)
		}
		if db.Get() != nil {
			t.Error("Expected connection to be released after close")
		}
	})
}

func TestDBInterface(t *testing.T) {
	var _ DB = (*SQLite)(nil)

	db := newTestDB(t)

	rows, err := db.Query(select1)
	if err != nil {
		t.Fatalf("Interface Query failed: %v", err)
	}
	rows.Close()

	if _, err := db.Exec(select1); err != nil {
		t.Errorf("Interface Exec failed: %v", err)
	}
}
