package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/debemdeboas/fundacion-cms/internal/config"
	"github.com/debemdeboas/fundacion-cms/internal/db"
)

func newFixTimesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fix-times",
		Short: "Rewrite document timestamps in the driver's canonical format",
		Long: `Fix-times parses the created_at and modified_at columns of every document,
accepting the formats older writers used, and stores them back as UTC in the
format the SQLite driver reads.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			if err := config.LoadConfig(opts.configPath); err != nil {
				return err
			}

			database := db.NewSQLite(config.AppConfig.Database.Path)
			if err := database.InitDB(); err != nil {
				return err
			}
			defer database.Close()

			out := cmd.OutOrStdout()
			fixed, failed, err := fixTimes(database, func(id, column, value string, err error) {
				fmt.Fprintf(out, "%s %s %s %q: %v\n", errStyle.Render("✗"), id, column, value, err)
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Updated %d timestamp(s)", fixed)))
			if failed > 0 {
				return fmt.Errorf("%d timestamp(s) could not be parsed", failed)
			}
			return nil
		},
	}
}

var timeFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseFuzzyTime parses s with every format older writers used.
func parseFuzzyTime(s string) (time.Time, error) {
	for _, format := range timeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse time '%s' with any known format", s)
}

type rowTimes struct {
	id                    string
	createdAt, modifiedAt sql.NullString
}

// fixTimes rewrites both timestamp columns of every document. onError is
// called for each value that could not be parsed.
func fixTimes(database db.DB, onError func(id, column, value string, err error)) (fixed, failed int, err error) {
	rows, err := database.Query(`SELECT id, CAST(created_at AS TEXT), CAST(modified_at AS TEXT) FROM documents`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query documents: %w", err)
	}

	var all []rowTimes
	for rows.Next() {
		var r rowTimes
		if err := rows.Scan(&r.id, &r.createdAt, &r.modifiedAt); err != nil {
			rows.Close()
			return 0, 0, fmt.Errorf("failed to scan row: %w", err)
		}
		all = append(all, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("error during row iteration: %w", err)
	}

	for _, r := range all {
		for _, col := range []struct {
			name  string
			value sql.NullString
		}{
			{"created_at", r.createdAt},
			{"modified_at", r.modifiedAt},
		} {
			if !col.value.Valid {
				continue
			}
			t, err := parseFuzzyTime(col.value.String)
			if err != nil {
				failed++
				onError(r.id, col.name, col.value.String, err)
				continue
			}
			if _, err := database.Exec(fmt.Sprintf(`UPDATE documents SET %s = ? WHERE id = ?`, col.name), t, r.id); err != nil {
				return fixed, failed, fmt.Errorf("failed to update %s of %s: %w", col.name, r.id, err)
			}
			fixed++
		}
	}
	return fixed, failed, nil
}
