package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/debemdeboas/fundacion-cms/internal/document"
	"github.com/debemdeboas/fundacion-cms/internal/repository"
)

func newNormalizeCmd(opts *options) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Re-normalize the content of every stored document",
		Long: `Normalize sanitizes the stored HTML of every document and brings it to the
canonical editor shape, saving the documents whose content changed. A running
server picks the changes up on its next reload.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			changed, err := normalizeAll(a.Docs, dryRun, func(title string) {
				fmt.Fprintf(out, "%s %s\n", warnStyle.Render("~"), title)
			})
			if err != nil {
				return err
			}

			verb := "Normalized"
			if dryRun {
				verb = "Would normalize"
			}
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s %d document(s)", verb, changed)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report changes without saving them")
	return cmd
}

// normalizeAll cleans every document in docs and returns how many differed.
// report is called with the title of each of them.
func normalizeAll(docs *repository.DBDocumentRepository, dryRun bool, report func(title string)) (int, error) {
	changed := 0
	for _, doc := range docs.List("") {
		clean, err := document.Clean(doc.HTML)
		if err != nil {
			return changed, fmt.Errorf("error normalizing document %s: %w", doc.ID, err)
		}
		if clean == doc.HTML {
			continue
		}

		changed++
		report(doc.Title)
		if dryRun {
			continue
		}

		d := doc
		d.HTML = clean
		if err := docs.Save(&d); err != nil {
			return changed, err
		}
	}
	return changed, nil
}
