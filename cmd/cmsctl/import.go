package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/debemdeboas/fundacion-cms/internal/app"
	"github.com/debemdeboas/fundacion-cms/internal/editor"
	"github.com/debemdeboas/fundacion-cms/internal/media"
	"github.com/debemdeboas/fundacion-cms/internal/model"
)

func newImportCmd(opts *options) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "import <file.md>...",
		Short: "Import Markdown files as documents",
		Long: `Import renders each Markdown file and stores it as a new document.

A leading %%% TOML block is read as front matter: its title names the
document, its kind is used when --kind is not given and a local featured
image is uploaded to the media store.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind != "" {
				if _, err := model.ParseKind(kind); err != nil {
					return err
				}
			}

			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Importing %d file(s)", len(args))))

			failed := 0
			for _, path := range args {
				doc, err := importFile(cmd.Context(), a, path, kind)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s %s: %v\n", errStyle.Render("✗"), path, err)
					continue
				}
				line := fmt.Sprintf("%s %s %s", okStyle.Render("✓"), doc.GetTitle(), dimStyle.Render(string(doc.Kind)+" "+string(doc.ID)))
				if doc.FeaturedMediaID != "" {
					line += dimStyle.Render(" featured " + string(doc.FeaturedMediaID))
				}
				fmt.Fprintln(out, line)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) failed to import", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Document kind (news, event or page)")
	return cmd
}

// importFile stores the Markdown file at path as a new document. A non-empty
// kind overrides the one in the front matter.
func importFile(ctx context.Context, a *app.App, path, kind string) (*model.Document, error) {
	md, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	imp, err := a.Renderer.Import(md)
	if err != nil {
		return nil, fmt.Errorf("error rendering: %w", err)
	}

	if kind == "" && imp.Info != nil {
		kind = imp.Info.Kind
	}
	k, err := model.ParseKind(kind)
	if err != nil {
		return nil, err
	}

	doc := a.Docs.New(k, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	doc.Info = imp.Info
	doc.Title = doc.GetTitle()
	doc.HTML = imp.HTML
	if err := a.Docs.Save(doc); err != nil {
		return nil, err
	}

	if imp.Info == nil || imp.Info.Featured == "" {
		return doc, nil
	}

	id, err := uploadFeatured(ctx, a, filepath.Dir(path), imp.Info.Featured)
	if err != nil {
		return doc, fmt.Errorf("document %s saved without its featured image: %w", doc.ID, err)
	}
	if err := a.Docs.SetFeatured(doc.ID, id); err != nil {
		return doc, err
	}
	doc.FeaturedMediaID = id
	return doc, nil
}

// uploadFeatured stores the image at ref, relative to dir, and returns its
// media ID.
func uploadFeatured(ctx context.Context, a *app.App, dir, ref string) (model.MediaID, error) {
	if strings.Contains(ref, "://") {
		return "", fmt.Errorf("remote featured image %q is not supported", ref)
	}
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(dir, ref)
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return "", err
	}

	f := editor.File{Name: filepath.Base(ref), Data: data}
	f.ContentType = media.DetectType(f)

	res, err := a.Uploader.Upload(ctx, f)
	if err != nil {
		return "", err
	}
	return model.MediaID(res.ID), nil
}
