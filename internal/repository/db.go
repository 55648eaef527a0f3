package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/debemdeboas/fundacion-cms/internal/cache"
	"github.com/debemdeboas/fundacion-cms/internal/db"
	"github.com/debemdeboas/fundacion-cms/internal/model"
	"github.com/debemdeboas/fundacion-cms/internal/util"
	"github.com/debemdeboas/fundacion-cms/internal/util/compression"
)

type DBDocumentRepository struct { // implements DocumentRepository
	mu sync.RWMutex

	docsCache       *cache.Cache[model.DocumentID, *model.Document]
	docsCacheSorted []model.Document

	reloadNotifier   func(model.DocumentID)
	lastModifiedTime *time.Time

	db         db.DB
	compressor compression.Compressor
}

func NewDBDocumentRepository(db db.DB, compressor compression.Compressor) *DBDocumentRepository {
	return &DBDocumentRepository{
		docsCache: cache.NewCache[model.DocumentID, *model.Document](),

		db: db,

		compressor: compressor,
	}
}

// Init loads every document into the cache.
func (r *DBDocumentRepository) Init() error {
	docs, docMap, latest, err := r.GetDocuments()
	if err != nil {
		return fmt.Errorf("error initializing documents: %w", err)
	}
	r.store(docs, docMap, latest)
	return nil
}

func (r *DBDocumentRepository) store(docs []model.Document, docMap map[model.DocumentID]*model.Document, latest *time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docsCacheSorted = docs
	r.docsCache.SetTo(docMap)
	r.lastModifiedTime = latest
}

func (r *DBDocumentRepository) GetLatestModifiedTime() (*time.Time, error) {
	var latestTimeStr sql.NullString
	row := r.db.Get().QueryRow(`SELECT MAX(modified_at) FROM documents`)
	err := row.Scan(&latestTimeStr)
	if err != nil {
		return nil, fmt.Errorf("error scanning latest modified time: %w", err)
	}

	if !latestTimeStr.Valid {
		return nil, nil // No documents yet.
	}

	// The go-sqlite3 driver returns a string for MAX(), so we must parse it.
	timeFormats := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		time.RFC3339,
	}

	var latestTime time.Time
	var parseErr error
	for _, format := range timeFormats {
		latestTime, parseErr = time.Parse(format, latestTimeStr.String)
		if parseErr == nil {
			return &latestTime, nil
		}
	}

	return nil, fmt.Errorf("error parsing latest modified time '%s' with any known format: %w", latestTimeStr.String, parseErr)
}

// GetDocuments reads every document, most recently modified first, along
// with the latest modification time.
func (r *DBDocumentRepository) GetDocuments() ([]model.Document, map[model.DocumentID]*model.Document, *time.Time, error) {
	rows, err := r.db.Query(`SELECT id, kind, title, content, content_hash, featured_media_id, created_at, modified_at FROM documents`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error querying documents: %w", err)
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	var latestModTime *time.Time

	for rows.Next() {
		var doc model.Document
		var compressed []byte
		var title, hash, featured sql.NullString

		err := rows.Scan(&doc.ID, &doc.Kind, &title, &compressed, &hash, &featured, &doc.CreatedAt, &doc.ModifiedAt)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("error scanning document: %w", err)
		}
		doc.Title = title.String
		doc.ContentHash = hash.String
		doc.FeaturedMediaID = model.MediaID(featured.String)

		if latestModTime == nil || doc.ModifiedAt.After(*latestModTime) {
			t := doc.ModifiedAt
			latestModTime = &t
		}

		if len(compressed) > 0 {
			content, err := r.compressor.Decompress(compressed)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("error decompressing document %s: %w", doc.ID, err)
			}
			doc.HTML = string(content)
		}

		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("error reading documents: %w", err)
	}

	slices.SortStableFunc(docs, func(a, b model.Document) int {
		return -a.ModifiedAt.Compare(b.ModifiedAt)
	})

	docMap := make(map[model.DocumentID]*model.Document, len(docs))
	for i := range docs {
		d := docs[i]
		docMap[d.ID] = &d
	}

	return docs, docMap, latestModTime, nil
}

func (r *DBDocumentRepository) List(kind model.Kind) []model.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Document, 0, len(r.docsCacheSorted))
	for _, d := range r.docsCacheSorted {
		if kind == "" || d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Get returns a copy of the cached document.
func (r *DBDocumentRepository) Get(id model.DocumentID) (*model.Document, error) {
	doc, ok := r.docsCache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	d := *doc
	return &d, nil
}

// Reload performs one change check and reports whether the cache changed.
func (r *DBDocumentRepository) Reload() (bool, error) {
	latestTime, err := r.GetLatestModifiedTime()
	if err != nil {
		return false, fmt.Errorf("error checking latest modification time: %w", err)
	}

	r.mu.RLock()
	last := r.lastModifiedTime
	cachedCount := len(r.docsCacheSorted)
	r.mu.RUnlock()

	if last != nil && latestTime != nil && !latestTime.After(*last) {
		var count int
		if err := r.db.Get().QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&count); err == nil && count == cachedCount {
			repoLogger.Debug().Msg("No documents modified, skipping reload")
			return false, nil
		}
	}

	repoLogger.Debug().Msg("Documents may have changed, performing full reload")

	docs, docMap, latest, err := r.GetDocuments()
	if err != nil {
		return false, fmt.Errorf("error reloading documents: %w", err)
	}

	var changed []model.DocumentID
	for _, doc := range docs {
		cached, exists := r.docsCache.Get(doc.ID)
		switch {
		case !exists:
			repoLogger.Info().
				Str("document_id", string(doc.ID)).
				Str("title", doc.Title).
				Msg("New document detected")
			changed = append(changed, doc.ID)
		case cached.ContentHash != doc.ContentHash || cached.FeaturedMediaID != doc.FeaturedMediaID:
			repoLogger.Info().
				Str("document_id", string(doc.ID)).
				Str("title", doc.Title).
				Msg("Document content changed, reloading")
			changed = append(changed, doc.ID)
		}
	}

	hasChanges := len(changed) > 0 || len(docs) != cachedCount
	if !hasChanges {
		r.mu.Lock()
		r.lastModifiedTime = latest
		r.mu.Unlock()
		return false, nil
	}

	repoLogger.Info().Int("changed", len(changed)).Msg("Documents have changed, updating cache")
	r.store(docs, docMap, latest)

	r.mu.RLock()
	notify := r.reloadNotifier
	r.mu.RUnlock()
	if notify != nil {
		for _, id := range changed {
			notify(id)
		}
	}
	return true, nil
}

// Watch calls Reload every interval until ctx is done.
func (r *DBDocumentRepository) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Reload(); err != nil {
				repoLogger.Error().Err(err).Msg("Error reloading documents")
			}
		}
	}
}

func (r *DBDocumentRepository) SetReloadNotifier(notifier func(model.DocumentID)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloadNotifier = notifier
}

func (r *DBDocumentRepository) New(kind model.Kind, title string) *model.Document {
	now := time.Now().UTC()

	return &model.Document{
		ID:    model.DocumentID(uuid.New().String()),
		Kind:  kind,
		Title: title,

		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// Save inserts or updates doc. ContentHash and ModifiedAt are set on doc.
func (r *DBDocumentRepository) Save(doc *model.Document) error {
	if !doc.Kind.Valid() {
		return fmt.Errorf("error saving document %s: unknown kind %q", doc.ID, doc.Kind)
	}

	compressed, err := r.compressor.Compress([]byte(doc.HTML))
	if err != nil {
		return fmt.Errorf("error compressing content: %w", err)
	}

	doc.ContentHash = util.ContentHashString(doc.HTML)
	doc.ModifiedAt = time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.ModifiedAt
	}

	res, err := r.db.Exec(
		`INSERT INTO documents (id, kind, title, content, content_hash, featured_media_id, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			title = excluded.title,
			content = excluded.content,
			content_hash = excluded.content_hash,
			featured_media_id = excluded.featured_media_id,
			modified_at = excluded.modified_at`,
		doc.ID, doc.Kind, doc.Title, compressed, doc.ContentHash, nullable(string(doc.FeaturedMediaID)), doc.CreatedAt, doc.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving document: %w", err)
	}

	repoLogger.Debug().Interface("result", res).Str("document_id", string(doc.ID)).Msg("Document saved")

	return r.refresh()
}

// SetFeatured records media as the featured image of document id. An empty
// media clears it.
func (r *DBDocumentRepository) SetFeatured(id model.DocumentID, media model.MediaID) error {
	res, err := r.db.Exec(
		`UPDATE documents SET featured_media_id = ?, modified_at = ? WHERE id = ?`,
		nullable(string(media)), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("error setting featured media: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return r.refresh()
}

func (r *DBDocumentRepository) Delete(id model.DocumentID) error {
	res, err := r.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return r.refresh()
}

// refresh reloads the cache after a local write.
func (r *DBDocumentRepository) refresh() error {
	docs, docMap, latest, err := r.GetDocuments()
	if err != nil {
		return err
	}
	r.store(docs, docMap, latest)
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
