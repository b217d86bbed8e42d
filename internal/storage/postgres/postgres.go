package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/mosaicmedia/media-service/internal/config"
	"github.com/mosaicmedia/media-service/internal/types"
)

type Postgres struct {
	Db *sql.DB
}

func NewPostgres(cfg *config.Config) (*Postgres, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PGSQL.Host, cfg.PGSQL.Port, cfg.PGSQL.User, cfg.PGSQL.Password, cfg.PGSQL.DBName, cfg.PGSQL.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	log.Println("Connected to Postgres database")

	pg := &Postgres{Db: db}
	err = pg.CreateTables()
	if err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pg, nil
}

func (p *Postgres) CreateTables() error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS events (
			id VARCHAR(64) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			accepting_uploads BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS uploads (
			id VARCHAR(64) PRIMARY KEY,
			event_id VARCHAR(64) REFERENCES events(id) ON DELETE SET NULL,
			user_id VARCHAR(64) NOT NULL,
			file_name VARCHAR(255) NOT NULL,
			object_key VARCHAR(255) UNIQUE NOT NULL,
			thumbnail_key VARCHAR(255),
			content_type VARCHAR(127) NOT NULL,
			category VARCHAR(20) NOT NULL CHECK (category IN ('image','video','audio','document')),
			size BIGINT NOT NULL,
			description TEXT,
			anonymous BOOLEAN NOT NULL DEFAULT FALSE,
			approved BOOLEAN NOT NULL DEFAULT FALSE,
			featured BOOLEAN NOT NULL DEFAULT FALSE,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_user_created ON uploads (user_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_missing_thumbs ON uploads (category) WHERE thumbnail_key IS NULL;`,
	}

	for _, q := range queries {
		if _, err := p.Db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

func (p *Postgres) CreateUpload(ctx context.Context, rec *types.UploadRecord) error {
	query := `
	INSERT INTO uploads (id, event_id, user_id, file_name, object_key, thumbnail_key,
		content_type, category, size, description, anonymous, approved, featured, created_at)
	VALUES ($1, NULLIF($2, ''), $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := p.Db.ExecContext(ctx, query,
		rec.ID, rec.EventID, rec.UserID, rec.FileName, rec.ObjectKey, rec.ThumbnailKey,
		rec.ContentType, rec.Category, rec.Size, rec.Description, rec.Anonymous,
		rec.Approved, rec.Featured, rec.CreatedAt)
	return err
}

func (p *Postgres) GetUpload(ctx context.Context, id string) (types.UploadRecord, error) {
	return p.scanUpload(p.Db.QueryRowContext(ctx, selectUpload+` WHERE id = $1 AND NOT is_deleted`, id))
}

func (p *Postgres) GetUploadByObjectKey(ctx context.Context, objectKey string) (types.UploadRecord, error) {
	return p.scanUpload(p.Db.QueryRowContext(ctx, selectUpload+` WHERE object_key = $1 AND NOT is_deleted`, objectKey))
}

const selectUpload = `
	SELECT id, COALESCE(event_id, ''), user_id, file_name, object_key,
		COALESCE(thumbnail_key, ''), content_type, category, size,
		COALESCE(description, ''), anonymous, approved, featured, created_at
	FROM uploads`

func (p *Postgres) scanUpload(row *sql.Row) (types.UploadRecord, error) {
	var rec types.UploadRecord
	err := row.Scan(&rec.ID, &rec.EventID, &rec.UserID, &rec.FileName, &rec.ObjectKey,
		&rec.ThumbnailKey, &rec.ContentType, &rec.Category, &rec.Size,
		&rec.Description, &rec.Anonymous, &rec.Approved, &rec.Featured, &rec.CreatedAt)
	return rec, err
}

func (p *Postgres) SetThumbnailKey(ctx context.Context, uploadID, thumbnailKey string) error {
	query := `UPDATE uploads SET thumbnail_key = $2 WHERE id = $1`

	res, err := p.Db.ExecContext(ctx, query, uploadID, thumbnailKey)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (p *Postgres) DeleteUpload(ctx context.Context, id string) error {
	_, err := p.Db.ExecContext(ctx, `UPDATE uploads SET is_deleted = TRUE WHERE id = $1`, id)
	return err
}

func (p *Postgres) CountUploadsByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM uploads WHERE user_id = $1 AND created_at >= $2 AND NOT is_deleted`

	err := p.Db.QueryRowContext(ctx, query, userID, since).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (p *Postgres) ListMissingThumbnails(ctx context.Context, limit int) ([]types.UploadRecord, error) {
	query := selectUpload + `
	WHERE category = 'image' AND thumbnail_key IS NULL AND NOT is_deleted
	ORDER BY created_at
	LIMIT $1`

	rows, err := p.Db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []types.UploadRecord
	for rows.Next() {
		var rec types.UploadRecord
		err := rows.Scan(&rec.ID, &rec.EventID, &rec.UserID, &rec.FileName, &rec.ObjectKey,
			&rec.ThumbnailKey, &rec.ContentType, &rec.Category, &rec.Size,
			&rec.Description, &rec.Anonymous, &rec.Approved, &rec.Featured, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// AcceptsUploads implements storage.EventDirectory. An unknown event does
// not accept uploads.
func (p *Postgres) AcceptsUploads(ctx context.Context, eventID string) (bool, error) {
	var accepting bool
	query := `SELECT accepting_uploads FROM events WHERE id = $1`

	err := p.Db.QueryRowContext(ctx, query, eventID).Scan(&accepting)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return accepting, nil
}
