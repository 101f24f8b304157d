package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-image/pkg/simpleimage"
)

// DBTX is an interface that allows us to use either a database connection or
// a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simpleimage.Repository using PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE raw_image (
//	    hash        TEXT PRIMARY KEY,
//	    format      TEXT NOT NULL,
//	    size        BIGINT NOT NULL,
//	    uploaded_at TIMESTAMPTZ NOT NULL
//	);
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) simpleimage.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) simpleimage.Repository {
	return &Repository{db: pool}
}

func (r *Repository) SaveImage(ctx context.Context, image *simpleimage.RawImage) error {
	query := `
		INSERT INTO raw_image (hash, format, size, uploaded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (hash) DO NOTHING`

	_, err := r.db.Exec(ctx, query, image.Hash, image.Format, image.Size, image.UploadedAt)
	if err != nil {
		return handlePostgresError("save image", err)
	}

	return nil
}

func (r *Repository) GetImage(ctx context.Context, hash string) (*simpleimage.RawImage, error) {
	query := `
		SELECT hash, format, size, uploaded_at
		FROM raw_image WHERE hash = $1`

	var image simpleimage.RawImage
	err := r.db.QueryRow(ctx, query, hash).Scan(
		&image.Hash, &image.Format, &image.Size, &image.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleimage.ErrRawImageNotFound
		}
		return nil, handlePostgresError("get image", err)
	}

	return &image, nil
}

func (r *Repository) DeleteImage(ctx context.Context, hash string) error {
	query := `DELETE FROM raw_image WHERE hash = $1`

	tag, err := r.db.Exec(ctx, query, hash)
	if err != nil {
		return handlePostgresError("delete image", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleimage.ErrRawImageNotFound
	}

	return nil
}

func (r *Repository) ListImages(ctx context.Context) ([]*simpleimage.RawImage, error) {
	query := `
		SELECT hash, format, size, uploaded_at
		FROM raw_image ORDER BY uploaded_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, handlePostgresError("list images", err)
	}
	defer rows.Close()

	var images []*simpleimage.RawImage
	for rows.Next() {
		var image simpleimage.RawImage
		if err := rows.Scan(&image.Hash, &image.Format, &image.Size, &image.UploadedAt); err != nil {
			return nil, handlePostgresError("list images", err)
		}
		images = append(images, &image)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("list images", err)
	}

	return images, nil
}

// handlePostgresError maps driver errors to readable messages
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}
