package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/transmeralda/fleetdocs/constants"
	"github.com/transmeralda/fleetdocs/internal/entity"
)

// ArtifactRepository tracks uploaded document files per driver. A new
// upload for a category supersedes the previous one instead of deleting
// it, so history stays queryable.
type ArtifactRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewArtifactRepository(pool *pgxpool.Pool, logger *slog.Logger) *ArtifactRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArtifactRepository{pool: pool, logger: logger}
}

func (r *ArtifactRepository) Create(ctx context.Context, a *entity.DocumentArtifact) error {
	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO driver_documents (
			id, driver_id, category, storage_key, filename, mime_type,
			size_bytes, superseded, uploaded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.DriverID, a.Category, a.StorageKey, a.Filename, a.MimeType,
		a.SizeBytes, a.Superseded, a.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document artifact: %w", err)
	}
	r.logger.Info("artifact recorded", "artifact_id", a.ID, "driver_id", a.DriverID, "category", a.Category)
	return nil
}

// SupersedeByCategory marks every live artifact of the category as
// superseded and returns their storage keys so the caller can free the
// replaced objects. Called right before recording a replacement upload.
func (r *ArtifactRepository) SupersedeByCategory(ctx context.Context, driverID uuid.UUID, cat constants.Category) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE driver_documents SET superseded = TRUE
		WHERE driver_id = $1 AND category = $2 AND NOT superseded
		RETURNING storage_key`,
		driverID, cat,
	)
	if err != nil {
		return nil, fmt.Errorf("supersede artifacts: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan superseded key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("supersede artifacts: %w", err)
	}
	if len(keys) > 0 {
		r.logger.Info("artifacts superseded", "driver_id", driverID, "category", cat, "count", len(keys))
	}
	return keys, nil
}

// ListByDriver returns all artifacts for the driver, live ones first.
func (r *ArtifactRepository) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]entity.DocumentArtifact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, driver_id, category, storage_key, filename, mime_type,
			size_bytes, superseded, uploaded_at
		FROM driver_documents
		WHERE driver_id = $1
		ORDER BY superseded, uploaded_at DESC`,
		driverID,
	)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []entity.DocumentArtifact
	for rows.Next() {
		var a entity.DocumentArtifact
		if err := rows.Scan(
			&a.ID, &a.DriverID, &a.Category, &a.StorageKey, &a.Filename,
			&a.MimeType, &a.SizeBytes, &a.Superseded, &a.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteByDriver removes all artifact rows for a driver. Used when a
// create is rolled back.
func (r *ArtifactRepository) DeleteByDriver(ctx context.Context, driverID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM driver_documents WHERE driver_id = $1`, driverID); err != nil {
		return fmt.Errorf("delete artifacts: %w", err)
	}
	return nil
}
