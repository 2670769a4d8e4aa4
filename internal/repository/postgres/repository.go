// Package postgres is the concrete, exercised implementation of
// resolver.Repository: three read queries against the externally-owned
// cameras/angle-ranges schema (spec.md §6's "persisted state... outside the
// core").
//
// Expected schema (owned and migrated outside this repository):
//
//	cameras(id TEXT PRIMARY KEY, name TEXT, url TEXT, status TEXT,
//	        directions TEXT[])
//	angle_ranges(id TEXT PRIMARY KEY, name TEXT, min_angle DOUBLE PRECISION,
//	             max_angle DOUBLE PRECISION, enabled BOOLEAN,
//	             camera_ids TEXT[])
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"visionguard/internal/broker"
)

// Repository implements resolver.Repository over a *sql.DB.
type Repository struct {
	db *sql.DB
}

// New wraps an already-connected database handle (see Connect/MustConnect).
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListCamerasByDirection(ctx context.Context, direction string) ([]broker.Camera, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, url, status, directions
		FROM cameras
		WHERE $1 = ANY(directions)
	`, direction)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []broker.Camera
	for rows.Next() {
		var cam broker.Camera
		var directions pq.StringArray
		if err := rows.Scan(&cam.ID, &cam.Name, &cam.URL, &cam.Status, &directions); err != nil {
			return nil, classify(err)
		}
		cam.Directions = []string(directions)
		out = append(out, cam)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (r *Repository) ListAngleRangesEnabled(ctx context.Context) ([]broker.AngleRange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, min_angle, max_angle, enabled, camera_ids
		FROM angle_ranges
		WHERE enabled = true
	`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []broker.AngleRange
	for rows.Next() {
		var ar broker.AngleRange
		var cameraIDs pq.StringArray
		if err := rows.Scan(&ar.ID, &ar.Name, &ar.MinAngle, &ar.MaxAngle, &ar.Enabled, &cameraIDs); err != nil {
			return nil, classify(err)
		}
		ar.CameraIDs = []string(cameraIDs)
		out = append(out, ar)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (r *Repository) GetCameraByID(ctx context.Context, id string) (*broker.Camera, error) {
	var cam broker.Camera
	var directions pq.StringArray

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, url, status, directions
		FROM cameras
		WHERE id = $1
	`, id).Scan(&cam.ID, &cam.Name, &cam.URL, &cam.Status, &directions)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	cam.Directions = []string(directions)
	return &cam, nil
}

// classify wraps connectivity/timeout-shaped errors with broker.ErrTransient
// so the resolver's retry loop treats them as retryable; anything else
// (a malformed query, a constraint violation) passes through unwrapped and
// is treated as fatal after the first attempt.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", broker.ErrTransient, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08 = connection exception, 57 = operator intervention
		// (admin shutdown, crash recovery) — both are safe to retry.
		if strings.HasPrefix(string(pqErr.Code), "08") || strings.HasPrefix(string(pqErr.Code), "57") {
			return fmt.Errorf("%w: %v", broker.ErrTransient, err)
		}
		return err
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection") || strings.Contains(msg, "timeout") || strings.Contains(msg, "eof") {
		return fmt.Errorf("%w: %v", broker.ErrTransient, err)
	}
	return err
}
