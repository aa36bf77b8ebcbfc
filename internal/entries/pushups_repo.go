package entries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
)

type PushupsRepo struct {
	db *pgxpool.Pool
}

func NewPushupsRepo(db *pgxpool.Pool) *PushupsRepo {
	return &PushupsRepo{
		db: db,
	}
}

func (r *PushupsRepo) Add(ctx context.Context, entry PushupEntry) (_ *PushupEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.pushups.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO pushup_entry (user_id, count, created_at)
				VALUES ($1, $2, $3)
			RETURNING id;`,
		entry.UserID, entry.Count, entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("pushup_entry.id", id))

	entry.ID = id
	return &entry, nil
}

// ListAll returns all pushup entries of the given user, newest first.
func (r *PushupsRepo) ListAll(ctx context.Context, userID int) (_ []PushupEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.pushups.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, count, created_at
			FROM pushup_entry
			WHERE user_id = $1
			ORDER BY created_at DESC;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	entries, err := r.rows2entries(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2entries: %w", err)
	}
	return entries, nil
}

// Delete removes the entry only if it belongs to the given user.
// A missing or foreign id is a no-op, not an error.
func (r *PushupsRepo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.pushups.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))
	span.SetAttributes(attribute.Int("user.id", userID))

	_, err = r.db.Exec(
		ctx,
		`DELETE FROM pushup_entry WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return err
}

func (r *PushupsRepo) rows2entries(rows pgx.Rows) ([]PushupEntry, error) {
	var entries []PushupEntry
	for rows.Next() {
		var id int
		var userID int
		var count int
		var createdAt time.Time
		if err := rows.Scan(&id, &userID, &count, &createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, PushupEntry{
			ID:        id,
			UserID:    userID,
			Count:     count,
			CreatedAt: createdAt,
		})
	}

	if entries == nil {
		entries = make([]PushupEntry, 0)
	}

	return entries, nil
}
