package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/models"
)

// AdjustPoints writes the ledger row and the profile total in one transaction.
func (s *Store) AdjustPoints(ctx context.Context, entry models.PointEntry) (int, error) {
	const op = "adjust points"
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.Unavailable(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO point_entries (id, user_id, habit_id, date, delta, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.HabitID, entry.Date, entry.Delta, string(entry.Reason), s.ts(entry.CreatedAt)); err != nil {
		return 0, apperrors.Unavailable(op, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO profiles (user_id, total_points, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			total_points = total_points + excluded.total_points,
			updated_at = excluded.updated_at`,
		entry.UserID, entry.Delta, s.ts(entry.CreatedAt)); err != nil {
		return 0, apperrors.Unavailable(op, err)
	}

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT total_points FROM profiles WHERE user_id = ?`, entry.UserID).Scan(&total); err != nil {
		return 0, apperrors.Unavailable(op, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, apperrors.Unavailable(op, err)
	}
	return total, nil
}

func (s *Store) PointsAwarded(ctx context.Context, userID, habitID, date string) (int, error) {
	var net int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(delta), 0) FROM point_entries
		WHERE user_id = ? AND habit_id = ? AND date = ?`, userID, habitID, date).Scan(&net)
	if err != nil {
		return 0, apperrors.Unavailable("points awarded", err)
	}
	return net, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	p := models.Profile{UserID: userID}
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT total_points, timezone, updated_at FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.TotalPoints, &p.Timezone, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, nil
		}
		return models.Profile{}, apperrors.Unavailable("get profile", err)
	}
	if p.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return models.Profile{}, apperrors.Unavailable("get profile", err)
	}
	return p, nil
}

func (s *Store) SetTimezone(ctx context.Context, userID, timezone string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, timezone, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET timezone = excluded.timezone, updated_at = excluded.updated_at`,
		userID, timezone, s.ts(s.now()))
	return apperrors.Unavailable("set timezone", err)
}
