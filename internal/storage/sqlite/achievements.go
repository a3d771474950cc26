package sqlite

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/models"
)

func (s *Store) ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	const op = "list achievements"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, unlocked_at FROM achievements
		WHERE user_id = ? ORDER BY unlocked_at, kind`, userID)
	if err != nil {
		return nil, apperrors.Unavailable(op, err)
	}
	defer rows.Close()

	out := []models.Achievement{}
	for rows.Next() {
		var a models.Achievement
		var unlockedAt string
		if err := rows.Scan(&a.ID, &a.UserID, &a.Kind, &unlockedAt); err != nil {
			return nil, apperrors.Unavailable(op, err)
		}
		if a.UnlockedAt, err = parseTime("unlocked_at", unlockedAt); err != nil {
			return nil, apperrors.Unavailable(op, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable(op, err)
	}
	return out, nil
}

func (s *Store) RecordAchievementUnlock(ctx context.Context, userID, kind string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO achievements (id, user_id, kind, unlocked_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, kind) DO NOTHING`,
		uuid.NewString(), userID, kind, s.ts(s.now()))
	return apperrors.Unavailable("record achievement unlock", err)
}
