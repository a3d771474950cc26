package sqlite

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/models"
)

func (s *Store) ListCompletions(ctx context.Context, habitID string) ([]models.Completion, error) {
	const op = "list completions"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, habit_id, user_id, date, completed_at
		FROM completions WHERE habit_id = ?
		ORDER BY date`, habitID)
	if err != nil {
		return nil, apperrors.Unavailable(op, err)
	}
	defer rows.Close()

	completions := []models.Completion{}
	for rows.Next() {
		var c models.Completion
		var completedAt string
		if err := rows.Scan(&c.ID, &c.HabitID, &c.UserID, &c.Date, &completedAt); err != nil {
			return nil, apperrors.Unavailable(op, err)
		}
		if c.CompletedAt, err = parseTime("completed_at", completedAt); err != nil {
			return nil, apperrors.Unavailable(op, err)
		}
		completions = append(completions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable(op, err)
	}
	return completions, nil
}

func (s *Store) InsertCompletion(ctx context.Context, habitID, userID, date string) (models.Completion, error) {
	const op = "insert completion"
	c := models.Completion{
		ID:          uuid.NewString(),
		HabitID:     habitID,
		UserID:      userID,
		Date:        date,
		CompletedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO completions (id, habit_id, user_id, date, completed_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.HabitID, c.UserID, c.Date, s.ts(c.CompletedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Completion{}, apperrors.Conflict(op, err)
		}
		return models.Completion{}, apperrors.Unavailable(op, err)
	}
	return c, nil
}

func (s *Store) DeleteCompletion(ctx context.Context, habitID, date string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM completions WHERE habit_id = ? AND date = ?`, habitID, date)
	return apperrors.Unavailable("delete completion", err)
}
