package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/models"
)

const habitColumns = `id, user_id, name, description, frequency, target, active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var frequency, createdAt, updatedAt string
	var active int
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &frequency, &h.Target, &active, &createdAt, &updatedAt); err != nil {
		return models.Habit{}, err
	}
	h.Frequency = models.Frequency(frequency)
	h.Active = active != 0

	var err error
	if h.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.Habit{}, err
	}
	if h.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return models.Habit{}, err
	}
	return h, nil
}

func (s *Store) AddHabit(ctx context.Context, habit models.Habit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		habit.ID, habit.UserID, habit.Name, habit.Description, string(habit.Frequency), habit.Target,
		boolToInt(habit.Active), s.ts(habit.CreatedAt), s.ts(habit.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("add habit", err)
		}
		return apperrors.Unavailable("add habit", err)
	}
	return nil
}

func (s *Store) GetHabit(ctx context.Context, id string) (models.Habit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ?`, id)
	h, err := scanHabit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Habit{}, apperrors.NotFound("get habit", "habit %q", id)
		}
		return models.Habit{}, apperrors.Unavailable("get habit", err)
	}
	return h, nil
}

func (s *Store) GetHabitByName(ctx context.Context, userID, name string) (models.Habit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+habitColumns+` FROM habits
		WHERE user_id = ? AND name = ? COLLATE NOCASE
		ORDER BY active DESC, created_at
		LIMIT 1`, userID, name)
	h, err := scanHabit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Habit{}, apperrors.NotFound("get habit", "habit %q", name)
		}
		return models.Habit{}, apperrors.Unavailable("get habit", err)
	}
	return h, nil
}

func (s *Store) ListHabits(ctx context.Context, userID string, includeInactive bool) ([]models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = ?`
	if !includeInactive {
		query += ` AND active = 1`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Unavailable("list habits", err)
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, apperrors.Unavailable("list habits", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable("list habits", err)
	}
	return habits, nil
}

func (s *Store) UpdateHabit(ctx context.Context, habit models.Habit) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE habits SET name = ?, description = ?, frequency = ?, target = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		habit.Name, habit.Description, string(habit.Frequency), habit.Target, boolToInt(habit.Active),
		s.ts(habit.UpdatedAt), habit.ID)
	if err != nil {
		return apperrors.Unavailable("update habit", err)
	}
	return requireRow(result, "update habit", fmt.Sprintf("habit %q", habit.ID))
}

func (s *Store) DeactivateHabit(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE habits SET active = 0, updated_at = ? WHERE id = ? AND active = 1`, s.ts(s.now()), id)
	if err != nil {
		return apperrors.Unavailable("deactivate habit", err)
	}
	return requireRow(result, "deactivate habit", fmt.Sprintf("habit %q not found or already inactive", id))
}

func (s *Store) ReactivateHabit(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE habits SET active = 1, updated_at = ? WHERE id = ? AND active = 0`, s.ts(s.now()), id)
	if err != nil {
		return apperrors.Unavailable("reactivate habit", err)
	}
	return requireRow(result, "reactivate habit", fmt.Sprintf("habit %q not found or already active", id))
}

func requireRow(result sql.Result, op, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.Unavailable(op, err)
	}
	if n == 0 {
		return apperrors.NotFound(op, "%s", what)
	}
	return nil
}
