package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/models"
)

const habitColumns = `id, user_id, name, description, frequency, target, active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var frequency string
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &frequency, &h.Target, &h.Active, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return models.Habit{}, err
	}
	h.Frequency = models.Frequency(frequency)
	return h, nil
}

func (s *Store) AddHabit(ctx context.Context, habit models.Habit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		habit.ID, habit.UserID, habit.Name, habit.Description, string(habit.Frequency), habit.Target,
		habit.Active, habit.CreatedAt.UTC(), habit.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("add habit", err)
		}
		return apperrors.Unavailable("add habit", err)
	}
	return nil
}

func (s *Store) GetHabit(ctx context.Context, id string) (models.Habit, error) {
	h, err := scanHabit(s.db.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Habit{}, apperrors.NotFound("get habit", "habit %q", id)
		}
		return models.Habit{}, apperrors.Unavailable("get habit", err)
	}
	return h, nil
}

func (s *Store) GetHabitByName(ctx context.Context, userID, name string) (models.Habit, error) {
	h, err := scanHabit(s.db.QueryRowContext(ctx, `
		SELECT `+habitColumns+` FROM habits
		WHERE user_id = $1 AND lower(name) = lower($2)
		ORDER BY active DESC, created_at
		LIMIT 1`, userID, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Habit{}, apperrors.NotFound("get habit", "habit %q", name)
		}
		return models.Habit{}, apperrors.Unavailable("get habit", err)
	}
	return h, nil
}

func (s *Store) ListHabits(ctx context.Context, userID string, includeInactive bool) ([]models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = $1`
	if !includeInactive {
		query += ` AND active`
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
		UPDATE habits SET name = $1, description = $2, frequency = $3, target = $4, active = $5, updated_at = $6
		WHERE id = $7`,
		habit.Name, habit.Description, string(habit.Frequency), habit.Target, habit.Active, habit.UpdatedAt.UTC(), habit.ID)
	if err != nil {
		return apperrors.Unavailable("update habit", err)
	}
	return requireRow(result, "update habit", fmt.Sprintf("habit %q", habit.ID))
}

func (s *Store) DeactivateHabit(ctx context.Context, id string) error {
	return s.setActive(ctx, id, false)
}

func (s *Store) ReactivateHabit(ctx context.Context, id string) error {
	return s.setActive(ctx, id, true)
}

func (s *Store) setActive(ctx context.Context, id string, active bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE habits SET active = $1, updated_at = $2 WHERE id = $3 AND active <> $1`,
		active, s.now().UTC(), id)
	if err != nil {
		return apperrors.Unavailable("set habit state", err)
	}
	return requireRow(result, "set habit state", fmt.Sprintf("habit %q not found or unchanged", id))
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

func (s *Store) ListCompletions(ctx context.Context, habitID string) ([]models.Completion, error) {
	const op = "list completions"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, habit_id, user_id, to_char(date, 'YYYY-MM-DD'), completed_at
		FROM completions WHERE habit_id = $1
		ORDER BY date`, habitID)
	if err != nil {
		return nil, apperrors.Unavailable(op, err)
	}
	defer rows.Close()

	completions := []models.Completion{}
	for rows.Next() {
		var c models.Completion
		if err := rows.Scan(&c.ID, &c.HabitID, &c.UserID, &c.Date, &c.CompletedAt); err != nil {
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
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.HabitID, c.UserID, c.Date, c.CompletedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Completion{}, apperrors.Conflict(op, err)
		}
		return models.Completion{}, apperrors.Unavailable(op, err)
	}
	return c, nil
}

func (s *Store) DeleteCompletion(ctx context.Context, habitID, date string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM completions WHERE habit_id = $1 AND date = $2`, habitID, date)
	return apperrors.Unavailable("delete completion", err)
}

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
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.UserID, entry.HabitID, entry.Date, entry.Delta, string(entry.Reason), entry.CreatedAt.UTC()); err != nil {
		return 0, apperrors.Unavailable(op, err)
	}

	var total int
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO profiles (user_id, total_points, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			total_points = profiles.total_points + excluded.total_points,
			updated_at = excluded.updated_at
		RETURNING total_points`,
		entry.UserID, entry.Delta, entry.CreatedAt.UTC()).Scan(&total); err != nil {
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
		WHERE user_id = $1 AND habit_id = $2 AND date = $3`, userID, habitID, date).Scan(&net)
	if err != nil {
		return 0, apperrors.Unavailable("points awarded", err)
	}
	return net, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	p := models.Profile{UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		SELECT total_points, timezone, updated_at FROM profiles WHERE user_id = $1`, userID).
		Scan(&p.TotalPoints, &p.Timezone, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, nil
		}
		return models.Profile{}, apperrors.Unavailable("get profile", err)
	}
	return p, nil
}

func (s *Store) SetTimezone(ctx context.Context, userID, timezone string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, timezone, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET timezone = excluded.timezone, updated_at = excluded.updated_at`,
		userID, timezone, s.now().UTC())
	return apperrors.Unavailable("set timezone", err)
}

func (s *Store) ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	const op = "list achievements"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, unlocked_at FROM achievements
		WHERE user_id = $1 ORDER BY unlocked_at, kind`, userID)
	if err != nil {
		return nil, apperrors.Unavailable(op, err)
	}
	defer rows.Close()

	out := []models.Achievement{}
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.ID, &a.UserID, &a.Kind, &a.UnlockedAt); err != nil {
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
		INSERT INTO achievements (id, user_id, kind, unlocked_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, kind) DO NOTHING`,
		uuid.NewString(), userID, kind, s.now().UTC())
	return apperrors.Unavailable("record achievement unlock", err)
}
