package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/julianstephens/streakly/internal/constants"
	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/models"
)

// ProblemType represents the type of validation problem
type ProblemType string

const (
	ProblemEmptyName          ProblemType = "empty_name"
	ProblemNameTooLong        ProblemType = "name_too_long"
	ProblemDescriptionTooLong ProblemType = "description_too_long"
	ProblemInvalidFrequency   ProblemType = "invalid_frequency"
	ProblemInvalidTarget      ProblemType = "invalid_target"
	ProblemDuplicateName      ProblemType = "duplicate_name"
)

// Problem is one issue found in a habit definition
type Problem struct {
	Type        ProblemType
	Description string
	HabitIDs    []string
}

// Result contains all detected problems
type Result struct {
	Problems []Problem
}

// HasProblems returns true if there are any problems
func (r *Result) HasProblems() bool {
	return len(r.Problems) > 0
}

// FormatReport returns a human-readable report of all problems
func (r *Result) FormatReport() string {
	if !r.HasProblems() {
		return "No problems detected."
	}

	var b strings.Builder
	b.WriteString("Problems detected:\n")
	for _, p := range r.Problems {
		fmt.Fprintf(&b, "- %s\n", p.Description)
	}
	return b.String()
}

// Err converts the result into a validation error, or nil when clean.
func (r *Result) Err(op string) error {
	if !r.HasProblems() {
		return nil
	}
	msgs := make([]string, len(r.Problems))
	for i, p := range r.Problems {
		msgs[i] = p.Description
	}
	return apperrors.Validation(op, "%s", strings.Join(msgs, "; "))
}

// Validator validates habit definitions
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// Normalize trims text fields and pins the target of daily habits to 1.
func Normalize(h *models.Habit) {
	h.Name = strings.TrimSpace(h.Name)
	h.Description = strings.TrimSpace(h.Description)
	h.Frequency = models.Frequency(strings.ToLower(strings.TrimSpace(string(h.Frequency))))
	if h.Frequency == "" {
		h.Frequency = models.FrequencyDaily
	}
	if h.Frequency == models.FrequencyDaily {
		h.Target = 1
	}
}

// ValidateHabit normalizes h in place and returns a validation error if the
// definition cannot be stored.
func ValidateHabit(h *models.Habit) error {
	Normalize(h)
	result := New().CheckHabit(*h)
	return result.Err("validate habit")
}

// CheckHabit reports the problems of a single, already normalized habit.
func (v *Validator) CheckHabit(h models.Habit) Result {
	var result Result
	add := func(t ProblemType, format string, args ...interface{}) {
		result.Problems = append(result.Problems, Problem{
			Type:        t,
			Description: fmt.Sprintf(format, args...),
			HabitIDs:    []string{h.ID},
		})
	}

	switch n := utf8.RuneCountInString(h.Name); {
	case n == 0:
		add(ProblemEmptyName, "habit name is required")
	case n > constants.HabitNameMax:
		add(ProblemNameTooLong, "habit name must be at most %d characters (got %d)", constants.HabitNameMax, n)
	}

	if n := utf8.RuneCountInString(h.Description); n > constants.HabitDescriptionMax {
		add(ProblemDescriptionTooLong, "description must be at most %d characters (got %d)", constants.HabitDescriptionMax, n)
	}

	switch h.Frequency {
	case models.FrequencyDaily:
	case models.FrequencyWeekly:
		if h.Target < 1 || h.Target > constants.WeeklyFrequencyMax {
			add(ProblemInvalidTarget, "weekly target must be between 1 and %d (got %d)", constants.WeeklyFrequencyMax, h.Target)
		}
	default:
		add(ProblemInvalidFrequency, "frequency must be %q or %q (got %q)", models.FrequencyDaily, models.FrequencyWeekly, h.Frequency)
	}

	return result
}

// ValidateHabits checks every habit and reports active habits sharing a name.
func (v *Validator) ValidateHabits(habits []models.Habit) Result {
	var result Result
	seen := make(map[string]string)
	for _, h := range habits {
		r := v.CheckHabit(h)
		result.Problems = append(result.Problems, r.Problems...)

		if !h.Active {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(h.Name))
		if first, ok := seen[key]; ok {
			result.Problems = append(result.Problems, Problem{
				Type:        ProblemDuplicateName,
				Description: fmt.Sprintf("duplicate habit name %q", h.Name),
				HabitIDs:    []string{first, h.ID},
			})
			continue
		}
		seen[key] = h.ID
	}
	return result
}
