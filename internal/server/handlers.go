package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/julianstephens/streakly/internal/achievements"
	"github.com/julianstephens/streakly/internal/engine"
	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/logger"
	"github.com/julianstephens/streakly/internal/models"
	"github.com/julianstephens/streakly/internal/validation"
)

type createHabitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	Target      int    `json:"target"`
}

type createHabitResponse struct {
	Habit    models.Habit        `json:"habit"`
	Unlocked []achievements.Kind `json:"unlocked"`
}

type toggleResponse struct {
	engine.Outcome
	Warning string `json:"warning,omitempty"`
}

type achievementView struct {
	achievements.Definition
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		failWith(c, apperrors.Unavailable("health", err), gin.H{"status": "degraded"})
		return
	}
	success(c, gin.H{"status": "ok"})
}

func (s *Server) listHabits(c *gin.Context) {
	success(c, s.engine.Snapshots())
}

func (s *Server) createHabit(c *gin.Context) {
	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	now := s.now().UTC()
	habit := models.Habit{
		ID:          uuid.NewString(),
		UserID:      s.engine.UserID(),
		Name:        req.Name,
		Description: req.Description,
		Frequency:   models.Frequency(req.Frequency),
		Target:      req.Target,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validation.ValidateHabit(&habit); err != nil {
		failWith(c, err, nil)
		return
	}

	ctx := c.Request.Context()
	existing, err := s.store.GetHabitByName(ctx, habit.UserID, habit.Name)
	switch {
	case err == nil && existing.Active:
		failWith(c, apperrors.Conflict("create habit", apperrors.New("a habit named "+habit.Name+" already exists")), nil)
		return
	case err != nil && !apperrors.Is(err, apperrors.ErrNotFound):
		failWith(c, apperrors.Classify("create habit", err), nil)
		return
	}

	if err := s.store.AddHabit(ctx, habit); err != nil {
		failWith(c, apperrors.Classify("create habit", err), nil)
		return
	}
	if err := s.engine.Track(habit); err != nil {
		failWith(c, err, nil)
		return
	}

	unlocked, err := s.engine.EvaluateAchievements(ctx)
	if err != nil {
		logger.Warn("achievement evaluation failed after habit creation", "habit", habit.ID, "error", err)
	}
	if unlocked == nil {
		unlocked = []achievements.Kind{}
	}
	created(c, createHabitResponse{Habit: habit, Unlocked: unlocked})
}

func (s *Server) deactivateHabit(c *gin.Context) {
	id := c.Param("id")
	if err := s.store.DeactivateHabit(c.Request.Context(), id); err != nil {
		failWith(c, apperrors.Classify("deactivate habit", err), nil)
		return
	}
	s.engine.Untrack(id)
	success(c, gin.H{"id": id, "active": false})
}

func (s *Server) toggleToday(c *gin.Context) {
	out, err := s.engine.ToggleToday(c.Request.Context(), c.Param("id"))
	s.writeOutcome(c, out, err)
}

func (s *Server) togglePast(c *gin.Context) {
	out, err := s.engine.TogglePast(c.Request.Context(), c.Param("id"), c.Param("date"))
	s.writeOutcome(c, out, err)
}

func (s *Server) writeOutcome(c *gin.Context, out engine.Outcome, err error) {
	if err != nil {
		var data interface{}
		if out.Operation.ID != "" {
			data = toggleResponse{Outcome: out}
		}
		failWith(c, err, data)
		return
	}
	resp := toggleResponse{Outcome: out}
	if out.SideEffectErr != nil {
		resp.Warning = out.SideEffectErr.Error()
	}
	success(c, resp)
}

func (s *Server) stats(c *gin.Context) {
	success(c, s.engine.Stats())
}

func (s *Server) points(c *gin.Context) {
	profile, err := s.store.GetProfile(c.Request.Context(), s.engine.UserID())
	if err != nil {
		failWith(c, apperrors.Classify("points", err), nil)
		return
	}
	success(c, gin.H{"user_id": profile.UserID, "total_points": profile.TotalPoints})
}

func (s *Server) achievements(c *gin.Context) {
	records, err := s.store.ListAchievements(c.Request.Context(), s.engine.UserID())
	if err != nil {
		failWith(c, apperrors.Classify("achievements", err), nil)
		return
	}
	unlockedAt := make(map[achievements.Kind]time.Time, len(records))
	for _, r := range records {
		unlockedAt[achievements.Kind(r.Kind)] = r.UnlockedAt
	}

	catalogue := achievements.All()
	views := make([]achievementView, 0, len(catalogue))
	for _, def := range catalogue {
		view := achievementView{Definition: def}
		if at, ok := unlockedAt[def.Kind]; ok {
			view.Unlocked = true
			view.UnlockedAt = &at
		}
		views = append(views, view)
	}
	success(c, views)
}
