package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pstadniuk-dotcom/MyOnes-sub002/engine"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/models"
)

// Gorm persists engine state through GORM. Production runs it on MySQL;
// tests run the same code on sqlite, where the row-lock clause is skipped
// because that dialect has no SELECT ... FOR UPDATE and its single-writer
// model already serializes writers.
type Gorm struct {
	db *gorm.DB
}

var _ engine.Store = (*Gorm)(nil)

// NewGorm wraps an initialized gorm DB.
func NewGorm(db *gorm.DB) *Gorm { return &Gorm{db: db} }

func (g *Gorm) User(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := g.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engine.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (g *Gorm) SaveUser(ctx context.Context, u *models.User) error {
	return translateErr(g.db.WithContext(ctx).Save(u).Error)
}

func (g *Gorm) ActivityLog(ctx context.Context, userID uint, date string) (*models.DailyActivityLog, error) {
	var row models.DailyActivityLog
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND log_date = ?", userID, date).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (g *Gorm) ActivityLogs(ctx context.Context, userID uint, from, to string) ([]models.DailyActivityLog, error) {
	var rows []models.DailyActivityLog
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND log_date >= ? AND log_date <= ?", userID, from, to).
		Order("log_date ASC").
		Find(&rows).Error
	return rows, err
}

func (g *Gorm) MealEntries(ctx context.Context, userID uint, from, to string) ([]models.MealLogEntry, error) {
	var rows []models.MealLogEntry
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND log_date >= ? AND log_date <= ?", userID, from, to).
		Order("log_date ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (g *Gorm) WorkoutEntries(ctx context.Context, userID uint, from, to string) ([]models.WorkoutLogEntry, error) {
	var rows []models.WorkoutLogEntry
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND log_date >= ? AND log_date <= ?", userID, from, to).
		Order("log_date ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (g *Gorm) ActivePlan(ctx context.Context, userID uint) (*models.WorkoutPlan, error) {
	var plan models.WorkoutPlan
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("updated_at DESC").
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (g *Gorm) Completion(ctx context.Context, userID uint, date string) (*models.DailyCompletion, error) {
	var row models.DailyCompletion
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (g *Gorm) Completions(ctx context.Context, userID uint, from, to string) ([]models.DailyCompletion, error) {
	var rows []models.DailyCompletion
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}

// UpsertCompletion writes the completion row atomically: insert, or on the
// (user_id, date) key overwrite the five scores in place.
func (g *Gorm) UpsertCompletion(ctx context.Context, c *models.DailyCompletion) error {
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"nutrition_score", "workout_score", "supplement_score",
			"lifestyle_score", "daily_score", "updated_at",
		}),
	}).Create(c).Error
	return translateErr(err)
}

func (g *Gorm) Streak(ctx context.Context, userID uint, st models.StreakType) (*models.UserStreak, error) {
	var row models.UserStreak
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND streak_type = ?", userID, st).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (g *Gorm) Streaks(ctx context.Context, userID uint) ([]models.UserStreak, error) {
	var rows []models.UserStreak
	err := g.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("streak_type ASC").
		Find(&rows).Error
	return rows, err
}

func (g *Gorm) SaveStreak(ctx context.Context, s *models.UserStreak) error {
	if s.ID == 0 {
		// A concurrent creator loses to the (user_id, streak_type) unique
		// index and surfaces as a retryable conflict.
		return translateErr(g.db.WithContext(ctx).Create(s).Error)
	}
	return translateErr(g.db.WithContext(ctx).Save(s).Error)
}

// WithUserLock runs fn inside a transaction that holds the user's row lock,
// giving the read-modify-write sequences at-most-one-concurrent-writer
// semantics per user.
func (g *Gorm) WithUserLock(ctx context.Context, userID uint, fn func(engine.Store) error) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked := tx
		if tx.Dialector.Name() == "mysql" {
			locked = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var u models.User
		if err := locked.First(&u, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return engine.ErrNotFound
			}
			return err
		}
		return fn(&Gorm{db: tx})
	})
	return translateErr(err)
}

func (g *Gorm) TransitionStatuses(ctx context.Context, t engine.StatusTransition) (int64, error) {
	q := g.db.WithContext(ctx).Model(&models.User{}).
		Where("streak_status IN ?", t.From)
	if t.WindowStartAtOrBefore != nil {
		q = q.Where("reorder_window_start IS NOT NULL AND reorder_window_start <= ?", *t.WindowStartAtOrBefore)
	}
	if t.DeadlineAfter != nil {
		q = q.Where("reorder_deadline IS NOT NULL AND reorder_deadline > ?", *t.DeadlineAfter)
	}
	if t.DeadlineAtOrBefore != nil {
		q = q.Where("reorder_deadline IS NOT NULL AND reorder_deadline <= ?", *t.DeadlineAtOrBefore)
	}
	res := q.Update("streak_status", t.To)
	return res.RowsAffected, translateErr(res.Error)
}

func (g *Gorm) InconsistentReorderUsers(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	err := g.db.WithContext(ctx).
		Where("streak_status IN ?", []models.StreakStatus{
			models.StreakStatusReady, models.StreakStatusWarning, models.StreakStatusGrace,
		}).
		Where("reorder_window_start IS NULL OR reorder_deadline IS NULL").
		Find(&rows).Error
	return rows, err
}

func (g *Gorm) LapseCandidates(ctx context.Context, deadlineBefore time.Time, afterID uint, limit int) ([]models.User, error) {
	var rows []models.User
	err := g.db.WithContext(ctx).
		Where("id > ? AND streak_status <> ?", afterID, models.StreakStatusLapsed).
		Where("reorder_deadline IS NOT NULL AND reorder_deadline < ?", deadlineBefore).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// DecayStaleStreaks compares date strings lexicographically, which is exact
// for the fixed-width YYYY-MM-DD form.
func (g *Gorm) DecayStaleStreaks(ctx context.Context, lastCompletedBefore string) (int64, error) {
	res := g.db.WithContext(ctx).Model(&models.UserStreak{}).
		Where("current_streak > 0 AND last_completed_date IS NOT NULL AND last_completed_date < ?", lastCompletedBefore).
		Update("current_streak", 0)
	return res.RowsAffected, translateErr(res.Error)
}

// translateErr maps driver-level contention errors onto engine.ErrConflict
// so the trigger path can retry. MySQL reports duplicate keys, deadlocks and
// lock waits with stable message fragments; sqlite reports a busy database.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return engine.ErrConflict
	}
	msg := err.Error()
	if strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "Deadlock found") ||
		strings.Contains(msg, "Lock wait timeout") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "database is locked") {
		return engine.ErrConflict
	}
	return err
}
