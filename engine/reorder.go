package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pstadniuk-dotcom/MyOnes-sub002/models"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/utils"
)

// DiscountTier is one bracket of the streak-length reward ladder.
type DiscountTier struct {
	Name    string `json:"name"`
	MinDays int    `json:"min_days"`
	Percent int    `json:"percent"`
}

// discountTiers is ordered longest requirement first; the first satisfied
// entry wins. Tiers are evaluated on the supplements streak when the user
// has one, else on the overall streak.
var discountTiers = []DiscountTier{
	{Name: "Champion", MinDays: 90, Percent: 20},
	{Name: "Loyal", MinDays: 60, Percent: 15},
	{Name: "Dedicated", MinDays: 30, Percent: 10},
	{Name: "Committed", MinDays: 14, Percent: 8},
	{Name: "Consistent", MinDays: 7, Percent: 5},
	{Name: "Building", MinDays: 0, Percent: 0},
}

// TierForStreak maps a streak length in days to its discount tier.
func TierForStreak(days int) DiscountTier {
	for _, t := range discountTiers {
		if days >= t.MinDays {
			return t
		}
	}
	return discountTiers[len(discountTiers)-1]
}

// NextTier returns the tier just above the given streak length, or nil when
// the top tier is already reached.
func NextTier(days int) *DiscountTier {
	var next *DiscountTier
	for _, t := range discountTiers {
		if days < t.MinDays {
			tier := t
			next = &tier
		}
	}
	return next
}

// DiscountTiers returns the full ladder for display.
func DiscountTiers() []DiscountTier {
	out := make([]DiscountTier, len(discountTiers))
	copy(out, discountTiers)
	return out
}

// ApplyStreakDiscount is called at order placement. It maps the user's
// accrued streak to a discount percent, stamps a fresh reorder window and
// deadline, and resets the lifecycle to building; nothing else ever moves a
// user backward to building.
func (e *Engine) ApplyStreakDiscount(ctx context.Context, userID uint, orderID string) (int, error) {
	var percent int
	err := e.store.WithUserLock(ctx, userID, func(s Store) error {
		user, err := s.User(ctx, userID)
		if err != nil {
			return err
		}
		days, err := e.rewardStreakDays(ctx, s, user)
		if err != nil {
			return err
		}
		tier := TierForStreak(days)

		now := e.clock.Now()
		windowStart := now.AddDate(0, 0, e.cfg.ReorderWindowDays)
		deadline := now.AddDate(0, 0, e.cfg.ReorderDeadlineDays)
		user.LastOrderDate = &now
		user.ReorderWindowStart = &windowStart
		user.ReorderDeadline = &deadline
		user.StreakStatus = models.StreakStatusBuilding
		user.StreakDiscountEarned = tier.Percent
		user.StreakCurrentDays = days

		percent = tier.Percent
		return s.SaveUser(ctx, user)
	})
	if err != nil {
		return 0, err
	}
	if utils.Sugar != nil {
		utils.Sugar.Infof("streak discount applied user=%d order=%s percent=%d", userID, orderID, percent)
	}
	e.invalidateProjections(userID)
	return percent, nil
}

// rewardStreakDays resolves the streak length discounts are computed from:
// the supplements streak when a row exists, else the overall streak, both
// read with decay applied.
func (e *Engine) rewardStreakDays(ctx context.Context, s Store, user *models.User) (int, error) {
	row, err := s.Streak(ctx, user.ID, models.StreakSupplements)
	if err != nil {
		return 0, err
	}
	if row == nil {
		if row, err = s.Streak(ctx, user.ID, models.StreakOverall); err != nil {
			return 0, err
		}
	}
	if row == nil {
		return 0, nil
	}
	return e.decayedView(row, e.localToday(user)).CurrentStreak, nil
}

// SweepReport summarizes one sweep invocation.
type SweepReport struct {
	RunID               string
	MarkedReady         int64
	MarkedWarning       int64
	MarkedGrace         int64
	StreaksDecayed      int64
	SkippedInconsistent int
	UsersLapsed         int
	LapseErrors         int
}

// RunDailyStatusSweep advances reorder statuses in bulk and persists streak
// decay. Every update is guarded by its source-status set and disjoint time
// predicates, so re-running against unchanged data writes nothing.
func (e *Engine) RunDailyStatusSweep(ctx context.Context) (SweepReport, error) {
	report := SweepReport{RunID: uuid.NewString()}
	now := e.clock.Now()

	// Persist the decay that reads already present. The cutoff uses the
	// fallback-zone calendar; per-user reads stay exact via decayedView.
	decayCutoff := AddDays(e.tz.LocalDate(now, ""), -e.cfg.GraceDays)
	decayed, err := e.store.DecayStaleStreaks(ctx, decayCutoff)
	if err != nil {
		return report, err
	}
	report.StreaksDecayed = decayed

	// Rows whose status implies a window but whose columns are missing are
	// audited and left alone; the guarded updates below cannot match them.
	inconsistent, err := e.store.InconsistentReorderUsers(ctx)
	if err != nil {
		return report, err
	}
	for _, u := range inconsistent {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("status sweep run=%s skipping user=%d: status=%s with missing reorder window",
				report.RunID, u.ID, u.StreakStatus)
		}
	}
	report.SkippedInconsistent = len(inconsistent)

	warnCutoff := now.AddDate(0, 0, e.cfg.ReorderWarningDays)
	graceFloor := now.AddDate(0, 0, -e.cfg.LapseGraceDays)

	if report.MarkedReady, err = e.store.TransitionStatuses(ctx, StatusTransition{
		From:                  []models.StreakStatus{models.StreakStatusBuilding},
		To:                    models.StreakStatusReady,
		WindowStartAtOrBefore: &now,
		DeadlineAfter:         &warnCutoff,
	}); err != nil {
		return report, err
	}

	if report.MarkedWarning, err = e.store.TransitionStatuses(ctx, StatusTransition{
		From:                  []models.StreakStatus{models.StreakStatusBuilding, models.StreakStatusReady},
		To:                    models.StreakStatusWarning,
		WindowStartAtOrBefore: &now,
		DeadlineAfter:         &now,
		DeadlineAtOrBefore:    &warnCutoff,
	}); err != nil {
		return report, err
	}

	if report.MarkedGrace, err = e.store.TransitionStatuses(ctx, StatusTransition{
		From:               []models.StreakStatus{models.StreakStatusBuilding, models.StreakStatusReady, models.StreakStatusWarning},
		To:                 models.StreakStatusGrace,
		DeadlineAfter:      &graceFloor,
		DeadlineAtOrBefore: &now,
	}); err != nil {
		return report, err
	}

	if utils.Sugar != nil {
		utils.Sugar.Infof("status sweep run=%s ready=%d warning=%d grace=%d decayed=%d skipped=%d",
			report.RunID, report.MarkedReady, report.MarkedWarning, report.MarkedGrace,
			report.StreaksDecayed, report.SkippedInconsistent)
	}
	return report, nil
}

// RunLapseSweep moves users whose deadline passed more than the lapse grace
// ago into lapsed, zeroing their earned discount and current streaks.
// Candidates are paged in id order and paced by the batch limiter so a
// large backlog cannot saturate the database; one bad row is logged and
// skipped, never aborting the sweep.
func (e *Engine) RunLapseSweep(ctx context.Context) (SweepReport, error) {
	report := SweepReport{RunID: uuid.NewString()}
	cutoff := e.clock.Now().AddDate(0, 0, -e.cfg.LapseGraceDays)

	var afterID uint
	for {
		if err := e.limiter.Wait(ctx); err != nil {
			return report, err
		}
		users, err := e.store.LapseCandidates(ctx, cutoff, afterID, e.cfg.SweepBatchSize)
		if err != nil {
			return report, err
		}
		if len(users) == 0 {
			break
		}
		for _, u := range users {
			afterID = u.ID
			uid := u.ID
			var changed bool
			err := e.store.WithUserLock(ctx, uid, func(s Store) error {
				c, lapseErr := e.lapseUser(ctx, s, uid, cutoff)
				changed = c
				return lapseErr
			})
			if err != nil {
				report.LapseErrors++
				if utils.Sugar != nil {
					utils.Sugar.Errorf("lapse sweep run=%s user=%d: %v", report.RunID, uid, err)
				}
				continue
			}
			if changed {
				report.UsersLapsed++
				e.invalidateProjections(uid)
			}
		}
		if len(users) < e.cfg.SweepBatchSize {
			break
		}
	}

	if utils.Sugar != nil {
		utils.Sugar.Infof("lapse sweep run=%s lapsed=%d errors=%d", report.RunID, report.UsersLapsed, report.LapseErrors)
	}
	return report, nil
}

// lapseUser re-checks eligibility under the lock, then resets the lifecycle
// and zeroes current streak counters. Longest streaks are preserved.
func (e *Engine) lapseUser(ctx context.Context, s Store, userID uint, cutoff time.Time) (bool, error) {
	user, err := s.User(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.StreakStatus == models.StreakStatusLapsed {
		return false, nil
	}
	// An order placed since the candidate scan moves the deadline forward;
	// skip rather than lapse a freshly renewed user.
	if user.ReorderDeadline == nil || !user.ReorderDeadline.Before(cutoff) {
		return false, nil
	}

	user.StreakStatus = models.StreakStatusLapsed
	user.StreakDiscountEarned = 0
	user.StreakCurrentDays = 0
	if err := s.SaveUser(ctx, user); err != nil {
		return false, err
	}

	rows, err := s.Streaks(ctx, userID)
	if err != nil {
		return false, err
	}
	for i := range rows {
		if rows[i].CurrentStreak == 0 {
			continue
		}
		rows[i].CurrentStreak = 0
		if err := s.SaveStreak(ctx, &rows[i]); err != nil {
			return false, err
		}
	}
	if utils.Sugar != nil {
		utils.Sugar.Infof("user=%d lapsed, current streaks reset", userID)
	}
	return true, nil
}

// StreakRewards is the rewards projection for the dashboard: where the user
// sits on the ladder and what the next tier takes.
type StreakRewards struct {
	StreakDays      int                 `json:"streak_days"`
	Tier            DiscountTier        `json:"tier"`
	NextTier        *DiscountTier       `json:"next_tier,omitempty"`
	DaysToNextTier  int                 `json:"days_to_next_tier"`
	Status          models.StreakStatus `json:"status"`
	DiscountEarned  int                 `json:"discount_earned"`
	ReorderDeadline *time.Time          `json:"reorder_deadline,omitempty"`
	Tiers           []DiscountTier      `json:"tiers"`
}

// GetStreakRewards assembles the rewards projection, from cache when
// possible.
func (e *Engine) GetStreakRewards(ctx context.Context, userID uint) (*StreakRewards, error) {
	key := e.cacheKey(userID, "rewards")
	if b, ok := utils.CacheGetBytes(key); ok {
		var cached StreakRewards
		if err := json.Unmarshal(b, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := e.store.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	days, err := e.rewardStreakDays(ctx, e.store, user)
	if err != nil {
		return nil, err
	}

	rewards := &StreakRewards{
		StreakDays:      days,
		Tier:            TierForStreak(days),
		NextTier:        NextTier(days),
		Status:          user.StreakStatus,
		DiscountEarned:  user.StreakDiscountEarned,
		ReorderDeadline: user.ReorderDeadline,
		Tiers:           DiscountTiers(),
	}
	if rewards.NextTier != nil {
		rewards.DaysToNextTier = rewards.NextTier.MinDays - days
	}

	utils.CacheSetJSON(key, rewards, e.cfg.CacheTTL)
	return rewards, nil
}
