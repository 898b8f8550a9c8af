package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/pstadniuk-dotcom/MyOnes-sub002/engine"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/models"
)

// ErrReadFailed is returned by Memory read methods after FailNextReads,
// letting tests exercise abort paths without a real database fault.
var ErrReadFailed = errors.New("simulated read failure")

// Memory is an in-process Store for tests and for embedders that run the
// engine without a database. All methods return copies, so callers can
// mutate results freely. Safe for concurrent use.
type Memory struct {
	mu sync.Mutex

	users       map[uint]*models.User
	activities  map[uint]map[string]*models.DailyActivityLog
	meals       map[uint][]models.MealLogEntry
	workouts    map[uint][]models.WorkoutLogEntry
	plans       map[uint]*models.WorkoutPlan
	completions map[uint]map[string]*models.DailyCompletion
	streaks     map[uint]map[models.StreakType]*models.UserStreak

	userLocks map[uint]*sync.Mutex
	nextID    uint

	failSaves int
	failReads int
}

var _ engine.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:       make(map[uint]*models.User),
		activities:  make(map[uint]map[string]*models.DailyActivityLog),
		meals:       make(map[uint][]models.MealLogEntry),
		workouts:    make(map[uint][]models.WorkoutLogEntry),
		plans:       make(map[uint]*models.WorkoutPlan),
		completions: make(map[uint]map[string]*models.DailyCompletion),
		streaks:     make(map[uint]map[models.StreakType]*models.UserStreak),
		userLocks:   make(map[uint]*sync.Mutex),
	}
}

// FailNextSaves makes the next n streak or completion writes return
// engine.ErrConflict.
func (m *Memory) FailNextSaves(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSaves = n
}

// FailNextReads makes the next n read calls return ErrReadFailed.
func (m *Memory) FailNextReads(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReads = n
}

// callers hold m.mu
func (m *Memory) takeReadErr() error {
	if m.failReads > 0 {
		m.failReads--
		return ErrReadFailed
	}
	return nil
}

// callers hold m.mu
func (m *Memory) takeSaveErr() error {
	if m.failSaves > 0 {
		m.failSaves--
		return engine.ErrConflict
	}
	return nil
}

// callers hold m.mu
func (m *Memory) seq() uint {
	m.nextID++
	return m.nextID
}

// AddUser seeds a user, assigning an ID when none is set, and returns a copy.
func (m *Memory) AddUser(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.seq()
	} else if u.ID > m.nextID {
		m.nextID = u.ID
	}
	if u.StreakStatus == "" {
		u.StreakStatus = models.StreakStatusBuilding
	}
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}
	cp := u
	m.users[u.ID] = &cp
	out := u
	return &out
}

// PutActivityLog seeds or replaces the activity row for (user, date).
func (m *Memory) PutActivityLog(l models.DailyActivityLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == 0 {
		l.ID = m.seq()
	}
	byDate := m.activities[l.UserID]
	if byDate == nil {
		byDate = make(map[string]*models.DailyActivityLog)
		m.activities[l.UserID] = byDate
	}
	cp := l
	byDate[l.LogDate] = &cp
}

// AddMeal seeds a meal entry.
func (m *Memory) AddMeal(e models.MealLogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == 0 {
		e.ID = m.seq()
	}
	m.meals[e.UserID] = append(m.meals[e.UserID], e)
}

// AddWorkout seeds a workout entry.
func (m *Memory) AddWorkout(w models.WorkoutLogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == 0 {
		w.ID = m.seq()
	}
	m.workouts[w.UserID] = append(m.workouts[w.UserID], w)
}

// SetPlan seeds the user's active workout plan.
func (m *Memory) SetPlan(p models.WorkoutPlan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.seq()
	}
	p.Active = true
	cp := p
	m.plans[p.UserID] = &cp
}

func (m *Memory) User(ctx context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeReadErr(); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) SaveUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.seq()
	}
	u.UpdatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *Memory) ActivityLog(ctx context.Context, userID uint, date string) (*models.DailyActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeReadErr(); err != nil {
		return nil, err
	}
	row, ok := m.activities[userID][date]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *Memory) ActivityLogs(ctx context.Context, userID uint, from, to string) ([]models.DailyActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeReadErr(); err != nil {
		return nil, err
	}
	var rows []models.DailyActivityLog
	for date, row := range m.activities[userID] {
		if date >= from && date <= to {
			rows = append(rows, *row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].LogDate < rows[j].LogDate })
	return rows, nil
}

func (m *Memory) MealEntries(ctx context.Context, userID uint, from, to string) ([]models.MealLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeReadErr(); err != nil {
		return nil, err
	}
	var rows []models.MealLogEntry
	for _, e := range m.meals[userID] {
		if e.LogDate >= from && e.LogDate <= to {
			rows = append(rows, e)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].LogDate < rows[j].LogDate })
	return rows, nil
}

func (m *Memory) WorkoutEntries(ctx context.Context, userID uint, from, to string) ([]models.WorkoutLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeReadErr(); err != nil {
		return nil, err
	}
	var rows []models.WorkoutLogEntry
	for _, w := range m.workouts[userID] {
		if w.LogDate >= from && w.LogDate <= to {
			rows = append(rows, w)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].LogDate < rows[j].LogDate })
	return rows, nil
}

func (m *Memory) ActivePlan(ctx context.Context, userID uint) (*models.WorkoutPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeReadErr(); err != nil {
		return nil, err
	}
	plan, ok := m.plans[userID]
	if !ok || !plan.Active {
		return nil, nil
	}
	cp := *plan
	return &cp, nil
}

func (m *Memory) Completion(ctx context.Context, userID uint, date string) (*models.DailyCompletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeReadErr(); err != nil {
		return nil, err
	}
	row, ok := m.completions[userID][date]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *Memory) Completions(ctx context.Context, userID uint, from, to string) ([]models.DailyCompletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeReadErr(); err != nil {
		return nil, err
	}
	var rows []models.DailyCompletion
	for date, row := range m.completions[userID] {
		if date >= from && date <= to {
			rows = append(rows, *row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

func (m *Memory) UpsertCompletion(ctx context.Context, c *models.DailyCompletion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeSaveErr(); err != nil {
		return err
	}
	byDate := m.completions[c.UserID]
	if byDate == nil {
		byDate = make(map[string]*models.DailyCompletion)
		m.completions[c.UserID] = byDate
	}
	if prev, ok := byDate[c.Date]; ok {
		c.ID = prev.ID
		c.CreatedAt = prev.CreatedAt
	} else {
		c.ID = m.seq()
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()
	cp := *c
	byDate[c.Date] = &cp
	return nil
}

func (m *Memory) Streak(ctx context.Context, userID uint, st models.StreakType) (*models.UserStreak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeReadErr(); err != nil {
		return nil, err
	}
	row, ok := m.streaks[userID][st]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *Memory) Streaks(ctx context.Context, userID uint) ([]models.UserStreak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeReadErr(); err != nil {
		return nil, err
	}
	var rows []models.UserStreak
	for _, row := range m.streaks[userID] {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].StreakType < rows[j].StreakType })
	return rows, nil
}

func (m *Memory) SaveStreak(ctx context.Context, s *models.UserStreak) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeSaveErr(); err != nil {
		return err
	}
	byType := m.streaks[s.UserID]
	if byType == nil {
		byType = make(map[models.StreakType]*models.UserStreak)
		m.streaks[s.UserID] = byType
	}
	if s.ID == 0 {
		if _, exists := byType[s.StreakType]; exists {
			return engine.ErrConflict
		}
		s.ID = m.seq()
		s.CreatedAt = time.Now()
	}
	s.UpdatedAt = time.Now()
	cp := *s
	byType[s.StreakType] = &cp
	return nil
}

// WithUserLock serializes callers per user with a plain mutex, mirroring the
// row lock the database store takes.
func (m *Memory) WithUserLock(ctx context.Context, userID uint, fn func(engine.Store) error) error {
	m.mu.Lock()
	if _, ok := m.users[userID]; !ok {
		m.mu.Unlock()
		return engine.ErrNotFound
	}
	lock, ok := m.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.userLocks[userID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(m)
}

func (m *Memory) TransitionStatuses(ctx context.Context, t engine.StatusTransition) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from := make(map[models.StreakStatus]bool, len(t.From))
	for _, s := range t.From {
		from[s] = true
	}
	var n int64
	for _, u := range m.users {
		if !from[u.StreakStatus] || u.StreakStatus == t.To {
			continue
		}
		if t.WindowStartAtOrBefore != nil &&
			(u.ReorderWindowStart == nil || u.ReorderWindowStart.After(*t.WindowStartAtOrBefore)) {
			continue
		}
		if t.DeadlineAfter != nil &&
			(u.ReorderDeadline == nil || !u.ReorderDeadline.After(*t.DeadlineAfter)) {
			continue
		}
		if t.DeadlineAtOrBefore != nil &&
			(u.ReorderDeadline == nil || u.ReorderDeadline.After(*t.DeadlineAtOrBefore)) {
			continue
		}
		u.StreakStatus = t.To
		u.UpdatedAt = time.Now()
		n++
	}
	return n, nil
}

func (m *Memory) InconsistentReorderUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.User
	for _, u := range m.users {
		switch u.StreakStatus {
		case models.StreakStatusReady, models.StreakStatusWarning, models.StreakStatusGrace:
			if u.ReorderWindowStart == nil || u.ReorderDeadline == nil {
				rows = append(rows, *u)
			}
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m *Memory) LapseCandidates(ctx context.Context, deadlineBefore time.Time, afterID uint, limit int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.User
	for _, u := range m.users {
		if u.ID <= afterID || u.StreakStatus == models.StreakStatusLapsed {
			continue
		}
		if u.ReorderDeadline == nil || !u.ReorderDeadline.Before(deadlineBefore) {
			continue
		}
		rows = append(rows, *u)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *Memory) DecayStaleStreaks(ctx context.Context, lastCompletedBefore string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, byType := range m.streaks {
		for _, row := range byType {
			if row.CurrentStreak > 0 && row.LastCompletedDate != nil &&
				*row.LastCompletedDate < lastCompletedBefore {
				row.CurrentStreak = 0
				row.UpdatedAt = time.Now()
				n++
			}
		}
	}
	return n, nil
}
