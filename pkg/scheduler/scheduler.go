package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"

	"github.com/clipfeed/newsbrief/pkg/digest"
	"github.com/clipfeed/newsbrief/pkg/domain"
)

// fireTimeout bounds a single scheduled pipeline run
const fireTimeout = 5 * time.Minute

// Pipeline runs the collection sequence for one keyword
type Pipeline interface {
	Run(ctx context.Context, label, keyword string) digest.Result
}

// JobStore is the durable record of schedule definitions
type JobStore interface {
	Load() ([]domain.ScheduleEntry, error)
	Add(entry domain.ScheduleEntry) error
	Remove(id string) (bool, error)
}

// ExecLog records scheduled pipeline runs
type ExecLog interface {
	Append(entry domain.ExecutionLogEntry) error
}

// Scheduler is the in-process recurring-job engine. Live cron triggers are
// a rebuildable cache of the JobStore: Restore reconstructs them from the
// store after a restart, and re-registering an id replaces its trigger
// instead of duplicating it.
type Scheduler struct {
	store    JobStore
	pipeline Pipeline
	execLog  ExecLog
	location *time.Location
	engine   *cron.Cron

	startOnce sync.Once

	mu       sync.Mutex
	triggers map[string]cron.EntryID
}

// New creates a scheduler with triggers evaluated in the given time zone
func New(store JobStore, pipeline Pipeline, execLog ExecLog, timezone string) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	return &Scheduler{
		store:    store,
		pipeline: pipeline,
		execLog:  execLog,
		location: loc,
		engine:   cron.New(cron.WithLocation(loc)),
		triggers: make(map[string]cron.EntryID),
	}, nil
}

// Start launches the background trigger engine. Idempotent: repeated calls
// have no further effect.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.engine.Start()
		lgr.Printf("[INFO] scheduler started, timezone %s", s.location)
	})
}

// Stop halts the trigger engine and waits for any running job to finish
func (s *Scheduler) Stop() {
	<-s.engine.Stop().Done()
	lgr.Printf("[INFO] scheduler stopped")
}

// Restore reads the job store and re-registers a live trigger for every
// entry. Registering under an existing id replaces it, so running Restore
// after repeated restarts still yields exactly one trigger per schedule.
// Individual failures are logged and skipped; they don't abort the rest.
func (s *Scheduler) Restore() error {
	entries, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}

	restored := 0
	for _, entry := range entries {
		if err := s.register(entry); err != nil {
			lgr.Printf("[WARN] failed to restore schedule %s (%s): %v", entry.ID, entry.Keyword, err)
			continue
		}
		restored++
	}

	lgr.Printf("[INFO] restored %d of %d schedules", restored, len(entries))
	return nil
}

// Add registers a new recurring keyword scrape and persists it. The trigger
// is armed first; if persisting fails the trigger is torn down again so the
// store and the live engine can't drift apart.
func (s *Scheduler) Add(keyword string, hour, minute int, daysOfWeek []string) (domain.ScheduleEntry, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return domain.ScheduleEntry{}, fmt.Errorf("keyword is required")
	}
	if hour < 0 || hour > 23 {
		return domain.ScheduleEntry{}, fmt.Errorf("hour must be in [0,23], got %d", hour)
	}
	if minute < 0 || minute > 59 {
		return domain.ScheduleEntry{}, fmt.Errorf("minute must be in [0,59], got %d", minute)
	}
	days, err := normalizeDays(daysOfWeek)
	if err != nil {
		return domain.ScheduleEntry{}, err
	}

	entry := domain.ScheduleEntry{
		ID:         s.newID(),
		Keyword:    keyword,
		Hour:       hour,
		Minute:     minute,
		DaysOfWeek: days,
		Frequency:  frequencyLabel(days),
		CreatedAt:  time.Now().In(s.location),
	}

	if err := s.register(entry); err != nil {
		return domain.ScheduleEntry{}, fmt.Errorf("register trigger: %w", err)
	}

	if err := s.store.Add(entry); err != nil {
		s.deregister(entry.ID) // roll back the armed trigger
		return domain.ScheduleEntry{}, fmt.Errorf("persist schedule: %w", err)
	}

	lgr.Printf("[INFO] schedule added: %s %q at %02d:%02d (%s)", entry.ID, keyword, hour, minute, entry.Frequency)
	return entry, nil
}

// Remove tears down the live trigger and deletes the schedule from the
// store. Reports success only when both steps succeed; an unknown id
// leaves the store untouched. If the store update fails after the trigger
// was torn down, the trigger is re-armed from the stored definition.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	_, known := s.triggers[id]
	s.mu.Unlock()
	if !known {
		lgr.Printf("[WARN] remove requested for unknown schedule %s", id)
		return false
	}

	entries, err := s.store.Load()
	if err != nil {
		lgr.Printf("[ERROR] failed to load schedules for removal of %s: %v", id, err)
		return false
	}

	s.deregister(id)

	removed, err := s.store.Remove(id)
	if err != nil || !removed {
		// re-arm the trigger so the live engine matches the store
		for _, entry := range entries {
			if entry.ID == id {
				if regErr := s.register(entry); regErr != nil {
					lgr.Printf("[ERROR] failed to re-arm trigger %s after store failure: %v", id, regErr)
				}
				break
			}
		}
		if err != nil {
			lgr.Printf("[ERROR] failed to remove schedule %s from store: %v", id, err)
		}
		return false
	}

	lgr.Printf("[INFO] schedule removed: %s", id)
	return true
}

// List returns all durable schedule entries
func (s *Scheduler) List() ([]domain.ScheduleEntry, error) {
	return s.store.Load()
}

// register arms a trigger for the entry with replace semantics: an
// existing trigger under the same id is removed first.
func (s *Scheduler) register(entry domain.ScheduleEntry) error {
	spec := cronSpec(entry)

	s.mu.Lock()
	defer s.mu.Unlock()

	id, keyword := entry.ID, entry.Keyword
	entryID, err := s.engine.AddFunc(spec, func() { s.fire(id, keyword) })
	if err != nil {
		return fmt.Errorf("add cron trigger %q: %w", spec, err)
	}

	if prev, ok := s.triggers[entry.ID]; ok {
		s.engine.Remove(prev)
	}
	s.triggers[entry.ID] = entryID
	return nil
}

// deregister removes the live trigger for the id, if any
func (s *Scheduler) deregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.triggers[id]; ok {
		s.engine.Remove(entryID)
		delete(s.triggers, id)
	}
}

// fire runs the pipeline for a scheduled trigger and records exactly one
// execution log entry whatever the outcome. Panics anywhere in the
// pipeline are caught here so a bad run can't take down the engine or
// other pending triggers.
func (s *Scheduler) fire(id, keyword string) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	logEntry := domain.ExecutionLogEntry{
		ScheduleID: id,
		Keyword:    keyword,
		Timestamp:  time.Now().In(s.location),
	}

	defer func() {
		if r := recover(); r != nil {
			lgr.Printf("[ERROR] scheduled run %s panicked: %v", id, r)
			logEntry.Status = domain.RunError
			logEntry.Detail = fmt.Sprintf("panic: %v", r)
		}
		if err := s.execLog.Append(logEntry); err != nil {
			lgr.Printf("[ERROR] failed to append execution log for %s: %v", id, err)
		}
	}()

	lgr.Printf("[INFO] scheduled run started: %s keyword %q", id, keyword)

	label := fmt.Sprintf("[scheduled] %s news digest", keyword)
	result := s.pipeline.Run(ctx, label, keyword)

	logEntry.Status = result.Status
	logEntry.Detail = result.Detail
	logEntry.ReferenceURL = result.ReferenceURL

	lgr.Printf("[INFO] scheduled run finished: %s status %s", id, result.Status)
}

// newID derives a unique time-based schedule id
func (s *Scheduler) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := fmt.Sprintf("schedule_%s", time.Now().In(s.location).Format("20060102_150405"))
	id := base
	for n := 1; ; n++ {
		if _, taken := s.triggers[id]; !taken {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

// cronSpec renders the trigger rule: "M H * * days" with day names, or
// "*" for every day.
func cronSpec(entry domain.ScheduleEntry) string {
	days := "*"
	if len(entry.DaysOfWeek) > 0 {
		days = strings.Join(entry.DaysOfWeek, ",")
	}
	return fmt.Sprintf("%d %d * * %s", entry.Minute, entry.Hour, days)
}

// weekday tags accepted for schedule definitions, in week order
var weekdayOrder = map[string]int{"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6}

// normalizeDays validates and lowercases weekday tags, dropping duplicates
// and putting them in week order. Empty input means every day.
func normalizeDays(days []string) ([]string, error) {
	if len(days) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool, len(days))
	result := make([]string, 0, len(days))
	for _, d := range days {
		day := strings.ToLower(strings.TrimSpace(d))
		if _, ok := weekdayOrder[day]; !ok {
			return nil, fmt.Errorf("invalid day of week %q", d)
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		result = append(result, day)
	}

	sort.Slice(result, func(i, j int) bool { return weekdayOrder[result[i]] < weekdayOrder[result[j]] })
	return result, nil
}

// frequencyLabel derives the display string for the recurrence rule
func frequencyLabel(days []string) string {
	if len(days) == 0 {
		return "daily"
	}
	return "weekly on " + strings.Join(days, ",")
}
