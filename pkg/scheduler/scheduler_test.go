package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipfeed/newsbrief/pkg/digest"
	"github.com/clipfeed/newsbrief/pkg/domain"
	"github.com/clipfeed/newsbrief/pkg/store"
)

// stubPipeline records runs and returns a canned result
type stubPipeline struct {
	result digest.Result
	panics bool
	runs   []string
}

func (p *stubPipeline) Run(_ context.Context, _, keyword string) digest.Result {
	p.runs = append(p.runs, keyword)
	if p.panics {
		panic("pipeline exploded")
	}
	return p.result
}

// failingStore wraps a real store and injects failures
type failingStore struct {
	*store.JobStore
	failAdd    bool
	failRemove bool
}

func (f *failingStore) Add(entry domain.ScheduleEntry) error {
	if f.failAdd {
		return fmt.Errorf("disk full")
	}
	return f.JobStore.Add(entry)
}

func (f *failingStore) Remove(id string) (bool, error) {
	if f.failRemove {
		return false, fmt.Errorf("disk full")
	}
	return f.JobStore.Remove(id)
}

func newTestScheduler(t *testing.T, pipeline Pipeline) (*Scheduler, *store.JobStore, *store.ExecLog) {
	t.Helper()
	dir := t.TempDir()
	jobStore := store.NewJobStore(filepath.Join(dir, "schedules.json"))
	execLog := store.NewExecLog(filepath.Join(dir, "logs.json"))

	s, err := New(jobStore, pipeline, execLog, "Asia/Seoul")
	require.NoError(t, err)
	return s, jobStore, execLog
}

func TestNew(t *testing.T) {
	t.Run("valid timezone", func(t *testing.T) {
		s, _, _ := newTestScheduler(t, &stubPipeline{})
		assert.NotNil(t, s)
	})

	t.Run("invalid timezone", func(t *testing.T) {
		_, err := New(store.NewJobStore("x"), &stubPipeline{}, store.NewExecLog("y"), "Mars/Olympus")
		require.Error(t, err)
	})
}

func TestScheduler_Add(t *testing.T) {
	t.Run("registers trigger and persists entry", func(t *testing.T) {
		s, jobStore, _ := newTestScheduler(t, &stubPipeline{})

		entry, err := s.Add("ai", 9, 30, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, "ai", entry.Keyword)
		assert.Equal(t, "daily", entry.Frequency)

		stored, err := jobStore.Load()
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, entry.ID, stored[0].ID)

		s.mu.Lock()
		assert.Len(t, s.triggers, 1)
		s.mu.Unlock()
	})

	t.Run("weekday subset gets weekly label in week order", func(t *testing.T) {
		s, _, _ := newTestScheduler(t, &stubPipeline{})

		entry, err := s.Add("economy", 7, 0, []string{"FRI", "mon", "wed", "mon"})
		require.NoError(t, err)
		assert.Equal(t, []string{"mon", "wed", "fri"}, entry.DaysOfWeek)
		assert.Equal(t, "weekly on mon,wed,fri", entry.Frequency)
	})

	t.Run("unique ids for same-second adds", func(t *testing.T) {
		s, _, _ := newTestScheduler(t, &stubPipeline{})

		e1, err := s.Add("ai", 9, 0, nil)
		require.NoError(t, err)
		e2, err := s.Add("ai", 9, 0, nil)
		require.NoError(t, err)
		assert.NotEqual(t, e1.ID, e2.ID)
	})

	t.Run("validation", func(t *testing.T) {
		s, jobStore, _ := newTestScheduler(t, &stubPipeline{})

		_, err := s.Add("", 9, 0, nil)
		require.Error(t, err)
		_, err = s.Add("ai", 24, 0, nil)
		require.Error(t, err)
		_, err = s.Add("ai", -1, 0, nil)
		require.Error(t, err)
		_, err = s.Add("ai", 9, 60, nil)
		require.Error(t, err)
		_, err = s.Add("ai", 9, 0, []string{"funday"})
		require.Error(t, err)

		stored, err := jobStore.Load()
		require.NoError(t, err)
		assert.Empty(t, stored, "invalid adds must not persist anything")
	})

	t.Run("rolls back trigger when persist fails", func(t *testing.T) {
		dir := t.TempDir()
		fs := &failingStore{JobStore: store.NewJobStore(filepath.Join(dir, "s.json")), failAdd: true}
		s, err := New(fs, &stubPipeline{}, store.NewExecLog(filepath.Join(dir, "l.json")), "UTC")
		require.NoError(t, err)

		_, err = s.Add("ai", 9, 0, nil)
		require.Error(t, err)

		s.mu.Lock()
		assert.Empty(t, s.triggers, "trigger must be torn down when persist fails")
		s.mu.Unlock()
	})
}

func TestScheduler_Remove(t *testing.T) {
	t.Run("removes trigger and store entry", func(t *testing.T) {
		s, jobStore, _ := newTestScheduler(t, &stubPipeline{})

		entry, err := s.Add("ai", 9, 0, nil)
		require.NoError(t, err)

		assert.True(t, s.Remove(entry.ID))

		stored, err := jobStore.Load()
		require.NoError(t, err)
		assert.Empty(t, stored)

		s.mu.Lock()
		assert.Empty(t, s.triggers)
		s.mu.Unlock()
	})

	t.Run("unknown id fails without touching the store", func(t *testing.T) {
		s, jobStore, _ := newTestScheduler(t, &stubPipeline{})

		_, err := s.Add("ai", 9, 0, nil)
		require.NoError(t, err)

		assert.False(t, s.Remove("schedule_never_added"))

		stored, err := jobStore.Load()
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})

	t.Run("re-arms trigger when store update fails", func(t *testing.T) {
		dir := t.TempDir()
		fs := &failingStore{JobStore: store.NewJobStore(filepath.Join(dir, "s.json"))}
		s, err := New(fs, &stubPipeline{}, store.NewExecLog(filepath.Join(dir, "l.json")), "UTC")
		require.NoError(t, err)

		entry, err := s.Add("ai", 9, 0, nil)
		require.NoError(t, err)

		fs.failRemove = true
		assert.False(t, s.Remove(entry.ID))

		s.mu.Lock()
		_, armed := s.triggers[entry.ID]
		s.mu.Unlock()
		assert.True(t, armed, "trigger must stay armed when the store still holds the entry")

		stored, err := fs.JobStore.Load()
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})
}

func TestScheduler_Restore(t *testing.T) {
	t.Run("rebuilds one trigger per entry", func(t *testing.T) {
		s, jobStore, _ := newTestScheduler(t, &stubPipeline{})

		require.NoError(t, jobStore.Add(domain.ScheduleEntry{ID: "s1", Keyword: "ai", Hour: 9, Minute: 0}))
		require.NoError(t, jobStore.Add(domain.ScheduleEntry{ID: "s2", Keyword: "economy", Hour: 18, Minute: 30, DaysOfWeek: []string{"mon", "fri"}}))

		require.NoError(t, s.Restore())

		s.mu.Lock()
		assert.Len(t, s.triggers, 2)
		s.mu.Unlock()
	})

	t.Run("repeated restore replaces instead of duplicating", func(t *testing.T) {
		s, jobStore, _ := newTestScheduler(t, &stubPipeline{})

		require.NoError(t, jobStore.Add(domain.ScheduleEntry{ID: "s1", Keyword: "ai", Hour: 9, Minute: 0}))

		require.NoError(t, s.Restore())
		require.NoError(t, s.Restore())

		s.mu.Lock()
		assert.Len(t, s.triggers, 1, "same id must replace, never duplicate")
		s.mu.Unlock()
		assert.Len(t, s.engine.Entries(), 1)
	})

	t.Run("skips entries with broken rules", func(t *testing.T) {
		s, jobStore, _ := newTestScheduler(t, &stubPipeline{})

		require.NoError(t, jobStore.Add(domain.ScheduleEntry{ID: "bad", Keyword: "x", Hour: 9, Minute: 0, DaysOfWeek: []string{"notaday"}}))
		require.NoError(t, jobStore.Add(domain.ScheduleEntry{ID: "good", Keyword: "ai", Hour: 9, Minute: 0}))

		require.NoError(t, s.Restore())

		s.mu.Lock()
		assert.Len(t, s.triggers, 1)
		_, ok := s.triggers["good"]
		s.mu.Unlock()
		assert.True(t, ok)
	})
}

func TestScheduler_Fire(t *testing.T) {
	t.Run("success logs one entry with reference url", func(t *testing.T) {
		pipeline := &stubPipeline{result: digest.Result{Status: domain.RunSuccess, ReferenceURL: "https://example-site.notion.site/p1"}}
		s, _, execLog := newTestScheduler(t, pipeline)

		s.fire("s1", "ai")

		entries, err := execLog.Recent(10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "s1", entries[0].ScheduleID)
		assert.Equal(t, "ai", entries[0].Keyword)
		assert.Equal(t, domain.RunSuccess, entries[0].Status)
		assert.Equal(t, "https://example-site.notion.site/p1", entries[0].ReferenceURL)
		assert.Equal(t, []string{"ai"}, pipeline.runs)
	})

	t.Run("no results logs one entry", func(t *testing.T) {
		pipeline := &stubPipeline{result: digest.Result{Status: domain.RunNoResults}}
		s, _, execLog := newTestScheduler(t, pipeline)

		s.fire("s1", "obscure")

		entries, err := execLog.Recent(10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.RunNoResults, entries[0].Status)
		assert.Empty(t, entries[0].ReferenceURL)
	})

	t.Run("panic recorded as error, engine survives", func(t *testing.T) {
		pipeline := &stubPipeline{panics: true}
		s, _, execLog := newTestScheduler(t, pipeline)

		assert.NotPanics(t, func() { s.fire("s1", "ai") })

		entries, err := execLog.Recent(10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.RunError, entries[0].Status)
		assert.Contains(t, entries[0].Detail, "pipeline exploded")
	})
}

func TestScheduler_StartStop(t *testing.T) {
	s, _, _ := newTestScheduler(t, &stubPipeline{})

	s.Start()
	s.Start() // second call is a no-op

	_, err := s.Add("ai", 9, 0, nil)
	require.NoError(t, err)

	s.Stop()
}

func TestCronSpec(t *testing.T) {
	tbl := []struct {
		entry domain.ScheduleEntry
		want  string
	}{
		{domain.ScheduleEntry{Hour: 9, Minute: 30}, "30 9 * * *"},
		{domain.ScheduleEntry{Hour: 0, Minute: 0}, "0 0 * * *"},
		{domain.ScheduleEntry{Hour: 18, Minute: 15, DaysOfWeek: []string{"mon", "wed", "fri"}}, "15 18 * * mon,wed,fri"},
	}
	for _, tc := range tbl {
		assert.Equal(t, tc.want, cronSpec(tc.entry))
	}
}

func TestNormalizeDays(t *testing.T) {
	days, err := normalizeDays([]string{"SUN", "wed", " mon "})
	require.NoError(t, err)
	assert.Equal(t, []string{"mon", "wed", "sun"}, days)

	days, err = normalizeDays(nil)
	require.NoError(t, err)
	assert.Nil(t, days)

	_, err = normalizeDays([]string{"blursday"})
	require.Error(t, err)
}

func TestFrequencyLabel(t *testing.T) {
	assert.Equal(t, "daily", frequencyLabel(nil))
	assert.Equal(t, "weekly on tue,thu", frequencyLabel([]string{"tue", "thu"}))
}

func TestScheduler_List(t *testing.T) {
	s, _, _ := newTestScheduler(t, &stubPipeline{})

	_, err := s.Add("ai", 9, 0, nil)
	require.NoError(t, err)

	entries, err := s.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
