package pipeline

import (
	"testing"
	"time"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob(TriggerWatch)
	if len(job.ID) != 20 {
		t.Errorf("expected 20-char id, got %q", job.ID)
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if job.Trigger != TriggerWatch {
		t.Errorf("expected trigger %q, got %q", TriggerWatch, job.Trigger)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob(TriggerAPI)

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing"},
		{StatusSplitting, "splitting"},
		{StatusWriting, "writing"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		snap := job.Snapshot()
		if snap.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, snap.Status)
		}
		if snap.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, snap.Phase)
		}
		if !snap.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_WaitReleasedByTerminalStatus(t *testing.T) {
	job := NewJob(TriggerAPI)
	go func() {
		job.SetStatus(StatusParsing, "parsing")
		job.SetStatus(StatusFailed, "parsing")
	}()

	timeout := make(chan struct{})
	timer := time.AfterFunc(2*time.Second, func() { close(timeout) })
	defer timer.Stop()
	if !job.Wait(timeout) {
		t.Fatal("expected Wait to return once the job failed")
	}

	// A second terminal status must not panic on the closed channel.
	job.SetStatus(StatusCompleted, "done")
}

func TestJob_AddError(t *testing.T) {
	job := NewJob(TriggerAPI)
	job.AddError("locale \"fr\": missing notes")
	job.AddError("write failed")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[1] != "write failed" {
		t.Errorf("expected second error %q, got %q", "write failed", snap.Progress.Errors[1])
	}
}

func TestJob_LocaleProgress(t *testing.T) {
	job := NewJob(TriggerStartup)
	job.SetLocales(2)
	job.LocaleBuilt(5)
	job.LocaleBuilt(4)

	snap := job.Snapshot()
	if snap.Progress.Locales != 2 || snap.Progress.LocalesBuilt != 2 {
		t.Errorf("expected 2/2 locales, got %d/%d", snap.Progress.LocalesBuilt, snap.Progress.Locales)
	}
	if snap.Progress.SlidesWritten != 9 {
		t.Errorf("expected 9 slides written, got %d", snap.Progress.SlidesWritten)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := NewJob(TriggerAPI)
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := NewJob(TriggerAPI)
	store.Put(job)

	got := store.Get(job.ID)
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := NewJob(TriggerAPI)
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	fresh := NewJob(TriggerAPI)
	store.Put(fresh)

	store.Cleanup()

	if store.Get(expired.ID) != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}
