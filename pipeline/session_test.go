package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	runner, err := NewRunner(nil)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	return NewSession(runner)
}

func TestSessionCommitLatest(t *testing.T) {
	s := newTestSession(t)

	tok := s.Begin()
	res := &Result{Path: "a.flac"}
	if !s.Commit(tok, res) {
		t.Fatal("commit of latest run was rejected")
	}
	if s.Current() != res {
		t.Error("Current should return the committed result")
	}
}

func TestSessionDropsSupersededResult(t *testing.T) {
	s := newTestSession(t)

	first := s.Begin()
	second := s.Begin()

	// The first run finishes late; its result must not displace anything.
	if s.Commit(first, &Result{Path: "old.flac"}) {
		t.Error("superseded run result was accepted")
	}
	if s.Current() != nil {
		t.Error("stale commit should leave no current result")
	}

	fresh := &Result{Path: "new.flac"}
	if !s.Commit(second, fresh) {
		t.Fatal("latest run result was rejected")
	}
	if s.Current() != fresh {
		t.Error("Current should hold the newest run's result")
	}
}

func TestSessionStaleCommitKeepsNewerResult(t *testing.T) {
	s := newTestSession(t)

	first := s.Begin()
	second := s.Begin()

	fresh := &Result{Path: "new.flac"}
	if !s.Commit(second, fresh) {
		t.Fatal("latest run result was rejected")
	}
	// First run lands after the newer one already committed.
	if s.Commit(first, &Result{Path: "old.flac"}) {
		t.Error("superseded run result was accepted")
	}
	if s.Current() != fresh {
		t.Error("stale commit displaced the newer result")
	}
}

func TestSessionTokensIncrease(t *testing.T) {
	s := newTestSession(t)
	prev := s.Begin()
	for i := 0; i < 10; i++ {
		tok := s.Begin()
		if tok <= prev {
			t.Fatalf("token %d not greater than %d", tok, prev)
		}
		prev = tok
	}
}

func TestSessionOnResultCallback(t *testing.T) {
	s := newTestSession(t)

	var mu sync.Mutex
	var got []*Result
	s.OnResult = func(r *Result) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	}

	first := s.Begin()
	second := s.Begin()
	s.Commit(first, &Result{Path: "old.flac"})
	fresh := &Result{Path: "new.flac"}
	s.Commit(second, fresh)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != fresh {
		t.Errorf("OnResult saw %d results, want exactly the fresh one", len(got))
	}
}

func TestSessionCallbackOrderMatchesCommitOrder(t *testing.T) {
	s := newTestSession(t)

	var mu sync.Mutex
	var got []string
	entered := make(chan struct{})
	release := make(chan struct{})
	s.OnResult = func(r *Result) {
		if r.Path == "a.flac" {
			close(entered)
			<-release
		}
		mu.Lock()
		got = append(got, r.Path)
		mu.Unlock()
	}

	first := s.Begin()
	done1 := make(chan struct{})
	go func() {
		defer close(done1)
		if !s.Commit(first, &Result{Path: "a.flac"}) {
			t.Error("first commit rejected")
		}
	}()
	<-entered

	// A supersede lands while the first callback is still running. Its
	// delivery must wait for the first callback to return.
	second := s.Begin()
	done2 := make(chan struct{})
	go func() {
		defer close(done2)
		if !s.Commit(second, &Result{Path: "b.flac"}) {
			t.Error("second commit rejected")
		}
	}()

	select {
	case <-done2:
		t.Fatal("second commit delivered before the first callback returned")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done1
	<-done2

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != "a.flac" || got[1] != "b.flac" {
		t.Errorf("callback order = %v, want [a.flac b.flac]", got)
	}
	if s.Current().Path != "b.flac" {
		t.Errorf("Current = %q, want the newest result", s.Current().Path)
	}
}

func TestSessionOpenReportsError(t *testing.T) {
	s := newTestSession(t)

	errs := make(chan error, 1)
	s.OnError = func(err error) { errs <- err }

	s.Open(context.Background(), filepath.Join(t.TempDir(), "missing.flac"))
	s.Wait()

	select {
	case err := <-errs:
		if err == nil {
			t.Error("OnError delivered a nil error")
		}
	default:
		t.Error("expected OnError for a failed run")
	}
	if s.Current() != nil {
		t.Error("failed run must not commit a result")
	}
}

func TestSessionOpenSupersededFailureSilent(t *testing.T) {
	s := newTestSession(t)

	errs := make(chan error, 2)
	s.OnError = func(err error) { errs <- err }

	tok := s.Open(context.Background(), filepath.Join(t.TempDir(), "a.flac"))
	s.Wait()

	// The run has already failed and reported. Superseding it afterwards
	// must not produce a second callback for the same token.
	s.Begin()
	if got := s.Commit(tok, &Result{}); got {
		t.Error("superseded token should not commit")
	}

	if len(errs) != 1 {
		t.Errorf("got %d error callbacks, want 1", len(errs))
	}
}

func TestSessionOpenCancelsPreviousContext(t *testing.T) {
	s := newTestSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.Open(ctx, filepath.Join(t.TempDir(), "a.flac"))
	s.Begin()
	s.Wait()

	// Nothing to assert beyond termination: a superseded run must not keep
	// the session's wait group busy after its context is canceled.
}
