package pipeline

import (
	"context"
	"sync"

	"github.com/sonigraph/sonigraph/logging"
)

// Token identifies one pipeline invocation. Tokens increase monotonically;
// a result is only displayable while its token is still the newest one
// issued.
type Token uint64

// Session is the shell-owned slot holding the latest completed run. It
// serializes nothing about the runs themselves - every run owns its own
// spectrogram exclusively until handoff - but guarantees that a result
// from a superseded run is never committed, no matter how late it lands.
type Session struct {
	runner *Runner
	logger logging.Logger

	// OnResult, when set, is called with each committed result. Called
	// from the run's goroutine when runs are started through Open.
	OnResult func(*Result)

	// OnError, when set, is called with failures of non-superseded runs.
	OnError func(error)

	mu      sync.Mutex
	next    Token
	latest  Token
	cancel  context.CancelFunc
	current *Result
	wg      sync.WaitGroup

	// deliverMu serializes the latest-token check with the OnResult call, so
	// callbacks are delivered in commit order.
	deliverMu sync.Mutex
}

// NewSession creates a session around a runner
func NewSession(runner *Runner) *Session {
	return &Session{
		runner: runner,
		logger: logging.WithFields(logging.Fields{
			"component": "session",
		}),
	}
}

// Begin registers a new run and returns its token. Any in-flight run is
// now superseded; if it was started through Open its context is canceled.
func (s *Session) Begin() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginLocked(nil)
}

func (s *Session) beginLocked(cancel context.CancelFunc) Token {
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.next++
	s.latest = s.next
	return s.next
}

// Commit stores a finished result if its run is still the latest. The
// return value reports whether the result was accepted; stale results are
// dropped. OnResult calls happen in commit order: a commit that passed the
// latest-token check finishes delivering before the next commit is checked.
func (s *Session) Commit(tok Token, res *Result) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if tok != s.latest {
		s.mu.Unlock()
		s.logger.Debug("Discarding superseded run result", logging.Fields{
			"token": uint64(tok),
		})
		return false
	}
	s.current = res
	cb := s.OnResult
	s.mu.Unlock()

	if cb != nil {
		cb(res)
	}
	return true
}

// Current returns the latest committed result, or nil before the first
// commit
func (s *Session) Current() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Open starts a pipeline run for path on its own goroutine, superseding
// and canceling any run still in flight. Failures of the newest run are
// reported through OnError; failures of superseded runs are dropped along
// with their results.
func (s *Session) Open(ctx context.Context, path string) Token {
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	tok := s.beginLocked(cancel)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		res, err := s.runner.Run(runCtx, path)
		if err != nil {
			s.mu.Lock()
			stale := tok != s.latest
			s.mu.Unlock()
			if !stale {
				s.logger.Error(err, "Pipeline run failed", logging.Fields{
					"path": path,
				})
				if s.OnError != nil {
					s.OnError(err)
				}
			}
			return
		}
		s.Commit(tok, res)
	}()

	return tok
}

// Wait blocks until all runs started through Open have finished
func (s *Session) Wait() {
	s.wg.Wait()
}
