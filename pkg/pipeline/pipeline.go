// Package pipeline orchestrates violation remediation: each violation is
// dispatched to a specialist, the proposed fix is defensively validated,
// content fixes pass an optimistic-concurrency check, and surviving fixes
// are applied through the shared browser connection.
//
// Each violation runs an independent state machine
// (Pending → Planning → Validating → Applying → {Fixed, Skipped, Error});
// one violation's failure never aborts the batch. Violations are processed
// by a bounded worker pool, and DOM access to the shared page is serialized
// so interleaved mutations cannot corrupt selector-based targeting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/remedy/pkg/browser"
	"github.com/entrhq/remedy/pkg/integrity"
	"github.com/entrhq/remedy/pkg/logging"
	"github.com/entrhq/remedy/pkg/safety"
	"github.com/entrhq/remedy/pkg/specialists"
	"github.com/entrhq/remedy/pkg/types"
)

const (
	// DefaultWorkers bounds simultaneous in-flight violations. Kept small so
	// the shared browser connection and the oracle's rate limits are not
	// overwhelmed.
	DefaultWorkers = 3

	// MaxWorkers is the upper bound on configurable parallelism.
	MaxWorkers = 5

	// DefaultReplanBudget is how many times a violation returns to Pending
	// after a content-changed mismatch before being skipped.
	DefaultReplanBudget = 2

	// DefaultPlanningTimeout bounds one specialist planning call.
	DefaultPlanningTimeout = 30 * time.Second
)

// ApplyPage is the live page handle fixes are applied to.
type ApplyPage interface {
	browser.DOM
	Close() error
}

// Connector supplies the shared page for a scan session. Implementations
// wrap a browser.Manager; tests substitute fakes.
type Connector interface {
	OpenPage(ctx context.Context, url string, tag browser.ViewportTag) (ApplyPage, error)
	Disconnect() error
}

// browserConnector adapts a browser.Manager to the Connector interface.
type browserConnector struct {
	manager *browser.Manager
}

// NewBrowserConnector wraps a connection manager for use by the pipeline.
func NewBrowserConnector(manager *browser.Manager) Connector {
	return &browserConnector{manager: manager}
}

func (c *browserConnector) OpenPage(ctx context.Context, url string, tag browser.ViewportTag) (ApplyPage, error) {
	return c.manager.OpenPage(ctx, url, tag)
}

func (c *browserConnector) Disconnect() error {
	return c.manager.Disconnect()
}

// Config tunes pipeline execution.
type Config struct {
	// Workers is the fixed worker pool size (1..MaxWorkers).
	Workers int

	// ReplanBudget is the number of re-plans allowed after content-changed
	// mismatches before the violation is skipped. Zero means the default;
	// a negative value disables re-planning.
	ReplanBudget int

	// PlanningTimeout bounds each specialist planning call; a timeout is
	// treated identically to a planning failure.
	PlanningTimeout time.Duration

	// Viewport selects the browser context size for the session page.
	Viewport browser.ViewportTag
}

func (c Config) normalized() Config {
	if c.Workers < 1 {
		c.Workers = DefaultWorkers
	}
	if c.Workers > MaxWorkers {
		c.Workers = MaxWorkers
	}
	switch {
	case c.ReplanBudget == 0:
		c.ReplanBudget = DefaultReplanBudget
	case c.ReplanBudget < 0:
		c.ReplanBudget = 0
	}
	if c.PlanningTimeout <= 0 {
		c.PlanningTimeout = DefaultPlanningTimeout
	}
	return c
}

// Result is the session-level summary of one pipeline run.
type Result struct {
	RunID            string                       `json:"runId"`
	Outcomes         []types.Outcome              `json:"outcomes"`
	FlaggedForReview []string                     `json:"flaggedForReview,omitempty"`
	Counts           map[types.OutcomeState]int   `json:"counts"`
	ReasonCounts     map[string]int               `json:"reasonCounts"`
	Duration         time.Duration                `json:"duration"`
}

// SessionError is the fatal condition raised when the browser connection
// could not be established (or re-established) for the session. It is
// surfaced to the caller separately from per-violation outcomes.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session connection failed: %v", e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// Pipeline runs violation remediation for one scan session.
type Pipeline struct {
	registry  *specialists.Registry
	validator *safety.Validator
	guard     *integrity.Guard
	connector Connector
	cfg       Config
	log       *logging.Logger

	// pageMu serializes every DOM read and mutation against the shared
	// page; at most one in-flight DOM operation per page, even while other
	// workers are still planning.
	pageMu   sync.Mutex
	pageOnce sync.Once
	page     ApplyPage
	pageErr  error
}

// New creates a pipeline. The connector is owned by the caller; the
// pipeline opens the session page lazily on first apply and the caller
// disconnects at session end.
func New(registry *specialists.Registry, connector Connector, cfg Config) *Pipeline {
	return &Pipeline{
		registry:  registry,
		validator: safety.NewValidator(),
		guard:     integrity.NewGuard(),
		connector: connector,
		cfg:       cfg.normalized(),
		log:       logging.NewLogger("pipeline"),
	}
}

// Run processes the input violations with bounded parallelism and returns
// one outcome per input, in input order. A session-level connection failure
// is returned as a *SessionError alongside the (complete) result; it is
// never silently swallowed into per-violation outcomes alone.
func (p *Pipeline) Run(ctx context.Context, inputs []types.ViolationInput) (*Result, error) {
	start := time.Now()
	result := &Result{
		RunID:        uuid.New().String(),
		Outcomes:     make([]types.Outcome, len(inputs)),
		Counts:       make(map[types.OutcomeState]int),
		ReasonCounts: make(map[string]int),
	}

	p.log.Infof("run %s: %d violations, %d workers", result.RunID, len(inputs), p.cfg.Workers)

	var (
		flagMu  sync.Mutex
		fatalMu sync.Mutex
		fatal   error
	)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcome, flagged := p.process(ctx, inputs[i])
				result.Outcomes[i] = outcome
				if flagged {
					flagMu.Lock()
					result.FlaggedForReview = append(result.FlaggedForReview, outcome.ViolationID)
					flagMu.Unlock()
				}
				if outcome.ReasonCode == types.ReasonConnectionFailed {
					fatalMu.Lock()
					if fatal == nil {
						fatal = &SessionError{Err: p.sessionPageErr()}
					}
					fatalMu.Unlock()
				}
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, o := range result.Outcomes {
		result.Counts[o.State]++
		if o.ReasonCode != "" {
			result.ReasonCounts[o.ReasonCode]++
		}
	}
	result.Duration = time.Since(start)

	p.log.Infof("run %s finished in %s: fixed=%d skipped=%d error=%d",
		result.RunID, result.Duration,
		result.Counts[types.StateFixed], result.Counts[types.StateSkipped], result.Counts[types.StateError])

	return result, fatal
}

// Close releases the session page. The connector itself is disconnected by
// the caller that owns it.
func (p *Pipeline) Close() error {
	p.pageMu.Lock()
	defer p.pageMu.Unlock()
	if p.page != nil {
		err := p.page.Close()
		p.page = nil
		return err
	}
	return nil
}

// process drives one violation's state machine to a terminal outcome.
func (p *Pipeline) process(ctx context.Context, input types.ViolationInput) (types.Outcome, bool) {
	v := input.Violation

	for attempt := 0; ; attempt++ {
		// Pending → Planning
		instruction, err := p.plan(ctx, input)
		if err != nil {
			var unhandled *specialists.UnhandledViolationError
			if errors.As(err, &unhandled) {
				p.log.Infof("violation %s skipped: no specialist for rule %s", v.ID, v.RuleID)
				return skipped(v.ID, types.ReasonNoSpecialist), false
			}
			p.log.Warnf("violation %s skipped: planning failed: %v", v.ID, err)
			return skipped(v.ID, types.ReasonPlanningFailed), false
		}

		// Planning → Validating
		validation := p.validator.Validate(instruction)
		for _, w := range validation.Warnings {
			p.log.Warnf("violation %s: %s", v.ID, w)
		}
		if !validation.Valid {
			dErr := safety.NewDestructiveChangeError(instruction)
			p.log.Warnf("violation %s rejected (%s): %v; flagged for review", v.ID, dErr.Code, validation.Errors)
			return skipped(v.ID, types.ReasonDestructive), true
		}

		// Validating → Applying (integrity check runs under the page lock,
		// immediately before mutation, for content fixes).
		outcome, err := p.apply(ctx, input, instruction)
		if err == nil {
			return outcome, false
		}

		var changed *integrity.ContentChangedError
		if errors.As(err, &changed) {
			if attempt < p.cfg.ReplanBudget {
				p.log.Infof("violation %s: content changed since plan time, re-planning (%d/%d)",
					v.ID, attempt+1, p.cfg.ReplanBudget)
				continue // back to Pending
			}
			p.log.Warnf("violation %s skipped: content changed and re-plan budget exhausted", v.ID)
			return skipped(v.ID, types.ReasonContentChanged), false
		}

		var session *SessionError
		if errors.As(err, &session) {
			p.log.Errorf("violation %s: %v", v.ID, err)
			return errored(v.ID, types.ReasonConnectionFailed), false
		}

		p.log.Warnf("violation %s: apply failed: %v", v.ID, err)
		return errored(v.ID, types.ReasonApplyFailed), false
	}
}

// plan dispatches to the registry under the planning timeout. Timeouts are
// indistinguishable from planning failures to the caller.
func (p *Pipeline) plan(ctx context.Context, input types.ViolationInput) (types.FixInstruction, error) {
	planCtx, cancel := context.WithTimeout(ctx, p.cfg.PlanningTimeout)
	defer cancel()
	return p.registry.Dispatch(planCtx, input.Violation, input.Context)
}

// sessionPage opens the shared page exactly once per session. A failed open
// is fatal for the remainder of the session.
func (p *Pipeline) sessionPage(ctx context.Context, url string) (ApplyPage, error) {
	p.pageOnce.Do(func() {
		page, err := p.connector.OpenPage(ctx, url, p.cfg.Viewport)
		if err != nil {
			p.pageErr = err
			return
		}
		p.page = page
	})
	if p.pageErr != nil {
		return nil, &SessionError{Err: p.pageErr}
	}
	return p.page, nil
}

func (p *Pipeline) sessionPageErr() error {
	if p.pageErr != nil {
		return p.pageErr
	}
	return errors.New("connection unavailable")
}

func skipped(violationID, reason string) types.Outcome {
	return types.Outcome{ViolationID: violationID, State: types.StateSkipped, ReasonCode: reason}
}

func errored(violationID, reason string) types.Outcome {
	return types.Outcome{ViolationID: violationID, State: types.StateError, ReasonCode: reason}
}
