// Package executor implements the parallel executor: driving every test's
// timeline forward on one shared game clock, dispatching each test's
// actions at its own offset, and reporting what passed and failed,
// grounded on this codebase's run_tests_parallel main loop.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lguibr/flintbench/breakpoint"
	"github.com/lguibr/flintbench/dispatch"
	"github.com/lguibr/flintbench/offsets"
	"github.com/lguibr/flintbench/position"
	"github.com/lguibr/flintbench/timeline"
)

// Client is the subset of transport.Client the executor needs directly,
// beyond what it hands to its Dispatcher and Driver collaborators.
type Client interface {
	SendCommand(ctx context.Context, cmd string) error
}

// Driver is the subset of tickdriver.Driver the executor depends on.
type Driver interface {
	QueryGameTime(ctx context.Context) (int64, error)
	StepTicks(ctx context.Context, n int) error
	SprintTicks(ctx context.Context, n int) (time.Duration, error)
}

// Dispatcher is the subset of dispatch.Dispatcher the executor depends on.
type Dispatcher interface {
	Dispatch(ctx context.Context, testName string, tick int, action timeline.Action) (*dispatch.FailureDetail, error)
}

// Gate is the subset of a breakpoint gate the executor depends on.
type Gate interface {
	Wait(ctx context.Context) (breakpoint.Decision, error)
}

// CleanupMargin is the half-extent, in blocks, of the default working
// volume cleared around a test's offset before it runs and after it
// completes.
const CleanupMargin = 24

// TestResult is one test's final verdict.
type TestResult struct {
	Name     string
	Tags     []string
	Passed   bool
	Failures []dispatch.FailureDetail
}

// TestRunOutput is the full parallel run's report.
type TestRunOutput struct {
	Results  []TestResult
	Failures []dispatch.FailureDetail
}

// Executor drives a batch of tests' timelines to completion.
type Executor struct {
	client     Client
	driver     Driver
	dispatcher Dispatcher
	log        zerolog.Logger

	OffsetGrid      offsets.GridShape
	ChunkSize       int
	FailFast        bool
	BreakAfterSetup bool
	CleanupDelay    time.Duration
	// MinRetryDelay is the minimum wall-clock pause after every tick
	// advance, absorbing remaining state propagation even when the
	// driver reports a shorter (or zero) elapsed time.
	MinRetryDelay time.Duration
	// ActionDelay is the pause after every dispatched action, the only
	// backpressure between successive commands sent to the server.
	ActionDelay time.Duration
}

// New builds an Executor.
func New(client Client, driver Driver, dispatcher Dispatcher, log zerolog.Logger) *Executor {
	return &Executor{
		client:        client,
		driver:        driver,
		dispatcher:    dispatcher,
		log:           log,
		OffsetGrid:    offsets.DefaultGrid,
		ChunkSize:     100,
		CleanupDelay:  200 * time.Millisecond,
		MinRetryDelay: 200 * time.Millisecond,
		ActionDelay:   100 * time.Millisecond,
	}
}

// Run drives every test in tests to completion, chunking them if there
// are more than the executor's ChunkSize, and returns the combined
// output across every chunk.
func (e *Executor) Run(ctx context.Context, tests []timeline.TestSpec, gate Gate) (TestRunOutput, error) {
	var out TestRunOutput
	chunks := offsets.Chunk(tests, e.ChunkSize)
	if len(chunks) > 1 {
		e.log.Info().Int("chunks", len(chunks)).Int("chunk_size", e.ChunkSize).Msg("executor: splitting run into chunks")
	}
	for _, chunk := range chunks {
		chunkOut, err := e.runChunk(ctx, chunk, gate)
		if err != nil {
			return out, err
		}
		out.Results = append(out.Results, chunkOut.Results...)
		out.Failures = append(out.Failures, chunkOut.Failures...)
	}
	return out, nil
}

type testState struct {
	spec    timeline.TestSpec
	offset  position.Position
	cleaned bool
}

// defaultCleanupRegion reports whether r is the Region zero value, meaning
// the test spec never set its own cleanup region, in which case the
// executor falls back to a fixed margin around the test's offset.
func defaultCleanupRegion(r position.Region) bool {
	return r == (position.Region{})
}

func (e *Executor) cleanupRegionFor(st *testState) position.Region {
	if defaultCleanupRegion(st.spec.CleanupRegion) {
		min := st.offset.Add(position.New(-CleanupMargin, -CleanupMargin, -CleanupMargin))
		max := st.offset.Add(position.New(CleanupMargin, CleanupMargin, CleanupMargin))
		return position.Region{Min: min, Max: max}
	}
	return st.spec.CleanupRegion.Offset(st.offset)
}

func (e *Executor) runChunk(ctx context.Context, tests []timeline.TestSpec, gate Gate) (TestRunOutput, error) {
	names := make([]string, len(tests))
	states := make(map[string]*testState, len(tests))
	for i, spec := range tests {
		names[i] = spec.Name
		states[spec.Name] = &testState{
			spec:   spec,
			offset: offsets.DefaultOffsetFor(i, e.OffsetGrid),
		}
	}
	agg := timeline.BuildAggregate(tests)
	failures := map[string][]dispatch.FailureDetail{}

	for _, name := range names {
		e.cleanRegion(ctx, e.cleanupRegionFor(states[name]))
	}

	if err := e.client.SendCommand(ctx, "tick freeze"); err != nil {
		return TestRunOutput{}, fmt.Errorf("executor: freeze: %w", err)
	}
	defer func() {
		_ = e.client.SendCommand(ctx, "tick unfreeze")
		for _, name := range names {
			st := states[name]
			if !st.cleaned {
				e.cleanRegion(ctx, e.cleanupRegionFor(st))
				st.cleaned = true
			}
		}
	}()

	if e.BreakAfterSetup && gate != nil {
		if _, err := gate.Wait(ctx); err != nil {
			e.log.Warn().Err(err).Msg("executor: breakpoint gate closed during setup break, continuing")
		}
	}

	current := 0
	maxTick := agg.MaxTick()
	stepping := false
	for current <= maxTick {
		for _, entry := range agg.AtTick(current) {
			st, ok := states[entry.TestName]
			if !ok {
				continue
			}
			action := offsetAction(entry.Action, st.offset)
			failure, err := e.dispatcher.Dispatch(ctx, entry.TestName, current, action)
			if e.ActionDelay > 0 {
				time.Sleep(e.ActionDelay)
			}
			if err != nil {
				e.log.Warn().Err(err).Str("test", entry.TestName).Int("tick", current).Msg("executor: action dispatch error")
				continue
			}
			if failure != nil {
				failures[entry.TestName] = append(failures[entry.TestName], *failure)
				if e.FailFast {
					e.log.Info().Str("test", entry.TestName).Msg("executor: fail-fast triggered")
					return BuildOutput(names, states, failures), nil
				}
			}
		}

		for _, name := range names {
			st := states[name]
			if !st.cleaned && current > st.spec.MaxTick() {
				e.cleanRegion(ctx, e.cleanupRegionFor(st))
				st.cleaned = true
			}
		}

		// A breakpoint fires at the end of the tick before the next
		// advancement. Stepping mode, once entered, gates every tick
		// until the operator says continue.
		if gate != nil && (agg.Breakpoints[current] || stepping) {
			decision, err := gate.Wait(ctx)
			if err != nil {
				e.log.Warn().Err(err).Msg("executor: breakpoint gate closed mid-run, continuing without further pauses")
				gate = nil
			} else {
				stepping = decision == breakpoint.DecisionStep
			}
		}

		eventTick, ok := agg.NextEventTick(current)
		if !ok {
			break
		}

		// In stepping mode the gate must see every tick, so advance one
		// tick at a time regardless of how far away the next event is.
		// Otherwise sprint straight to the next tick that matters.
		next := eventTick
		if stepping {
			next = current + 1
		}
		advance := next - current

		var elapsed time.Duration
		if advance == 1 {
			if err := e.driver.StepTicks(ctx, 1); err != nil {
				return TestRunOutput{}, fmt.Errorf("executor: tick step: %w", err)
			}
		} else {
			el, err := e.driver.SprintTicks(ctx, advance)
			if err != nil {
				return TestRunOutput{}, fmt.Errorf("executor: tick sprint: %w", err)
			}
			elapsed = el
		}
		if elapsed < e.MinRetryDelay {
			elapsed = e.MinRetryDelay
		}
		time.Sleep(elapsed)
		current = next
	}

	return BuildOutput(names, states, failures), nil
}

func (e *Executor) cleanRegion(ctx context.Context, region position.Region) {
	_, err := e.dispatcher.Dispatch(ctx, "", 0, timeline.Action{
		Kind:   timeline.ActionRemove,
		Region: region,
	})
	if err != nil {
		e.log.Warn().Err(err).Msg("executor: region cleanup failed")
	}
	if e.CleanupDelay > 0 {
		time.Sleep(e.CleanupDelay)
	}
}

func offsetAction(a timeline.Action, offset position.Position) timeline.Action {
	out := a
	out.Position = a.Position.Add(offset)
	if len(a.Positions) > 0 {
		out.Positions = make([]position.Position, len(a.Positions))
		for i, p := range a.Positions {
			out.Positions[i] = p.Add(offset)
		}
	}
	if len(a.Checks) > 0 {
		out.Checks = make([]timeline.AssertCheck, len(a.Checks))
		for i, c := range a.Checks {
			out.Checks[i] = timeline.AssertCheck{Position: c.Position.Add(offset), Block: c.Block}
		}
	}
	if a.Kind == timeline.ActionFill || a.Kind == timeline.ActionRemove {
		out.Region = a.Region.Offset(offset)
	}
	return out
}

// BuildOutput assembles a TestRunOutput from the final per-test state and
// accumulated failures, in the same order tests were given to Run. It's a
// pure function so result reporting can be tested without driving a whole
// run.
func BuildOutput(names []string, states map[string]*testState, failures map[string][]dispatch.FailureDetail) TestRunOutput {
	var out TestRunOutput
	for _, name := range names {
		st := states[name]
		fails := failures[name]
		out.Results = append(out.Results, TestResult{
			Name:     name,
			Tags:     st.spec.Tags,
			Passed:   len(fails) == 0,
			Failures: fails,
		})
		out.Failures = append(out.Failures, fails...)
	}
	return out
}

