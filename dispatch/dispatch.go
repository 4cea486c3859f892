// Package dispatch implements the action dispatcher: translating a single
// timeline action, already offset into world space, into the server
// commands that carry it out, grounded on this codebase's execute_action
// switch over Place/PlaceEach/Fill/Remove/Assert/AssertState.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lguibr/flintbench/block"
	"github.com/lguibr/flintbench/position"
	"github.com/lguibr/flintbench/timeline"
)

// Client is the subset of transport.Client the dispatcher depends on.
type Client interface {
	SendCommand(ctx context.Context, cmd string) error
	GetBlock(ctx context.Context, pos position.Position) (string, bool, error)
}

// FailureDetail records why an Assert or AssertState action did not pass,
// and the world position it failed at, so a failure can be pinpointed
// without re-reading the timeline that produced it.
type FailureDetail struct {
	TestName string
	Tick     int
	Kind     timeline.ActionKind
	Message  string
	Expected string
	Observed string
	Position position.Position
}

// Dispatcher carries out timeline actions against a connected Client.
type Dispatcher struct {
	client Client
	log    zerolog.Logger

	PlaceEachDelay    time.Duration
	BlockPollAttempts int
	BlockPollDelay    time.Duration
}

// New builds a Dispatcher.
func New(client Client, log zerolog.Logger, placeEachDelay time.Duration, blockPollAttempts int, blockPollDelay time.Duration) *Dispatcher {
	return &Dispatcher{
		client:            client,
		log:               log,
		PlaceEachDelay:    placeEachDelay,
		BlockPollAttempts: blockPollAttempts,
		BlockPollDelay:    blockPollDelay,
	}
}

// Dispatch carries out action, whose positions are already in world space
// (the caller applies the test's offset before calling Dispatch), returning
// a non-nil FailureDetail when the action is an assertion that failed.
func (d *Dispatcher) Dispatch(ctx context.Context, testName string, tick int, action timeline.Action) (*FailureDetail, error) {
	switch action.Kind {
	case timeline.ActionPlace:
		return nil, d.client.SendCommand(ctx, fmt.Sprintf("setblock %s %s", action.Position, action.Block))

	case timeline.ActionPlaceEach:
		for i, pos := range action.Positions {
			if err := d.client.SendCommand(ctx, fmt.Sprintf("setblock %s %s", pos, action.Block)); err != nil {
				return nil, err
			}
			if i < len(action.Positions)-1 && d.PlaceEachDelay > 0 {
				time.Sleep(d.PlaceEachDelay)
			}
		}
		return nil, nil

	case timeline.ActionFill:
		return nil, d.client.SendCommand(ctx, fmt.Sprintf("fill %s %s %s", action.Region.Min, action.Region.Max, action.Block))

	case timeline.ActionRemove:
		return nil, d.client.SendCommand(ctx, fmt.Sprintf("fill %s %s minecraft:air", action.Region.Min, action.Region.Max))

	case timeline.ActionAssert:
		return d.assert(ctx, testName, tick, action)

	case timeline.ActionAssertState:
		return d.assertState(ctx, testName, tick, action)

	default:
		return nil, fmt.Errorf("dispatch: unknown action kind %q", action.Kind)
	}
}

// pollBlock polls pos up to BlockPollAttempts times at BlockPollDelay
// intervals, calling match against every successfully observed value and
// stopping as soon as one satisfies it — the polled-read-with-retry loop
// the base specification requires, where a read that doesn't yet match
// what the caller is checking for is retried rather than taken as final.
// read reports whether any attempt ever produced a value at all (as
// opposed to every attempt failing outright), so a caller can tell "never
// read the block" apart from "read it, but it never matched" when neither
// attempt resulted in a match.
func (d *Dispatcher) pollBlock(ctx context.Context, pos position.Position, match func(observed string) bool) (observed string, read bool, matched bool) {
	for attempt := 0; attempt < d.BlockPollAttempts; attempt++ {
		val, ok, err := d.client.GetBlock(ctx, pos)
		if err == nil && ok {
			read = true
			observed = val
			if match(val) {
				return val, true, true
			}
		}
		if attempt < d.BlockPollAttempts-1 && d.BlockPollDelay > 0 {
			time.Sleep(d.BlockPollDelay)
		}
	}
	return observed, read, false
}

// assert evaluates action's check list in order, stopping at the first
// failing check; the remaining checks are AssertionSkipped, per the base
// specification's "never aborts mid-list except on a failing check" rule.
func (d *Dispatcher) assert(ctx context.Context, testName string, tick int, action timeline.Action) (*FailureDetail, error) {
	checks := action.Checks
	if len(checks) == 0 {
		checks = []timeline.AssertCheck{{Position: action.Position, Block: action.Block}}
	}

	for _, check := range checks {
		observed, read, matched := d.pollBlock(ctx, check.Position, func(o string) bool {
			return block.Matches(check.Block, o)
		})
		if !read {
			return &FailureDetail{
				TestName: testName, Tick: tick, Kind: action.Kind,
				Message: "could not read block state after polling", Expected: check.Block,
				Position: check.Position,
			}, nil
		}
		if matched {
			continue
		}
		return &FailureDetail{
			TestName: testName, Tick: tick, Kind: action.Kind,
			Message:  "observed block did not match expected block",
			Expected: check.Block,
			Observed: observed,
			Position: check.Position,
		}, nil
	}
	return nil, nil
}

func (d *Dispatcher) assertState(ctx context.Context, testName string, tick int, action timeline.Action) (*FailureDetail, error) {
	if action.ValueIndex < 0 || action.ValueIndex >= len(action.Values) {
		return &FailureDetail{
			TestName: testName, Tick: tick, Kind: action.Kind,
			Message:  fmt.Sprintf("value index %d out of range for %d expected values", action.ValueIndex, len(action.Values)),
			Position: action.Position,
		}, nil
	}
	expected := action.Values[action.ValueIndex]

	var lastValue string
	var propertyPresent bool
	observed, read, matched := d.pollBlock(ctx, action.Position, func(o string) bool {
		v, present := block.PropertyValue(o, action.Property)
		if !present {
			return false
		}
		propertyPresent = true
		lastValue = v
		return strings.Contains(v, expected) || strings.Contains(expected, v)
	})
	if !read {
		return &FailureDetail{
			TestName: testName, Tick: tick, Kind: action.Kind,
			Message: "could not read block state after polling", Expected: expected,
			Position: action.Position,
		}, nil
	}
	if matched {
		return nil, nil
	}
	if !propertyPresent {
		return &FailureDetail{
			TestName: testName, Tick: tick, Kind: action.Kind,
			Message:  fmt.Sprintf("property %q not present on observed block", action.Property),
			Expected: expected, Observed: observed,
			Position: action.Position,
		}, nil
	}
	return &FailureDetail{
		TestName: testName, Tick: tick, Kind: action.Kind,
		Message:  fmt.Sprintf("property %q value did not match", action.Property),
		Expected: expected, Observed: lastValue,
		Position: action.Position,
	}, nil
}
