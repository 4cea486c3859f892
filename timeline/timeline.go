// Package timeline holds the test specification and action data model and
// implements the timeline aggregator: merging each test's own tick-indexed
// action list into one global, deterministically ordered schedule the
// parallel executor drives tick by tick.
package timeline

import (
	"sort"

	"github.com/lguibr/flintbench/position"
)

// ActionKind identifies what a timeline entry's action does.
type ActionKind string

const (
	ActionPlace       ActionKind = "place"
	ActionPlaceEach   ActionKind = "place_each"
	ActionFill        ActionKind = "fill"
	ActionRemove      ActionKind = "remove"
	ActionAssert      ActionKind = "assert"
	ActionAssertState ActionKind = "assert_state"
)

// AssertCheck is one (position, expected block) pair inside an Assert
// action's check list. The dispatcher evaluates these in order and stops
// at the first failing check, leaving the rest unevaluated.
type AssertCheck struct {
	Position position.Position
	Block    string
}

// Action is a single scheduled operation, local to the test's own
// coordinate space; the dispatcher translates it into world space using
// the test's allocated offset before sending it to the server.
type Action struct {
	Kind ActionKind

	// Place, AssertState: the single position the action targets.
	Position position.Position
	// PlaceEach
	Positions []position.Position
	// Fill, Remove
	Region position.Region

	// Place, PlaceEach, Fill: the target block to place.
	Block string

	// Assert: the ordered list of (position, expected block) checks.
	// A single-check Assert may omit Checks and set Position/Block
	// instead; Dispatch treats that as a one-element check list.
	Checks []AssertCheck

	// AssertState: which rendered property to read, and the expected
	// value at each tick this action recurs on (ValueIndex selects
	// which one).
	Property   string
	Values     []string
	ValueIndex int
}

// TimelineEntry schedules an Action at a tick (or, for a parametric
// AssertState action, a list of ticks) local to its own test's timeline,
// tick 0 being the test's first tick after setup.
//
// Most entries use Tick alone. An entry whose tick-spec materialises to
// more than one tick (only AssertState carries a per-tick value list)
// sets Ticks instead; Tick is then ignored and BuildAggregate emits one
// triple per tick in Ticks, with Action.ValueIndex set to that tick's
// 0-based position in the list.
type TimelineEntry struct {
	Tick   int
	Ticks  []int
	Action Action
}

// TestSpec is a single test's full definition: its own local timeline,
// independent of every other test's, plus the region cleared before and
// after it runs and the ticks at which it wants the parallel executor to
// pause for an operator decision.
type TestSpec struct {
	Name          string
	Tags          []string
	CleanupRegion position.Region
	Timeline      []TimelineEntry
	Breakpoints   []int
}

// MaxTick returns the highest tick referenced by spec's timeline, or 0 if
// the timeline is empty.
func (spec TestSpec) MaxTick() int {
	max := 0
	for _, e := range spec.Timeline {
		for _, t := range e.ticks() {
			if t > max {
				max = t
			}
		}
	}
	return max
}

// ticks returns the one or more ticks e materialises to: Ticks if set,
// otherwise the single Tick value.
func (e TimelineEntry) ticks() []int {
	if len(e.Ticks) > 0 {
		return e.Ticks
	}
	return []int{e.Tick}
}

// ScheduledAction is one TimelineEntry merged into the global aggregate,
// tagged with the test it belongs to.
type ScheduledAction struct {
	Tick     int
	TestName string
	Action   Action
}

// Aggregate is the global, tick-ordered merge of every test's timeline.
type Aggregate struct {
	Entries []ScheduledAction
	// MaxTickPerTest records each test's own MaxTick. The executor does
	// not read it; it calls TestSpec.MaxTick directly to decide when an
	// individual test's timeline is exhausted.
	MaxTickPerTest map[string]int
	// Breakpoints is the union of every test's breakpoint ticks.
	Breakpoints map[int]bool
}

// BuildAggregate merges tests' timelines into one schedule, sorted first
// by tick and, within a tick, by the tests' order in the input slice, so
// two runs given the same input produce the same dispatch order. An entry
// whose tick-spec materialises to multiple ticks (TimelineEntry.Ticks)
// emits one triple per tick, its Action.ValueIndex set to that tick's
// position in the list.
func BuildAggregate(tests []TestSpec) Aggregate {
	order := make(map[string]int, len(tests))
	agg := Aggregate{
		MaxTickPerTest: make(map[string]int, len(tests)),
		Breakpoints:    make(map[int]bool),
	}

	for i, spec := range tests {
		order[spec.Name] = i
		agg.MaxTickPerTest[spec.Name] = spec.MaxTick()
		for _, bp := range spec.Breakpoints {
			agg.Breakpoints[bp] = true
		}
		for _, e := range spec.Timeline {
			ticks := e.ticks()
			for valueIndex, tick := range ticks {
				action := e.Action
				if len(e.Ticks) > 0 {
					action.ValueIndex = valueIndex
				}
				agg.Entries = append(agg.Entries, ScheduledAction{
					Tick:     tick,
					TestName: spec.Name,
					Action:   action,
				})
			}
		}
	}

	sort.SliceStable(agg.Entries, func(i, j int) bool {
		a, b := agg.Entries[i], agg.Entries[j]
		if a.Tick != b.Tick {
			return a.Tick < b.Tick
		}
		return order[a.TestName] < order[b.TestName]
	})

	return agg
}

// AtTick returns every scheduled action whose Tick equals tick, in
// aggregate order.
func (a Aggregate) AtTick(tick int) []ScheduledAction {
	var out []ScheduledAction
	for _, e := range a.Entries {
		if e.Tick == tick {
			out = append(out, e)
		}
	}
	return out
}

// NextEventTick returns the smallest tick strictly greater than from that
// either has a scheduled entry or is a breakpoint, and false if no such
// tick exists. The parallel executor uses this to decide how far it can
// sprint before it must stop and dispatch (or gate) again.
func (a Aggregate) NextEventTick(from int) (int, bool) {
	found := false
	next := 0
	consider := func(t int) {
		if t > from && (!found || t < next) {
			next = t
			found = true
		}
	}
	for _, e := range a.Entries {
		consider(e.Tick)
	}
	for bp := range a.Breakpoints {
		consider(bp)
	}
	return next, found
}

// MaxTick returns the highest tick scheduled across every test, or 0 if
// the aggregate is empty.
func (a Aggregate) MaxTick() int {
	max := 0
	for _, e := range a.Entries {
		if e.Tick > max {
			max = e.Tick
		}
	}
	return max
}
