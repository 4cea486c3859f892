package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lguibr/flintbench/position"
)

func spec(name string, ticks ...int) TestSpec {
	s := TestSpec{Name: name}
	for _, t := range ticks {
		s.Timeline = append(s.Timeline, TimelineEntry{
			Tick:   t,
			Action: Action{Kind: ActionPlace, Position: position.New(0, 0, 0), Block: "minecraft:stone"},
		})
	}
	return s
}

func TestBuildAggregateOrdersByTickThenInputOrder(t *testing.T) {
	tests := []TestSpec{spec("b", 5, 0), spec("a", 0, 3)}
	agg := BuildAggregate(tests)

	assert.Len(t, agg.Entries, 4)
	assert.Equal(t, 0, agg.Entries[0].Tick)
	assert.Equal(t, "b", agg.Entries[0].TestName)
	assert.Equal(t, 0, agg.Entries[1].Tick)
	assert.Equal(t, "a", agg.Entries[1].TestName)
	assert.Equal(t, 3, agg.Entries[2].Tick)
	assert.Equal(t, 5, agg.Entries[3].Tick)
}

func TestMaxTickPerTest(t *testing.T) {
	agg := BuildAggregate([]TestSpec{spec("a", 0, 3), spec("b")})
	assert.Equal(t, 3, agg.MaxTickPerTest["a"])
	assert.Equal(t, 0, agg.MaxTickPerTest["b"])
}

func TestAtTick(t *testing.T) {
	agg := BuildAggregate([]TestSpec{spec("a", 2), spec("b", 2), spec("c", 3)})
	actions := agg.AtTick(2)
	assert.Len(t, actions, 2)
}

func TestNextEventTick(t *testing.T) {
	agg := BuildAggregate([]TestSpec{spec("a", 0, 5, 10)})

	next, ok := agg.NextEventTick(0)
	assert.True(t, ok)
	assert.Equal(t, 5, next)

	next, ok = agg.NextEventTick(5)
	assert.True(t, ok)
	assert.Equal(t, 10, next)

	_, ok = agg.NextEventTick(10)
	assert.False(t, ok)
}

func TestAggregateMaxTick(t *testing.T) {
	agg := BuildAggregate([]TestSpec{spec("a", 0, 5), spec("b", 20)})
	assert.Equal(t, 20, agg.MaxTick())
}

func TestEmptyAggregateMaxTick(t *testing.T) {
	agg := BuildAggregate(nil)
	assert.Equal(t, 0, agg.MaxTick())
}
