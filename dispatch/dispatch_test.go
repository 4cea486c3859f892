package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lguibr/flintbench/logging"
	"github.com/lguibr/flintbench/position"
	"github.com/lguibr/flintbench/timeline"
)

type fakeClient struct {
	commands []string
	blocks   map[position.Position]string
	// sequences, when set for a position, overrides blocks for that
	// position: each call to GetBlock returns the next value in the list,
	// holding on the last value once exhausted.
	sequences map[position.Position][]string
	calls     map[position.Position]int
}

func (f *fakeClient) SendCommand(ctx context.Context, cmd string) error {
	f.commands = append(f.commands, cmd)
	return nil
}

func (f *fakeClient) GetBlock(ctx context.Context, pos position.Position) (string, bool, error) {
	if seq, ok := f.sequences[pos]; ok {
		if f.calls == nil {
			f.calls = map[position.Position]int{}
		}
		i := f.calls[pos]
		if i >= len(seq) {
			i = len(seq) - 1
		}
		f.calls[pos] = i + 1
		return seq[i], true, nil
	}
	b, ok := f.blocks[pos]
	return b, ok, nil
}

func newDispatcher(c Client) *Dispatcher {
	return New(c, logging.Nop(), time.Millisecond, 3, time.Millisecond)
}

func TestDispatchPlace(t *testing.T) {
	c := &fakeClient{}
	d := newDispatcher(c)
	_, err := d.Dispatch(context.Background(), "t", 0, timeline.Action{
		Kind: timeline.ActionPlace, Position: position.New(1, 2, 3), Block: "minecraft:stone",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"setblock 1 2 3 minecraft:stone"}, c.commands)
}

func TestDispatchPlaceEach(t *testing.T) {
	c := &fakeClient{}
	d := newDispatcher(c)
	_, err := d.Dispatch(context.Background(), "t", 0, timeline.Action{
		Kind:      timeline.ActionPlaceEach,
		Positions: []position.Position{position.New(0, 0, 0), position.New(1, 0, 0)},
		Block:     "minecraft:dirt",
	})
	require.NoError(t, err)
	assert.Len(t, c.commands, 2)
}

func TestDispatchFill(t *testing.T) {
	c := &fakeClient{}
	d := newDispatcher(c)
	_, err := d.Dispatch(context.Background(), "t", 0, timeline.Action{
		Kind:   timeline.ActionFill,
		Region: position.Region{Min: position.New(0, 0, 0), Max: position.New(1, 1, 1)},
		Block:  "minecraft:stone",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fill 0 0 0 1 1 1 minecraft:stone"}, c.commands)
}

func TestDispatchRemoveUsesAir(t *testing.T) {
	c := &fakeClient{}
	d := newDispatcher(c)
	_, err := d.Dispatch(context.Background(), "t", 0, timeline.Action{
		Kind:   timeline.ActionRemove,
		Region: position.Region{Min: position.New(0, 0, 0), Max: position.New(1, 1, 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fill 0 0 0 1 1 1 minecraft:air"}, c.commands)
}

func TestDispatchAssertPasses(t *testing.T) {
	pos := position.New(5, 5, 5)
	c := &fakeClient{blocks: map[position.Position]string{pos: "minecraft:stone"}}
	d := newDispatcher(c)
	failure, err := d.Dispatch(context.Background(), "t", 0, timeline.Action{
		Kind: timeline.ActionAssert, Position: pos, Block: "stone",
	})
	require.NoError(t, err)
	assert.Nil(t, failure)
}

// TestDispatchAssertRetriesUntilMatch exercises the polled-read-with-retry
// loop itself: the first reads land before the setblock's effect has
// propagated, and only the last attempt observes the expected block.
func TestDispatchAssertRetriesUntilMatch(t *testing.T) {
	pos := position.New(5, 5, 5)
	c := &fakeClient{sequences: map[position.Position][]string{
		pos: {"minecraft:air", "minecraft:air", "minecraft:stone"},
	}}
	d := newDispatcher(c)
	failure, err := d.Dispatch(context.Background(), "t", 0, timeline.Action{
		Kind: timeline.ActionAssert, Position: pos, Block: "stone",
	})
	require.NoError(t, err)
	assert.Nil(t, failure)
}

func TestDispatchAssertFails(t *testing.T) {
	pos := position.New(5, 5, 5)
	c := &fakeClient{blocks: map[position.Position]string{pos: "minecraft:dirt"}}
	d := newDispatcher(c)
	failure, err := d.Dispatch(context.Background(), "t", 3, timeline.Action{
		Kind: timeline.ActionAssert, Position: pos, Block: "stone",
	})
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, 3, failure.Tick)
	assert.Equal(t, "stone", failure.Expected)
	assert.Equal(t, "minecraft:dirt", failure.Observed)
}

func TestDispatchAssertNoBlockObserved(t *testing.T) {
	c := &fakeClient{blocks: map[position.Position]string{}}
	d := newDispatcher(c)
	failure, err := d.Dispatch(context.Background(), "t", 0, timeline.Action{
		Kind: timeline.ActionAssert, Position: position.New(0, 0, 0), Block: "stone",
	})
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Contains(t, failure.Message, "polling")
}

func TestDispatchAssertStatePasses(t *testing.T) {
	pos := position.New(1, 1, 1)
	c := &fakeClient{blocks: map[position.Position]string{
		pos: "minecraft:redstone_wire[power=7]",
	}}
	d := newDispatcher(c)
	failure, err := d.Dispatch(context.Background(), "t", 2, timeline.Action{
		Kind: timeline.ActionAssertState, Position: pos, Property: "power",
		Values: []string{"0", "7"}, ValueIndex: 1,
	})
	require.NoError(t, err)
	assert.Nil(t, failure)
}

func TestDispatchAssertStateFails(t *testing.T) {
	pos := position.New(1, 1, 1)
	c := &fakeClient{blocks: map[position.Position]string{
		pos: "minecraft:redstone_wire[power=0]",
	}}
	d := newDispatcher(c)
	failure, err := d.Dispatch(context.Background(), "t", 2, timeline.Action{
		Kind: timeline.ActionAssertState, Position: pos, Property: "power",
		Values: []string{"7"}, ValueIndex: 0,
	})
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, "7", failure.Expected)
	assert.Equal(t, "0", failure.Observed)
}

func TestDispatchAssertStateValueIndexOutOfRange(t *testing.T) {
	c := &fakeClient{}
	d := newDispatcher(c)
	failure, err := d.Dispatch(context.Background(), "t", 0, timeline.Action{
		Kind: timeline.ActionAssertState, Position: position.New(0, 0, 0), Property: "power",
		Values: []string{"7"}, ValueIndex: 5,
	})
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Contains(t, failure.Message, "out of range")
}
