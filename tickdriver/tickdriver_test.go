package tickdriver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lguibr/flintbench/internal/chatqueue"
	"github.com/lguibr/flintbench/logging"
)

type fakeClient struct {
	commands []string
	replies  []chatqueue.Message
	idx      int
}

func (f *fakeClient) SendCommand(ctx context.Context, cmd string) error {
	f.commands = append(f.commands, cmd)
	return nil
}

func (f *fakeClient) DrainChat() {}

func (f *fakeClient) RecvChat(ctx context.Context, timeout time.Duration) (*chatqueue.Message, error) {
	if f.idx >= len(f.replies) {
		return nil, context.DeadlineExceeded
	}
	m := f.replies[f.idx]
	f.idx++
	return &m, nil
}

func newDriver(c Client) *Driver {
	return New(c, logging.Nop(), time.Second, time.Second, time.Millisecond, time.Second, 10*time.Millisecond)
}

func TestQueryGameTime(t *testing.T) {
	c := &fakeClient{replies: []chatqueue.Message{{Text: "The time is 1234"}}}
	d := newDriver(c)
	tck, err := d.QueryGameTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1234), tck)
	assert.Equal(t, []string{"time query gametime"}, c.commands)
}

func TestQueryGameTimeTimesOut(t *testing.T) {
	c := &fakeClient{}
	d := newDriver(c)
	_, err := d.QueryGameTime(context.Background())
	assert.ErrorIs(t, err, ErrGameTimeQueryTimeout)
}

func TestStepTicksAdvancesClock(t *testing.T) {
	c := &fakeClient{replies: []chatqueue.Message{
		{Text: "The time is 10"},
		{Text: "The time is 11"},
	}}
	d := newDriver(c)
	err := d.StepTicks(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, c.commands, "tick step")
}

func TestSprintTicksParsesMsPerTick(t *testing.T) {
	c := &fakeClient{replies: []chatqueue.Message{
		{Text: "The time is 100"},
		{Text: "Sprint completed with 20 ticks per second, or 50.0 ms per tick"},
		{Text: "The time is 105"},
	}}
	d := newDriver(c)
	wait, err := d.SprintTicks(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, wait)
	assert.Contains(t, c.commands, "tick sprint 4")
}

func TestSprintTicksFallsBackOnUnparsedCompletion(t *testing.T) {
	c := &fakeClient{replies: []chatqueue.Message{
		{Text: "The time is 100"},
		{Text: "The time is 105"},
	}}
	d := New(c, logging.Nop(), time.Second, time.Second, time.Millisecond, 50*time.Millisecond, 10*time.Millisecond)
	wait, err := d.SprintTicks(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, wait)
}

func TestSprintTicksZeroIsNoop(t *testing.T) {
	c := &fakeClient{}
	d := newDriver(c)
	wait, err := d.SprintTicks(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, wait)
	assert.Empty(t, c.commands)
}

func TestExtractGameTime(t *testing.T) {
	v, ok := extractGameTime("The time is 42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), v)

	_, ok = extractGameTime("nothing here")
	assert.False(t, ok)
}
