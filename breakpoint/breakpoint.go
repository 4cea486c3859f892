// Package breakpoint implements the breakpoint gate: pausing the parallel
// executor's tick loop until an operator says to advance one tick or run
// to completion, grounded on this codebase's wait_for_step chat/stdin
// prompt loop.
package breakpoint

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/lguibr/flintbench/internal/chatqueue"
)

// Decision is the operator's answer to a breakpoint prompt.
type Decision int

const (
	DecisionContinue Decision = iota
	DecisionStep
)

// ErrGateClosed is returned by StdinGate.Wait when its reader reaches EOF
// before a decision arrived. ChatGate.Wait does not return it: a dropped
// chat connection is not detected, and the chat gate keeps polling until
// its context is done.
var ErrGateClosed = errors.New("breakpoint: input closed before a decision was made")

// ChatClient is the subset of transport.Client a chat-mode gate needs.
type ChatClient interface {
	SendCommand(ctx context.Context, cmd string) error
	RecvChat(ctx context.Context, timeout time.Duration) (*chatqueue.Message, error)
}

// advisoryText is the prompt the gate broadcasts while waiting; any chat
// message carrying this text is the bot's own echo of it, not an answer.
const advisoryText = "Waiting for step/continue..."

// ChatGate prompts for a decision over the connected bot's chat, ignoring
// the prompt message the bot itself sends so it never misreads its own
// echo as an answer.
type ChatGate struct {
	client  ChatClient
	selfTag string
	poll    time.Duration
}

// NewChatGate builds a ChatGate. selfTag is the bot's own account name; it
// is stored but not consulted by Wait, which recognises the bot's own
// echoed prompt by its text alone.
func NewChatGate(client ChatClient, selfTag string, poll time.Duration) *ChatGate {
	return &ChatGate{client: client, selfTag: selfTag, poll: poll}
}

// Wait blocks until the operator types a step or continue decision in
// chat. Chat already queued before the prompt is not drained and is read
// as a possible answer; lines that carry no decision are skipped.
func (g *ChatGate) Wait(ctx context.Context) (Decision, error) {
	if err := g.client.SendCommand(ctx, "say "+advisoryText); err != nil {
		return DecisionContinue, err
	}

	for {
		if ctx.Err() != nil {
			return DecisionContinue, ctx.Err()
		}
		msg, err := g.client.RecvChat(ctx, g.poll)
		if err != nil {
			continue
		}
		if strings.Contains(msg.Text, advisoryText) {
			continue
		}
		if d, ok := parseDecision(msg.Text); ok {
			return d, nil
		}
	}
}

// StdinGate prompts for a decision by reading a line from r.
type StdinGate struct {
	reader *bufio.Reader
}

// NewStdinGate builds a StdinGate reading from r (typically os.Stdin).
func NewStdinGate(r io.Reader) *StdinGate {
	return &StdinGate{reader: bufio.NewReader(r)}
}

// Wait blocks until a line is read from the underlying reader. Any line
// other than a recognised step token is treated as continue, unlike the
// chat gate, which skips lines without a decision and keeps waiting.
func (g *StdinGate) Wait(ctx context.Context) (Decision, error) {
	line, err := g.reader.ReadString('\n')
	if err != nil && line == "" {
		if errors.Is(err, io.EOF) {
			return DecisionContinue, ErrGateClosed
		}
		return DecisionContinue, err
	}
	if d, ok := parseDecision(line); ok {
		return d, nil
	}
	return DecisionContinue, nil
}

// parseDecision tokenises the trimmed, lower-cased message on whitespace
// and inspects only the last token, so a sentence like "ok let's step"
// still resolves to a step decision.
func parseDecision(text string) (Decision, bool) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) == 0 {
		return DecisionContinue, false
	}
	last := fields[len(fields)-1]
	switch last {
	case "s", "step":
		return DecisionStep, true
	case "c", "continue":
		return DecisionContinue, true
	default:
		return DecisionContinue, false
	}
}
