// Package transport implements the bot client adapter: the one piece of
// the harness that actually talks to the game server, over the
// administrative websocket connection the rest of this codebase's wire
// code is grounded on. Everything above this package only ever sees the
// Client's method set, never the underlying connection, so tests can
// substitute a fake server without touching a single other package.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/lguibr/flintbench/block"
	"github.com/lguibr/flintbench/internal/chatqueue"
	"github.com/lguibr/flintbench/position"
)

var (
	// ErrNotConnected is returned by any Client method called before
	// Connect has succeeded or after Close.
	ErrNotConnected = errors.New("transport: not connected")
	// ErrConnectTimeout is returned when the server never reaches a
	// ready, playable state within the configured wait window.
	ErrConnectTimeout = errors.New("transport: timed out waiting for server readiness")
	// ErrChatTimeout is returned by RecvChat when no message arrives
	// before the deadline.
	ErrChatTimeout = errors.New("transport: timed out waiting for chat")
	// ErrGameTimeQueryTimeout names a missing "The time is" response. No
	// function in this package returns it: WaitReady reports a missing
	// response as ErrConnectTimeout, and tickdriver.QueryGameTime returns
	// tickdriver.ErrGameTimeQueryTimeout.
	ErrGameTimeQueryTimeout = errors.New("transport: timed out waiting for gametime response")
)

// Conn abstracts the underlying wire connection down to what the adapter
// actually needs, the way this codebase's player-connection interface
// abstracts a socket down to ReadWriteCloser plus a remote address — it
// lets tests hand the adapter an in-process pipe instead of a real socket.
type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
}

// Dialer opens a Conn to endpoint. The production implementation dials a
// real websocket; tests inject one that connects to an in-memory fake
// server instead.
type Dialer func(ctx context.Context, endpoint string) (Conn, error)

// DialWebsocket is the production Dialer, opening a websocket connection
// to endpoint and using it as both the command channel and the chat feed.
func DialWebsocket(ctx context.Context, endpoint string) (Conn, error) {
	origin := "http://localhost/"
	cfg, err := websocket.NewConfig(endpoint, origin)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", endpoint, err)
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", endpoint, err)
	}
	return conn, nil
}

// Client is a connected bot's command-and-chat interface to the game
// server.
type Client struct {
	log     zerolog.Logger
	dial    Dialer
	conn    Conn
	chat    *chatqueue.Queue
	mu      sync.Mutex
	writeMu sync.Mutex
	wg      sync.WaitGroup
	stop    chan struct{}
	ready   bool
}

// New builds a Client that uses dial to establish its connection. Pass
// DialWebsocket for production use.
func New(log zerolog.Logger, dial Dialer) *Client {
	return &Client{log: log, dial: dial, chat: chatqueue.New()}
}

// Connect opens the connection and starts the background read loop that
// feeds incoming chat lines into the client's chat queue. It blocks until
// the dial succeeds; readiness polling (waiting for the server to reach a
// playable state) is the caller's responsibility via WaitReady, mirroring
// the adapter's own staged connect/wait-for-ready/wait-for-world-sync
// sequence.
func (c *Client) Connect(ctx context.Context, endpoint string) error {
	conn, err := c.dial(ctx, endpoint)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.stop = make(chan struct{})
	c.ready = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop()
	return nil
}

// WaitReady blocks until the server has reached a playable state, bounded
// by playingStateWait, then sleeps worldSyncDelay to let chunk data it just
// sent settle before any command relies on it. This admin wire protocol has
// no literal handshake-complete/playing-state pair of signals the way a
// full game client sees them: Connect's successful dial already stands in
// for handshake-complete, and here a gametime query/response round trip
// stands in for the playing-state signal, since the server only answers it
// once the world is actually ticking.
func (c *Client) WaitReady(ctx context.Context, playingStateWait, worldSyncDelay time.Duration) error {
	cctx, cancel := context.WithTimeout(ctx, playingStateWait)
	defer cancel()

	c.DrainChat()
	sent := make(chan error, 1)
	go func() { sent <- c.SendCommand(cctx, "time query gametime") }()
	select {
	case err := <-sent:
		if err != nil {
			return err
		}
	case <-cctx.Done():
		return ErrConnectTimeout
	}
	for {
		if cctx.Err() != nil {
			return ErrConnectTimeout
		}
		msg, err := c.RecvChat(cctx, 500*time.Millisecond)
		if err != nil {
			continue
		}
		if strings.Contains(msg.Text, "The time is") {
			break
		}
	}

	if worldSyncDelay > 0 {
		time.Sleep(worldSyncDelay)
	}
	return nil
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	defer c.chat.Close()

	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if line != "" {
				sender, text := parseChatLine(line)
				c.chat.Push(chatqueue.Message{Sender: sender, Text: text})
			}
			if !c.isStopping() {
				c.log.Debug().Err(err).Msg("transport: read loop exiting")
			}
			return
		}
		sender, text := parseChatLine(line)
		c.chat.Push(chatqueue.Message{Sender: sender, Text: text})
	}
}

func (c *Client) isStopping() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// parseChatLine extracts a "<sender> text" prefix if present, the way a
// vanilla chat line is rendered; lines with no such prefix (server
// broadcasts, command feedback) come back with an empty sender.
func parseChatLine(line string) (sender, text string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.HasPrefix(line, "<") {
		if end := strings.Index(line, ">"); end > 0 {
			return line[1:end], strings.TrimSpace(line[end+1:])
		}
	}
	return "", line
}

// Close shuts down the read loop and underlying connection. Safe to call
// more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.ready {
		c.mu.Unlock()
		return nil
	}
	c.ready = false
	stop := c.stop
	conn := c.conn
	c.mu.Unlock()

	if stop != nil {
		select {
		case <-stop:
		default:
			close(stop)
		}
	}
	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.wg.Wait()
	return err
}

// SendCommand issues cmd as a slash command, the way the bot prefixes
// every outgoing console command with "/".
func (c *Client) SendCommand(ctx context.Context, cmd string) error {
	c.mu.Lock()
	conn := c.conn
	ready := c.ready
	c.mu.Unlock()
	if !ready || conn == nil {
		return ErrNotConnected
	}
	if !strings.HasPrefix(cmd, "/") {
		cmd = "/" + cmd
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := conn.Write([]byte(cmd + "\n"))
	return err
}

// RecvChat waits for the next chat message, up to timeout.
func (c *Client) RecvChat(ctx context.Context, timeout time.Duration) (*chatqueue.Message, error) {
	c.mu.Lock()
	ready := c.ready
	c.mu.Unlock()
	if !ready {
		return nil, ErrNotConnected
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	msg, ok := c.chat.Pop(cctx)
	if !ok {
		return nil, ErrChatTimeout
	}
	return &msg, nil
}

// DrainChat discards any chat buffered so far, so a subsequent RecvChat
// can't be confused by a stale line left over from an earlier command.
func (c *Client) DrainChat() {
	c.chat.Drain()
}

// GetBlock queries the block at pos and returns its canonical id (see the
// block package), reporting ok=false if the server's response could not be
// parsed as a block state.
func (c *Client) GetBlock(ctx context.Context, pos position.Position) (string, bool, error) {
	c.DrainChat()
	if err := c.SendCommand(ctx, fmt.Sprintf("testforblock %s", pos)); err != nil {
		return "", false, err
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msg, err := c.RecvChat(ctx, 500*time.Millisecond)
		if err != nil {
			continue
		}
		if idx := strings.Index(msg.Text, "BlockState("); idx >= 0 {
			id, err := block.ExtractID(msg.Text[idx:])
			if err != nil {
				continue
			}
			return id, true, nil
		}
	}
	return "", false, nil
}

// GetPosition queries the bot's own current position.
func (c *Client) GetPosition(ctx context.Context) (position.Position, error) {
	c.DrainChat()
	if err := c.SendCommand(ctx, "data get entity @s Pos"); err != nil {
		return position.Position{}, err
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msg, err := c.RecvChat(ctx, 500*time.Millisecond)
		if err != nil {
			continue
		}
		if p, ok := parsePositionReport(msg.Text); ok {
			return p, nil
		}
	}
	return position.Position{}, ErrChatTimeout
}

func parsePositionReport(text string) (position.Position, bool) {
	fields := strings.Fields(text)
	var nums []int
	for _, f := range fields {
		f = strings.TrimSuffix(strings.Trim(f, "[]{},"), "d")
		if v, err := strconv.ParseFloat(f, 64); err == nil {
			nums = append(nums, int(math.Floor(v)))
		}
	}
	if len(nums) < 3 {
		return position.Position{}, false
	}
	last := nums[len(nums)-3:]
	return position.New(last[0], last[1], last[2]), true
}
