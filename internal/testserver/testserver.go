// Package testserver implements a minimal in-memory fake of the
// administrative wire protocol the bot client adapter speaks, so the
// parallel executor can be driven end-to-end without a real game server.
// It lives under test-only code, is never imported by the production
// path, and understands just enough of the protocol (§6 of this
// codebase's harness specification) to answer setblock/fill and the tick
// and gametime admin commands the way the real server would, grounded on
// this codebase's own httptest-backed websocket test server pattern.
package testserver

import (
	"bufio"
	"fmt"
	"math"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/lguibr/flintbench/position"
)

type write struct {
	seq    int
	point  position.Position
	isArea bool
	region position.Region
	block  string
}

// Server is an in-memory fake admin server. It does not limit how many
// connections it accepts; every connection reads and writes the same
// world state and tick counter.
type Server struct {
	mu       sync.Mutex
	tick     int64
	frozen   bool
	writes   []write
	nextSeq  int
	httpSrv  *httptest.Server
	sprintMs float64
}

// New starts a Server listening on an in-process httptest listener.
func New() *Server {
	s := &Server{sprintMs: 50}
	s.httpSrv = httptest.NewServer(websocket.Handler(s.handle))
	return s
}

// WSEndpoint returns the ws:// URL clients should dial.
func (s *Server) WSEndpoint() string {
	return "ws" + strings.TrimPrefix(s.httpSrv.URL, "http") + "/admin"
}

// Close shuts the server down.
func (s *Server) Close() {
	s.httpSrv.Close()
}

// PointWriteCount returns how many setblock (point, not fill) writes this
// server has recorded at pos, letting a test tell a position that was
// explicitly placed apart from one only ever touched by an area fill.
func (s *Server) PointWriteCount(pos position.Position) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.writes {
		if !w.isArea && w.point == pos {
			n++
		}
	}
	return n
}

func (s *Server) handle(ws *websocket.Conn) {
	reader := bufio.NewReader(ws)
	for {
		line, err := reader.ReadString('\n')
		if line == "" && err != nil {
			return
		}
		cmd := strings.TrimSpace(strings.TrimPrefix(strings.TrimRight(line, "\r\n"), "/"))
		if cmd != "" {
			s.handleCommand(ws, cmd)
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) reply(ws *websocket.Conn, text string) {
	_, _ = ws.Write([]byte(text + "\n"))
}

func (s *Server) handleCommand(ws *websocket.Conn, cmd string) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "setblock":
		s.handleSetblock(fields)
	case "fill":
		s.handleFill(fields)
	case "testforblock":
		s.handleTestforblock(ws, fields)
	case "tick":
		s.handleTick(ws, fields)
	case "time":
		s.handleTime(ws, fields)
	case "data":
		s.reply(ws, "Data of entity has the following: {Pos: [0.0d, 64.0d, 0.0d]}")
	case "say":
		// Broadcasts are not needed by any e2e scenario; swallow it.
	}
}

func (s *Server) handleSetblock(fields []string) {
	if len(fields) < 5 {
		return
	}
	pos, ok := parsePos(fields[1:4])
	if !ok {
		return
	}
	block := fields[4]

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	s.writes = append(s.writes, write{seq: s.nextSeq, point: pos, block: block})
}

func (s *Server) handleFill(fields []string) {
	if len(fields) < 8 {
		return
	}
	min, ok1 := parsePos(fields[1:4])
	max, ok2 := parsePos(fields[4:7])
	if !ok1 || !ok2 {
		return
	}
	block := fields[7]

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	s.writes = append(s.writes, write{seq: s.nextSeq, isArea: true, region: position.Region{Min: min, Max: max}, block: block})
}

func (s *Server) handleTestforblock(ws *websocket.Conn, fields []string) {
	if len(fields) < 4 {
		return
	}
	pos, ok := parsePos(fields[1:4])
	if !ok {
		return
	}

	s.mu.Lock()
	block := s.blockAt(pos)
	s.mu.Unlock()

	s.reply(ws, "The block at "+pos.String()+" is "+debugForm(block))
}

func (s *Server) blockAt(pos position.Position) string {
	for i := len(s.writes) - 1; i >= 0; i-- {
		w := s.writes[i]
		if w.isArea {
			if w.region.Contains(pos) {
				return w.block
			}
			continue
		}
		if w.point == pos {
			return w.block
		}
	}
	return "minecraft:air"
}

func (s *Server) handleTick(ws *websocket.Conn, fields []string) {
	if len(fields) < 2 {
		return
	}
	switch fields[1] {
	case "freeze":
		s.mu.Lock()
		s.frozen = true
		s.mu.Unlock()
	case "unfreeze":
		s.mu.Lock()
		s.frozen = false
		s.mu.Unlock()
	case "step":
		s.mu.Lock()
		s.tick++
		s.mu.Unlock()
	case "sprint":
		if len(fields) < 3 {
			return
		}
		n, err := strconv.Atoi(fields[2])
		if err != nil {
			return
		}
		// The real server's off-by-one: a request for n executes n+1
		// ticks. The driver always requests (desired-1), so this
		// advances by the caller's actually-desired tick count.
		s.mu.Lock()
		s.tick += int64(n + 1)
		ms := s.sprintMs
		s.mu.Unlock()
		tps := 1000.0 / math.Max(ms, 1)
		s.reply(ws, fmt.Sprintf("Sprint completed with %.1f ticks per second, or %.1f ms per tick", tps, ms))
	}
}

func (s *Server) handleTime(ws *websocket.Conn, fields []string) {
	if len(fields) < 3 || fields[1] != "query" || fields[2] != "gametime" {
		return
	}
	s.mu.Lock()
	t := s.tick
	s.mu.Unlock()
	s.reply(ws, fmt.Sprintf("The time is %d", t))
}

func parsePos(fields []string) (position.Position, bool) {
	if len(fields) != 3 {
		return position.Position{}, false
	}
	vals := make([]int, 3)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return position.Position{}, false
		}
		vals[i] = n
	}
	return position.New(vals[0], vals[1], vals[2]), true
}

// debugForm renders a canonical "ns:snake_name[k=v,...]" block string the
// way the real server's BlockState debug form would, so the client's
// Block-State Normaliser has something authentic to parse.
func debugForm(canonical string) string {
	id := canonical
	propsBody := ""
	if open := strings.Index(canonical, "["); open >= 0 && strings.HasSuffix(canonical, "]") {
		id = canonical[:open]
		propsBody = canonical[open+1 : len(canonical)-1]
	}
	name := id
	if idx := strings.Index(id, ":"); idx >= 0 {
		name = id[idx+1:]
	}
	pascal := snakeToPascal(name)

	if propsBody == "" {
		return fmt.Sprintf("BlockState(id: 0, %s)", pascal)
	}

	var parts []string
	for _, kv := range strings.Split(propsBody, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		pair := strings.SplitN(kv, "=", 2)
		if len(pair) != 2 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", pair[0], pair[1]))
	}
	return fmt.Sprintf("BlockState(id: 0, %s { %s })", pascal, strings.Join(parts, ", "))
}

func snakeToPascal(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
