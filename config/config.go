// Package config holds every tunable knob the harness reads, mirroring the
// single plain-struct-plus-constructor convention this codebase's lineage
// uses for its own runtime configuration.
package config

import "time"

// BreakpointMode selects how the breakpoint gate solicits a step/continue
// decision from the operator.
type BreakpointMode string

const (
	BreakpointModeChat  BreakpointMode = "chat"
	BreakpointModeStdin BreakpointMode = "stdin"
)

// GridShape describes the default offset allocator's horizontal layout.
type GridShape struct {
	Columns int `mapstructure:"columns"`
	Rows    int `mapstructure:"rows"`
	// CellSpacing is the world-space distance, in blocks, between adjacent
	// grid cells on both the X and Z axes.
	CellSpacing int `mapstructure:"cell_spacing"`
}

// Config holds all configurable harness parameters.
type Config struct {
	// Connection
	ServerEndpoint   string        `mapstructure:"server_endpoint"`
	BotAccountName   string        `mapstructure:"bot_account_name"`
	ClientInitWait   time.Duration `mapstructure:"client_init_wait"`
	PlayingStateWait time.Duration `mapstructure:"playing_state_wait"`
	WorldSyncDelay   time.Duration `mapstructure:"world_sync_delay"`

	// Command pacing
	ActionDelay       time.Duration `mapstructure:"action_delay"`
	PlaceEachDelay    time.Duration `mapstructure:"place_each_delay"`
	CleanupDelay      time.Duration `mapstructure:"cleanup_delay"`
	MinRetryDelay     time.Duration `mapstructure:"min_retry_delay"`
	TestResultDelay   time.Duration `mapstructure:"test_result_delay"`
	ChatDrainTimeout  time.Duration `mapstructure:"chat_drain_timeout"`
	ChatPollTimeout   time.Duration `mapstructure:"chat_poll_timeout"`

	// Assertion polling
	BlockPollAttempts int           `mapstructure:"block_poll_attempts"`
	BlockPollDelay    time.Duration `mapstructure:"block_poll_delay"`

	// Tick driving
	TickStepTimeout   time.Duration `mapstructure:"tick_step_timeout"`
	TickStepPoll      time.Duration `mapstructure:"tick_step_poll"`
	SprintTimeout     time.Duration `mapstructure:"sprint_timeout"`
	GameTimeQueryWait time.Duration `mapstructure:"game_time_query_wait"`

	// Execution behaviour
	FailFast        bool           `mapstructure:"fail_fast"`
	BreakAfterSetup bool           `mapstructure:"break_after_setup"`
	BreakpointMode  BreakpointMode `mapstructure:"breakpoint_mode"`
	ChunkSize       int            `mapstructure:"chunk_size"`
	OffsetGrid      GridShape      `mapstructure:"offset_grid"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`
}

// DefaultConfig returns a Config sized for a real, network-latency-bound
// game server.
func DefaultConfig() Config {
	return Config{
		ServerEndpoint:   "ws://localhost:25585/admin",
		BotAccountName:   "flintbench",
		ClientInitWait:   5 * time.Second,
		PlayingStateWait: 10 * time.Second,
		WorldSyncDelay:   500 * time.Millisecond,

		ActionDelay:      100 * time.Millisecond,
		PlaceEachDelay:   10 * time.Millisecond,
		CleanupDelay:     200 * time.Millisecond,
		MinRetryDelay:    200 * time.Millisecond,
		TestResultDelay:  50 * time.Millisecond,
		ChatDrainTimeout: 10 * time.Millisecond,
		ChatPollTimeout:  100 * time.Millisecond,

		BlockPollAttempts: 10,
		BlockPollDelay:    50 * time.Millisecond,

		TickStepTimeout:   5 * time.Second,
		TickStepPoll:      50 * time.Millisecond,
		SprintTimeout:     30 * time.Second,
		GameTimeQueryWait: 5 * time.Second,

		FailFast:        false,
		BreakAfterSetup: false,
		BreakpointMode:  BreakpointModeStdin,
		ChunkSize:       100,
		OffsetGrid:      GridShape{Columns: 10, Rows: 10, CellSpacing: 64},

		LogLevel:  "info",
		LogPretty: false,
	}
}

// FastConfig returns a Config tuned for quick local and in-process test
// runs: short timeouts and short delays, the way the teacher lineage's
// FastGameConfig trims its DefaultConfig for rapid test completion.
func FastConfig() Config {
	cfg := DefaultConfig()

	cfg.ClientInitWait = 500 * time.Millisecond
	cfg.PlayingStateWait = 500 * time.Millisecond
	cfg.WorldSyncDelay = 10 * time.Millisecond

	cfg.ActionDelay = 1 * time.Millisecond
	cfg.PlaceEachDelay = 1 * time.Millisecond
	cfg.CleanupDelay = 1 * time.Millisecond
	cfg.MinRetryDelay = 1 * time.Millisecond
	cfg.TestResultDelay = 1 * time.Millisecond
	cfg.ChatDrainTimeout = 1 * time.Millisecond
	cfg.ChatPollTimeout = 5 * time.Millisecond

	cfg.BlockPollAttempts = 5
	cfg.BlockPollDelay = 2 * time.Millisecond

	cfg.TickStepTimeout = 1 * time.Second
	cfg.TickStepPoll = 2 * time.Millisecond
	cfg.SprintTimeout = 1 * time.Second
	cfg.GameTimeQueryWait = 1 * time.Second

	return cfg
}
