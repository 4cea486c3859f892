// Package cmd implements the flintbench command-line front end: the thin
// Config-and-logger bootstrap layer the parallel executor needs to be
// reachable from a shell. It owns nothing the core's specification
// assigns to the excluded front-end collaborators (spec discovery,
// parsing, formatters, the chat REPL, the recorder) beyond the minimal
// JSON test-spec loader run needs to have anything to execute.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lguibr/flintbench/config"
)

var (
	cfgFile string
	fast    bool
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "flintbench",
	Short: "A tick-accurate parallel test harness for a sandbox-world game server",
	Long: "flintbench drives a headless bot client against a running game server's\n" +
		"administrative interface, executing many declarative, per-tick test\n" +
		"timelines in parallel by spatially offsetting each into its own region\n" +
		"of the world.",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initViper)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./flintbench.yaml)")
	pf.Bool("fast", false, "use short timeouts and delays, for local/in-process runs")
	pf.String("server-endpoint", "", "administrative websocket endpoint (ws://host:port/admin)")
	pf.String("bot-account-name", "", "offline-account identity the bot connects as")
	pf.Bool("fail-fast", false, "stop the run at the first assertion failure")
	pf.Bool("break-after-setup", false, "pause for a breakpoint decision before the first tick")
	pf.String("breakpoint-mode", "", "how to solicit step/continue decisions: chat or stdin")
	pf.Int("chunk-size", 0, "maximum number of tests driven per executor invocation")
	pf.String("log-level", "", "debug, info, warn, or error")
	pf.Bool("log-pretty", false, "render logs with a human-readable console writer instead of JSON")

	for _, name := range []string{
		"server-endpoint", "bot-account-name", "fail-fast", "break-after-setup",
		"breakpoint-mode", "chunk-size", "log-level", "log-pretty",
	} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}
	_ = v.BindPFlag("fast", pf.Lookup("fast"))

	v.SetEnvPrefix("FLINTBENCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func initViper() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("flintbench")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Printf("flintbench: warning: could not read config file: %v\n", err)
		}
	}
}

// loadConfig builds a Config by layering flag/env/file overrides (via
// viper) on top of either DefaultConfig or, when --fast is set,
// FastConfig.
func loadConfig() config.Config {
	cfg := config.DefaultConfig()
	if v.GetBool("fast") {
		cfg = config.FastConfig()
	}

	if s := v.GetString("server-endpoint"); s != "" {
		cfg.ServerEndpoint = s
	}
	if s := v.GetString("bot-account-name"); s != "" {
		cfg.BotAccountName = s
	}
	if v.IsSet("fail-fast") {
		cfg.FailFast = v.GetBool("fail-fast")
	}
	if v.IsSet("break-after-setup") {
		cfg.BreakAfterSetup = v.GetBool("break-after-setup")
	}
	if s := v.GetString("breakpoint-mode"); s != "" {
		cfg.BreakpointMode = config.BreakpointMode(s)
	}
	if n := v.GetInt("chunk-size"); n > 0 {
		cfg.ChunkSize = n
	}
	if s := v.GetString("log-level"); s != "" {
		cfg.LogLevel = s
	}
	if v.IsSet("log-pretty") {
		cfg.LogPretty = v.GetBool("log-pretty")
	}

	return cfg
}
