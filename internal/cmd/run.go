package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lguibr/flintbench/breakpoint"
	"github.com/lguibr/flintbench/config"
	"github.com/lguibr/flintbench/dispatch"
	"github.com/lguibr/flintbench/executor"
	"github.com/lguibr/flintbench/logging"
	"github.com/lguibr/flintbench/report"
	"github.com/lguibr/flintbench/tickdriver"
	"github.com/lguibr/flintbench/timeline"
	"github.com/lguibr/flintbench/transport"
)

var specsPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to a server and run a batch of test specifications",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&specsPath, "specs", "", "path to a JSON file holding a []TestSpec array (required)")
	_ = runCmd.MarkFlagRequired("specs")
	rootCmd.AddCommand(runCmd)
}

func loadSpecs(path string) ([]timeline.TestSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cmd: reading specs file: %w", err)
	}
	var specs []timeline.TestSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("cmd: parsing specs file: %w", err)
	}
	return specs, nil
}

func runRun(c *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := logging.New(cfg.LogLevel, cfg.LogPretty)

	specs, err := loadSpecs(specsPath)
	if err != nil {
		return err
	}
	log.Info().Int("tests", len(specs)).Str("endpoint", cfg.ServerEndpoint).Msg("flintbench: loaded test specs")

	client := transport.New(log, transport.DialWebsocket)
	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ClientInitWait)
	err = client.Connect(connectCtx, cfg.ServerEndpoint)
	cancel()
	if err != nil {
		return fmt.Errorf("flintbench: connect: %w", err)
	}
	defer client.Close()
	if err := client.WaitReady(context.Background(), cfg.PlayingStateWait, cfg.WorldSyncDelay); err != nil {
		return fmt.Errorf("flintbench: wait ready: %w", err)
	}

	driver := tickdriver.New(client, log, cfg.GameTimeQueryWait, cfg.TickStepTimeout, cfg.TickStepPoll, cfg.SprintTimeout, cfg.MinRetryDelay)
	dispatcher := dispatch.New(client, log, cfg.PlaceEachDelay, cfg.BlockPollAttempts, cfg.BlockPollDelay)

	ex := executor.New(client, driver, dispatcher, log)
	ex.FailFast = cfg.FailFast
	ex.BreakAfterSetup = cfg.BreakAfterSetup
	ex.ChunkSize = cfg.ChunkSize
	ex.CleanupDelay = cfg.CleanupDelay
	ex.MinRetryDelay = cfg.MinRetryDelay
	ex.ActionDelay = cfg.ActionDelay
	ex.OffsetGrid.Columns = cfg.OffsetGrid.Columns
	ex.OffsetGrid.Rows = cfg.OffsetGrid.Rows
	ex.OffsetGrid.CellSpacing = cfg.OffsetGrid.CellSpacing

	gate := buildGate(cfg, client)

	out, err := ex.Run(context.Background(), specs, gate)
	if err != nil {
		return fmt.Errorf("flintbench: run: %w", err)
	}

	report.WriteSummary(os.Stdout, out)
	for _, r := range out.Results {
		if !r.Passed {
			return fmt.Errorf("flintbench: %d test(s) failed", countFailed(out))
		}
	}
	return nil
}

func countFailed(out executor.TestRunOutput) int {
	n := 0
	for _, r := range out.Results {
		if !r.Passed {
			n++
		}
	}
	return n
}

// buildGate constructs the breakpoint gate selected by cfg.BreakpointMode.
// A nil gate disables breakpoints and stepping entirely.
func buildGate(cfg config.Config, client *transport.Client) executor.Gate {
	switch cfg.BreakpointMode {
	case config.BreakpointModeChat:
		return breakpoint.NewChatGate(client, cfg.BotAccountName, cfg.ChatPollTimeout)
	case config.BreakpointModeStdin:
		return breakpoint.NewStdinGate(os.Stdin)
	default:
		return nil
	}
}
