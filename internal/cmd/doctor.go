package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lguibr/flintbench/logging"
	"github.com/lguibr/flintbench/tickdriver"
	"github.com/lguibr/flintbench/transport"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check connectivity to the configured server and print its game time",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(c *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := logging.New(cfg.LogLevel, cfg.LogPretty)

	client := transport.New(log, transport.DialWebsocket)
	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ClientInitWait)
	err := client.Connect(connectCtx, cfg.ServerEndpoint)
	cancel()
	if err != nil {
		return fmt.Errorf("flintbench doctor: connect to %s: %w", cfg.ServerEndpoint, err)
	}
	defer client.Close()
	if err := client.WaitReady(context.Background(), cfg.PlayingStateWait, cfg.WorldSyncDelay); err != nil {
		return fmt.Errorf("flintbench doctor: wait ready: %w", err)
	}

	driver := tickdriver.New(client, log, cfg.GameTimeQueryWait, cfg.TickStepTimeout, cfg.TickStepPoll, cfg.SprintTimeout, cfg.MinRetryDelay)
	t, err := driver.QueryGameTime(context.Background())
	if err != nil {
		return fmt.Errorf("flintbench doctor: gametime query: %w", err)
	}

	fmt.Printf("flintbench doctor: connected to %s, game time %d\n", cfg.ServerEndpoint, t)
	return nil
}
