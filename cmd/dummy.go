package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"labload/internal/dummy"
	"labload/internal/logging"
)

// --- Dummy Subcommand ---
var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run a local target server",
	Long:  "Serves / (configurable status and body) and /flaky (random 503s) for trying labload out.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logging.New(os.Stderr, logLevel)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		port, _ := flags.GetInt("port")
		status, _ := flags.GetInt("status")
		body, _ := flags.GetString("body")
		latency, _ := flags.GetDuration("latency")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return dummy.Start(ctx, dummy.ServerConfig{
			Port:    port,
			Status:  status,
			Body:    body,
			Latency: latency,
		}, log)
	},
}

func init() {
	dummyCmd.Flags().IntP("port", "p", 8080, "Port to run dummy server on")
	dummyCmd.Flags().Int("status", 200, "Status code for GET /")
	dummyCmd.Flags().String("body", "", "Response body for GET /")
	dummyCmd.Flags().Duration("latency", 0, "Add up to this much random latency")
}
