package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command and all subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	clientFlags := &ClientFlags{}

	root := createRootCommand(globalFlags, clientFlags)
	root.AddCommand(
		createServeCommand(globalFlags),
		createRunCommand(clientFlags),
		createStatusCommand(clientFlags),
		createProgressCommand(clientFlags),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags, clientFlags *ClientFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "acqsim",
		Short: "Simulated acquisition run telemetry server",
		Long: `Acqsim simulates the acquisition telemetry of a sequencing instrument so
client software can be developed without hardware.

Examples:
  acqsim serve                        # Start the server with defaults
  acqsim serve acqsim.toml            # Start with a config file
  acqsim run get --run run-1          # Advance run-1 by one tick
  acqsim run peek run-1               # Read run-1 without advancing it
  acqsim status --api-url=http://remote:8080/api`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&clientFlags.APIUrl, "api-url", "http://localhost:8080/api", "base URL of a running acqsim server")
	root.PersistentFlags().DurationVar(&clientFlags.APITimeout, "api-timeout", 10*time.Second, "timeout for API requests")

	return root
}

// createServeCommand creates the serve subcommand
func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}

	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the acqsim server",
		Long: `Start the HTTP server exposing the acquisition service.
Configuration is read from the TOML file when given, then ACQSIM_* environment
variables (e.g. ACQSIM_SERVER_LISTEN=:9000) override it. Flags override both.

Examples:
  acqsim serve
  acqsim serve acqsim.toml
  acqsim serve --listen :9000 --framework echo`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			if len(args) > 0 {
				serveFlags.ConfigPath = args[0]
			}
			return runServeCommand(cmd.Context(), serveFlags)
		},
	}

	cmd.Flags().StringVar(&serveFlags.Listen, "listen", "", "override [server].listen")
	cmd.Flags().StringVar(&serveFlags.BasePath, "base-path", "", "override [server].base_path")
	cmd.Flags().StringVar(&serveFlags.Framework, "framework", "", "override [server].framework (gin or echo)")

	return cmd
}

// createRunCommand groups the per-run client commands
func createRunCommand(clientFlags *ClientFlags) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Inspect or advance simulated acquisition runs",
	}
	cmd.PersistentFlags().StringVar(&runID, "run", "", "run id (default: the server's default run)")

	pick := func(args []string) string {
		if len(args) > 0 {
			return args[0]
		}
		return runID
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get [run-id]",
			Short: "Advance a run by one tick and print it",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				return runGet(c.Context(), newClient(clientFlags), pick(args), c.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "peek [run-id]",
			Short: "Print a run without advancing it",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				return runPeek(c.Context(), newClient(clientFlags), pick(args), c.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "watch [run-id]",
			Short: "Open a watch stream and print every item",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				return runWatch(c.Context(), newClient(clientFlags), pick(args), c.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List runs known to the server",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				return runList(c.Context(), newClient(clientFlags), c.OutOrStdout())
			},
		},
	)
	return cmd
}

func createStatusCommand(clientFlags *ClientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the simulated instrument status",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runStatus(c.Context(), newClient(clientFlags), c.OutOrStdout())
		},
	}
}

func createProgressCommand(clientFlags *ClientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Print the simulated raw sample progress",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runProgress(c.Context(), newClient(clientFlags), c.OutOrStdout())
		},
	}
}
