// Package cmd provides the command-line interface of ptsim.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sarchlab/ptsim/command"
	"github.com/sarchlab/ptsim/config"
	"github.com/sarchlab/ptsim/simulation"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// ErrNoCommands is returned when ptsim is started without commands.
var ErrNoCommands = errors.New("no commands given")

const usage = "usage: ptsim [flags] commands..."

const longDescription = `ptsim runs a sequence of commands against a simulated
paged virtual memory of 64 pages of 256 bytes.

Commands:
  np <pid> <pages>       create a process with a number of data pages
  kp <pid>               kill a process and free its pages
  sb <pid> <addr> <val>  store a byte at a virtual address
  lb <pid> <addr>        load a byte from a virtual address
  pfm                    print the page free map
  ppt <pid>              print the page table of a process

Numbers are decimal or hexadecimal with a 0x prefix. Flags must come before
the commands.`

// NewRootCommand creates the ptsim command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ptsim [flags] commands...",
		Short:         "ptsim simulates a paged virtual memory.",
		Long:          longDescription,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCommands,
	}

	rootCmd.Flags().SetInterspersed(false)

	flags := rootCmd.PersistentFlags()
	flags.String("env-file", ".env", "File to load environment variables from")
	flags.String("trace-db", "", "Record a trace into this SQLite database")
	flags.Bool("trace-log", false, "Log every event of the manager to stderr")
	flags.Int("tlb-size", config.DefaultTLBSize,
		"Number of cached translations, 0 to disable the cache")
	flags.Bool("monitor", false,
		"Serve the state of the simulation over HTTP until interrupted")
	flags.Int("monitor-port", 0, "Port of the monitoring server")
	flags.Bool("open-browser", false, "Open the monitoring page in a browser")

	rootCmd.AddCommand(newShellCommand())

	return rootCmd
}

// Execute runs the ptsim command and exits.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)

	err := NewRootCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		switch {
		case errors.Is(err, ErrNoCommands):
			fmt.Fprintln(os.Stderr, usage)
		case errors.Is(err, command.ErrUnknownCommand):
			fmt.Fprintf(os.Stderr, "usage: ptsim commands, %v\n", err)
		default:
			fmt.Fprintf(os.Stderr, "ptsim: %v\n", err)
		}

		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func runCommands(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return ErrNoCommands
	}

	c, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s := simulation.MakeBuilder().
		WithConfig(c).
		WithOutput(cmd.OutOrStdout()).
		Build()
	defer s.Terminate()

	err = s.Run(args)
	if err != nil {
		return err
	}

	if c.Monitor {
		waitForInterrupt(cmd.Context())
	}

	return nil
}

// loadConfig reads the environment and lets the flags that are set
// override it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env-file")

	c, err := config.Load(envFile)
	if err != nil {
		return c, err
	}

	if flags.Changed("trace-db") {
		c.TraceDB, _ = flags.GetString("trace-db")
	}

	if flags.Changed("trace-log") {
		c.TraceLog, _ = flags.GetBool("trace-log")
	}

	if flags.Changed("tlb-size") {
		c.TLBSize, _ = flags.GetInt("tlb-size")
		if c.TLBSize < 0 {
			return c, fmt.Errorf("negative TLB size %d", c.TLBSize)
		}
	}

	if flags.Changed("monitor") {
		c.Monitor, _ = flags.GetBool("monitor")
	}

	if flags.Changed("monitor-port") {
		c.MonitorPort, _ = flags.GetInt("monitor-port")
	}

	c.OpenBrowser, _ = flags.GetBool("open-browser")

	if !c.Monitor && (c.MonitorPort != 0 || c.OpenBrowser) {
		return c, errors.New("--monitor-port and --open-browser need --monitor")
	}

	return c, nil
}

func waitForInterrupt(ctx context.Context) {
	fmt.Fprintln(os.Stderr, "Simulation finished, press Ctrl+C to exit.")
	<-ctx.Done()
}
