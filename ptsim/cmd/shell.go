package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/sarchlab/ptsim/simulation"
	"github.com/spf13/cobra"
)

func newShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Read commands line by line from the standard input.",
		Long: "Read commands line by line from the standard input. A line " +
			"that cannot be parsed is reported and skipped. Lines starting " +
			"with # are ignored.",
		Args: cobra.NoArgs,
		RunE: runShell,
	}
}

func runShell(cmd *cobra.Command, _ []string) error {
	c, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s := simulation.MakeBuilder().
		WithConfig(c).
		WithOutput(cmd.OutOrStdout()).
		Build()
	defer s.Terminate()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		err := s.RunLine(line)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
		}
	}

	err = scanner.Err()
	if err != nil {
		return err
	}

	if c.Monitor {
		waitForInterrupt(cmd.Context())
	}

	return nil
}
