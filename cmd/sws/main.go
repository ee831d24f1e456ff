package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sws/internal/config"
	"sws/internal/httpsrv"
	"sws/internal/logging"
)

// Exit codes: 0 on clean shutdown, non-zero otherwise.
const (
	exitOK          = 0
	exitUsage       = 1
	exitBindFailure = 2
	exitUncleanExit = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	var verbose bool

	root := &cobra.Command{
		Use:           "sws PORT SERVER_ROOT",
		Short:         "sws serves static files from SERVER_ROOT on PORT",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")

	exitCode := exitOK
	root.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New(args[0], args[1], verbose)
		if err != nil {
			exitCode = exitUsage
			return err
		}

		logger := logging.New(cfg.Verbose)
		srv := httpsrv.New(cfg.Port, cfg.ServerRoot, logger)

		clean, err := srv.Run(context.Background())
		if err != nil {
			exitCode = exitBindFailure
			return err
		}
		if !clean {
			exitCode = exitUncleanExit
			return fmt.Errorf("shutdown did not complete cleanly within the allotted budget")
		}
		return nil
	}

	// Cobra only adds a "help" subcommand to commands that have
	// subcommands, so a lone "help" argument is mapped to --help here.
	if len(os.Args) == 2 && os.Args[1] == "help" {
		root.SetArgs([]string{"--help"})
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sws:", err)
		if exitCode == exitOK {
			exitCode = exitUsage
		}
		return exitCode
	}
	return exitOK
}
