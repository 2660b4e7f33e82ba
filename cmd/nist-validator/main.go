// Package main implements the nist-validator CLI tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gofhir/nistvalidator/config"
	"github.com/gofhir/nistvalidator/pkg/logger"
)

// Build-time variables
var version = "dev"

// errFailed signals exit status 1 after output has been written.
var errFailed = errors.New("validation failed")

// globalFlags are shared by all commands.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "nist-validator",
		Short: "Validate HL7 v2 immunization messages with the NIST validation service",
		Long: `nist-validator - HL7 v2 immunization message validator

Messages are matched to a NIST validation profile from MSH-9 and MSH-21,
sent to the NIST SOAP service and its assertions are reported as records.

Examples:
  nist-validator validate message.hl7
  nist-validator validate 'messages/**/*.hl7' --output json
  cat message.hl7 | nist-validator validate -
  nist-validator resolve message.hl7
  nist-validator path 'OBX[2]-5[3].1.2'
  nist-validator profiles`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if flags.logLevel == "" {
				return nil
			}
			level, err := logger.ParseLevel(flags.logLevel)
			if err != nil {
				return err
			}
			logger.SetDefault(logger.New(cmd.ErrOrStderr(), level))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (default: discover "+config.FileName+")")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error, none")

	root.AddCommand(newValidateCmd(flags))
	root.AddCommand(newResolveCmd(flags))
	root.AddCommand(newPathCmd())
	root.AddCommand(newProfilesCmd(flags))

	return root
}

// loadConfig loads the --config file, or a discovered one, or the defaults.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	path := flags.configPath
	if path == "" {
		found, err := config.Discover(".")
		if err != nil {
			return nil, err
		}
		path = found
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
