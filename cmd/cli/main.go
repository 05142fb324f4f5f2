package main

import (
	"fmt"
	"github.com/joho/godotenv"
	"github.com/myrjola/chronicler/cmd/cli/intel"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/spf13/cobra"
	"os"
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(intel.Group)
	rootCmd.AddCommand(intel.Analyze, intel.Apply, intel.Reset, intel.Expand)
}

var rootCmd = &cobra.Command{
	Use:  "chronicler-cli",
	Long: `Command line utilities for Chronicler campaign intelligence`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
