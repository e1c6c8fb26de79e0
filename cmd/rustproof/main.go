package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "rustproof",
		Short: "rustproof - batch verification harness for Rust crates",
		Long: `rustproof compiles a crate to a single bitcode artifact, drives a
symbolic-execution backend against every test entry point, classifies the
backend's diagnostics into a verification status per test, and aggregates
the results into one pass/fail report.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
