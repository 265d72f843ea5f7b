package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/fabriclink/internal/config"
	"github.com/OpenTraceLab/fabriclink/internal/logging"
)

var (
	// Global flags
	verbose bool
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "fabriclink",
	Short: "FPGA architecture link tool",
	Long: `Links an FPGA architecture description against an implemented device:
annotates the architecture and the place-and-route results, finds the unique
switch and connection blocks, builds the multiplexer library, indexes the
tile direct connections and settles the simulation clock.

Examples:
  fabriclink generate -o device.sexp --arch-out arch.txt   # Synthetic device
  fabriclink link --arch arch.txt --device device.sexp     # Link and summarise
  fabriclink info device.sexp                              # Device statistics`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/fabriclink/config.yaml)")
}

// loadConfig reads the settings and applies the global flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) *logrus.Logger {
	return logging.New(w, cfg.Verbose)
}
