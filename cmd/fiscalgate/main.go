// fiscalgate is a monetized query gateway over the US Treasury
// Fiscal Data API.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfiscal/fiscalgate/api"
	"github.com/openfiscal/fiscalgate/internal/config"
	"github.com/openfiscal/fiscalgate/internal/ops"
	"github.com/openfiscal/fiscalgate/internal/upstream"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fiscalgate",
	Short: "fiscalgate — priced query operations over US Treasury fiscal data",
	Long: `fiscalgate fronts the US Treasury Fiscal Data API with a small set
of priced query operations: debt history with deltas, latest interest
rates per security, exchange rates, multi-country comparisons, and
combined fiscal reports.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(opsCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fiscalgate %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("Starting fiscalgate API server on %s\n", addr)
		srv := api.NewServer(cfg)
		return srv.ListenAndServe(addr)
	},
}

// --- Ops Command ---

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "List the exposed operations and their prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := ops.NewService(upstream.New(cfg.Upstream.BaseURL))
		for _, op := range svc.Registry().List() {
			fmt.Printf("  %-16s %6d  %s\n", op.Key, op.Price, op.Description)
		}
		return nil
	},
}

// --- Call Command ---

var callCmd = &cobra.Command{
	Use:   "call [operation]",
	Short: "Invoke an operation locally and print the JSON result",
	Long: `Invoke an operation against the live upstream and print the result.

Examples:
  fiscalgate call overview
  fiscalgate call debt --input '{"days": 90}'
  fiscalgate call compare --input '{"countries": ["Japan", "Canada"]}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputJSON, _ := cmd.Flags().GetString("input")

		raw := map[string]any{}
		if inputJSON != "" {
			if err := json.Unmarshal([]byte(inputJSON), &raw); err != nil {
				return fmt.Errorf("invalid --input JSON: %w", err)
			}
		}

		svc := ops.NewService(upstream.New(cfg.Upstream.BaseURL))
		op, err := svc.Registry().Get(args[0])
		if err != nil {
			return err
		}

		input, err := ops.Validate(op, raw)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		result, err := op.Handler(ctx, input)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	callCmd.Flags().String("input", "", "operation input as a JSON object")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  fiscalgate — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:      %s (%s)\n", version, commit)
		fmt.Println()
		fmt.Println("  Configuration:")
		fmt.Printf("    Upstream:   %s\n", cfg.Upstream.BaseURL)
		fmt.Printf("    API Server: %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Printf("    Log Level:  %s\n", cfg.Logging.Level)
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
