package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbellamy/research-crew/pkg/config"
	"github.com/pbellamy/research-crew/pkg/crew"
	"github.com/pbellamy/research-crew/pkg/database"
	"github.com/pbellamy/research-crew/pkg/runner"
)

var (
	query       string
	rounds      int
	threshold   float64
	researchers int
	noCheck     bool
)

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	rootCmd := &cobra.Command{
		Use:   "research-crew",
		Short: "A multi-agent research pipeline",
		Long:  `research-crew runs a team of LLM agents that plan, search, and synthesize research on a topic, iterating until the findings clear a quality threshold.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				slog.Error("Failed to load configuration", "error", err)
				os.Exit(1)
			}
			if rounds > 0 {
				cfg.MaxRounds = rounds
			}
			if threshold > 0 {
				cfg.QualityThreshold = threshold
			}
			if researchers > 0 {
				cfg.MaxResearchers = researchers
			}
			if noCheck {
				cfg.EnableFactCheck = false
			}
			if err := cfg.Validate(); err != nil {
				slog.Error("Invalid configuration", "error", err)
				os.Exit(1)
			}

			if !cmd.Flags().Changed("query") {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Enter research query: ")
				input, _ := reader.ReadString('\n')
				query = strings.TrimSpace(input)
			}
			if query == "" {
				slog.Error("Query cannot be empty")
				os.Exit(1)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := runner.Options{
				Progress: func(status string, fraction float64) {
					fmt.Printf("[%3.0f%%] %s\n", fraction*100, status)
				},
			}

			// Persistence is optional on the CLI: without a database the
			// run still produces report files.
			if cfg.DatabaseURL != "" {
				db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
				if err != nil {
					slog.Error("Failed to connect to database", "error", err)
					os.Exit(1)
				}
				defer db.Close()
				if err := db.InitSchema(ctx); err != nil {
					slog.Error("Failed to initialize schema", "error", err)
					os.Exit(1)
				}
				opts.Store = database.NewSessionStore(db)
			}

			r, err := runner.New(ctx, cfg, opts)
			if err != nil {
				slog.Error("Failed to assemble pipeline", "error", err)
				os.Exit(1)
			}
			defer r.Close()

			slog.Info("Starting research", "query", query, "max_rounds", cfg.MaxRounds)
			report, err := r.Crew.Run(ctx, query)
			if err != nil {
				slog.Error("Research failed", "error", err)
				os.Exit(1)
			}

			printSummary(report)
			if err := writeReports(cfg.OutputDir, report); err != nil {
				slog.Error("Failed to write report files", "error", err)
				os.Exit(1)
			}
		},
	}

	rootCmd.Flags().StringVarP(&query, "query", "q", "", "The research query")
	rootCmd.Flags().IntVarP(&rounds, "rounds", "r", 0, "Override the maximum number of research rounds")
	rootCmd.Flags().Float64Var(&threshold, "threshold", 0, "Override the quality threshold (0-100)")
	rootCmd.Flags().IntVar(&researchers, "researchers", 0, "Override the number of parallel sub-researchers")
	rootCmd.Flags().BoolVar(&noCheck, "no-fact-check", false, "Skip the fact-checking phase")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func printSummary(rep *crew.Report) {
	fmt.Println()
	fmt.Printf("Research complete in %.1fs\n", rep.Duration)
	fmt.Printf("  Rounds:    %d\n", rep.Rounds)
	fmt.Printf("  Quality:   %.1f/100", rep.FinalQuality)
	if !rep.ThresholdMet {
		fmt.Print(" (threshold not met)")
	}
	fmt.Println()
	fmt.Printf("  Searches:  %d\n", rep.Statistics.TotalSearches)
	fmt.Printf("  Est. cost: $%.4f\n", rep.Statistics.TotalCost)
	for _, w := range rep.Warnings {
		fmt.Printf("  Warning:   %s\n", w)
	}
}

func writeReports(dir string, rep *crew.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	stamp := time.Now().Format("20060102_150405")

	mdPath := filepath.Join(dir, fmt.Sprintf("research_%s.md", stamp))
	if err := os.WriteFile(mdPath, []byte(rep.Markdown()), 0o644); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}

	raw, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	jsonPath := filepath.Join(dir, fmt.Sprintf("research_%s.json", stamp))
	if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write json report: %w", err)
	}

	fmt.Printf("\nReports written to %s and %s\n", mdPath, jsonPath)
	return nil
}
