package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sawpanic/execcore/internal/app"
	"github.com/sawpanic/execcore/internal/config"
	execio "github.com/sawpanic/execcore/internal/io"
	"github.com/sawpanic/execcore/internal/metrics"
)

const (
	appName = "execcore"
	version = "v0.1.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "decision-to-intent execution core",
		Version: version,
		Long: `execcore turns trading decisions into gated, audited exchange intents.

It runs the signal gate, execution gate, futures canary chain, and paper/
live bridge as a single process with a kill switch, slippage tracking, and
position reconciliation.`,
	}

	rootCmd.PersistentFlags().String("config", "config/execcore.yaml", "Path to the YAML config file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reconciliation and SLO schedulers and the ops HTTP surface",
		RunE:  runServe,
	}

	opsCmd := &cobra.Command{
		Use:   "ops",
		Short: "Operational inspection commands",
	}

	opsStatusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print kill switch, bridge limits, and lifecycle state as JSON",
		RunE:  runOpsStatus,
	}

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit spool inspection commands",
	}

	auditVerifyCmd := &cobra.Command{
		Use:   "verify <spool_dir>",
		Short: "Verify every audit spool file parses as one JSON record per line",
		Args:  cobra.ExactArgs(1),
		RunE:  runAuditVerify,
	}

	opsCmd.AddCommand(opsStatusCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(opsCmd)
	rootCmd.AddCommand(auditCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if _, err := os.Stat(path); err != nil {
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
		return config.Default(), nil
	}
	return config.Load(path)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Start(ctx)

	if tty() {
		log.Info().Msg("running attached to a terminal; ctrl-c to stop")
	}

	router := metrics.NewServer(a.PromRegistry, a)

	srv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.Metrics.ListenAddr).Msg("ops http surface listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("ops http surface failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)

	return a.Stop()
}

func runOpsStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer a.Stop()

	status := a.OpsStatus()

	if cfg.Audit.SpoolDir != "" {
		checkpointPath := cfg.Audit.SpoolDir + "/ops-status-checkpoint.json"
		if err := execio.WriteJSONAtomic(checkpointPath, status); err != nil {
			log.Warn().Err(err).Str("path", checkpointPath).Msg("ops status checkpoint write failed")
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(status)
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	spoolDir := args[0]

	total, bad := 0, 0
	err := eachSpoolFile(spoolDir, func(path string) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			total++
			var record map[string]interface{}
			if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
				bad++
				log.Warn().Str("path", path).Err(err).Msg("malformed audit record")
			}
		}
		return scanner.Err()
	})
	if err != nil {
		return fmt.Errorf("audit verify: %w", err)
	}

	fmt.Printf("checked %d records, %d malformed\n", total, bad)
	if bad > 0 {
		return fmt.Errorf("%d malformed audit records found", bad)
	}
	return nil
}

func eachSpoolFile(root string, fn func(path string) error) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, dateDir := range entries {
		if !dateDir.IsDir() {
			continue
		}
		dayPath := root + "/" + dateDir.Name()
		files, err := os.ReadDir(dayPath)
		if err != nil {
			return err
		}
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			if err := fn(dayPath + "/" + file.Name()); err != nil {
				return err
			}
		}
	}
	return nil
}

// tty reports whether stdout is an interactive terminal.
func tty() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
