// Command moltmatch 运行匹配服务，或在命令行上执行一次排序、自动匹配与数据导入。
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gyeol/moltmatch/api"
	"github.com/gyeol/moltmatch/config"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
	cfg    *config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "moltmatch",
		Short: "Taste-vector compatibility matching for agents",
		Long: `moltmatch ranks agents by how compatible their learned taste vectors are.

Configuration is read from --config (YAML) and MOLTMATCH_* environment
variables, e.g. MOLTMATCH_STORE_BACKEND=redis MOLTMATCH_STORE_REDIS_ADDR=localhost:6379.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err = newLogger(cfg.Log, verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCmd(), newRankCmd(), newMoltMatchCmd(), newSeedCmd())
	return root
}

func newLogger(lc config.LogConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if lc.Level != "" {
		level, err := zapcore.ParseLevel(lc.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func buildComponents(ctx context.Context) (*config.Components, error) {
	c, err := config.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("components ready",
		zap.String("backend", cfg.Store.Backend),
		zap.String("metric", cfg.Match.Metric),
		zap.Strings("stages", c.Ranker.Pipeline(cfg.Match.Limit).Stages()))
	return c, nil
}

func newServeCmd() *cobra.Command {
	var seedPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP matching API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			c, err := buildComponents(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil {
					logger.Warn("failed to close store", zap.Error(err))
				}
			}()

			if seedPath != "" {
				if err := seed(ctx, c, seedPath); err != nil {
					return err
				}
			}

			handler := api.NewHandler(c.Ranker, c.MoltMatch, cfg.Match, logger)
			srv := &http.Server{
				Addr:         cfg.HTTP.Addr,
				Handler:      handler.Routes(),
				ReadTimeout:  cfg.HTTP.ReadTimeout,
				WriteTimeout: cfg.HTTP.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", zap.String("addr", srv.Addr), zap.String("backend", cfg.Store.Backend))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("graceful shutdown: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&seedPath, "seed", "", "seed file to load before serving (useful with the memory backend)")
	return cmd
}

func newRankCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "rank <agentID>",
		Short: "Print the top compatible candidates for an agent as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			c, err := buildComponents(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if limit < 0 {
				limit = cfg.Match.Limit
			}
			candidates, err := c.Ranker.FindTopMatches(ctx, args[0], limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), api.MatchesResponse{AgentID: args[0], Candidates: candidates})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", -1, "number of candidates (default from config)")
	return cmd
}

func newMoltMatchCmd() *cobra.Command {
	var autonomy int
	cmd := &cobra.Command{
		Use:   "moltmatch <agentID>",
		Short: "Run one autonomous match selection for an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			c, err := buildComponents(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.MoltMatch.Run(ctx, args[0], autonomy)
			if err != nil {
				return err
			}
			logger.Info("moltmatch", zap.String("agent_id", args[0]), zap.String("result", res.Summary()))
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&autonomy, "autonomy", 50, "agent autonomy level (0-100)")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load taste vectors and blocks from a YAML file into the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			c, err := buildComponents(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if cfg.Store.Backend == config.BackendMemory {
				logger.Warn("seeding the memory backend; data is discarded when this command exits")
			}
			return seed(ctx, c, file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (YAML)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func seed(ctx context.Context, c *config.Components, path string) error {
	if c.Backend.Seeder == nil {
		return fmt.Errorf("store backend %q does not support seeding", cfg.Store.Backend)
	}
	f, err := config.LoadSeedFile(path)
	if err != nil {
		return err
	}
	res, err := f.Apply(ctx, c.Backend.Seeder)
	if err != nil {
		return err
	}
	logger.Info("seeded", zap.String("file", path), zap.Int("vectors", len(res.Vectors)), zap.Int("blocks", res.Blocks))
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
