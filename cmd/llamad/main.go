package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"llamad/internal/app"
	"llamad/internal/catalog"
	"llamad/internal/config"
	"llamad/internal/download"
	"llamad/internal/httpapi"
	"llamad/internal/registry"
	"llamad/internal/runtime"
	"llamad/pkg/types"
)

const (
	defaultAddr      = ":11434"
	defaultModelsDir = "~/.llamad/models"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cliOptions gathers flag/config state shared by all subcommands.
type cliOptions struct {
	configPath string
	addr       string
	modelsDir  string
	logLevel   string
}

func buildRootCmd() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:           "llamad",
		Short:         "Local model runtime: pull, manage and serve LLM artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("LLAMAD_CONFIG"), "Path to config file (.toml/.yaml/.json)")
	root.PersistentFlags().StringVar(&opts.modelsDir, "models-dir", envOr("LLAMAD_MODELS_DIR", defaultModelsDir), "Model store root directory")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("LLAMAD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
	serve.Flags().StringVar(&opts.addr, "addr", envOr("LLAMAD_ADDR", defaultAddr), "HTTP listen address")
	root.AddCommand(serve)

	pull := &cobra.Command{
		Use:   "pull <model>",
		Short: "Download a model from its registry locator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			a, _, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			last := int64(-1)
			progress := func(completed, total int64) {
				// One line per ~32MB to keep terminals readable.
				if completed-last < 32<<20 && total != completed {
					return
				}
				last = completed
				if total > 0 {
					fmt.Printf("pulling %s: %d/%d bytes (%.1f%%)\n", args[0], completed, total, 100*float64(completed)/float64(total))
				} else {
					fmt.Printf("pulling %s: %d bytes\n", args[0], completed)
				}
			}
			if err := a.Pull(cmd.Context(), args[0], force, progress); err != nil {
				return err
			}
			fmt.Println("success")
			return nil
		},
	}
	pull.Flags().Bool("force", false, "Re-download even if the model already exists")
	root.AddCommand(pull)

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List local models",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			models, err := a.List()
			if err != nil {
				return err
			}
			fmt.Printf("%-24s %-12s %-12s %s\n", "NAME", "FORMAT", "SIZE", "MODIFIED")
			for _, m := range models {
				fmt.Printf("%-24s %-12s %-12s %s\n", m.Name, m.Format, humanBytes(m.SizeBytes), m.ModifiedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	root.AddCommand(list)

	rm := &cobra.Command{
		Use:   "rm <model>",
		Short: "Delete a local model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Delete(args[0])
		},
	}
	root.AddCommand(rm)

	cp := &cobra.Command{
		Use:   "cp <source> <destination>",
		Short: "Copy a local model under a new name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Copy(args[0], args[1])
		},
	}
	root.AddCommand(cp)

	run := &cobra.Command{
		Use:   "run <model> <prompt>",
		Short: "Generate a completion and print it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			resp, err := a.Generate(cmd.Context(), args[0], args[1], types.SamplingParams{})
			if err != nil {
				return err
			}
			fmt.Println(resp.Response)
			return nil
		},
	}
	root.AddCommand(run)

	// ps and unload talk to a running server: residency is process state
	// and only the daemon has it.
	ps := &cobra.Command{
		Use:   "ps",
		Short: "List models resident in a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			var body types.PsResponse
			if err := getJSON(cmd.Context(), serverURL(cfg.Addr)+"/api/ps", &body); err != nil {
				return err
			}
			fmt.Printf("%-24s %-12s %-10s %s\n", "NAME", "SIZE", "FAMILY", "LOADED")
			for _, m := range body.Models {
				fmt.Printf("%-24s %-12s %-10s %s\n", m.Name, humanBytes(m.SizeBytes), m.Family, m.LoadedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	root.AddCommand(ps)

	unload := &cobra.Command{
		Use:   "unload <model>",
		Short: "Unload a resident model from a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return postJSON(cmd.Context(), serverURL(cfg.Addr)+"/api/unload", types.UnloadRequest{Name: args[0]})
		},
	}
	root.AddCommand(unload)

	return root
}

// serverURL turns a listen address like ":11434" into a base URL.
func serverURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	return "http://" + addr
}

func getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func postJSON(ctx context.Context, url string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

// loadConfig merges the optional config file with flag/env values.
// Flags win over file values when both are set.
func loadConfig(opts *cliOptions) (config.Config, error) {
	var cfg config.Config
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}
	if opts.modelsDir != "" && opts.modelsDir != defaultModelsDir {
		cfg.ModelsDir = opts.modelsDir
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = opts.modelsDir
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, nil
}

// buildApp wires the facade from configuration.
func buildApp(opts *cliOptions) (*app.App, config.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, cfg, err
	}
	log := newLogger(cfg.LogLevel)

	reg := registry.New(cfg.Registry)
	cat, err := catalog.New(cfg.ModelsDir, reg, log)
	if err != nil {
		return nil, cfg, fmt.Errorf("open model store: %w", err)
	}
	fetcher := download.NewFetcher(log)
	rt := runtime.New(cat, runtime.NewLlamaBackend(), runtime.Config{
		ContextLength: cfg.ContextLength,
		Threads:       cfg.Threads,
		GPULayers:     cfg.GPULayers,
		Defaults: types.SamplingParams{
			Temperature:   cfg.Temperature,
			TopP:          cfg.TopP,
			TopK:          cfg.TopK,
			RepeatPenalty: cfg.RepeatPenalty,
		},
	}, log)
	return app.New(reg, cat, fetcher, rt, log), cfg, nil
}

func runServe(opts *cliOptions) error {
	a, cfg, err := buildApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	log := newLogger(cfg.LogLevel)
	httpapi.SetLogger(log)
	if len(cfg.CORSAllowedOrigins) > 0 {
		httpapi.SetCORSOptions(true, cfg.CORSAllowedOrigins)
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(a)}
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Msg("llamad listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
