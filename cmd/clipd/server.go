package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/clipd/internal/api"
	"github.com/kalambet/clipd/internal/capture"
	"github.com/kalambet/clipd/internal/clipboard"
	"github.com/kalambet/clipd/internal/config"
	"github.com/kalambet/clipd/internal/notify"
	"github.com/kalambet/clipd/internal/state"
	"github.com/kalambet/clipd/internal/storage"
	"github.com/kalambet/clipd/internal/watch"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the clipd daemon (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running clipd daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show clipd daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "clipd.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "clipd version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Ensure the API token exists in the platform secret store.
	apiToken, err := config.EnsureAPIToken()
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if the daemon is already running via the health
	// endpoint first.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("clipd is already running (PID %d)", pid)
			return fmt.Errorf("daemon already running (PID %d)", pid)
		}
		printWarning("clipd is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("daemon already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage and seed runtime state from persisted settings.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	persisted, err := store.LoadSettings()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	st := state.New(persisted)

	// Wire up the OS clipboard.
	clip, err := clipboard.NewSystem()
	if err != nil {
		return fmt.Errorf("initializing clipboard: %w", err)
	}

	hub := notify.NewHub()

	// Change watcher feeding the capture pipeline.
	signals := make(chan struct{}, 1)
	watcher := watch.New(signals, st.PollingInterval)
	pipe := capture.NewPipeline(clip, store, st, hub, signals, capture.Options{})

	// HTTP surface for UI clients.
	handler := api.NewHandler(api.AppDeps{
		Store:     store,
		State:     st,
		Hub:       hub,
		Clipboard: clip,
		Token:     apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP surface for agent clients (stdio transport).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:     store,
		State:     st,
		Clipboard: clip,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		watcher.Run(gCtx)
		return nil
	})
	g.Go(func() error {
		pipe.Run(gCtx)
		return nil
	})
	g.Go(func() error {
		if err := stdioSrv.Listen(gCtx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("clipd listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Graceful HTTP shutdown once anything cancels the group.
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	fmt.Fprintln(os.Stderr, "shutting down...")
	return err
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("clipd is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop clipd (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to clipd (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}

	running := false
	if resp, err := healthClient.Get(healthURL); err != nil {
		printStatus("Daemon", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Daemon", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Daemon", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if running {
		if client, err := newAPIClient(); err == nil {
			if resp, err := client.get(ctx, "/items?limit=1"); err == nil {
				var res struct {
					Total int `json:"total"`
				}
				if decodeJSON(resp, &res) == nil {
					printStatus("Items", "%d", res.Total)
				}
			}
			if resp, err := client.get(ctx, "/settings"); err == nil {
				var s struct {
					CaptureEnabled bool  `json:"capture_enabled"`
					MaxItems       int64 `json:"max_items"`
				}
				if decodeJSON(resp, &s) == nil {
					if s.CaptureEnabled {
						printStatus("Capture", "enabled (keeping %d items)", s.MaxItems)
					} else {
						printStatus("Capture", "disabled")
					}
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
