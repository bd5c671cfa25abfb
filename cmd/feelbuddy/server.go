package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/feelbuddy/internal/agent"
	"github.com/kalambet/feelbuddy/internal/api"
	"github.com/kalambet/feelbuddy/internal/config"
	"github.com/kalambet/feelbuddy/internal/feeling"
	"github.com/kalambet/feelbuddy/internal/journal"
	"github.com/kalambet/feelbuddy/internal/quote"
	"github.com/kalambet/feelbuddy/internal/session"
	"github.com/kalambet/feelbuddy/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the feelbuddy server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		stdio, _ := cmd.Flags().GetBool("mcp-stdio")
		return runServer(stdio)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running feelbuddy server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show feelbuddy status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("mcp-stdio", false, "also serve MCP over stdin/stdout")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "feelbuddy.pid")
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

func runServer(mcpStdio bool) error {
	fmt.Fprintf(os.Stderr, "feelbuddy version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Refuse to start twice: a healthy /health means another instance owns the port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("feelbuddy is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("feelbuddy is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	migrations, err := store.AppliedMigrations()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	schemaVersion := 0
	if len(migrations) > 0 {
		schemaVersion = migrations[len(migrations)-1]
	}
	slog.Info("storage ready", "dir", cfg.Storage.DataDir, "migrations", migrations)

	journalMgr := journal.NewManager(store, logger)
	quotes := quote.NewSelector()
	controller := session.NewController(journalMgr, quotes, logger)

	deps := api.AppDeps{
		Session:  controller,
		Quotes:   quotes,
		Location: loc,
		Token:    apiToken,
		Logger:   logger,

		SchemaVersion: schemaVersion,
	}
	gemini, err := agent.NewGemini(ctx, agent.GeminiConfig{
		APIKey:     cfg.Gemini.APIKey,
		ChatModel:  cfg.Gemini.ChatModel,
		VoiceModel: cfg.Gemini.VoiceModel,
		VoiceName:  cfg.Gemini.VoiceName,
	})
	switch {
	case err == nil:
		deps.Chat = gemini
		deps.Voice = gemini
		slog.Info("Buddy agent ready", "chat_model", cfg.Gemini.ChatModel, "voice_model", cfg.Gemini.VoiceModel)
	case cfg.Ollama.ChatModel != "":
		local := agent.NewOllama(cfg.Ollama.BaseURL, cfg.Ollama.ChatModel)
		if readyErr := local.Ready(ctx); readyErr != nil {
			slog.Warn("Buddy is unavailable: local model not ready", "error", readyErr)
			break
		}
		deps.Chat = local
		slog.Info("Buddy using local model, voice disabled", "chat_model", cfg.Ollama.ChatModel)
	case errors.Is(err, agent.ErrUnavailable):
		slog.Warn("Buddy is unavailable: no Gemini API key", "hint", config.MissingGeminiKeyHint())
	default:
		slog.Warn("Buddy is unavailable", "error", err)
	}

	topRouter := chi.NewRouter()
	if cfg.Server.MCPEnabled {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Session:  controller,
			Quotes:   quotes,
			Location: loc,
		})
		topRouter.With(api.BearerAuth(apiToken)).Handle("/mcp", server.NewStreamableHTTPServer(mcpSrv))
		slog.Info("MCP server mounted (streamable HTTP)", "path", "/mcp")

		if mcpStdio {
			stdioSrv := server.NewStdioServer(mcpSrv)
			go func() {
				if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
					slog.Error("MCP stdio server error", "error", err)
				}
			}()
			slog.Info("MCP server started (stdio transport)")
		}
	}
	topRouter.Mount("/", api.NewAppHandler(deps))

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: topRouter,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "feelbuddy listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
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
		printError("feelbuddy is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop feelbuddy (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to feelbuddy (PID %d)", pid)
	return nil
}

type healthResponse struct {
	Status string `json:"status"`
	Agent  bool   `json:"agent"`
	Schema int    `json:"schema"`
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		printError("%v", err)
		return nil
	}
	client.httpClient.Timeout = 2 * time.Second

	var health healthResponse
	resp, err := client.get(ctx, "/health")
	if err == nil {
		err = decodeJSON(resp, &health)
	}
	running := err == nil
	if running {
		printStatus("Server", "running on port %d", cfg.Server.Port)
	} else {
		printStatus("Server", "stopped")
	}

	switch {
	case running && !health.Agent:
		printStatus("Buddy", "unavailable: %s", config.MissingGeminiKeyHint())
	case cfg.Gemini.APIKey != "":
		printStatus("Buddy", "Gemini (%s)", cfg.Gemini.ChatModel)
	case cfg.Ollama.ChatModel != "":
		printStatus("Buddy", "local model %s at %s, text only", cfg.Ollama.ChatModel, cfg.Ollama.BaseURL)
	default:
		printStatus("Buddy", "unavailable: %s", config.MissingGeminiKeyHint())
	}
	printStatus("Voice", "%s / %s", cfg.Gemini.VoiceModel, cfg.Gemini.VoiceName)
	printStatus("MCP", "%t", cfg.Server.MCPEnabled)

	if running {
		var entries []feeling.Entry
		resp, err := client.get(ctx, "/feelings")
		if err == nil && decodeJSON(resp, &entries) == nil {
			printStatus("Feelings", "%d logged", len(entries))
		}
	}

	if running && health.Schema > 0 {
		printStatus("Schema", "v%d", health.Schema)
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
