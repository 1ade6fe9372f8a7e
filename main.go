// Command bingo-server starts the multiplayer bingo room server.
//
// It supports two modes:
//  1. "serve" (default) – runs the HTTP server exposing the WebSocket game
//     transport, a read-only REST API, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if
//     none is reachable
//
// Settings come from an optional bingo.yaml, BINGO_* environment variables
// and flags, in increasing precedence. An optional ngrok tunnel exposes the
// server publicly during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/bingo-server/api"
	"github.com/wricardo/bingo-server/config"
	"github.com/wricardo/bingo-server/game/bingo"
	"github.com/wricardo/bingo-server/game/coordinator"
	"github.com/wricardo/bingo-server/game/room"
	"github.com/wricardo/bingo-server/transport/mcp"
	"github.com/wricardo/bingo-server/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Bingo Server"
)

// main loads .env, then runs the command until it returns or a signal arrives.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Str("module", "main").Err(err).Msg("error loading .env file")
		}
	} else {
		log.Info().Str("module", "main").Msg("loaded environment variables from .env file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal().Str("module", "main").Err(err).Msg("bingo server failed")
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "bingo-server",
		Usage:   AppName + ": multiplayer bingo rooms over WebSocket",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file (default: ./bingo.yaml if present)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "HTTP server host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "HTTP server port",
			},
			&cli.StringSliceFlag{
				Name:  "allowed-origin",
				Usage: "Origin accepted on WebSocket upgrade (repeatable; none means any)",
			},
			&cli.StringFlag{
				Name:  "win-rule",
				Usage: "Win rule: full_card or lines",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "ngrok",
				Usage: "Enable ngrok tunnel",
			},
			&cli.StringFlag{
				Name:  "ngrok-auth",
				Usage: "Ngrok auth token (or use NGROK_AUTHTOKEN env var)",
			},
			&cli.StringFlag{
				Name:  "ngrok-domain",
				Usage: "Custom ngrok domain (optional)",
			},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with WebSocket, REST API, and MCP endpoint (default)",
				Action:  serveAction,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server, starting an internal HTTP server if needed",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "api-url",
						Usage: "REST API to proxy when reachable (default: http://<host>:<port>)",
					},
				},
				Action: mcpAction,
			},
		},
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	log.Info().Str("module", "main").Str("version", Version).Str("mode", "serve").Msgf("starting %s", AppName)
	return runHTTPServer(ctx, cfg)
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	apiURL := cmd.String("api-url")
	if apiURL == "" {
		apiURL = "http://" + cfg.Addr()
	}

	log.Info().Str("module", "main").Str("version", Version).Str("mode", "mcp").Msgf("starting %s", AppName)
	return runStdioMCP(ctx, cfg, apiURL)
}

// loadConfig reads file and environment settings, then applies any flags the
// user set explicitly.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cmd.IsSet("allowed-origin") {
		cfg.AllowedOrigins = cmd.StringSlice("allowed-origin")
	}
	if cmd.IsSet("win-rule") {
		cfg.WinRule = cmd.String("win-rule")
	}
	if cmd.Bool("debug") {
		cfg.LogLevel = "debug"
	}
	if cmd.Bool("ngrok") {
		cfg.Ngrok.Enabled = true
	}
	if cmd.IsSet("ngrok-auth") {
		cfg.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	// ngrok's own variable names
	if cfg.Ngrok.AuthToken == "" {
		cfg.Ngrok.AuthToken = os.Getenv("NGROK_AUTHTOKEN")
	}
	if cfg.Ngrok.Domain == "" {
		cfg.Ngrok.Domain = os.Getenv("NGROK_DOMAIN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging configures the global zerolog logger. Logs always go to
// stderr so that stdout stays free for the MCP stdio protocol.
func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// services bundles the wired game components.
type services struct {
	registry    *room.Registry
	hub         *websocket.Hub
	coordinator *coordinator.Coordinator
	api         *api.Server
}

// initializeServices wires the room registry, coordinator, WebSocket hub and
// REST API. The hub is returned stopped; the caller runs it.
func initializeServices(cfg *config.Config) (*services, error) {
	rule, err := bingo.ParseWinRule(cfg.WinRule)
	if err != nil {
		return nil, err
	}
	validator := bingo.NewValidator(rule)

	registry := room.NewRegistry()
	hub := websocket.NewHub(websocket.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		MaxMessageSize: cfg.MaxMessageSize,
		SendBuffer:     cfg.SendBuffer,
	})
	coord := coordinator.New(registry, bingo.NewDrawer(nil), validator, hub)
	hub.SetHandler(coord)

	return &services{
		registry:    registry,
		hub:         hub,
		coordinator: coord,
		api:         api.NewServer(registry, validator, http.HandlerFunc(hub.ServeWS)),
	}, nil
}

// mcpHTTPHandler serves MCP JSON-RPC messages posted to /mcp.
func mcpHTTPHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)
		if response == nil {
			// notifications have no reply
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// runHTTPServer starts the hub, the HTTP server and, when configured, idle
// room eviction and an ngrok tunnel. It blocks until ctx is cancelled.
func runHTTPServer(ctx context.Context, cfg *config.Config) error {
	svc, err := initializeServices(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.hub.Run(ctx)
	}()

	addr := cfg.Addr()
	mcpClient := mcp.NewClient("http://" + addr)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", svc.api)
	mainRouter.HandleFunc("/mcp", mcpHTTPHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("module", "main").Str("addr", addr).Msg("HTTP server listening")
		log.Info().Str("module", "main").Msgf("WebSocket: ws://%s/ws", addr)
		log.Info().Str("module", "main").Msgf("REST API: http://%s/api/rooms", addr)
		log.Info().Str("module", "main").Msgf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if cfg.RoomIdleTTL > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			evictIdleRooms(ctx, svc.hub, svc.registry, cfg.RoomIdleTTL, cfg.CleanupInterval)
		}()
	}

	if cfg.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cfg.Ngrok, mainRouter)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Str("module", "main").Msg("shutting down")
	case err := <-serverErr:
		runErr = fmt.Errorf("HTTP server failed: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Str("module", "main").Err(err).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info().Str("module", "main").Msg("server stopped")
	return runErr
}

// evictIdleRooms removes stale rooms every interval. The sweep runs on the
// hub loop so it never races room events.
func evictIdleRooms(ctx context.Context, hub *websocket.Hub, registry *room.Registry, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hub.Submit(func() {
				registry.CleanupIdleRooms(ttl)
			})
		}
	}
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx ends.
func runNgrokTunnel(ctx context.Context, cfg config.NgrokConfig, handler http.Handler) {
	if cfg.AuthToken == "" {
		log.Warn().Str("module", "main").Msg("ngrok enabled but no auth token provided (use --ngrok-auth, BINGO_NGROK_AUTH_TOKEN or NGROK_AUTHTOKEN)")
		return
	}

	log.Info().Str("module", "main").Msg("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		log.Info().Str("module", "main").Str("domain", cfg.Domain).Msg("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		log.Error().Str("module", "main").Err(err).Msg("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Error().Str("module", "main").Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.Info().Str("module", "main").Str("url", ngrokURL).Msg("ngrok tunnel established")
	log.Info().Str("module", "main").Msgf("WebSocket (ngrok): %s/ws", ngrokURL)
	log.Info().Str("module", "main").Msgf("MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Str("module", "main").Err(err).Msg("ngrok server error")
	}
	log.Info().Str("module", "main").Msg("ngrok tunnel closed")
}

// apiAvailable reports whether a bingo server answers its health check at baseURL.
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP runs an MCP stdio server. It reuses the API at apiURL when it
// answers; otherwise it starts an internal HTTP API on a random loopback port
// and targets that.
func runStdioMCP(ctx context.Context, cfg *config.Config, apiURL string) error {
	baseURL := apiURL

	log.Info().Str("module", "main").Str("url", apiURL).Msg("checking for external API server")
	if apiAvailable(apiURL) {
		log.Info().Str("module", "main").Str("url", apiURL).Msg("external API server found, using it for MCP")
	} else {
		log.Info().Str("module", "main").Msg("no external API server found, starting internal HTTP server")

		svc, err := initializeServices(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		go svc.hub.Run(ctx)

		httpServer := &http.Server{Handler: svc.api}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Str("module", "main").Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		log.Info().Str("module", "main").Str("url", baseURL).Msg("internal HTTP server started for MCP stdio")
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info().Str("module", "main").Msg("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
