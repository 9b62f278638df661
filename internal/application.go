package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/playgrid/reversi-backend/internal/config"
	"github.com/playgrid/reversi-backend/internal/repository"
	"github.com/playgrid/reversi-backend/internal/repository/storage"
	"github.com/playgrid/reversi-backend/internal/usecase"
	"github.com/playgrid/reversi-backend/transport/rest"
	"github.com/playgrid/reversi-backend/transport/websocket"
)

// RunApp - wires the match archive, the room manager, and both servers, and
// runs them until a signal or a server failure.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	var archive usecase.MatchArchive

	if redisAddr := conf.Redis.GetRedisAddr(); redisAddr != "" {
		redisClient, err := storage.New(ctx, redisAddr)
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisClient.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		archive = repository.NewMatchRepository(redisClient)
		log.Info("match archive enabled", "addr", redisAddr)
	} else {
		log.Info("match archive disabled, no redis address configured")
	}

	manager := usecase.NewManager(logger, conf.TurnTimeout, conf.DisconnectGrace, archive)

	wsServer := websocket.New(logger, manager)
	manager.SetNotifier(wsServer)

	go manager.Run(ctx)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run WebSocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err := <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err := <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
