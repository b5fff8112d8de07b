package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/aconic-ni/customsclass-r/internal/api"
	"github.com/aconic-ni/customsclass-r/internal/app"
	"github.com/aconic-ni/customsclass-r/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to config.yaml")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := a.Close(closeCtx); cerr != nil {
			logrus.WithError(cerr).Warn("close application")
		}
	}()

	authn, err := app.NewAuthenticator(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("configure auth: %w", err)
	}

	if !logrus.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}
	server, err := api.NewServer(api.Config{
		Provider:       a.Provider.Name(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequireUser:    cfg.History.RequireUser,
		AuthHeader:     cfg.Auth.Header,
	}, api.Deps{
		Classifier: a.Classifier,
		History:    a.History,
		Auth:       authn,
		DB:         a.DB,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	router, err := server.Router()
	if err != nil {
		return fmt.Errorf("configure router: %w", err)
	}

	var handler http.Handler = router
	if cfg.Telemetry.Tracing {
		handler = otelhttp.NewHandler(router, "http.server")
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithFields(logrus.Fields{
			"port":      cfg.Server.Port,
			"auth_mode": authn.Mode(),
		}).Info("starting customsclass-r server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logrus.Info("shutting down server")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
