package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"jailroster/internal/app"
	"jailroster/internal/audit"
	"jailroster/internal/config"
	"jailroster/internal/mailer"
	"jailroster/internal/server"
	"jailroster/internal/util"
	"jailroster/pkg/auth"
	"jailroster/pkg/domain"
	"jailroster/pkg/storage"
	"jailroster/pkg/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	recordStore, err := buildRecordStore(cfg)
	if err != nil {
		log.Fatalf("failed to init record store: %v", err)
	}
	sessionStore := buildSessionStore(cfg)
	directory, err := buildDirectory(cfg)
	if err != nil {
		log.Fatalf("failed to init user directory: %v", err)
	}

	var objects storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to init object store: %v", err)
		}
	} else {
		slog.Info("object storage not configured, photo routes disabled")
	}

	var publisher audit.Publisher = audit.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := audit.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("failed to init audit publisher: %v", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	mailClient, err := mailer.NewClient(cfg.MailAPIKey, cfg.SenderEmail, cfg.MailAPIBaseURL)
	if err != nil {
		slog.Info("mail delivery not configured, report email disabled")
	}
	dispatcher := mailer.NewDispatcher(mailClient, cfg.OrgName)

	headerSkipRows := -1
	if cfg.HeaderSkipRows != nil {
		headerSkipRows = *cfg.HeaderSkipRows
	}
	appCore := app.New(recordStore, objects, publisher, dispatcher, cfg.OrgName, headerSkipRows)
	sessions := auth.NewSessionManager(sessionStore, cfg.SessionSecret, sessionTTL)

	httpServer := server.New(server.Config{
		App:            appCore,
		Directory:      directory,
		Sessions:       sessions,
		SessionTTL:     sessionTTL,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("roster server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func buildRecordStore(cfg config.FileConfig) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		slog.Info("databaseURL not set, using in-memory record store")
		return store.NewMemoryStore(), nil
	}
	return store.NewGormStore(cfg.DatabaseURL)
}

func buildSessionStore(cfg config.FileConfig) store.SessionStore {
	if cfg.RedisAddr == "" {
		slog.Info("redisAddr not set, using in-memory session store")
		return store.NewMemorySessionStore()
	}
	return store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword)
}

func buildDirectory(cfg config.FileConfig) (*auth.Directory, error) {
	if len(cfg.Users) == 0 {
		slog.Info("no users configured, seeding default accounts")
		return auth.SeedDefaults()
	}
	users := make([]domain.User, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return nil, err
		}
		users = append(users, domain.User{
			Username:     u.Username,
			PasswordHash: hash,
			Role:         domain.Role(u.Role),
			Name:         u.Name,
		})
	}
	return auth.NewDirectory(users), nil
}
