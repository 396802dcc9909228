package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"socialfeed/cache"
	"socialfeed/config"
	"socialfeed/database"
	"socialfeed/feed"
	"socialfeed/handlers"
	"socialfeed/logger"
	"socialfeed/push"
	"socialfeed/routes"
	"socialfeed/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet; the bootstrap logger writes to stderr.
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	log, err := logger.New(cfg)
	if err != nil {
		zap.NewExample().Fatal("logger setup failed", zap.Error(err))
	}
	defer log.Sync()

	log.Info("starting feed service", zap.String("port", cfg.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, db, err := database.ConnectWithRetry(ctx, cfg, log, 3)
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer database.DisconnectMongo(client, log)

	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Warn("index creation failed", zap.Error(err))
	}

	store := database.NewStore(db, cfg.MongoTransactions)
	subs := database.NewSubscriptions(db)

	var wg sync.WaitGroup

	hub := websocket.NewManager(log.Named("ws"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	notifiers := feed.Notifiers{hub}
	var pusher *push.Sender
	if cfg.PushEnabled() {
		pusher = push.New(subs, cfg, log.Named("push"))
		notifiers = append(notifiers, pusher)
	} else {
		log.Warn("VAPID keys not set, web push disabled")
	}

	opts := feed.Options{
		Notifier:     notifiers,
		Logger:       log.Named("feed"),
		MaxPageLimit: cfg.MaxPageLimit,
		MaxDiscover:  cfg.MaxDiscover,
		Timeout:      cfg.MongoTimeout,
	}
	if rdb := cache.NewClient(cfg); rdb != nil {
		defer rdb.Close()
		opts.Cache = cache.New(rdb, cfg.CacheTTL, log.Named("cache"))
		log.Info("post cache enabled", zap.String("addr", cfg.RedisAddr))
	}
	svc := feed.NewService(store, opts)

	if !store.Transactional() {
		sweeper := feed.NewSweeper(store, cfg.SweepInterval, log.Named("sweeper"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Run(ctx)
		}()
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.SetupRouter(routes.Deps{
		Config:  cfg,
		Handler: handlers.New(svc, subs, cfg.VAPIDPublicKey, log.Named("http")),
		Users:   store,
		Hub:     hub,
		Logger:  log.Named("http"),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}

	wg.Wait()
	if pusher != nil {
		pusher.Wait()
	}
	log.Info("server stopped")
}
