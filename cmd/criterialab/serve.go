package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	authApp "github.com/davicafu/criterialab/internal/auth/application"
	authHttp "github.com/davicafu/criterialab/internal/auth/infra/inbound/http"
	channelApp "github.com/davicafu/criterialab/internal/channels/application"
	channelHttp "github.com/davicafu/criterialab/internal/channels/infra/inbound/http"
	"github.com/davicafu/criterialab/internal/config"
	sharedHttp "github.com/davicafu/criterialab/internal/shared/infra/inbound/http"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/bus"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/cache"
	userApp "github.com/davicafu/criterialab/internal/users/application"
	userEvents "github.com/davicafu/criterialab/internal/users/infra/inbound/events"
	userHttp "github.com/davicafu/criterialab/internal/users/infra/inbound/http"
	"github.com/davicafu/criterialab/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

// services son los casos de uso ya montados sobre un storage.
type services struct {
	users    *userApp.UserService
	channels *channelApp.ChannelService
	auth     *authApp.AuthService
}

func newServices(st *storage, userCache cache.Cache, userBus, channelBus, authBus bus.EventPublisher, cfg *config.Config, log *zap.Logger) *services {
	return &services{
		users: userApp.NewUserService(st.users, userCache, userBus, log,
			userApp.WithLimits(userApp.Limits{Default: cfg.DefaultLimit, Max: cfg.MaxLimit})),
		channels: channelApp.NewChannelService(st.channels, channelBus, log),
		auth:     authApp.NewAuthService(st.accounts, st.verifications, authBus, log),
	}
}

// openCache usa Redis si responde y, si no, la caché en memoria.
func openCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (cache.Cache, func()) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		log.Warn("Redis not available, using in-memory cache", zap.Error(err))
		mem := cache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
		return mem, mem.Stop
	}
	log.Info("Redis connected, cache enabled", zap.String("addr", cfg.RedisAddr))
	return cache.NewRedisCache(rdb, cfg.RedisPrefix+":cache", cfg.CacheTTL), func() { _ = rdb.Close() }
}

func newRouter(svc *services, cfg *config.Config, log *zap.Logger) *gin.Engine {
	limits := sharedHttp.Limits{Default: cfg.DefaultLimit, Max: cfg.MaxLimit}

	router := gin.New()
	router.Use(gin.Recovery(), sharedHttp.RequestLogger(log), sharedHttp.Timeout(cfg.QueryTimeout))

	userHttp.RegisterUserRoutes(router, userHttp.NewUserHandler(svc.users, limits, log))
	channelHttp.RegisterChannelRoutes(router, channelHttp.NewChannelHandler(svc.channels, limits, log))
	authHttp.RegisterAuthRoutes(router, authHttp.NewAuthHandler(svc.auth, limits, log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": cfg.StorageBackend})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.NoRoute(func(c *gin.Context) {
		utils.SendNotFound(c, "route not found")
	})
	return router
}

func newServeCmd(load func() (*config.Config, error), log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := openStorage(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			userCache, closeCache := openCache(ctx, cfg, log)
			defer closeCache()

			// ---------------- Events ---------------
			buses := openEventBuses(cfg, log)
			defer buses.Close()

			svc := newServices(st, userCache, buses.users, buses.channels, buses.auth, cfg, log)
			go buses.consume(ctx, userEvents.NewUserConsumer(svc.users, log))

			// ---------------- HTTP ----------------
			srv := &http.Server{
				Addr:              ":" + cfg.HTTPPort,
				Handler:           newRouter(svc, cfg, log),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				log.Info("Server running",
					zap.String("url", "http://localhost:"+cfg.HTTPPort),
					zap.String("backend", cfg.StorageBackend),
					zap.String("eventBus", cfg.EventBus))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				log.Info("Shutting down")
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
