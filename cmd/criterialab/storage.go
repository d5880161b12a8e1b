package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	authDomain "github.com/davicafu/criterialab/internal/auth/domain"
	authMemory "github.com/davicafu/criterialab/internal/auth/infra/outbound/db/memory"
	authMongo "github.com/davicafu/criterialab/internal/auth/infra/outbound/db/mongodb"
	channelDomain "github.com/davicafu/criterialab/internal/channels/domain"
	channelMemory "github.com/davicafu/criterialab/internal/channels/infra/outbound/db/memory"
	channelMongo "github.com/davicafu/criterialab/internal/channels/infra/outbound/db/mongodb"
	channelRedis "github.com/davicafu/criterialab/internal/channels/infra/outbound/db/redisdb"
	channelSQL "github.com/davicafu/criterialab/internal/channels/infra/outbound/db/sqldb"
	"github.com/davicafu/criterialab/internal/config"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/db/sqlstore"
	userDomain "github.com/davicafu/criterialab/internal/users/domain"
	userMemory "github.com/davicafu/criterialab/internal/users/infra/outbound/db/memory"
	userMongo "github.com/davicafu/criterialab/internal/users/infra/outbound/db/mongodb"
)

// storage agrupa los repositorios de todos los contextos sobre el backend elegido.
type storage struct {
	users         userDomain.UserRepository
	channels      channelDomain.ChannelRepository
	accounts      authDomain.UserRepository
	verifications authDomain.EmailVerificationRepository

	closers []func(context.Context) error
}

func (s *storage) Close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i](ctx)
	}
}

// memoryDefaults rellena lo que el backend elegido no implementa.
func (s *storage) memoryDefaults(log *zap.Logger) {
	if s.users == nil {
		s.users = userMemory.NewUserRepository(log)
	}
	if s.channels == nil {
		s.channels = channelMemory.NewChannelRepository(log)
	}
	if s.accounts == nil {
		s.accounts = authMemory.NewUserRepository(log)
	}
	if s.verifications == nil {
		s.verifications = authMemory.NewEmailVerificationRepository(log)
	}
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage, error) {
	s := &storage{}
	var err error

	switch cfg.StorageBackend {
	case config.BackendMemory:

	case config.BackendMongoDB:
		err = s.openMongo(ctx, cfg, log)

	case config.BackendSQLite:
		err = s.openSQL(ctx, sqlstore.SQLite, cfg.SQLitePath, log)

	case config.BackendPostgres:
		err = s.openSQL(ctx, sqlstore.Postgres, cfg.PostgresDSN, log)

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		s.closers = append(s.closers, func(context.Context) error { return client.Close() })
		if err = client.Ping(ctx).Err(); err == nil {
			s.channels = channelRedis.NewChannelRepository(client, cfg.RedisPrefix, log)
		}

	default:
		err = fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	if err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("open %s storage: %w", cfg.StorageBackend, err)
	}

	if cfg.StorageBackend != config.BackendMemory && cfg.StorageBackend != config.BackendMongoDB {
		log.Warn("users and auth are kept in memory on this backend", zap.String("backend", cfg.StorageBackend))
	}
	s.memoryDefaults(log)
	return s, nil
}

func (s *storage) openMongo(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return err
	}
	s.closers = append(s.closers, client.Disconnect)
	if err := client.Ping(ctx, nil); err != nil {
		return err
	}
	db := client.Database(cfg.MongoDB)

	if s.users, err = userMongo.NewUserRepository(ctx, db, log); err != nil {
		return err
	}
	if s.channels, err = channelMongo.NewChannelRepository(ctx, db, log); err != nil {
		return err
	}
	if s.accounts, err = authMongo.NewUserRepository(ctx, db, log); err != nil {
		return err
	}
	s.verifications, err = authMongo.NewEmailVerificationRepository(ctx, db, log)
	return err
}

func (s *storage) openSQL(ctx context.Context, d sqlstore.Dialect, dsn string, log *zap.Logger) error {
	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, func(context.Context) error { return db.Close() })
	if d.Name == sqlstore.SQLite.Name {
		// SQLite serializa escrituras; una conexión evita SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	s.channels, err = channelSQL.NewChannelRepository(ctx, db, d, log)
	return err
}
