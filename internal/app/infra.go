package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/clay/amphora-auth/internal/config"
	"github.com/clay/amphora-auth/internal/db"
	"github.com/clay/amphora-auth/internal/logger"
	"github.com/clay/amphora-auth/internal/redis"
	"github.com/clay/amphora-auth/internal/session"
	"github.com/clay/amphora-auth/internal/userstore"
)

type Infra struct {
	Redis    *redis.Client
	DB       *db.DB
	Sessions session.Store
	Users    userstore.Store
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}

	logger.Info("redis ready", nil)

	infra := &Infra{
		Redis:    redisClient,
		Sessions: session.NewRedisStore(redisClient.Client, cfg.RedisDB),
	}

	switch cfg.UserStore {
	case "redis":
		infra.Users = userstore.NewRedisStore(redisClient.Client)
	case "postgres":
		database, err := db.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			_ = redisClient.Close()
			return nil, err
		}
		logger.Info("database ready", nil)
		infra.DB = database
		infra.Users = userstore.NewPostgresStore(database)
	case "memory":
		logger.Warn("using in-memory user store; records are lost on restart", nil)
		infra.Users = userstore.NewMemoryStore()
	default:
		_ = redisClient.Close()
		return nil, fmt.Errorf("unknown USER_STORE %q", cfg.UserStore)
	}

	return infra, nil
}

func (i *Infra) Close() error {
	var errs []error
	if i.DB != nil {
		errs = append(errs, i.DB.Close())
	}
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	return errors.Join(errs...)
}
