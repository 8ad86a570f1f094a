package database

import (
	"context"
	"fmt"

	"github.com/UthayakumarDevon/livechatapp/config"
	"github.com/UthayakumarDevon/livechatapp/internal/repository"
	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"

	"go.uber.org/zap"
)

// OpenStore builds the store selected by cfg.Store.Driver. The postgres
// schema is created when missing.
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Store.Driver {
	case config.StoreDriverPebble:
		return repository.NewPebbleStore(cfg.Store.PebblePath, log)
	case config.StoreDriverPostgres:
		db, err := Connect(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if err := repository.InitSchema(ctx, db); err != nil {
			_ = Close(db)
			return nil, fmt.Errorf("init schema: %w", err)
		}
		return repository.NewPostgresStore(db), nil
	case config.StoreDriverMemory:
		log.Warn("using in-memory store, history is lost on restart")
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("store driver %q: %w", cfg.Store.Driver, chat_errors.ErrUnsupportedDriver)
	}
}
