package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const asyncTimeout = 200 * time.Millisecond

// AsyncSet actualiza la caché en background sin bloquear al llamador.
// Usa su propio contexto: la petición original puede haber terminado ya.
func AsyncSet(c Cache, key string, value interface{}, ttl time.Duration, log *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if c == nil {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()

		if err := c.Set(ctx, key, value, ttl); err != nil {
			log.Warn("Cache update failed", zap.String("key", key), zap.Error(err))
		}
	}()
	return done
}

// AsyncDelete invalida una clave en background.
func AsyncDelete(c Cache, key string, log *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if c == nil {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()

		if err := c.Delete(ctx, key); err != nil {
			log.Warn("Cache deletion failed", zap.String("key", key), zap.Error(err))
		}
	}()
	return done
}
