package cache

import (
	"context"
	"time"
)

// Cache es una caché clave-valor que serializa en JSON.
type Cache interface {
	// Get rellena dest (puntero). (true, nil) si hay hit, (false, nil) si es miss.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set guarda val con un TTL; ttl <= 0 usa el TTL por defecto de la caché.
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
}
