// Package dbtest prepara backends reales para los tests de contrato.
// SQLite siempre está disponible; MongoDB, Postgres y Redis solo si su
// variable de entorno apunta a una instancia (si no, el test se salta).
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/davicafu/criterialab/internal/shared/infra/platform/db/sqlstore"
)

const timeout = 10 * time.Second

func suffix() string {
	return uuid.NewString()[:8]
}

// SQLite abre una base de datos en un fichero temporal del test.
func SQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(sqlstore.SQLite.DriverName, filepath.Join(t.TempDir(), "criterialab.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Postgres abre POSTGRES_DSN y aísla el test en un schema propio.
func Postgres(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sql.Open(sqlstore.Postgres.DriverName, dsn)
	require.NoError(t, err)
	// una sola conexión para que el search_path se mantenga
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	schema := "criterialab_test_" + suffix()
	_, err = db.ExecContext(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "SET search_path TO "+schema)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, _ = db.ExecContext(ctx, "DROP SCHEMA "+schema+" CASCADE")
		_ = db.Close()
	})
	return db
}

// Mongo conecta a MONGO_URI y devuelve una base de datos desechable.
func Mongo(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	db := client.Database("criterialab_test_" + suffix())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

// Redis conecta a REDIS_ADDR y devuelve un prefijo de claves único;
// al terminar borra todas las claves con ese prefijo.
func Redis(t *testing.T) (*redis.Client, string) {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(ctx).Err())
	prefix := fmt.Sprintf("criterialab_test:%s", suffix())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		iter := client.Scan(ctx, 0, prefix+":*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
		_ = client.Close()
	})
	return client, prefix
}
