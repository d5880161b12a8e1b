package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/channels/domain"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/db/sqlstore"
)

const channelsTable = "channels"

var channelsDDL = map[string][]string{
	sqlstore.SQLite.Name: {
		`CREATE TABLE IF NOT EXISTS channels (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			channel_type TEXT NOT NULL,
			name TEXT NOT NULL,
			is_active INTEGER NOT NULL,
			connection_config TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		sqlstore.SQLite.UniqueIndex(channelsTable, "name"),
		`CREATE INDEX IF NOT EXISTS idx_channels_user_id ON channels (user_id)`,
	},
	sqlstore.Postgres.Name: {
		`CREATE TABLE IF NOT EXISTS channels (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			channel_type TEXT NOT NULL,
			name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL,
			connection_config TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		sqlstore.Postgres.UniqueIndex(channelsTable, "name"),
		`CREATE INDEX IF NOT EXISTS idx_channels_user_id ON channels (user_id)`,
	},
}

var channelTable = sqlstore.Table[*domain.Channel]{
	Name:   channelsTable,
	Schema: domain.ChannelSchema,
	FieldColumns: map[string]string{
		"userId":      "user_id",
		"channelType": "channel_type",
		"isActive":    "is_active",
		"createdAt":   "created_at",
	},
	Columns: []string{"id", "user_id", "channel_type", "name", "is_active", "connection_config", "created_at"},
	Values: func(d sqlstore.Dialect, c *domain.Channel) []any {
		cfg, _ := json.Marshal(c.ConnectionConfig)
		return []any{
			c.ID.String(), c.UserID.String(), string(c.Type), c.Name, c.IsActive, string(cfg), d.Time(c.CreatedAt),
		}
	},
	Scan: scanChannel,
	DDL:  channelsDDL,
}

func scanChannel(_ sqlstore.Dialect, row sqlstore.Scanner) (*domain.Channel, error) {
	var (
		id, userID, channelType, name, cfg string
		isActive                           bool
		createdAt                          any
	)
	if err := row.Scan(&id, &userID, &channelType, &name, &isActive, &cfg, &createdAt); err != nil {
		return nil, err
	}

	c := &domain.Channel{Type: domain.ChannelType(channelType), Name: name, IsActive: isActive}
	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	if c.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	if err := json.Unmarshal([]byte(cfg), &c.ConnectionConfig); err != nil {
		return nil, fmt.Errorf("invalid connection_config: %w", err)
	}
	if c.ConnectionConfig == nil {
		c.ConnectionConfig = map[string]string{}
	}
	t, err := sqlstore.ScanTime(createdAt)
	if err != nil {
		return nil, err
	}
	if t != nil {
		c.CreatedAt = *t
	}
	return c, nil
}

// NewChannelRepository sirve para SQLite y PostgreSQL según el dialecto.
func NewChannelRepository(ctx context.Context, db *sql.DB, d sqlstore.Dialect, log *zap.Logger) (domain.ChannelRepository, error) {
	base, err := sqlstore.NewRepository(ctx, db, d, channelTable, log)
	if err != nil {
		return nil, err
	}
	return domain.NewChannelRepository(base), nil
}
