package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	channelDomain "github.com/davicafu/criterialab/internal/channels/domain"
	"github.com/davicafu/criterialab/internal/config"
	"github.com/davicafu/criterialab/internal/shared/domain"
	userDomain "github.com/davicafu/criterialab/internal/users/domain"
)

var channelTypes = []channelDomain.ChannelType{
	channelDomain.ChannelEmail, channelDomain.ChannelSlack, channelDomain.ChannelSMS, channelDomain.ChannelWebhook,
}

func newSeedCmd(load func() (*config.Config, error), log *zap.Logger) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo users, channels and accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.StorageBackend == config.BackendMemory {
				log.Warn("seeding the memory backend has no lasting effect")
			}
			ctx := cmd.Context()
			st, err := openStorage(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			svc := newServices(st, nil, nil, nil, nil, cfg, log)
			created, err := seed(ctx, svc, count)
			if err != nil {
				return err
			}
			log.Info("Seed completed", zap.Int("created", created), zap.String("backend", cfg.StorageBackend))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of demo users")
	return cmd
}

// seed es idempotente: los duplicados se cuentan como ya existentes.
func seed(ctx context.Context, svc *services, count int) (int, error) {
	created := 0
	track := func(err error) error {
		switch {
		case err == nil:
			created++
			return nil
		case errors.Is(err, domain.ErrAlreadyExists):
			return nil
		}
		return err
	}

	for i := 1; i <= count; i++ {
		username := fmt.Sprintf("user%d", i)
		role := userDomain.RoleUser
		if i%4 == 1 {
			role = userDomain.RoleAdmin
		}
		u, err := svc.users.CreateUser(ctx, username+"@example.com", username,
			userDomain.Profile{FirstName: fmt.Sprintf("Demo %d", i), LastName: "User"}, role)
		if err := track(err); err != nil {
			return created, err
		}
		owner := uuid.Nil
		if u != nil {
			owner = u.ID
		}

		t := channelTypes[i%len(channelTypes)]
		_, err = svc.channels.CreateChannel(ctx, owner, t, fmt.Sprintf("%s-%s", username, t), nil)
		if err := track(err); err != nil {
			return created, err
		}

		_, _, err = svc.auth.Register(ctx, username+"@example.com", username, "password-"+username)
		if err := track(err); err != nil {
			return created, err
		}
	}
	return created, nil
}
