package domain

import (
	"context"

	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
)

type ChannelRepository interface {
	sharedDomain.Repository[*Channel]

	FindByName(ctx context.Context, name string) (*Channel, error)
}

func NewChannelRepository(base sharedDomain.Repository[*Channel]) ChannelRepository {
	return &channelRepository{Repository: base}
}

type channelRepository struct {
	sharedDomain.Repository[*Channel]
}

func (r *channelRepository) FindByName(ctx context.Context, name string) (*Channel, error) {
	return sharedDomain.FindOneBy[*Channel](ctx, r, ChannelSchema, "name", name)
}
