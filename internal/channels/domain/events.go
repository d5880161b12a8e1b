package domain

import (
	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
)

const ChannelCreatedEvent = "channels.channel.created"

type ChannelCreated struct {
	sharedDomain.BaseEvent
	UserID uuid.UUID   `json:"userId"`
	Type   ChannelType `json:"channelType"`
}
