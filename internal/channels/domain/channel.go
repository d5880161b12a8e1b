package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
)

type ChannelType string

const (
	ChannelEmail   ChannelType = "email"
	ChannelSMS     ChannelType = "sms"
	ChannelSlack   ChannelType = "slack"
	ChannelWebhook ChannelType = "webhook"
)

var ErrInvalidChannel = errors.New("invalid channel")

func ParseChannelType(s string) (ChannelType, error) {
	switch t := ChannelType(strings.ToLower(strings.TrimSpace(s))); t {
	case ChannelEmail, ChannelSMS, ChannelSlack, ChannelWebhook:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown channel type %q", ErrInvalidChannel, s)
}

// Channel es un canal de notificación de un usuario. El nombre es único.
type Channel struct {
	sharedDomain.AggregateRoot `json:"-"`

	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"userId"`
	Type             ChannelType       `json:"channelType"`
	Name             string            `json:"name"`
	IsActive         bool              `json:"isActive"`
	ConnectionConfig map[string]string `json:"connectionConfig"`
	CreatedAt        time.Time         `json:"createdAt"`
}

func NewChannel(userID uuid.UUID, t ChannelType, name string, config map[string]string) (*Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidChannel)
	}
	if _, err := ParseChannelType(string(t)); err != nil {
		return nil, err
	}
	if config == nil {
		config = map[string]string{}
	}
	c := &Channel{
		ID:               uuid.New(),
		UserID:           userID,
		Type:             t,
		Name:             name,
		IsActive:         true,
		ConnectionConfig: config,
		CreatedAt:        criteria.NormalizeTime(time.Now()),
	}
	c.Record(ChannelCreated{BaseEvent: sharedDomain.NewBaseEvent(ChannelCreatedEvent, c.ID), UserID: userID, Type: t})
	return c, nil
}

func (c *Channel) Activate()   { c.IsActive = true }
func (c *Channel) Deactivate() { c.IsActive = false }

func (c *Channel) Clone() *Channel {
	cp := *c
	cp.AggregateRoot = sharedDomain.AggregateRoot{}
	cp.ConnectionConfig = make(map[string]string, len(c.ConnectionConfig))
	for k, v := range c.ConnectionConfig {
		cp.ConnectionConfig[k] = v
	}
	return &cp
}

var ChannelSchema = criteria.NewSchema[*Channel]("channel", "id",
	criteria.StringField("id", func(c *Channel) string { return c.ID.String() }),
	criteria.StringField("userId", func(c *Channel) string { return c.UserID.String() }),
	criteria.StringField("channelType", func(c *Channel) string { return string(c.Type) }),
	criteria.StringField("name", func(c *Channel) string { return c.Name }, criteria.Unique()),
	criteria.BoolField("isActive", func(c *Channel) bool { return c.IsActive }),
	criteria.TimeField("createdAt", func(c *Channel) time.Time { return c.CreatedAt }),
)
