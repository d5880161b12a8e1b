package application

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/channels/domain"
	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/bus"
)

// ChannelService define los casos de uso de Channel.
type ChannelService struct {
	repo   domain.ChannelRepository
	events bus.EventPublisher
	log    *zap.Logger
}

// NewChannelService: events es opcional.
func NewChannelService(repo domain.ChannelRepository, events bus.EventPublisher, log *zap.Logger) *ChannelService {
	return &ChannelService{repo: repo, events: events, log: log}
}

func (s *ChannelService) CreateChannel(ctx context.Context, userID uuid.UUID, t domain.ChannelType, name string, config map[string]string) (*domain.Channel, error) {
	ch, err := domain.NewChannel(userID, t, name, config)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *ChannelService) GetChannel(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ChannelService) GetChannelByName(ctx context.Context, name string) (*domain.Channel, error) {
	return s.repo.FindByName(ctx, name)
}

// SetActive activa o desactiva el canal.
func (s *ChannelService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Channel, error) {
	ch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		ch.Activate()
	} else {
		ch.Deactivate()
	}
	if err := s.save(ctx, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *ChannelService) DeleteChannel(ctx context.Context, id uuid.UUID) error {
	return s.repo.Remove(ctx, id)
}

func (s *ChannelService) SearchChannels(ctx context.Context, c criteria.Criteria) (sharedDomain.PaginatedResult[*domain.Channel], error) {
	return s.repo.FindByCriteria(ctx, c)
}

func (s *ChannelService) CountChannels(ctx context.Context, c criteria.Criteria) (int, error) {
	return s.repo.CountByCriteria(ctx, c)
}

func (s *ChannelService) save(ctx context.Context, ch *domain.Channel) error {
	if err := s.repo.Save(ctx, ch); err != nil {
		return err
	}
	if err := bus.PublishAll(ctx, s.events, ch.PullEvents()); err != nil {
		s.log.Warn("Failed to publish channel events", zap.String("channel_id", ch.ID.String()), zap.Error(err))
	}
	return nil
}
