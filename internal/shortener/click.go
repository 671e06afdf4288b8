package shortener

import (
	"context"

	"github.com/google/uuid"
	"github.com/serroba/shortlink/internal/analytics"
	"go.uber.org/zap"
)

// recordClick persists a click, bumps the cached counter and notifies
// downstream consumers. Failures are logged and never reach the caller.
func (s *Service) recordClick(ctx context.Context, mappingID int64, code Code, meta ClientMeta) {
	click := &ClickEvent{
		ID:        uuid.New(),
		MappingID: mappingID,
		Code:      code,
		ClickedAt: s.now(),
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
	}

	if err := s.store.InsertClick(ctx, click); err != nil {
		s.logger.Error("failed to record click",
			zap.String("code", string(code)),
			zap.Error(err),
		)
	}

	count := s.cache.IncrementCounter(ctx, ClicksKey(code))

	s.logger.Debug("recorded click",
		zap.String("code", string(code)),
		zap.Int64("clicks", count),
	)

	if s.events.Clicked == nil {
		return
	}

	event := &analytics.URLClickedEvent{
		ID:        click.ID.String(),
		Code:      string(code),
		MappingID: mappingID,
		ClickedAt: click.ClickedAt,
		ClientIP:  meta.IP,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
	}

	if err := s.events.Clicked(event); err != nil {
		s.logger.Error("failed to publish click event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}
}
