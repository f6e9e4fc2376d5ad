package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/i2y/mcptime/internal/domain"
)

// TimeService implements the two time operations on top of a timezone
// resolver and a clock. It holds no mutable state.
type TimeService struct {
	resolver TimezoneResolver
	clock    Clock
	logger   *slog.Logger
}

// NewTimeService creates a new TimeService. A nil clock means the system clock.
func NewTimeService(resolver TimezoneResolver, clock Clock, logger *slog.Logger) *TimeService {
	if clock == nil {
		clock = SystemClock
	}
	return &TimeService{
		resolver: resolver,
		clock:    clock,
		logger:   logger.With("usecase", "TimeService"),
	}
}

// GetCurrentTime returns the current time in zone.
func (s *TimeService) GetCurrentTime(ctx context.Context, zone string) (domain.TimeResult, error) {
	loc, err := s.resolver.Resolve(zone)
	if err != nil {
		return domain.TimeResult{}, err
	}
	if zone == "" {
		zone = s.resolver.DefaultName()
	}

	result := domain.NewTimeResult(zone, s.clock.Now().In(loc))
	s.logger.Debug("Current time resolved", slog.String("timezone", zone), slog.String("datetime", result.Datetime))
	return result, nil
}

// ConvertTime converts clock ("HH:MM", today in sourceZone) to targetZone.
func (s *TimeService) ConvertTime(ctx context.Context, sourceZone, clock, targetZone string) (domain.TimeConversionResult, error) {
	source, err := s.resolver.Resolve(sourceZone)
	if err != nil {
		return domain.TimeConversionResult{}, fmt.Errorf("source timezone: %w", err)
	}
	target, err := s.resolver.Resolve(targetZone)
	if err != nil {
		return domain.TimeConversionResult{}, fmt.Errorf("target timezone: %w", err)
	}
	if sourceZone == "" {
		sourceZone = s.resolver.DefaultName()
	}
	if targetZone == "" {
		targetZone = s.resolver.DefaultName()
	}

	result, err := domain.ConvertClock(s.clock.Now(), sourceZone, source, clock, targetZone, target)
	if err != nil {
		return domain.TimeConversionResult{}, err
	}
	s.logger.Debug("Time converted",
		slog.String("source_timezone", sourceZone),
		slog.String("target_timezone", targetZone),
		slog.String("time", clock),
		slog.String("time_difference", result.TimeDifference),
	)
	return result, nil
}
