package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/tradelink-backend/internal/notifications"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
)

const heartbeatInterval = time.Minute

type pinger func(context.Context) error

type runner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies map[string]pinger
	Consumers    []*notifications.Consumer
}

// Service runs the notification consumers once every dependency answers.
type Service struct {
	logg      *logger.Logger
	deps      map[string]pinger
	consumers []runner
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one notification consumer is required")
	}
	consumers := make([]runner, 0, len(params.Consumers))
	for _, c := range params.Consumers {
		if c == nil {
			return nil, errors.New("notification consumer is nil")
		}
		consumers = append(consumers, c)
	}
	return &Service{
		logg:      params.Logger,
		deps:      params.Dependencies,
		consumers: consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for name, fn := range s.deps {
		if err := pingDependency(ctx, s.logg, name, fn); err != nil {
			return err
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn pinger) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// Run blocks until ctx is canceled or any consumer exits. A consumer exiting
// early cancels the rest.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(s.consumers))
	for _, c := range s.consumers {
		go func(c runner) {
			errCh <- c.Run(runCtx)
		}(c)
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "consumer stopped unexpectedly", err)
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.New("consumer stopped without error")
		case <-ticker.C:
			s.logg.Info(ctx, "worker.heartbeat")
		}
	}
}
