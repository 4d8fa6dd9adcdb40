package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/engage/internal/logger"
)

// RetryPolicy controls how long and how often a backend is probed at startup.
type RetryPolicy struct {
	ConnectTimeout time.Duration // total time allowed for attempts (ex: 30s)
	RetryInterval  time.Duration // initial wait between attempts, doubles each time (ex: 2s)
	MaxWait        time.Duration // cap for the wait between attempts (ex: 10s)
	PingTimeout    time.Duration // timeout for a single attempt (ex: 2s)
	WarnThreshold  int           // attempts logged at warn before switching to error
}

// Validate checks every duration is positive.
func (p RetryPolicy) Validate() error {
	if p.ConnectTimeout <= 0 {
		return fmt.Errorf("ConnectTimeout must be > 0, got %v", p.ConnectTimeout)
	}
	if p.RetryInterval <= 0 {
		return fmt.Errorf("RetryInterval must be > 0, got %v", p.RetryInterval)
	}
	if p.MaxWait <= 0 {
		return fmt.Errorf("MaxWait must be > 0, got %v", p.MaxWait)
	}
	if p.PingTimeout <= 0 {
		return fmt.Errorf("PingTimeout must be > 0, got %v", p.PingTimeout)
	}
	if p.WarnThreshold < 0 {
		return fmt.Errorf("WarnThreshold must be >= 0, got %d", p.WarnThreshold)
	}
	return nil
}

// PingFunc probes a backend once.
type PingFunc func(ctx context.Context) error

// WaitFor calls ping until it succeeds or the policy's ConnectTimeout elapses,
// backing off exponentially between attempts.
func WaitFor(backend, addr string, policy RetryPolicy, ping PingFunc, log logger.Logger) error {
	if err := policy.Validate(); err != nil {
		log.Error("invalid retry policy", logger.String("backend", backend), logger.Error(err))
		return err
	}

	log = log.With(logger.String("backend", backend), logger.String("addr", addr))

	ctx, cancel := context.WithTimeout(context.Background(), policy.ConnectTimeout)
	defer cancel()

	log.Info("connecting", logger.Duration("timeout", policy.ConnectTimeout))
	attempt := 0
	wait := policy.RetryInterval

	for {
		attempt++

		pingCtx, pingCancel := context.WithTimeout(ctx, policy.PingTimeout)
		err := ping(pingCtx)
		pingCancel()

		if err == nil {
			if attempt > 1 {
				log.Warn("connected after retry",
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", policy.ConnectTimeout-timeLeft(ctx)))
			} else {
				log.Info("connected")
			}
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("unavailable - failed to connect after timeout",
				logger.Int("attempts", attempt),
				logger.Duration("timeout", policy.ConnectTimeout),
				logger.Error(err))
			return fmt.Errorf("%s unavailable at %s after %d attempts (timeout: %v): %w",
				backend, addr, attempt, policy.ConnectTimeout, err)

		case <-timer.C:
			logRetry(log, attempt, timeLeft(ctx), wait, policy.WarnThreshold, err)
			wait *= 2
			if wait > policy.MaxWait {
				wait = policy.MaxWait
			}
		}
	}
}

func logRetry(log logger.Logger, attempt int, remaining, nextRetry time.Duration, warnThreshold int, err error) {
	switch {
	case remaining < 10*time.Second:
		log.Error("still down - retrying but timeout approaching",
			logger.Int("attempt", attempt),
			logger.Duration("remaining", remaining),
			logger.Duration("next_retry_in", nextRetry),
			logger.Error(err))
	case attempt <= warnThreshold:
		log.Warn("connection failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", nextRetry),
			logger.Error(err))
	default:
		log.Error("still unavailable - connection attempts failing",
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", nextRetry),
			logger.Error(err))
	}
}

// timeLeft returns the remaining time before context deadline.
func timeLeft(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return time.Until(deadline)
}
