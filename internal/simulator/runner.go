package simulator

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/aclguard/pkg/logger"
)

// Run streams cfg.Samples synthetic samples into every session of cfg and
// returns the aggregated report. Lanes run concurrently up to
// cfg.Concurrency. The first lane failure cancels the rest.
func Run(ctx context.Context, cfg Config) (Report, error) {
	cfg = cfg.withDefaults()
	if cfg.BaseURL == "" {
		return Report{}, ErrMissingURL
	}
	if len(cfg.Sessions) == 0 {
		return Report{}, ErrNoSessions
	}

	runID := uuid.New()
	seed := cfg.Seed
	if seed == 0 {
		seed = binary.BigEndian.Uint64(runID[:8])
	}
	log := logger.Get().Named("simulator").With(logger.String("run_id", runID.String()))
	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", len(cfg.Sessions)),
		logger.Int("samples", cfg.Samples),
		logger.Int("concurrency", cfg.Concurrency))

	targets := make([]string, len(cfg.Sessions))
	for i, id := range cfg.Sessions {
		target, err := LaneURL(cfg.BaseURL, id)
		if err != nil {
			return Report{}, err
		}
		targets[i] = target
	}

	started := time.Now()
	lanes := make([]LaneReport, len(cfg.Sessions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i, id := range cfg.Sessions {
		target := targets[i]
		// Each lane gets its own deterministic stream.
		gen := NewGenerator(seed+uint64(i), started, cfg.Interval, cfg.HighRiskRatio)
		samples := gen.Samples(cfg.Samples)
		g.Go(func() error {
			rep, err := StreamSession(gctx, target, id, samples, cfg.Timeout)
			lanes[i] = rep
			if err != nil {
				return fmt.Errorf("session %s: %w", id, err)
			}
			log.Debug(gctx, "lane finished",
				logger.String("session", id),
				logger.Int("feedback", rep.Feedback),
				logger.Int("mismatches", len(rep.Mismatches)))
			return nil
		})
	}
	err := g.Wait()

	rep := Report{RunID: runID.String(), Lanes: lanes, Duration: time.Since(started)}
	for _, l := range lanes {
		rep.Sent += l.Sent
		rep.Feedback += l.Feedback
		rep.Warnings += l.Warnings
		rep.Errors += l.Errors
	}
	if err != nil {
		log.Error(ctx, "simulation failed", logger.Error(err))
		return rep, err
	}
	log.Info(ctx, "simulation finished",
		logger.Int("sent", rep.Sent),
		logger.Int("warnings", rep.Warnings),
		logger.Bool("ok", rep.OK()),
		logger.Duration("duration", rep.Duration))
	return rep, nil
}
