// Package stream runs streaming ingestion lanes: one lane per connected
// client, each strictly sequential. A lane validates, scores and stores
// every inbound sample and answers it before reading the next one.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/aclguard/internal/adapters/store"
	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/internal/domain/scoring"
	"github.com/okian/aclguard/internal/domain/session"
	"github.com/okian/aclguard/internal/domain/validate"
	"github.com/okian/aclguard/pkg/logger"
	"github.com/okian/aclguard/pkg/metrics"
)

const defaultPersistTimeout = 5 * time.Second

// State of a lane.
type State int32

const (
	StateIdle State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Result describes a finished lane.
type Result struct {
	Session  model.SessionInfo
	Stats    model.SessionStats
	Accepted int
	Rejected int
	Outcome  string
	Err      error
}

// Lane is one streaming session. It is driven by a single goroutine.
type Lane struct {
	info      model.SessionInfo
	transport Transport
	writer    store.SampleWriter
	summary   *session.Summary
	last      time.Time
	seq       int64
	accepted  int
	rejected  int
	state     atomic.Int32

	prior          []model.Sample
	onClose        func(context.Context, Result)
	persistTimeout time.Duration
	logger         logger.Logger
}

// NewLane creates a lane for info. The lane takes ownership of writer and
// transport and releases both when Run returns.
func NewLane(info model.SessionInfo, transport Transport, writer store.SampleWriter, opts ...LaneOption) *Lane {
	l := &Lane{
		info:           info,
		transport:      transport,
		writer:         writer,
		persistTimeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("stream")
	}
	l.logger = l.logger.With(
		logger.String("session_id", info.ID),
		logger.String("athlete_id", info.AthleteID),
	)
	l.summary = session.Summarize(l.prior)
	if n := len(l.prior); n > 0 {
		l.last = l.prior[n-1].Timestamp
	}
	l.prior = nil
	return l
}

// State returns the current lane state.
func (l *Lane) State() State { return State(l.state.Load()) }

// Summary returns the lane's aggregate. Only read it after Run returns.
func (l *Lane) Summary() *session.Summary { return l.summary }

// Run serves the lane until the transport closes, fails, or ctx ends.
// A normal close returns nil.
func (l *Lane) Run(ctx context.Context) (err error) {
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateOpen)) {
		return ErrLaneClosed
	}
	metrics.LaneOpened()
	l.logger.Info(ctx, "lane opened")

	stop := context.AfterFunc(ctx, func() { _ = l.transport.Close() })
	defer func() {
		stop()
		l.finish(ctx, err)
	}()

	for {
		data, rerr := l.transport.Receive(ctx)
		switch {
		case rerr == nil:
		case errors.Is(rerr, model.ErrTransportClosed), ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("receive: %w", rerr)
		}
		if err := l.handle(ctx, data); err != nil {
			return err
		}
	}
}

// handle processes one message. It only fails when the reply cannot be sent.
func (l *Lane) handle(ctx context.Context, data []byte) error {
	start := time.Now()
	l.seq++
	seq := l.seq

	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return l.reject(ctx, failure(seq, CodeInvalidSample, "malformed message: "+err.Error()))
	}
	if msg.Seq != nil {
		seq = *msg.Seq
	}

	sample, err := validate.Sample(msg.RawSample)
	if err != nil {
		return l.reject(ctx, failure(seq, CodeInvalidSample, err.Error()))
	}
	if sample.Timestamp.Before(l.last) {
		return l.reject(ctx, failure(seq, CodeOutOfOrder,
			fmt.Sprintf("%s: %s precedes %s", model.ErrOutOfOrder,
				sample.Timestamp.Format(time.RFC3339Nano), l.last.Format(time.RFC3339Nano))))
	}

	scored := scoring.Scored(sample)
	if err := l.writer.SaveSample(ctx, scored); err != nil {
		l.logger.Error(ctx, "sample not stored", logger.Int64("seq", seq), logger.Error(err))
		metrics.RecordError("stream", "collaborator")
		return l.reject(ctx, failure(seq, CodeCollaboratorFailure, "sample not stored"))
	}

	l.summary.Append(sample)
	l.last = sample.Timestamp
	l.accepted++
	metrics.RecordSampleIngested(metrics.SourceStream)
	if scored.RiskScore > 0 {
		metrics.RecordHighRiskSample()
	}

	if err := l.transport.Send(ctx, feedback(seq, scored.RiskScore)); err != nil {
		return fmt.Errorf("send feedback: %w", err)
	}
	metrics.RecordFeedbackLatency(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

func (l *Lane) reject(ctx context.Context, f Failure) error {
	l.rejected++
	if f.Code == CodeInvalidSample || f.Code == CodeOutOfOrder {
		metrics.RecordSampleInvalid(metrics.SourceStream)
	}
	l.logger.Debug(ctx, "sample rejected",
		logger.Int64("seq", f.Seq),
		logger.String("code", f.Code),
		logger.String("reason", f.Message),
	)
	if err := l.transport.Send(ctx, f); err != nil {
		return fmt.Errorf("send error frame: %w", err)
	}
	return nil
}

// sessionStats summarizes every stored sample of the session so samples
// written outside this lane are kept in the persisted record. It falls back
// to the lane's own summary when the reload fails.
func (l *Lane) sessionStats(ctx context.Context) model.SessionStats {
	stored, err := l.writer.LoadSamples(ctx)
	if err != nil {
		l.logger.Warn(ctx, "reloading session samples", logger.Error(err))
		return l.summary.Stats(l.info.ID)
	}
	samples := make([]model.Sample, len(stored))
	for i, sc := range stored {
		samples[i] = sc.Sample
	}
	return session.Summarize(samples).Stats(l.info.ID)
}

// finish runs on every exit path. Persisting uses a context detached from
// the lane's so a cancelled lane still records its summary.
func (l *Lane) finish(ctx context.Context, runErr error) {
	l.state.Store(int32(StateClosed))

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.persistTimeout)
	defer cancel()

	res := Result{
		Session:  l.info,
		Stats:    l.summary.Stats(l.info.ID),
		Accepted: l.accepted,
		Rejected: l.rejected,
		Outcome:  metrics.LaneOutcomeNormal,
		Err:      runErr,
	}
	if runErr != nil {
		res.Outcome = metrics.LaneOutcomeFailed
	}

	if l.accepted > 0 {
		res.Stats = l.sessionStats(pctx)
		if err := l.writer.SaveSession(pctx, res.Stats); err != nil {
			l.logger.Error(pctx, "lane summary not stored", logger.Error(err))
			metrics.RecordError("stream", "summary")
		} else {
			metrics.RecordSessionRecorded()
		}
	}
	if err := l.writer.Close(); err != nil {
		l.logger.Warn(pctx, "closing sample writer", logger.Error(err))
	}
	_ = l.transport.Close()
	metrics.LaneClosed(res.Outcome)

	fields := []logger.Field{
		logger.String("outcome", res.Outcome),
		logger.Int("accepted", res.Accepted),
		logger.Int("rejected", res.Rejected),
	}
	if runErr != nil {
		l.logger.Warn(pctx, "lane closed", append(fields, logger.Error(runErr))...)
	} else {
		l.logger.Info(pctx, "lane closed", fields...)
	}

	if l.onClose != nil && l.accepted > 0 {
		l.onClose(pctx, res)
	}
}
