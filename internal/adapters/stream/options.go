package stream

import (
	"context"
	"time"

	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/pkg/logger"
)

// LaneOption configures a Lane.
type LaneOption func(*Lane)

// WithLogger sets the lane logger.
func WithLogger(l logger.Logger) LaneOption {
	return func(lane *Lane) {
		if l != nil {
			lane.logger = l
		}
	}
}

// WithPriorSamples seeds the lane with samples already stored for the
// session, so the persisted summary covers the whole session and ordering
// continues from the last stored timestamp.
func WithPriorSamples(samples []model.Sample) LaneOption {
	return func(lane *Lane) {
		lane.prior = samples
	}
}

// WithOnClose registers a hook called after a lane that accepted samples
// has closed and persisted its summary.
func WithOnClose(fn func(context.Context, Result)) LaneOption {
	return func(lane *Lane) {
		lane.onClose = fn
	}
}

// WithPersistTimeout bounds the final summary write.
func WithPersistTimeout(d time.Duration) LaneOption {
	return func(lane *Lane) {
		if d > 0 {
			lane.persistTimeout = d
		}
	}
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithReadLimit caps the size of one inbound message.
func WithReadLimit(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.readLimit = n
		}
	}
}

// WithIdleTimeout closes a lane that receives nothing for d.
func WithIdleTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.idleTimeout = d
	}
}

// WithLaneOptions applies opts to every lane the handler opens.
func WithLaneOptions(opts ...LaneOption) HandlerOption {
	return func(h *Handler) {
		h.laneOpts = append(h.laneOpts, opts...)
	}
}

// WithHandlerLogger sets the handler logger.
func WithHandlerLogger(l logger.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}
