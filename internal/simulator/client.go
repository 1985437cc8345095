package simulator

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/aclguard/internal/adapters/stream"
	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/internal/domain/scoring"
	"github.com/okian/aclguard/internal/domain/validate"
)

type outbound struct {
	validate.RawSample
	Seq int64 `json:"seq"`
}

// reply decodes both frame kinds.
type reply struct {
	Type      string  `json:"type"`
	Seq       int64   `json:"seq"`
	RiskScore float64 `json:"risk_score"`
	Warning   bool    `json:"warning"`
	Message   string  `json:"message"`
	Code      string  `json:"code"`
}

// LaneURL joins base and the lane path for sessionID.
func LaneURL(base, sessionID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += lanePath + url.PathEscape(sessionID)
	return u.String(), nil
}

// StreamSession opens one lane, sends samples in order and checks every
// reply against the locally computed score.
func StreamSession(ctx context.Context, laneURL, sessionID string, samples []model.Sample, timeout time.Duration) (LaneReport, error) {
	rep := LaneReport{SessionID: sessionID}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, laneURL, nil)
	if err != nil {
		if resp != nil {
			return rep, fmt.Errorf("dial %s: status %d: %w", laneURL, resp.StatusCode, err)
		}
		return rep, fmt.Errorf("dial %s: %w", laneURL, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer func() { _ = conn.Close() }()

	for i, s := range samples {
		seq := int64(i + 1)
		if err := conn.WriteJSON(outbound{RawSample: validate.Raw(s), Seq: seq}); err != nil {
			return rep, laneErr(ctx, fmt.Errorf("send sample %d: %w", seq, err))
		}
		rep.Sent++

		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return rep, fmt.Errorf("set read deadline: %w", err)
		}
		var r reply
		if err := conn.ReadJSON(&r); err != nil {
			return rep, laneErr(ctx, fmt.Errorf("read reply %d: %w", seq, err))
		}
		check(&rep, seq, s, r)
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout)); err != nil {
		return rep, laneErr(ctx, fmt.Errorf("close lane: %w", err))
	}
	return rep, nil
}

func check(rep *LaneReport, seq int64, s model.Sample, r reply) {
	if r.Seq != seq {
		rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("seq %d: reply carries seq %d", seq, r.Seq))
	}
	if r.Type == stream.KindError {
		rep.Errors++
		rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("seq %d: %s: %s", seq, r.Code, r.Message))
		return
	}
	rep.Feedback++
	if r.Warning {
		rep.Warnings++
	}
	want := scoring.Score(s)
	if r.RiskScore != want {
		rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("seq %d: risk %.2f, expected %.2f", seq, r.RiskScore, want))
	}
	if r.Warning != (want > stream.WarningThreshold) {
		rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("seq %d: warning %t for risk %.2f", seq, r.Warning, want))
	}
}

func laneErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}
