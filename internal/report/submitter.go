package report

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stone-age-io/deviceinfo/internal/probe"
)

// maxDisplayBody limits how much of a failed response is shown to the operator
const maxDisplayBody = 200

// Mirror receives a copy of every report the endpoint accepted
type Mirror interface {
	PublishReport(r *Report) error
}

// Outcome is the receiver's answer to a submission
type Outcome struct {
	StatusCode int
	Body       string
}

// OK reports whether the endpoint accepted the report
func (o *Outcome) OK() bool {
	return o.StatusCode == http.StatusOK
}

// Message returns the operator-facing result
func (o *Outcome) Message() string {
	if o.OK() {
		return "Device information sent to IT"
	}
	return fmt.Sprintf("Submission failed (%d): %s", o.StatusCode, truncate(o.Body, maxDisplayBody))
}

// Submitter builds reports and hands them to a Transport
type Submitter struct {
	transport Transport
	mirror    Mirror
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubmitter creates a submitter; mirror may be nil
func NewSubmitter(transport Transport, mirror Mirror, logger *zap.Logger) *Submitter {
	return &Submitter{
		transport: transport,
		mirror:    mirror,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit validates userName, builds the report and sends it once.
// A transport error is returned as-is; any HTTP status comes back in the Outcome.
func (s *Submitter) Submit(ctx context.Context, userName string, info probe.MachineInfo) (*Outcome, error) {
	r, err := Build(userName, info, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Submitting report",
		zap.String("user", r.UserInputName),
		zap.String("hostname", r.Machine.Hostname))

	status, body, err := s.transport.Send(ctx, r)
	if err != nil {
		s.logger.Error("Report submission failed", zap.Error(err))
		return nil, fmt.Errorf("failed to submit report: %w", err)
	}

	outcome := &Outcome{StatusCode: status, Body: body}
	if !outcome.OK() {
		s.logger.Warn("Report rejected",
			zap.Int("status_code", status),
			zap.String("body", truncate(body, maxDisplayBody)))
		return outcome, nil
	}

	s.logger.Info("Report accepted", zap.Int("status_code", status))

	if s.mirror != nil {
		if err := s.mirror.PublishReport(r); err != nil {
			s.logger.Warn("Failed to mirror report", zap.Error(err))
		}
	}

	return outcome, nil
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
