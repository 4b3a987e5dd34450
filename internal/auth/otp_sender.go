package auth

import (
	"context"

	"idcard-portal/internal/observability"
)

// LogSender stands in for an SMS gateway. The code itself is only written
// when debug is set.
type LogSender struct {
	logger *observability.Logger
	debug  bool
}

func NewLogSender(logger *observability.Logger, debug bool) *LogSender {
	return &LogSender{logger: logger, debug: debug}
}

func (s *LogSender) SendOTP(_ context.Context, mobile, code string) error {
	fields := map[string]any{"mobile": mobile}
	if s.debug {
		fields["otp"] = code
	}
	s.logger.Info("otp_issued", fields)
	return nil
}
