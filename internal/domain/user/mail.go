package user

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// MailSender delivers plain-text notification mail. Delivery is best
// effort: a failed send must never abort the flow that requested it, so
// implementations log and swallow their errors.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string)
}

type SendGridSender struct {
	client *sendgrid.Client
	from   string
	log    zerolog.Logger
}

func NewSendGridSender(apiKey, from string, log zerolog.Logger) *SendGridSender {
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey), from: from, log: log}
}

func (s *SendGridSender) Send(ctx context.Context, to, subject, body string) {
	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail("", s.from), subject,
		sgmail.NewEmail("", to), body, body)

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		s.log.Error().Err(err).Str("to", to).Str("subject", subject).Msg("mail send failed")
		return
	}
	if resp.StatusCode >= 400 {
		s.log.Error().Int("status", resp.StatusCode).Str("to", to).Msg("mail rejected by provider")
	}
}

// LogSender replaces real delivery in development: codes land in the log.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) {
	s.log.Info().Str("to", to).Str("subject", subject).Msg(fmt.Sprintf("mail (dev): %s", body))
}
