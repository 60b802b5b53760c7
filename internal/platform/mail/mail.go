// Package mail delivers e-mail copies of system notifications.
package mail

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/mrz1836/postmark"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ptamhub/billing/pkg/config"
)

var ErrSendFailed = errors.New("failed to send email")

type Message struct {
	To      string
	Subject string
	Text    string
	Tag     string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

type PostmarkSender struct {
	client  postmarkAPI
	from    string
	replyTo string
}

func NewPostmarkSender(client postmarkAPI, from, replyTo string) *PostmarkSender {
	return &PostmarkSender{client: client, from: from, replyTo: replyTo}
}

func (s *PostmarkSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("%w: missing recipient", ErrSendFailed)
	}
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.from,
		ReplyTo:    s.replyTo,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		TextBody:   msg.Text,
		HTMLBody:   toHTML(msg.Text),
		TrackOpens: true,
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

func toHTML(text string) string {
	paragraphs := strings.Split(html.EscapeString(text), "\n")
	return "<p>" + strings.Join(paragraphs, "<br>") + "</p>"
}

// NoopSender drops every message.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Message) error { return nil }

// NewSender picks Postmark when configured.
func NewSender(cfg *config.Config, log *zap.SugaredLogger) Sender {
	if !cfg.Email.Enabled() {
		log.Infow("postmark not configured, notification e-mails disabled")
		return NoopSender{}
	}
	replyTo := cfg.Email.SupportEmail
	if replyTo == "" {
		replyTo = cfg.Email.SenderEmail
	}
	client := postmark.NewClient(cfg.Email.PostmarkServerToken, cfg.Email.PostmarkAccountToken)
	return NewPostmarkSender(client, cfg.Email.SenderEmail, replyTo)
}

var Module = fx.Options(
	fx.Provide(NewSender),
)
