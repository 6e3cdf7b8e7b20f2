package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

// Message is one outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Sender delivers messages. Implementations return an
// *ledger.ExternalServiceError on delivery failure.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type MailerConfig struct {
	BaseURL    string
	APIKey     string
	From       string
	Timeout    time.Duration
	RetryCount int
}

// Mailer posts messages to an HTTP mail API.
type Mailer struct {
	http *resty.Client
	from string
}

func NewMailer(cfg MailerConfig) *Mailer {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Mailer{http: c, from: cfg.From}
}

type sendRequest struct {
	From string `json:"from"`
	Message
}

type sendResponse struct {
	ID string `json:"id"`
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	var out sendResponse

	resp, err := m.http.R().
		SetContext(ctx).
		SetBody(sendRequest{From: m.from, Message: msg}).
		SetResult(&out).
		Post("/send")
	if err != nil {
		return &ledger.ExternalServiceError{Service: "mail", Err: err}
	}

	if resp.IsError() {
		return &ledger.ExternalServiceError{
			Service: "mail",
			Err:     fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), resp.String()),
		}
	}

	return nil
}

// LogSender only logs; used when no mail API is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("mail delivery disabled, dropping message", "to", msg.To, "subject", msg.Subject)

	return nil
}
