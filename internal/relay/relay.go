// Package relay forwards inbound WhatsApp traffic to the back-office
// service so human agents see the conversation in real time.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/guonaihong/gout"
	"go.uber.org/zap"
)

// EnvelopeMessage is the message fragment of a forwarded event.
type EnvelopeMessage struct {
	Body     string `json:"body"`
	Caption  string `json:"caption,omitempty"`
	Type     string `json:"type"`
	Mimetype string `json:"mimetype,omitempty"`
}

// Envelope is the payload posted to the back-office inbox endpoint.
type Envelope struct {
	From        string          `json:"from"`
	PushName    string          `json:"pushname"`
	SessionName string          `json:"sessionName"`
	Message     EnvelopeMessage `json:"message"`
}

type ackResponse struct {
	Success *bool  `json:"success"`
	Status  string `json:"status"`
}

// Relay posts envelopes to a single back-office URL.
type Relay struct {
	url     string
	timeout time.Duration
}

func NewRelay(url string, timeout time.Duration) *Relay {
	return &Relay{url: url, timeout: timeout}
}

// Enabled reports whether a back-office endpoint is configured at all.
func (r *Relay) Enabled() bool {
	return r != nil && r.url != ""
}

// Forward delivers one envelope. Failures are reported to the caller but
// never surfaced to the end user; the conversation continues regardless.
func (r *Relay) Forward(ctx context.Context, env Envelope) error {
	if !r.Enabled() {
		return nil
	}
	var (
		ack  ackResponse
		code int
	)
	err := gout.POST(r.url).
		WithContext(ctx).
		SetJSON(env).
		SetTimeout(r.timeout).
		BindJSON(&ack).
		Code(&code).
		Do()
	if err != nil {
		return fmt.Errorf("relay post: %w", err)
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("relay status %d", code)
	}
	if ack.Success != nil && !*ack.Success && ack.Status != "ok" {
		zap.L().Debug("relay: endpoint rejected envelope",
			zap.String("from", env.From), zap.Int("code", code))
		return fmt.Errorf("relay not acknowledged")
	}
	return nil
}
