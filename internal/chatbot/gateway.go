// Package chatbot talks to the upstream chatbot HTTP API and normalizes
// its answers for WhatsApp delivery.
package chatbot

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"go.uber.org/zap"
)

// BusyReply is sent to the end user when the chatbot keeps timing out.
const BusyReply = "Chatbot sedang sibuk, silakan coba lagi nanti"

// Result carries one chatbot exchange outcome.
type Result struct {
	Success      bool
	Reply        string
	ResponseTime time.Duration
	Err          error
}

type askRequest struct {
	Question string `json:"question"`
}

type suggestLink struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

type botMessage struct {
	Text         string        `json:"text"`
	SuggestLinks []suggestLink `json:"suggest_links"`
}

type askResponse struct {
	Data struct {
		Message []botMessage `json:"message"`
	} `json:"data"`
}

// Gateway is the retrying chatbot client.
type Gateway struct {
	url         string
	timeout     time.Duration
	backoff     time.Duration
	maxAttempts int
}

func NewGateway(url string, timeout, backoff time.Duration, maxAttempts int) *Gateway {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Gateway{url: url, timeout: timeout, backoff: backoff, maxAttempts: maxAttempts}
}

var (
	boldRe = regexp.MustCompile(`\*\*(.*?)\*\*`)
	linkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// Normalize rewrites chatbot markdown into plain WhatsApp text: bold
// markers are stripped, inline links become "title: url" and escaped
// newlines become real ones.
func Normalize(reply string) string {
	reply = boldRe.ReplaceAllString(reply, "$1")
	reply = linkRe.ReplaceAllString(reply, "$1: $2")
	return strings.ReplaceAll(reply, `\n`, "\n")
}

// render builds the full user-visible reply: the normalized answer text
// plus a related-links block when the answer carries suggest_links.
func (msg botMessage) render() string {
	reply := Normalize(msg.Text)
	if len(msg.SuggestLinks) == 0 {
		return reply
	}
	var b strings.Builder
	b.WriteString(reply)
	b.WriteString("\n\n Link Terkait:")
	for _, link := range msg.SuggestLinks {
		fmt.Fprintf(&b, "\n- %s: %s", link.Title, link.Link)
	}
	return b.String()
}

// timeoutClass reports whether the failure looks like a timeout rather
// than a hard protocol error. Only timeout-class failures are retried.
func timeoutClass(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}

func (g *Gateway) askOnce(ctx context.Context, question string) (botMessage, error) {
	var (
		resp askResponse
		code int
	)
	err := gout.POST(g.url).
		WithContext(ctx).
		SetJSON(askRequest{Question: question}).
		SetTimeout(g.timeout).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil {
		return botMessage{}, err
	}
	if code != 200 {
		return botMessage{}, fmt.Errorf("chatbot status %d", code)
	}
	if len(resp.Data.Message) == 0 || resp.Data.Message[0].Text == "" {
		return botMessage{}, fmt.Errorf("chatbot response structure invalid")
	}
	return resp.Data.Message[0], nil
}

// Ask sends the question and retries timeout-class failures with a fixed
// backoff, up to the configured attempt cap.
func (g *Gateway) Ask(ctx context.Context, message, sender, session string) Result {
	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		msg, err := g.askOnce(ctx, message)
		if err == nil {
			return Result{
				Success:      true,
				Reply:        msg.render(),
				ResponseTime: time.Since(start),
			}
		}
		lastErr = err
		zap.L().Warn("chatbot: request failed",
			zap.Int("attempt", attempt),
			zap.String("sender", sender),
			zap.Error(err))
		if !timeoutClass(err) || attempt == g.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = g.maxAttempts
		case <-time.After(g.backoff):
		}
	}
	return Result{
		Success:      false,
		Reply:        BusyReply,
		ResponseTime: time.Since(start),
		Err:          lastErr,
	}
}
