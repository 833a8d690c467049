package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/talkincode/wabridge/internal/chatbot"
	"github.com/talkincode/wabridge/internal/domain"
	"github.com/talkincode/wabridge/internal/relay"
	"github.com/talkincode/wabridge/internal/store"
	"github.com/talkincode/wabridge/internal/whatsapp"
)

// ApologyReply goes out when message processing fails unexpectedly.
const ApologyReply = "Maaf, terjadi kesalahan saat memproses pesan."

// Responder answers end-user questions.
type Responder interface {
	Ask(ctx context.Context, message, sender, session string) chatbot.Result
}

// Forwarder hands inbound traffic to the back office.
type Forwarder interface {
	Enabled() bool
	Forward(ctx context.Context, env relay.Envelope) error
}

// TextSender is the outbound slice of the WhatsApp client.
type TextSender interface {
	SendText(ctx context.Context, to string, body string) error
}

// Pipeline processes one inbound event at a time: filter, extract,
// forward or answer, persist.
type Pipeline struct {
	db          store.Database
	registry    *whatsapp.Registry
	lifecycle   *whatsapp.Lifecycle
	extractor   *Extractor
	responder   Responder
	forwarder   Forwarder
	sendTimeout time.Duration
}

func NewPipeline(db store.Database, registry *whatsapp.Registry, lifecycle *whatsapp.Lifecycle,
	extractor *Extractor, responder Responder, forwarder Forwarder, sendTimeout time.Duration) *Pipeline {
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	return &Pipeline{
		db:          db,
		registry:    registry,
		lifecycle:   lifecycle,
		extractor:   extractor,
		responder:   responder,
		forwarder:   forwarder,
		sendTimeout: sendTimeout,
	}
}

// Process runs the full per-event state machine. It never panics
// outward; unexpected failures end with the apology reply.
func (p *Pipeline) Process(ctx context.Context, evt whatsapp.Event) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("pipeline: recovered from panic",
				zap.Any("panic", r), zap.String("from", evt.From))
			p.apologize(ctx, evt)
		}
	}()

	switch {
	case evt.IsStatus || evt.IsStory || evt.IsChannel():
		zap.L().Debug("pipeline: ignoring broadcast traffic", zap.String("from", evt.From))
		return
	case evt.Empty():
		zap.L().Debug("pipeline: ignoring empty event", zap.String("from", evt.From))
		return
	case evt.IsGroup:
		zap.L().Debug("pipeline: ignoring group message", zap.String("from", evt.From))
		return
	}

	cli, _ := p.registry.Get(evt.Session)
	artifact, err := p.extract(ctx, cli, evt)
	if err != nil {
		zap.L().Error("pipeline: media extraction failed",
			zap.String("from", evt.From), zap.Error(err))
		p.apologize(ctx, evt)
		return
	}

	reply := p.respond(ctx, cli, evt, artifact)
	if err := p.persist(ctx, evt, artifact, reply); err != nil {
		zap.L().Error("pipeline: persist failed",
			zap.String("from", evt.From), zap.Error(err))
		p.apologize(ctx, evt)
		return
	}

	if isLogoutCommand(artifact.Content) {
		if err := p.lifecycle.Logout(ctx, evt.Session, evt.From); err != nil {
			zap.L().Error("pipeline: logout failed",
				zap.String("session", evt.Session), zap.Error(err))
			p.apologize(ctx, evt)
		}
	}
}

func (p *Pipeline) extract(ctx context.Context, cli whatsapp.Client, evt whatsapp.Event) (Artifact, error) {
	var src MediaSource
	if cli != nil {
		src = cli
	} else {
		src = noMedia{}
	}
	return p.extractor.Extract(ctx, src, evt)
}

func isLogoutCommand(content string) bool {
	return strings.EqualFold(strings.TrimSpace(content), "logout")
}

// respond applies the unified reply strategy: forward first, and only
// when the back office cannot take the message ask the chatbot with the
// event body and send its answer directly. Only text chats persist the
// answer as the reply; media events always persist a nil reply.
func (p *Pipeline) respond(ctx context.Context, cli whatsapp.Client, evt whatsapp.Event, artifact Artifact) *string {
	forwardErr := p.forward(ctx, evt, artifact)
	if forwardErr == nil {
		return nil
	}
	zap.L().Warn("pipeline: forward failed, falling back to chatbot",
		zap.String("from", evt.From), zap.Error(forwardErr))

	if evt.Body == "" {
		return nil
	}

	result := p.responder.Ask(ctx, evt.Body, evt.SenderNumber(), evt.Session)
	if !result.Success {
		zap.L().Warn("pipeline: chatbot exhausted retries",
			zap.String("from", evt.From), zap.Error(result.Err))
	}
	p.send(ctx, cli, evt.From, result.Reply)
	if result.Success && artifact.Kind.Type == domain.MessageText {
		return &result.Reply
	}
	return nil
}

func (p *Pipeline) forward(ctx context.Context, evt whatsapp.Event, artifact Artifact) error {
	if p.forwarder == nil || !p.forwarder.Enabled() {
		return relayDisabledErr
	}
	return p.forwarder.Forward(ctx, relay.Envelope{
		From:        evt.From,
		PushName:    evt.PushName,
		SessionName: evt.Session,
		Message: relay.EnvelopeMessage{
			Body:     artifact.Content,
			Caption:  evt.Caption,
			Type:     artifact.Kind.Type,
			Mimetype: evt.Mimetype,
		},
	})
}

func (p *Pipeline) persist(ctx context.Context, evt whatsapp.Event, artifact Artifact, reply *string) error {
	user, err := p.lifecycle.EnsureUser(ctx, evt.SenderNumber(), evt.PushName, "")
	if err != nil {
		return err
	}
	session, err := p.db.Sessions().GetByName(ctx, evt.Session)
	if err == store.ErrNotFound {
		if err = p.db.Sessions().UpsertStatus(ctx, evt.Session, user.ID, domain.SessionAuthed); err != nil {
			return err
		}
		session, err = p.db.Sessions().GetByName(ctx, evt.Session)
	}
	if err != nil {
		return err
	}

	msg := &domain.Message{
		SessionID: session.ID,
		Sender:    evt.SenderNumber(),
		Type:      artifact.Kind.Type,
		Timestamp: evt.Timestamp,
		Reply:     reply,
	}
	if artifact.Content != "" {
		content := artifact.Content
		msg.Content = &content
	}
	if artifact.Kind.Type != domain.MessageText && artifact.Path != "" {
		mediaURL := artifact.Path
		msg.MediaUrl = &mediaURL
	}
	return p.db.Messages().Create(ctx, msg)
}

// send races the outbound delivery against the send timeout. A timeout
// is logged and swallowed; the message may still arrive later.
func (p *Pipeline) send(ctx context.Context, cli TextSender, to, body string) {
	if cli == nil || body == "" {
		return
	}
	done := make(chan error, 1)
	go func() {
		done <- cli.SendText(ctx, to, body)
	}()
	select {
	case err := <-done:
		if err != nil {
			zap.L().Error("pipeline: send failed",
				zap.String("to", to), zap.Error(err))
		}
	case <-time.After(p.sendTimeout):
		zap.L().Warn("pipeline: send timed out",
			zap.String("to", to), zap.Duration("timeout", p.sendTimeout))
	}
}

func (p *Pipeline) apologize(ctx context.Context, evt whatsapp.Event) {
	cli, ok := p.registry.Get(evt.Session)
	if !ok {
		return
	}
	p.send(ctx, cli, evt.From, ApologyReply)
}

type noMedia struct{}

func (noMedia) DownloadMedia(ctx context.Context, evt whatsapp.Event) ([]byte, error) {
	return nil, errNoClient
}

func (noMedia) DecryptFile(ctx context.Context, evt whatsapp.Event) ([]byte, error) {
	return nil, errNoClient
}
