package whatsapp

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ClientFactory builds a client for a session name. The default factory
// wraps whatsmeow; tests inject fakes.
type ClientFactory func(sessionName string) (Client, error)

// Manager owns session creation and teardown. It serializes registration
// through the registry's compare-and-set so one name never gets two live
// handles.
type Manager struct {
	registry  *Registry
	lifecycle *Lifecycle
	factory   ClientFactory
	dispatch  func(cli Client, evt Event)
}

func NewManager(registry *Registry, lifecycle *Lifecycle, factory ClientFactory) *Manager {
	return &Manager{registry: registry, lifecycle: lifecycle, factory: factory}
}

// OnEvent sets the inbound event sink wired to every created client.
func (m *Manager) OnEvent(dispatch func(cli Client, evt Event)) {
	m.dispatch = dispatch
}

// CreateSession returns the live client for sessionName, creating and
// registering a new one when absent. Calling it again for a live session
// returns the existing handle without duplicating registry entries or
// session rows. On setup failure partially created rows are removed and
// the error surfaces to the caller.
func (m *Manager) CreateSession(ctx context.Context, sessionName, sender, username, email string) (Client, error) {
	if sessionName == "" {
		return nil, fmt.Errorf("sessionName is required")
	}
	if existing, ok := m.registry.Get(sessionName); ok {
		return existing, nil
	}

	user, err := m.lifecycle.EnsureUser(ctx, sender, username, email)
	if err != nil {
		return nil, fmt.Errorf("resolve user for sender %s: %w", sender, err)
	}

	cli, err := m.factory(sessionName)
	if err != nil {
		m.lifecycle.CleanupFailedSetup(ctx, sessionName)
		return nil, fmt.Errorf("create client for session %s: %w", sessionName, err)
	}

	registered, won := m.registry.RegisterIfAbsent(sessionName, cli)
	if !won {
		// another caller created the session concurrently; theirs wins
		zap.L().Debug("whatsapp: concurrent session creation, reusing registered client",
			zap.String("session", sessionName))
		return registered, nil
	}

	uid := user.ID
	cli.OnStateChange(func(state string) {
		m.lifecycle.HandleStateChange(sessionName, uid, state)
	})
	if qrCli, ok := cli.(interface{ OnQR(func(code string)) }); ok {
		qrCli.OnQR(func(code string) {
			m.lifecycle.HandleQR(sessionName, uid, code)
		})
	}
	cli.OnMessage(func(evt Event) {
		evt.Session = sessionName
		if m.dispatch != nil {
			m.dispatch(cli, evt)
		}
	})

	if starter, ok := cli.(interface{ Connect() error }); ok {
		if err := starter.Connect(); err != nil {
			m.registry.Unregister(sessionName)
			m.lifecycle.CleanupFailedSetup(ctx, sessionName)
			return nil, fmt.Errorf("connect session %s: %w", sessionName, err)
		}
	}

	zap.L().Info("whatsapp: session created", zap.String("session", sessionName), zap.String("sender", sender))
	return cli, nil
}

// SyncUnread drains the client's unread backlog through the event sink.
func (m *Manager) SyncUnread(ctx context.Context, sessionName string) error {
	cli, ok := m.registry.Get(sessionName)
	if !ok {
		return fmt.Errorf("session %s not connected", sessionName)
	}
	chats, err := cli.GetAllUnreadMessages(ctx)
	if err != nil {
		return err
	}
	var n int
	for _, chat := range chats {
		for _, evt := range chat.Messages {
			evt.Session = sessionName
			if m.dispatch != nil {
				m.dispatch(cli, evt)
				n++
			}
		}
	}
	if n > 0 {
		zap.L().Info("whatsapp: unread messages synced", zap.String("session", sessionName), zap.Int("count", n))
	}
	return nil
}
