package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/asaskevich/EventBus"
	"github.com/skip2/go-qrcode"
	"github.com/talkincode/wabridge/internal/domain"
	"github.com/talkincode/wabridge/internal/store"
	"go.uber.org/zap"
)

// TopicSessionState is published on every session status transition with
// (sessionName, status).
const TopicSessionState = "whatsapp.session.state"

// LogoutConfirmation is sent to the user after a successful logout.
const LogoutConfirmation = "Anda telah logout. Silakan scan QR code baru untuk login kembali."

// Lifecycle tracks a session from creation through authentication,
// disconnection and logout, persisting every transition.
type Lifecycle struct {
	db       store.Database
	registry *Registry
	bus      EventBus.Bus
	qrDir    string
}

func NewLifecycle(db store.Database, registry *Registry, bus EventBus.Bus, qrDir string) *Lifecycle {
	return &Lifecycle{db: db, registry: registry, bus: bus, qrDir: qrDir}
}

// EnsureUser returns the user owning sender, creating it on first sight.
func (l *Lifecycle) EnsureUser(ctx context.Context, sender, username, email string) (*domain.User, error) {
	user, err := l.db.Users().GetBySender(ctx, sender)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	user = &domain.User{Sender: sender, Username: username, Email: email}
	if user.Username == "" {
		user.Username = fmt.Sprintf("user_%s", sender)
	}
	if err := l.db.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	zap.L().Info("whatsapp: created user for sender", zap.String("sender", sender))
	return user, nil
}

// HandleStateChange maps a client-reported connection state onto the
// session status set and upserts the row. The first transition for an
// unknown session creates it.
func (l *Lifecycle) HandleStateChange(sessionName string, userID int64, state string) {
	status := domain.MapClientState(state)
	if err := l.db.Sessions().UpsertStatus(context.Background(), sessionName, userID, status); err != nil {
		zap.L().Error("whatsapp: failed to persist session state",
			zap.String("session", sessionName), zap.String("status", status), zap.Error(err))
		return
	}
	zap.L().Info("whatsapp: session state changed",
		zap.String("session", sessionName), zap.String("state", state), zap.String("status", status))
	if l.bus != nil {
		l.bus.Publish(TopicSessionState, sessionName, status)
	}
}

// HandleQR renders the pairing code as a bordered PNG under the QR
// directory and marks the session QR_CODE_GENERATED.
func (l *Lifecycle) HandleQR(sessionName string, userID int64, code string) {
	if err := os.MkdirAll(l.qrDir, 0o755); err != nil {
		zap.L().Error("whatsapp: unable to create qr dir", zap.String("dir", l.qrDir), zap.Error(err))
		return
	}
	qrPath := l.QrPath(sessionName)
	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		zap.L().Error("whatsapp: qr encode failed", zap.String("session", sessionName), zap.Error(err))
		return
	}
	// the quiet zone doubles as the white border around the rendered image
	qr.DisableBorder = false
	if err := qr.WriteFile(512, qrPath); err != nil {
		zap.L().Error("whatsapp: qr write failed", zap.String("path", qrPath), zap.Error(err))
		return
	}

	ctx := context.Background()
	if err := l.db.Sessions().UpsertStatus(ctx, sessionName, userID, domain.SessionQrGenerated); err != nil {
		zap.L().Error("whatsapp: failed to persist qr state", zap.String("session", sessionName), zap.Error(err))
		return
	}
	if err := l.db.Sessions().UpdateQrPath(ctx, sessionName, qrPath); err != nil {
		zap.L().Warn("whatsapp: failed to record qr path", zap.String("session", sessionName), zap.Error(err))
	}
	zap.L().Info("whatsapp: qr code generated", zap.String("session", sessionName), zap.String("path", qrPath))
	if l.bus != nil {
		l.bus.Publish(TopicSessionState, sessionName, domain.SessionQrGenerated)
	}
}

// QrPath returns the per-session QR image path.
func (l *Lifecycle) QrPath(sessionName string) string {
	return path.Join(l.qrDir, sessionName+".png")
}

// Logout logs the client out, restarts the underlying service so a fresh
// QR can be issued, sends a confirmation text when notify is set, evicts
// the registry entry and marks the session DISCONNECTED.
func (l *Lifecycle) Logout(ctx context.Context, sessionName string, notify string) error {
	cli, ok := l.registry.Get(sessionName)
	if ok {
		if err := cli.Logout(ctx); err != nil {
			zap.L().Warn("whatsapp: client logout failed", zap.String("session", sessionName), zap.Error(err))
		}
		if err := cli.RestartService(ctx); err != nil {
			zap.L().Warn("whatsapp: service restart failed", zap.String("session", sessionName), zap.Error(err))
		}
		if notify != "" {
			if err := cli.SendText(ctx, notify, LogoutConfirmation); err != nil {
				zap.L().Warn("whatsapp: logout confirmation not delivered",
					zap.String("session", sessionName), zap.Error(err))
			}
		}
	} else {
		zap.L().Warn("whatsapp: logout requested for session without live client",
			zap.String("session", sessionName))
	}
	l.registry.Unregister(sessionName)

	// drop the stale QR image so a disconnected session cannot present one
	if qrPath := l.QrPath(sessionName); qrPath != "" {
		_ = os.Remove(qrPath)
	}

	if err := l.db.Sessions().UpsertStatus(ctx, sessionName, 0, domain.SessionDisconnected); err != nil {
		return err
	}
	zap.L().Info("whatsapp: session logged out", zap.String("session", sessionName))
	if l.bus != nil {
		l.bus.Publish(TopicSessionState, sessionName, domain.SessionDisconnected)
	}
	return nil
}

// CleanupFailedSetup removes any partially created rows for a session
// whose client setup failed: its messages first, then the session itself.
func (l *Lifecycle) CleanupFailedSetup(ctx context.Context, sessionName string) {
	sess, err := l.db.Sessions().GetByName(ctx, sessionName)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Warn("whatsapp: setup cleanup lookup failed", zap.String("session", sessionName), zap.Error(err))
		}
		return
	}
	if err := l.db.Messages().DeleteBySession(ctx, sess.ID); err != nil {
		zap.L().Warn("whatsapp: setup cleanup of messages failed", zap.String("session", sessionName), zap.Error(err))
	}
	if err := l.db.Sessions().Delete(ctx, sessionName); err != nil {
		zap.L().Warn("whatsapp: setup cleanup of session failed", zap.String("session", sessionName), zap.Error(err))
	}
	zap.L().Info("whatsapp: cleaned up failed session setup", zap.String("session", sessionName))
}
