package whatsapp

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/wabridge/internal/domain"
	"github.com/talkincode/wabridge/internal/store"
)

func newLifecycle(t *testing.T) (*Lifecycle, *store.MemoryDatabase, *Registry) {
	t.Helper()
	db := store.NewMemoryDatabase()
	registry := NewRegistry()
	return NewLifecycle(db, registry, EventBus.New(), t.TempDir()), db, registry
}

func TestEnsureUserCreatesOnce(t *testing.T) {
	l, db, _ := newLifecycle(t)
	ctx := context.Background()

	u1, err := l.EnsureUser(ctx, "6281234", "", "")
	require.NoError(t, err)
	assert.Equal(t, "user_6281234", u1.Username)

	u2, err := l.EnsureUser(ctx, "6281234", "ignored", "x@y.id")
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID)

	users, err := db.Users().List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestHandleStateChangeMapsAndUpserts(t *testing.T) {
	l, db, _ := newLifecycle(t)
	ctx := context.Background()

	l.HandleStateChange("s1", 7, "CONNECTED")
	sess, err := db.Sessions().GetByName(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionAuthed, sess.Status)
	assert.Equal(t, int64(7), sess.UserID)

	l.HandleStateChange("s1", 7, "TIMEOUT")
	sess, err = db.Sessions().GetByName(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionDisconnected, sess.Status)

	l.HandleStateChange("s1", 7, "CONFLICT")
	sess, _ = db.Sessions().GetByName(ctx, "s1")
	assert.Equal(t, domain.SessionDisconnected, sess.Status)

	// unmapped states pass through untouched
	l.HandleStateChange("s1", 7, "PAIRING")
	sess, _ = db.Sessions().GetByName(ctx, "s1")
	assert.Equal(t, "PAIRING", sess.Status)
}

func TestHandleQRRendersPngAndRecordsPath(t *testing.T) {
	l, db, _ := newLifecycle(t)
	ctx := context.Background()

	l.HandleQR("s1", 7, "2@pairing-code-payload")

	qrPath := l.QrPath("s1")
	info, err := os.Stat(qrPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	sess, err := db.Sessions().GetByName(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionQrGenerated, sess.Status)
	assert.Equal(t, qrPath, sess.QrPath)
}

func TestLogoutFullSequence(t *testing.T) {
	l, db, registry := newLifecycle(t)
	ctx := context.Background()
	cli := &stubClient{}
	registry.Register("s1", cli)
	l.HandleQR("s1", 7, "2@code")

	require.NoError(t, l.Logout(ctx, "s1", "6281234@c.us"))

	assert.True(t, cli.loggedOut)
	assert.True(t, cli.restarted)
	assert.Equal(t, []string{LogoutConfirmation}, cli.sent)
	assert.Equal(t, []string{"6281234@c.us"}, cli.sentTo)

	_, connected := registry.Get("s1")
	assert.False(t, connected)

	_, err := os.Stat(l.QrPath("s1"))
	assert.True(t, os.IsNotExist(err))

	sess, err := db.Sessions().GetByName(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionDisconnected, sess.Status)
}

func TestLogoutWithoutNotifySendsNothing(t *testing.T) {
	l, _, registry := newLifecycle(t)
	cli := &stubClient{}
	registry.Register("s1", cli)

	require.NoError(t, l.Logout(context.Background(), "s1", ""))
	assert.True(t, cli.loggedOut)
	assert.Empty(t, cli.sent)
}

func TestCleanupFailedSetupRemovesRows(t *testing.T) {
	l, db, _ := newLifecycle(t)
	ctx := context.Background()

	require.NoError(t, db.Sessions().UpsertStatus(ctx, "broken", 7, domain.SessionInitializing))
	sess, err := db.Sessions().GetByName(ctx, "broken")
	require.NoError(t, err)
	content := "halo"
	require.NoError(t, db.Messages().Create(ctx, &domain.Message{
		SessionID: sess.ID, Sender: "6281234", Content: &content, Type: domain.MessageText,
	}))

	l.CleanupFailedSetup(ctx, "broken")

	_, err = db.Sessions().GetByName(ctx, "broken")
	assert.True(t, errors.Is(err, store.ErrNotFound))
	msgs, err := db.Messages().ListBySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestCreateSessionIdempotent(t *testing.T) {
	l, db, registry := newLifecycle(t)
	ctx := context.Background()

	var built int
	m := NewManager(registry, l, func(name string) (Client, error) {
		built++
		return &stubClient{}, nil
	})

	first, err := m.CreateSession(ctx, "s1", "6281234", "", "")
	require.NoError(t, err)
	second, err := m.CreateSession(ctx, "s1", "6281234", "", "")
	require.NoError(t, err)

	assert.Same(t, first.(*stubClient), second.(*stubClient))
	assert.Equal(t, 1, built)
	assert.True(t, first.(*stubClient).connected)

	users, err := db.Users().List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestCreateSessionRequiresName(t *testing.T) {
	l, _, registry := newLifecycle(t)
	m := NewManager(registry, l, func(name string) (Client, error) {
		return &stubClient{}, nil
	})
	_, err := m.CreateSession(context.Background(), "", "6281234", "", "")
	assert.Error(t, err)
}

func TestCreateSessionConnectFailureCleansUp(t *testing.T) {
	l, db, registry := newLifecycle(t)
	ctx := context.Background()

	m := NewManager(registry, l, func(name string) (Client, error) {
		return &stubClient{failLogin: errors.New("pairing rejected")}, nil
	})
	// simulate a partially created row from an earlier attempt
	require.NoError(t, db.Sessions().UpsertStatus(ctx, "s1", 0, domain.SessionInitializing))

	_, err := m.CreateSession(ctx, "s1", "6281234", "", "")
	require.Error(t, err)

	_, connected := registry.Get("s1")
	assert.False(t, connected)
	_, err = db.Sessions().GetByName(ctx, "s1")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestManagerSyncUnreadDispatches(t *testing.T) {
	l, _, registry := newLifecycle(t)
	ctx := context.Background()

	cli := &unreadClient{stubClient: stubClient{}, backlog: []Chat{
		{Messages: []Event{{ID: "m1", From: "6281234@c.us", Body: "halo"}}},
		{Messages: []Event{{ID: "m2", From: "6285678@c.us", Body: "ping"}}},
	}}
	m := NewManager(registry, l, func(name string) (Client, error) { return cli, nil })

	var seen []Event
	m.OnEvent(func(c Client, evt Event) { seen = append(seen, evt) })

	_, err := m.CreateSession(ctx, "s1", "6281234", "", "")
	require.NoError(t, err)
	require.NoError(t, m.SyncUnread(ctx, "s1"))

	require.Len(t, seen, 2)
	assert.Equal(t, "s1", seen[0].Session)
	assert.Equal(t, "m1", seen[0].ID)
	assert.Equal(t, "m2", seen[1].ID)
}

type unreadClient struct {
	stubClient
	backlog []Chat
}

func (u *unreadClient) GetAllUnreadMessages(ctx context.Context) ([]Chat, error) {
	out := u.backlog
	u.backlog = nil
	return out, nil
}
