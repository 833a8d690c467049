package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/wabridge/config"
	"github.com/talkincode/wabridge/internal/chatbot"
	"github.com/talkincode/wabridge/internal/domain"
	"github.com/talkincode/wabridge/internal/store"
	"github.com/talkincode/wabridge/internal/webserver"
	"github.com/talkincode/wabridge/internal/whatsapp"
)

type testClient struct {
	sent   []string
	sentTo []string
}

func (c *testClient) OnStateChange(handler func(state string))   {}
func (c *testClient) OnMessage(handler func(evt whatsapp.Event)) {}

func (c *testClient) SendText(ctx context.Context, to string, body string) error {
	c.sent = append(c.sent, body)
	c.sentTo = append(c.sentTo, to)
	return nil
}

func (c *testClient) DownloadMedia(ctx context.Context, evt whatsapp.Event) ([]byte, error) {
	return nil, nil
}

func (c *testClient) DecryptFile(ctx context.Context, evt whatsapp.Event) ([]byte, error) {
	return nil, nil
}

func (c *testClient) GetAllUnreadMessages(ctx context.Context) ([]whatsapp.Chat, error) {
	return nil, nil
}

func (c *testClient) Logout(ctx context.Context) error         { return nil }
func (c *testClient) RestartService(ctx context.Context) error { return nil }
func (c *testClient) IsConnected() bool                        { return true }

type testResponder struct {
	reply string
	fail  bool
}

func (r *testResponder) Ask(ctx context.Context, message, sender, session string) chatbot.Result {
	if r.fail {
		return chatbot.Result{Success: false, Reply: chatbot.BusyReply}
	}
	return chatbot.Result{Success: true, Reply: r.reply, ResponseTime: 3 * time.Millisecond}
}

type testEnv struct {
	db        *store.MemoryDatabase
	registry  *whatsapp.Registry
	lifecycle *whatsapp.Lifecycle
	responder *testResponder
}

func setupAPI(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.DefaultAppConfig
	db := store.NewMemoryDatabase()
	registry := whatsapp.NewRegistry()
	lifecycle := whatsapp.NewLifecycle(db, registry, nil, t.TempDir())
	manager := whatsapp.NewManager(registry, lifecycle, func(name string) (whatsapp.Client, error) {
		return &testClient{}, nil
	})
	responder := &testResponder{reply: "jawaban"}

	webserver.Init(cfg, AuthMiddleware(cfg, db))
	Init(cfg, db, registry, lifecycle, manager, responder)
	return &testEnv{db: db, registry: registry, lifecycle: lifecycle, responder: responder}
}

func doJSON(method, target, token string, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echoHeaderContentType, "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	webserver.Instance().Echo().ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func loginToken(t *testing.T) string {
	t.Helper()
	rec := doJSON(http.MethodPost, "/auth/register", "",
		`{"username":"admin","password":"rahasia","sender":"6281234","email":"a@b.id"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(http.MethodPost, "/auth/login", "", `{"username":"admin","password":"rahasia"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	return data["token"].(string)
}

func TestRegisterLoginAndAuthRoundTrip(t *testing.T) {
	setupAPI(t)
	token := loginToken(t)
	require.NotEmpty(t, token)

	// token opens the authenticated group
	rec := doJSON(http.MethodGet, "/api/sessions", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// no token does not
	rec = doJSON(http.MethodGet, "/api/sessions", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// garbage token does not
	rec = doJSON(http.MethodGet, "/api/sessions", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	setupAPI(t)
	rec := doJSON(http.MethodPost, "/auth/register", "", `{"username":"admin","password":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(http.MethodPost, "/auth/register", "", `{"username":"admin","password":"x"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	setupAPI(t)
	rec := doJSON(http.MethodPost, "/auth/register", "", `{"username":"admin","password":"rahasia"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(http.MethodPost, "/auth/login", "", `{"username":"admin","password":"salah"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSessionAndDuplicate(t *testing.T) {
	env := setupAPI(t)
	token := loginToken(t)

	rec := doJSON(http.MethodPost, "/api/create-session", token,
		`{"sessionName":"s1","sender":"6281234"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, connected := env.registry.Get("s1")
	assert.True(t, connected)

	// the session row now exists, so a second create conflicts
	require.NoError(t, env.db.Sessions().UpsertStatus(context.Background(), "s1", 0, domain.SessionQrGenerated))
	rec = doJSON(http.MethodPost, "/api/create-session", token,
		`{"sessionName":"s1","sender":"6281234"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// missing name is rejected before any side effect
	rec = doJSON(http.MethodPost, "/api/create-session", token, `{"sender":"6281234"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	env := setupAPI(t)
	token := loginToken(t)
	cli := &testClient{}
	env.registry.Register("s1", cli)

	rec := doJSON(http.MethodPost, "/api/logout/s1", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	_, connected := env.registry.Get("s1")
	assert.False(t, connected)

	rec = doJSON(http.MethodPost, "/api/logout/missing", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessageHistoryEndpoints(t *testing.T) {
	env := setupAPI(t)
	token := loginToken(t)
	ctx := context.Background()

	require.NoError(t, env.db.Sessions().UpsertStatus(ctx, "s1", 0, domain.SessionAuthed))
	sess, err := env.db.Sessions().GetByName(ctx, "s1")
	require.NoError(t, err)
	content := "halo"
	require.NoError(t, env.db.Messages().Create(ctx, &domain.Message{
		SessionID: sess.ID, Sender: "6281234", Content: &content, Type: domain.MessageText,
	}))

	rec := doJSON(http.MethodGet, "/api/messages/s1", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Len(t, data["messages"], 1)

	rec = doJSON(http.MethodGet, "/api/messages-sender/6281234", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Len(t, data["messages"], 1)

	rec = doJSON(http.MethodGet, "/api/messages/unknown", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatbotEndpointPersistsExchange(t *testing.T) {
	env := setupAPI(t)
	token := loginToken(t)
	ctx := context.Background()
	require.NoError(t, env.db.Sessions().UpsertStatus(ctx, "s1", 0, domain.SessionAuthed))

	rec := doJSON(http.MethodPost, "/api/chatbot", token,
		`{"message":"halo","sender":"6281234","sessionName":"s1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "jawaban", data["reply"])

	msgs, err := env.db.Messages().ListBySender(ctx, "6281234")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Reply)
	assert.Equal(t, "jawaban", *msgs[0].Reply)
}

func TestChatbotEndpointBusy(t *testing.T) {
	env := setupAPI(t)
	env.responder.fail = true
	token := loginToken(t)

	rec := doJSON(http.MethodPost, "/api/chatbot", token,
		`{"message":"halo","sessionName":"s1"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSendReplyWebhook(t *testing.T) {
	env := setupAPI(t)
	cli := &testClient{}
	env.registry.Register("s1", cli)

	rec := doJSON(http.MethodPost, "/wppconnect/send-reply", "",
		`{"sessionName":"s1","to":"6281234@c.us","message":"balasan agen"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"balasan agen"}, cli.sent)
	assert.Equal(t, []string{"6281234@c.us"}, cli.sentTo)

	rec = doJSON(http.MethodPost, "/wppconnect/send-reply", "",
		`{"sessionName":"missing","to":"6281234@c.us","message":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(http.MethodPost, "/wppconnect/send-reply", "", `{"sessionName":"s1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
