package whatsapp

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waTypes "go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

// deviceMarker tags whatsmeow store devices owned by a named session so
// they can be found again across restarts.
func deviceMarker(sessionName string) string {
	return "wabridge:" + sessionName
}

// NewContainer opens the sqlite-backed whatsmeow device store under the
// given data directory.
func NewContainer(dataDir string) (*sqlstore.Container, error) {
	dbPath := path.Join(dataDir, "whatsmeow.db")
	dbLog := waLog.Stdout("Database", "WARN", true)
	container, err := sqlstore.New(context.Background(), "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", dbPath), dbLog)
	if err != nil {
		return nil, fmt.Errorf("open whatsmeow store: %w", err)
	}
	return container, nil
}

// MeowClient adapts a whatsmeow client to the Client capability.
type MeowClient struct {
	name string
	cli  *whatsmeow.Client

	mu        sync.RWMutex
	onState   func(state string)
	onQR      func(code string)
	onMessage func(evt Event)
	// downloadable payloads keyed by event id, so DownloadMedia and
	// DecryptFile can resolve an Event back to its protocol message
	media  map[string]whatsmeow.DownloadableMessage
	unread []Event
}

// NewMeowClient builds a client for sessionName, reusing a previously
// paired device when one carries the session marker.
func NewMeowClient(container *sqlstore.Container, sessionName string) (*MeowClient, error) {
	marker := deviceMarker(sessionName)
	devices, err := container.GetAllDevices(context.Background())
	if err != nil {
		return nil, fmt.Errorf("list stored devices: %w", err)
	}
	var device = container.NewDevice()
	for _, d := range devices {
		if d != nil && d.BusinessName == marker {
			device = d
			break
		}
	}
	device.BusinessName = marker
	if device.PushName == "" {
		device.PushName = sessionName
	}

	clientLog := waLog.Stdout("Client-"+sessionName, "WARN", true)
	m := &MeowClient{
		name:  sessionName,
		cli:   whatsmeow.NewClient(device, clientLog),
		media: make(map[string]whatsmeow.DownloadableMessage),
	}
	m.cli.AddEventHandler(m.handleEvent)
	return m, nil
}

func (m *MeowClient) handleEvent(raw interface{}) {
	switch evt := raw.(type) {
	case *events.Connected:
		m.emitState("CONNECTED")
	case *events.Disconnected:
		m.emitState("DISCONNECTED")
	case *events.StreamReplaced:
		m.emitState("CONFLICT")
	case *events.LoggedOut:
		m.emitState("DISCONNECTED")
	case *events.Message:
		m.handleMessage(evt)
	}
}

func (m *MeowClient) emitState(state string) {
	m.mu.RLock()
	handler := m.onState
	m.mu.RUnlock()
	if handler != nil {
		handler(state)
	}
}

func (m *MeowClient) handleMessage(evt *events.Message) {
	if evt.Info.IsFromMe {
		return
	}
	e := Event{
		ID:        evt.Info.ID,
		From:      evt.Info.Sender.User + "@c.us",
		PushName:  evt.Info.PushName,
		Session:   m.name,
		IsGroup:   evt.Info.IsGroup,
		Timestamp: evt.Info.Timestamp,
		Type:      "chat",
	}
	if evt.Info.Chat.Server == waTypes.BroadcastServer {
		e.IsStatus = true
		e.From = "status@broadcast"
	}

	msg := evt.Message
	var dl whatsmeow.DownloadableMessage
	switch {
	case msg.GetConversation() != "":
		e.Body = msg.GetConversation()
	case msg.GetExtendedTextMessage() != nil:
		e.Body = msg.GetExtendedTextMessage().GetText()
	case msg.GetAudioMessage() != nil:
		audio := msg.GetAudioMessage()
		e.Mimetype = audio.GetMimetype()
		e.IsVoice = audio.GetPTT()
		e.Type = "audio"
		if e.IsVoice {
			e.Type = "ptt"
		}
		dl = audio
	case msg.GetImageMessage() != nil:
		img := msg.GetImageMessage()
		e.Type = "image"
		e.Caption = img.GetCaption()
		e.Mimetype = img.GetMimetype()
		dl = img
	case msg.GetVideoMessage() != nil:
		vid := msg.GetVideoMessage()
		e.Type = "video"
		e.Caption = vid.GetCaption()
		e.Mimetype = vid.GetMimetype()
		dl = vid
	case msg.GetDocumentMessage() != nil:
		doc := msg.GetDocumentMessage()
		e.Type = "document"
		e.Caption = doc.GetCaption()
		e.Mimetype = doc.GetMimetype()
		e.Filename = doc.GetFileName()
		dl = doc
	case msg.GetLocationMessage() != nil:
		loc := msg.GetLocationMessage()
		e.Type = "location"
		e.IsLocation = true
		e.Latitude = loc.GetDegreesLatitude()
		e.Longitude = loc.GetDegreesLongitude()
		e.LocationName = loc.GetName()
	default:
		// unsupported payload kind; the pipeline's empty-content rule drops it
	}

	m.mu.Lock()
	if dl != nil {
		m.media[e.ID] = dl
	}
	handler := m.onMessage
	if handler == nil {
		m.unread = append(m.unread, e)
	}
	m.mu.Unlock()

	if handler != nil {
		handler(e)
	}
}

// Connect establishes the connection, streaming pairing codes to the QR
// handler while the device is not yet paired.
func (m *MeowClient) Connect() error {
	if m.cli.Store.ID == nil {
		qrChan, err := m.cli.GetQRChannel(context.Background())
		if err != nil {
			return fmt.Errorf("qr channel: %w", err)
		}
		go func() {
			for item := range qrChan {
				if item.Event == "code" {
					m.mu.RLock()
					handler := m.onQR
					m.mu.RUnlock()
					if handler != nil {
						handler(item.Code)
					}
				} else {
					zap.L().Debug("whatsapp: qr channel event",
						zap.String("session", m.name), zap.String("event", item.Event))
				}
			}
		}()
	}
	return m.cli.Connect()
}

func (m *MeowClient) OnStateChange(handler func(state string)) {
	m.mu.Lock()
	m.onState = handler
	m.mu.Unlock()
}

func (m *MeowClient) OnQR(handler func(code string)) {
	m.mu.Lock()
	m.onQR = handler
	m.mu.Unlock()
}

func (m *MeowClient) OnMessage(handler func(evt Event)) {
	m.mu.Lock()
	m.onMessage = handler
	m.mu.Unlock()
}

// parseRecipient accepts "6281234@c.us", bare numbers and full JIDs.
func parseRecipient(to string) (waTypes.JID, error) {
	if i := strings.Index(to, "@c.us"); i >= 0 {
		to = to[:i]
	}
	if !strings.Contains(to, "@") {
		to = to + "@" + waTypes.DefaultUserServer
	}
	return waTypes.ParseJID(to)
}

func (m *MeowClient) SendText(ctx context.Context, to string, body string) error {
	jid, err := parseRecipient(to)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	_, err = m.cli.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(body)})
	if err != nil {
		return fmt.Errorf("send to %s: %w", jid.String(), err)
	}
	return nil
}

// takeMedia pops the downloadable payload for an event. Payloads are
// consumed at most once so references do not pile up over the client's
// lifetime.
func (m *MeowClient) takeMedia(id string) (whatsmeow.DownloadableMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dl, ok := m.media[id]
	if ok {
		delete(m.media, id)
	}
	return dl, ok
}

func (m *MeowClient) DownloadMedia(ctx context.Context, evt Event) ([]byte, error) {
	dl, ok := m.takeMedia(evt.ID)
	if !ok {
		return nil, fmt.Errorf("no downloadable payload for event %s", evt.ID)
	}
	return m.cli.Download(ctx, dl)
}

// DecryptFile is the generic-attachment variant of DownloadMedia; the
// protocol client decrypts transparently during download.
func (m *MeowClient) DecryptFile(ctx context.Context, evt Event) ([]byte, error) {
	return m.DownloadMedia(ctx, evt)
}

func (m *MeowClient) GetAllUnreadMessages(ctx context.Context) ([]Chat, error) {
	m.mu.Lock()
	pending := m.unread
	m.unread = nil
	m.mu.Unlock()
	if len(pending) == 0 {
		return nil, nil
	}
	return []Chat{{Messages: pending}}, nil
}

func (m *MeowClient) Logout(ctx context.Context) error {
	if err := m.cli.Logout(ctx); err != nil {
		return err
	}
	m.cli.Disconnect()
	return nil
}

func (m *MeowClient) RestartService(ctx context.Context) error {
	m.cli.Disconnect()
	return m.Connect()
}

func (m *MeowClient) IsConnected() bool {
	return m.cli.IsConnected()
}
