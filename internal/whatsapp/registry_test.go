package whatsapp

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubClient struct {
	mu        sync.Mutex
	onState   func(string)
	onQR      func(string)
	onMessage func(Event)
	sent      []string
	sentTo    []string
	loggedOut bool
	restarted bool
	connected bool
	failLogin error
}

func (s *stubClient) OnStateChange(handler func(state string)) { s.onState = handler }
func (s *stubClient) OnQR(handler func(code string))           { s.onQR = handler }
func (s *stubClient) OnMessage(handler func(evt Event))        { s.onMessage = handler }

func (s *stubClient) Connect() error {
	s.connected = true
	return s.failLogin
}

func (s *stubClient) SendText(ctx context.Context, to string, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, body)
	s.sentTo = append(s.sentTo, to)
	return nil
}

func (s *stubClient) DownloadMedia(ctx context.Context, evt Event) ([]byte, error) {
	return []byte("raw"), nil
}

func (s *stubClient) DecryptFile(ctx context.Context, evt Event) ([]byte, error) {
	return []byte("raw"), nil
}

func (s *stubClient) GetAllUnreadMessages(ctx context.Context) ([]Chat, error) {
	return nil, nil
}

func (s *stubClient) Logout(ctx context.Context) error {
	s.loggedOut = true
	return nil
}

func (s *stubClient) RestartService(ctx context.Context) error {
	s.restarted = true
	return nil
}

func (s *stubClient) IsConnected() bool { return s.connected }

func TestRegistryRegisterIfAbsent(t *testing.T) {
	r := NewRegistry()
	first := &stubClient{}
	second := &stubClient{}

	got, won := r.RegisterIfAbsent("a", first)
	assert.True(t, won)
	assert.Same(t, first, got.(*stubClient))

	got, won = r.RegisterIfAbsent("a", second)
	assert.False(t, won)
	assert.Same(t, first, got.(*stubClient))
}

func TestRegistryGetAbsentIsNotConnected(t *testing.T) {
	r := NewRegistry()
	cli, ok := r.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, cli)
}

func TestRegistryUnregisterAndNames(t *testing.T) {
	r := NewRegistry()
	r.Register("a", &stubClient{})
	r.Register("b", &stubClient{})
	assert.ElementsMatch(t, []string{"a", "b"}, r.Names())

	r.Unregister("a")
	_, ok := r.Get("a")
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{"b"}, r.Names())
}

func TestRegistryConcurrentRegistration(t *testing.T) {
	r := NewRegistry()
	var wins int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, won := r.RegisterIfAbsent("shared", &stubClient{}); won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins)
}
