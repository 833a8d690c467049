package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSenderNumber(t *testing.T) {
	assert.Equal(t, "6281234", Event{From: "6281234@c.us"}.SenderNumber())
	assert.Equal(t, "6281234", Event{From: "6281234@s.whatsapp.net"}.SenderNumber())
	assert.Equal(t, "6281234", Event{From: "6281234"}.SenderNumber())
}

func TestIsChannel(t *testing.T) {
	assert.True(t, Event{From: "status@broadcast"}.IsChannel())
	assert.True(t, Event{From: "12036304@broadcast"}.IsChannel())
	assert.True(t, Event{From: "6281234@c.us", IsStatus: true}.IsChannel())
	assert.False(t, Event{From: "6281234@c.us"}.IsChannel())
}

func TestEmpty(t *testing.T) {
	assert.True(t, Event{From: "6281234@c.us"}.Empty())
	assert.False(t, Event{Body: "halo"}.Empty())
	assert.False(t, Event{Caption: "foto"}.Empty())
	assert.False(t, Event{IsLocation: true}.Empty())
	assert.False(t, Event{Mimetype: "image/jpeg"}.Empty())
	assert.False(t, Event{IsVoice: true}.Empty())
}
