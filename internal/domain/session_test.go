package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapClientState(t *testing.T) {
	assert.Equal(t, SessionAuthed, MapClientState("CONNECTED"))
	assert.Equal(t, SessionDisconnected, MapClientState("TIMEOUT"))
	assert.Equal(t, SessionDisconnected, MapClientState("CONFLICT"))
	assert.Equal(t, "PAIRING", MapClientState("PAIRING"))
	assert.Equal(t, SessionDisconnected, MapClientState(SessionDisconnected))
}
