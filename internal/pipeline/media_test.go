package pipeline

import (
	"context"
	"errors"
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/wabridge/internal/whatsapp"
)

type fakeSource struct {
	data []byte
	err  error
}

func (f fakeSource) DownloadMedia(ctx context.Context, evt whatsapp.Event) ([]byte, error) {
	return f.data, f.err
}

func (f fakeSource) DecryptFile(ctx context.Context, evt whatsapp.Event) ([]byte, error) {
	return f.data, f.err
}

type fakeTranscoder struct {
	fail bool
}

func (f fakeTranscoder) ToMP3(ctx context.Context, src, dst string) error {
	if f.fail {
		return errors.New("codec unavailable")
	}
	return os.WriteFile(dst, []byte("mp3"), 0o644)
}

func TestExtractVoiceNoteTranscoded(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(dir, fakeTranscoder{})
	evt := whatsapp.Event{IsVoice: true, Timestamp: time.UnixMilli(1700000000000)}

	art, err := e.Extract(context.Background(), fakeSource{data: []byte("ogg")}, evt)
	require.NoError(t, err)
	assert.Equal(t, "Voice note (MP3)", art.Content)
	assert.Equal(t, path.Join(dir, "voice_notes", "mp3", "vn_1700000000000.mp3"), art.Path)
	_, statErr := os.Stat(art.Path)
	assert.NoError(t, statErr)
	// the raw ogg original stays on disk
	_, statErr = os.Stat(path.Join(dir, "voice_notes", "ogg", "vn_1700000000000.ogg"))
	assert.NoError(t, statErr)
}

func TestExtractVoiceNoteFallsBackToOgg(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(dir, fakeTranscoder{fail: true})
	evt := whatsapp.Event{IsVoice: true, Timestamp: time.UnixMilli(1700000000000)}

	art, err := e.Extract(context.Background(), fakeSource{data: []byte("ogg")}, evt)
	require.NoError(t, err)
	assert.Equal(t, "Voice note (OGG)", art.Content)
	assert.Equal(t, path.Join(dir, "voice_notes", "ogg", "vn_1700000000000.ogg"), art.Path)
	// exactly one artifact: no mp3 written
	_, statErr := os.Stat(path.Join(dir, "voice_notes", "mp3", "vn_1700000000000.mp3"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractVoiceNoteDownloadFailurePropagates(t *testing.T) {
	e := NewExtractor(t.TempDir(), fakeTranscoder{})
	evt := whatsapp.Event{IsVoice: true}

	_, err := e.Extract(context.Background(), fakeSource{err: errors.New("download failed")}, evt)
	assert.Error(t, err)
}

func TestExtractLocation(t *testing.T) {
	e := NewExtractor(t.TempDir(), fakeTranscoder{})

	art, err := e.Extract(context.Background(), fakeSource{}, whatsapp.Event{
		IsLocation: true, Latitude: -7.25, Longitude: 112.75, LocationName: "Surabaya",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://maps.google.com/?q=-7.25,112.75", art.Path)
	assert.Equal(t, "Lokasi: Surabaya", art.Content)

	// unnamed locations fall back to the URL itself
	art, err = e.Extract(context.Background(), fakeSource{}, whatsapp.Event{
		IsLocation: true, Latitude: 1, Longitude: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Lokasi: https://maps.google.com/?q=1,2", art.Content)
}

func TestExtractDocumentKeepsOriginalFilename(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(dir, fakeTranscoder{})
	evt := whatsapp.Event{Mimetype: "application/pdf", Filename: "laporan.pdf"}

	art, err := e.Extract(context.Background(), fakeSource{data: []byte("%PDF")}, evt)
	require.NoError(t, err)
	assert.Equal(t, path.Join(dir, "documents", "laporan.pdf"), art.Path)
	data, readErr := os.ReadFile(art.Path)
	require.NoError(t, readErr)
	assert.Equal(t, []byte("%PDF"), data)
}

func TestExtractMediaFailurePropagates(t *testing.T) {
	e := NewExtractor(t.TempDir(), fakeTranscoder{})
	evt := whatsapp.Event{Mimetype: "image/jpeg"}

	_, err := e.Extract(context.Background(), fakeSource{err: errors.New("decrypt failed")}, evt)
	assert.Error(t, err)
}

func TestExtractText(t *testing.T) {
	e := NewExtractor(t.TempDir(), fakeTranscoder{})
	art, err := e.Extract(context.Background(), fakeSource{}, whatsapp.Event{Body: "halo"})
	require.NoError(t, err)
	assert.Equal(t, KindText, art.Kind)
	assert.Equal(t, "halo", art.Content)
	assert.Empty(t, art.Path)
}
