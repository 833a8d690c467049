package pipeline

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/talkincode/wabridge/internal/domain"
	"github.com/talkincode/wabridge/internal/whatsapp"
)

// MediaSource is the slice of the WhatsApp client the extractor needs.
type MediaSource interface {
	DownloadMedia(ctx context.Context, evt whatsapp.Event) ([]byte, error)
	DecryptFile(ctx context.Context, evt whatsapp.Event) ([]byte, error)
}

// Artifact is the outcome of media extraction for one event.
type Artifact struct {
	Path    string
	Kind    Kind
	Content string
}

// Extractor persists inbound media under the media root, one folder per
// kind, and synthesizes content strings for voice notes and locations.
type Extractor struct {
	mediaDir   string
	transcoder Transcoder
}

func NewExtractor(mediaDir string, transcoder Transcoder) *Extractor {
	return &Extractor{mediaDir: mediaDir, transcoder: transcoder}
}

// Extract routes by kind. Download and write failures propagate and
// abort that message only; a failed voice-note transcode keeps the ogg
// original instead of failing.
func (e *Extractor) Extract(ctx context.Context, src MediaSource, evt whatsapp.Event) (Artifact, error) {
	kind := Classify(evt)
	switch kind.Type {
	case domain.MessageText:
		return Artifact{Kind: kind, Content: evt.Body}, nil
	case domain.MessageLocation:
		return e.extractLocation(evt), nil
	case domain.MessageVoiceNote:
		return e.extractVoice(ctx, src, evt)
	default:
		return e.extractFile(ctx, src, evt, kind)
	}
}

func (e *Extractor) extractLocation(evt whatsapp.Event) Artifact {
	url := fmt.Sprintf("https://maps.google.com/?q=%v,%v", evt.Latitude, evt.Longitude)
	label := evt.LocationName
	if label == "" {
		label = url
	}
	return Artifact{
		Kind:    KindLocation,
		Path:    url,
		Content: "Lokasi: " + label,
	}
}

func (e *Extractor) extractVoice(ctx context.Context, src MediaSource, evt whatsapp.Event) (Artifact, error) {
	stamp := time.Now().UnixMilli()
	if !evt.Timestamp.IsZero() {
		stamp = evt.Timestamp.UnixMilli()
	}
	oggDir := path.Join(e.mediaDir, "voice_notes", "ogg")
	mp3Dir := path.Join(e.mediaDir, "voice_notes", "mp3")
	oggPath := path.Join(oggDir, fmt.Sprintf("vn_%d.ogg", stamp))
	mp3Path := path.Join(mp3Dir, fmt.Sprintf("vn_%d.mp3", stamp))

	data, err := src.DownloadMedia(ctx, evt)
	if err != nil {
		return Artifact{}, fmt.Errorf("download voice note: %w", err)
	}
	if err := writeFile(oggPath, data); err != nil {
		return Artifact{}, fmt.Errorf("store voice note: %w", err)
	}

	fallback := Artifact{Kind: KindVoiceNote, Content: "Voice note (OGG)", Path: oggPath}
	if err := os.MkdirAll(mp3Dir, 0o755); err != nil {
		zap.L().Warn("pipeline: voice note transcode failed, keeping ogg",
			zap.String("src", oggPath), zap.Error(err))
		return fallback, nil
	}
	if err := e.transcoder.ToMP3(ctx, oggPath, mp3Path); err != nil {
		zap.L().Warn("pipeline: voice note transcode failed, keeping ogg",
			zap.String("src", oggPath), zap.Error(err))
		return fallback, nil
	}
	return Artifact{Kind: KindVoiceNote, Content: "Voice note (MP3)", Path: mp3Path}, nil
}

func (e *Extractor) extractFile(ctx context.Context, src MediaSource, evt whatsapp.Event, kind Kind) (Artifact, error) {
	data, err := src.DecryptFile(ctx, evt)
	if err != nil {
		return Artifact{}, fmt.Errorf("decrypt %s media: %w", kind.Type, err)
	}
	name := evt.Filename
	if name == "" {
		stamp := time.Now().UnixMilli()
		if !evt.Timestamp.IsZero() {
			stamp = evt.Timestamp.UnixMilli()
		}
		name = fmt.Sprintf("%d%s", stamp, extFor(evt.Mimetype))
	}
	dst := path.Join(e.mediaDir, kind.Folder, name)
	if err := writeFile(dst, data); err != nil {
		return Artifact{}, fmt.Errorf("store %s media: %w", kind.Type, err)
	}
	return Artifact{Kind: kind, Path: dst, Content: evt.Caption}, nil
}

func writeFile(dst string, data []byte) error {
	if err := os.MkdirAll(path.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func extFor(mimetype string) string {
	switch {
	case mimetype == "image/jpeg":
		return ".jpg"
	case mimetype == "image/png":
		return ".png"
	case mimetype == "video/mp4":
		return ".mp4"
	case mimetype == "audio/mpeg":
		return ".mp3"
	case mimetype == "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}
