// Package pipeline turns inbound WhatsApp events into stored messages,
// chatbot replies and back-office forwards.
package pipeline

import (
	"strings"

	"github.com/talkincode/wabridge/internal/domain"
	"github.com/talkincode/wabridge/internal/whatsapp"
)

// Kind pairs a message type with the media folder it lands in.
type Kind struct {
	Type   string
	Folder string
}

var (
	KindText      = Kind{Type: domain.MessageText, Folder: ""}
	KindVoiceNote = Kind{Type: domain.MessageVoiceNote, Folder: "voice_notes"}
	KindLocation  = Kind{Type: domain.MessageLocation, Folder: ""}
	KindImage     = Kind{Type: domain.MessageImage, Folder: "images"}
	KindVideo     = Kind{Type: domain.MessageVideo, Folder: "videos"}
	KindAudio     = Kind{Type: domain.MessageAudio, Folder: "audios"}
	KindDocument  = Kind{Type: domain.MessageDocument, Folder: "documents"}
)

// Classify maps an event to its kind. Voice notes win over everything,
// then locations, then the mimetype prefix; media with an unrecognized
// mimetype is filed as a document.
func Classify(evt whatsapp.Event) Kind {
	switch {
	case evt.IsVoice:
		return KindVoiceNote
	case evt.IsLocation:
		return KindLocation
	case evt.Mimetype != "":
		switch {
		case strings.HasPrefix(evt.Mimetype, "image/"):
			return KindImage
		case strings.HasPrefix(evt.Mimetype, "video/"):
			return KindVideo
		case strings.HasPrefix(evt.Mimetype, "audio/"):
			return KindAudio
		default:
			return KindDocument
		}
	default:
		return KindText
	}
}
