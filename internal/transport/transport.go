// Package transport abstracts the messaging channel a session talks
// through. The session manager only sees Client and Factory; the
// whatsmeow adapter lives behind them.
package transport

import (
	"context"
	"time"
)

// Message is one inbound customer message, already stripped of protocol
// detail. MediaData is nil for plain text.
type Message struct {
	ID         string
	From       string
	SenderName string
	Text       string
	MediaData  []byte
	MediaMime  string
	MediaName  string
	At         time.Time
}

// HasMedia reports whether the message carries an attachment.
func (m Message) HasMedia() bool { return len(m.MediaData) > 0 }

// FileRef is an outbound attachment.
type FileRef struct {
	Data     []byte
	MimeType string
	Name     string
	Caption  string
}

// Handler receives transport callbacks. All methods may be called from
// the transport's own goroutines.
type Handler interface {
	OnQR(code string)
	OnReady()
	OnDisconnected(reason string)
	OnMessage(msg Message)
}

// Client is one live connection to the messaging network.
type Client interface {
	// SetHandler must be called before Connect.
	SetHandler(h Handler)
	Connect(ctx context.Context) error
	SendText(ctx context.Context, to, text string) error
	SendFile(ctx context.Context, to string, f FileRef) error
	Disconnect()
	// Logout tears down the link registration and deletes stored
	// credentials, forcing a fresh QR pairing next time.
	Logout(ctx context.Context) error
}

// Factory builds one Client per session.
type Factory interface {
	NewClient(ctx context.Context, sessionID string) (Client, error)
}
