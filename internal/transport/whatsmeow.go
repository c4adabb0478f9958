package transport

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waTypes "go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/zentexa/wabot-platform/pkg/logging"
)

// WhatsmeowFactory creates WhatsApp clients backed by a sqlstore container
// that shares the application's database connection, so device credentials
// live in the same Postgres as the rest of the data.
type WhatsmeowFactory struct {
	container *sqlstore.Container
	devices   *deviceDirectory
	logger    *logging.Logger
}

func NewWhatsmeowFactory(ctx context.Context, db *sql.DB, driver string, logger *logging.Logger) (*WhatsmeowFactory, error) {
	if logger == nil {
		logger = logging.Default()
	}
	container := sqlstore.NewWithDB(db, driver, nil)
	if err := container.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("transport: sqlstore upgrade: %w", err)
	}
	return &WhatsmeowFactory{
		container: container,
		devices:   &deviceDirectory{db: db},
		logger:    logger,
	}, nil
}

// NewClient reuses the session's paired device when the directory knows
// one, so restarts and re-creates reconnect without a new QR scan. Only
// sessions with no stored pairing get a fresh device.
func (f *WhatsmeowFactory) NewClient(ctx context.Context, sessionID string) (Client, error) {
	device, err := f.storedDevice(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if device == nil {
		device = f.container.NewDevice()
	}
	return &whatsmeowClient{
		cli:       whatsmeow.NewClient(device, nil),
		device:    device,
		container: f.container,
		devices:   f.devices,
		sessionID: sessionID,
		logger:    f.logger.With("session_id", sessionID),
	}, nil
}

// storedDevice resolves the directory mapping to a sqlstore device. Stale
// or unparsable mappings are dropped and the session pairs fresh.
func (f *WhatsmeowFactory) storedDevice(ctx context.Context, sessionID string) (*store.Device, error) {
	raw, err := f.devices.get(ctx, sessionID)
	if err != nil || raw == "" {
		return nil, err
	}
	jid, err := waTypes.ParseJID(raw)
	if err != nil {
		f.logger.Warn("stored device jid unparsable, pairing fresh",
			"session_id", sessionID, "jid", raw)
		_ = f.devices.delete(ctx, sessionID)
		return nil, nil
	}
	device, err := f.container.GetDevice(ctx, jid)
	if err != nil {
		return nil, fmt.Errorf("transport: load device %s: %w", jid, err)
	}
	if device == nil {
		// Credentials were deleted out from under the mapping.
		_ = f.devices.delete(ctx, sessionID)
	}
	return device, nil
}

type whatsmeowClient struct {
	cli       *whatsmeow.Client
	device    *store.Device
	container *sqlstore.Container
	devices   *deviceDirectory
	sessionID string
	logger    *logging.Logger

	mu      sync.RWMutex
	handler Handler
}

func (c *whatsmeowClient) SetHandler(h Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

func (c *whatsmeowClient) getHandler() Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handler
}

func (c *whatsmeowClient) Connect(ctx context.Context) error {
	c.cli.AddEventHandler(func(raw any) { c.handleEvent(ctx, raw) })
	if err := c.cli.Connect(); err != nil {
		return fmt.Errorf("transport: connect: %w", err)
	}
	return nil
}

func (c *whatsmeowClient) handleEvent(ctx context.Context, raw any) {
	h := c.getHandler()
	if h == nil {
		return
	}
	switch evt := raw.(type) {
	case *events.QR:
		if len(evt.Codes) > 0 {
			h.OnQR(evt.Codes[0])
		}
	case *events.PairSuccess:
		c.logger.Info("paired", "jid", evt.ID.String())
		if err := c.devices.put(ctx, c.sessionID, evt.ID.String()); err != nil {
			c.logger.Error("device mapping save failed", "jid", evt.ID.String(), "error", err)
		}
	case *events.Connected:
		h.OnReady()
	case *events.Disconnected:
		h.OnDisconnected("connection closed")
	case *events.LoggedOut:
		h.OnDisconnected("logged out from phone")
	case *events.Message:
		c.handleMessage(ctx, evt, h)
	}
}

func (c *whatsmeowClient) handleMessage(ctx context.Context, evt *events.Message, h Handler) {
	if evt.Info.IsFromMe {
		return
	}
	chat := evt.Info.Chat.String()
	if evt.Info.IsGroup || strings.HasPrefix(chat, "status@") || strings.HasSuffix(chat, "@broadcast") {
		return
	}

	msg := Message{
		ID:         string(evt.Info.ID),
		From:       evt.Info.Sender.ToNonAD().String(),
		SenderName: evt.Info.PushName,
		Text:       extractText(evt.Message),
		At:         evt.Info.Timestamp,
	}
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}

	if img := evt.Message.GetImageMessage(); img != nil {
		data, err := c.cli.Download(ctx, img)
		if err != nil {
			c.logger.Error("image download failed", "message_id", msg.ID, "error", err)
		} else {
			msg.MediaData = data
			msg.MediaMime = img.GetMimetype()
			if msg.Text == "" {
				msg.Text = img.GetCaption()
			}
		}
	} else if doc := evt.Message.GetDocumentMessage(); doc != nil {
		data, err := c.cli.Download(ctx, doc)
		if err != nil {
			c.logger.Error("document download failed", "message_id", msg.ID, "error", err)
		} else {
			msg.MediaData = data
			msg.MediaMime = doc.GetMimetype()
			msg.MediaName = doc.GetFileName()
		}
	}

	h.OnMessage(msg)
}

func extractText(m *waE2E.Message) string {
	if m == nil {
		return ""
	}
	if t := m.GetConversation(); t != "" {
		return t
	}
	if ext := m.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	return ""
}

func (c *whatsmeowClient) SendText(ctx context.Context, to, text string) error {
	jid, err := waTypes.ParseJID(to)
	if err != nil {
		return fmt.Errorf("transport: parse jid %q: %w", to, err)
	}
	_, err = c.cli.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
	if err != nil {
		return fmt.Errorf("transport: send text to %s: %w", to, err)
	}
	return nil
}

func (c *whatsmeowClient) SendFile(ctx context.Context, to string, f FileRef) error {
	jid, err := waTypes.ParseJID(to)
	if err != nil {
		return fmt.Errorf("transport: parse jid %q: %w", to, err)
	}

	mediaType := whatsmeow.MediaDocument
	if strings.HasPrefix(f.MimeType, "image/") {
		mediaType = whatsmeow.MediaImage
	}
	uploaded, err := c.cli.Upload(ctx, f.Data, mediaType)
	if err != nil {
		return fmt.Errorf("transport: upload %s: %w", f.Name, err)
	}

	var msg *waE2E.Message
	if mediaType == whatsmeow.MediaImage {
		msg = &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			Caption:       proto.String(f.Caption),
			Mimetype:      proto.String(f.MimeType),
			URL:           &uploaded.URL,
			DirectPath:    &uploaded.DirectPath,
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    &uploaded.FileLength,
		}}
	} else {
		msg = &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			Title:         proto.String(f.Name),
			FileName:      proto.String(f.Name),
			Caption:       proto.String(f.Caption),
			Mimetype:      proto.String(f.MimeType),
			URL:           &uploaded.URL,
			DirectPath:    &uploaded.DirectPath,
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    &uploaded.FileLength,
		}}
	}

	if _, err := c.cli.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("transport: send file to %s: %w", to, err)
	}
	return nil
}

func (c *whatsmeowClient) Disconnect() {
	c.cli.Disconnect()
}

// Logout deletes the stored pairing so the next session starts from a
// clean QR scan. The directory mapping goes first; a device that never
// paired has no persisted credentials to remove.
func (c *whatsmeowClient) Logout(ctx context.Context) error {
	if err := c.devices.delete(ctx, c.sessionID); err != nil {
		c.logger.Error("device mapping delete failed", "error", err)
	}
	if c.cli.Store.ID == nil {
		return nil
	}
	if err := c.cli.Logout(ctx); err != nil {
		// Phone-side logout needs the link; drop the credentials anyway.
		if derr := c.container.DeleteDevice(ctx, c.device); derr != nil {
			return fmt.Errorf("transport: logout: %w", err)
		}
	}
	return nil
}
