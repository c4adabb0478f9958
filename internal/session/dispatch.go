package session

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/zentexa/wabot-platform/internal/completion"
	"github.com/zentexa/wabot-platform/internal/events"
	"github.com/zentexa/wabot-platform/internal/history"
	"github.com/zentexa/wabot-platform/internal/media"
	"github.com/zentexa/wabot-platform/internal/orders"
	"github.com/zentexa/wabot-platform/internal/ratelimit"
	"github.com/zentexa/wabot-platform/internal/transport"
)

// transportHandler routes transport callbacks to the manager. Every
// callback starts with a registry lookup: after Stop or Clear the session
// is gone and the callback is a no-op.
type transportHandler struct {
	m         *Manager
	sessionID string
}

func (h *transportHandler) OnQR(code string) {
	s, ok := h.m.Get(h.sessionID)
	if !ok {
		return
	}
	s.setQR(code)
	s.setState(StateAwaitingLink)

	dataURL, err := transport.QRDataURL(code)
	if err != nil {
		h.m.logger.Error("qr render failed", "session_id", s.ID, "error", err)
	}
	h.m.publish(s, events.TypeQR, func(evt *events.SessionEvent) {
		evt.QR = &events.QRPayload{Code: code, DataURL: dataURL}
	})
}

func (h *transportHandler) OnReady() {
	s, ok := h.m.Get(h.sessionID)
	if !ok {
		return
	}
	s.setState(StateReady)
	s.touch(h.m.now())
	h.m.logger.Info("session linked", "session_id", s.ID)
	h.m.publish(s, events.TypeReady, nil)
}

// OnDisconnected is terminal: the session is removed, not resumed.
func (h *transportHandler) OnDisconnected(reason string) {
	s := h.m.remove(h.sessionID)
	if s == nil {
		return
	}
	h.m.teardown(s, StateDisconnected)
	h.m.logger.Info("session disconnected", "session_id", s.ID, "reason", reason)
	h.m.publish(s, events.TypeDisconnected, func(evt *events.SessionEvent) {
		evt.Disconnected = &events.DisconnectedPayload{Reason: reason}
	})
}

func (h *transportHandler) OnMessage(msg transport.Message) {
	s, ok := h.m.Get(h.sessionID)
	if !ok {
		return
	}
	// Handling can block on the completion backend for seconds; never do
	// it on the transport's event goroutine.
	go h.m.handleMessage(context.Background(), s, msg)
}

// handleMessage is the inbound pipeline: admission, purchase flow, catalog
// match, completion, reply. Messages from the same customer are serialized
// by a per-key lock; different customers proceed in parallel. The customer
// always receives a reply.
func (m *Manager) handleMessage(ctx context.Context, s *Session, msg transport.Message) {
	unlock := m.keys.Lock(s.ID + "|" + msg.From)
	defer unlock()

	// The session may have been stopped while we waited on the key lock.
	if _, ok := m.Get(s.ID); !ok {
		return
	}

	now := m.now()
	s.touch(now)
	m.deps.Metrics.ObserveMessage("inbound")
	m.publish(s, events.TypeMessageReceived, func(evt *events.SessionEvent) {
		evt.Message = &events.MessagePayload{
			From: msg.From, Text: msg.Text, HasMedia: msg.HasMedia(), At: msg.At,
		}
	})
	m.appendTranscript(ctx, s, msg.From, history.RoleUser, msg.Text, msg.HasMedia())

	if dec := m.checkLimit(msg.From); !dec.Allowed {
		m.deps.Metrics.ObserveRateLimitRejection(string(dec.Reason))
		m.reply(ctx, s, msg.From, rateLimitNotice(dec.RetryAfter))
		return
	}

	var (
		img      *completion.ImagePayload
		proofRef string
		fileNote string
	)
	if msg.HasMedia() {
		info, err := m.storeMedia(ctx, s, msg)
		if err != nil {
			m.logger.Error("attachment store failed", "session_id", s.ID, "error", err)
		} else {
			proofRef = info.StoredName
			if info.Category != media.CategoryImage {
				fileNote = fmt.Sprintf("%s (%s)", msg.MediaName, info.Category)
			}
		}
		if media.Classify(msg.MediaMime) == media.CategoryImage {
			img = &completion.ImagePayload{MimeType: msg.MediaMime, Data: msg.MediaData}
		}
	}

	res := s.flow.Handle(ctx, orders.Inbound{
		CustomerID:   msg.From,
		CustomerName: msg.SenderName,
		Text:         msg.Text,
		Image:        img,
		ProofRef:     proofRef,
	})
	if res.Handled {
		m.reply(ctx, s, msg.From, res.Reply)
		if res.OwnerMessage != "" && res.OwnerTo != "" {
			if err := m.send(ctx, s, res.OwnerTo, res.OwnerMessage); err != nil {
				m.logger.Error("order handoff send failed", "session_id", s.ID, "error", err)
			}
		}
		if res.Completed != nil {
			m.deps.Metrics.ObserveOrderCompleted()
			if m.deps.Notifier != nil {
				if err := m.deps.Notifier.NotifyOrderCompleted(ctx, s.Tenant, res.Completed); err != nil {
					m.logger.Error("order completion email failed", "session_id", s.ID, "error", err)
				}
			}
		}
		return
	}

	if m.sendCatalogMatch(ctx, s, msg) {
		return
	}

	start := time.Now()
	reply, err := s.gateway.Generate(ctx, completion.GenerateRequest{
		ConversationID: msg.From,
		SenderName:     msg.SenderName,
		Message:        msg.Text,
		Image:          img,
		FileNote:       fileNote,
	})
	outcome := "success"
	if err != nil {
		outcome = "error"
		m.logger.Error("completion failed", "session_id", s.ID, "from", msg.From, "error", err)
		m.publish(s, events.TypeError, func(evt *events.SessionEvent) {
			evt.Failure = &events.FailurePayload{Stage: "completion", Message: err.Error()}
		})
		reply = completion.ApologyFor(err)
	}
	m.deps.Metrics.ObserveCompletion(outcome, time.Since(start).Seconds())

	m.reply(ctx, s, msg.From, reply)
}

func (m *Manager) checkLimit(senderID string) ratelimit.Decision {
	if m.deps.Limiter == nil {
		return ratelimit.Decision{Allowed: true}
	}
	return m.deps.Limiter.Check(senderID)
}

// reply sends text back to the customer and records it everywhere a sent
// message is tracked. Send failures are logged only.
func (m *Manager) reply(ctx context.Context, s *Session, to, text string) {
	if text == "" {
		return
	}
	if err := m.send(ctx, s, to, text); err != nil {
		m.logger.Error("reply send failed", "session_id", s.ID, "to", to, "error", err)
		return
	}
	m.deps.Metrics.ObserveMessage("outbound")
	m.publish(s, events.TypeMessageSent, func(evt *events.SessionEvent) {
		evt.Message = &events.MessagePayload{To: to, Text: text, At: m.now().UTC()}
	})
	m.appendTranscript(ctx, s, to, history.RoleAssistant, text, false)
}

func (m *Manager) send(ctx context.Context, s *Session, to, text string) error {
	client := s.getClient()
	if client == nil {
		return fmt.Errorf("session: no transport client")
	}
	return client.SendText(ctx, to, text)
}

func (m *Manager) storeMedia(ctx context.Context, s *Session, msg transport.Message) (media.FileInfo, error) {
	if m.deps.Relay == nil {
		return media.FileInfo{}, fmt.Errorf("session: media relay not configured")
	}
	return m.deps.Relay.Store(ctx, s.Tenant.ID, msg.MediaName, msg.MediaMime, msg.MediaData)
}

// sendCatalogMatch resends a tenant catalog file when the message names
// one. Failures fall through to the completion pipeline.
func (m *Manager) sendCatalogMatch(ctx context.Context, s *Session, msg transport.Message) bool {
	if m.deps.Library == nil || m.deps.Relay == nil || msg.Text == "" {
		return false
	}
	f, err := m.deps.Library.Match(ctx, s.Tenant.ID, msg.Text)
	if err != nil {
		m.logger.Error("catalog match failed", "session_id", s.ID, "error", err)
		return false
	}
	if f == nil {
		return false
	}
	data, err := m.deps.Relay.Fetch(ctx, s.Tenant.ID, f.Location)
	if err != nil {
		m.logger.Error("catalog fetch failed", "session_id", s.ID, "file_id", f.ID, "error", err)
		return false
	}
	client := s.getClient()
	if client == nil {
		return false
	}
	if err := client.SendFile(ctx, msg.From, transport.FileRef{
		Data: data, MimeType: f.MimeType, Name: f.Label, Caption: f.Label,
	}); err != nil {
		m.logger.Error("catalog send failed", "session_id", s.ID, "file_id", f.ID, "error", err)
		return false
	}
	m.deps.Metrics.ObserveMessage("outbound")
	m.publish(s, events.TypeMessageSent, func(evt *events.SessionEvent) {
		evt.Message = &events.MessagePayload{To: msg.From, Text: f.Label, HasMedia: true, At: m.now().UTC()}
	})
	m.logger.Info("catalog file sent", "session_id", s.ID, "file_id", f.ID, "to", msg.From)
	return true
}

func (m *Manager) appendTranscript(ctx context.Context, s *Session, peer, role, body string, hasMedia bool) {
	if m.deps.Transcripts == nil {
		return
	}
	tm := history.TranscriptMessage{Role: role, Body: body, HasMedia: hasMedia}
	if role == history.RoleUser {
		tm.From = peer
	} else {
		tm.To = peer
	}
	if err := m.deps.Transcripts.Append(ctx, s.ID+":"+peer, tm); err != nil {
		m.logger.Error("transcript append failed", "session_id", s.ID, "error", err)
	}
}

func rateLimitNotice(retryAfter time.Duration) string {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("Vous envoyez des messages trop rapidement. Merci de patienter %d secondes avant de réessayer.", secs)
}
