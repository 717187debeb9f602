package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/chat"
	"github.com/longkey1/finanzas/internal/finanzas/i18n"
	"github.com/longkey1/finanzas/internal/voice"
)

// Inbound message types.
const (
	inboundSend                   = "send"
	inboundRecognitionToggle      = "recognition.toggle"
	inboundRecognitionStart       = "recognition.start"
	inboundRecognitionResult      = "recognition.result"
	inboundRecognitionEnd         = "recognition.end"
	inboundRecognitionError       = "recognition.error"
	inboundRecognitionUnsupported = "recognition.unsupported"
	inboundOnline                 = "online"
	inboundOffline                = "offline"
)

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type textData struct {
	Text string `json:"text"`
}

type resultData struct {
	Segments []string `json:"segments"`
}

type errorData struct {
	Error string `json:"error"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := s.hub.register(conn)
	s.recognition.SetEngine(s.hub)
	go s.hub.writePump(c)
	s.logger.Debug("websocket connected", "clients", s.hub.Len())

	defer func() {
		s.hub.unregister(c)
		if s.hub.Len() == 0 {
			s.recognition.SetEngine(nil)
		}
		s.logger.Debug("websocket disconnected", "clients", s.hub.Len())
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		s.handleInbound(c, msg)
	}
}

func (s *Server) handleInbound(c *client, msg inboundMessage) {
	switch msg.Type {
	case inboundSend:
		var data textData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			s.hub.sendTo(c, EventError, map[string]string{"message": "invalid send payload"})
			return
		}
		go s.send(c, data.Text)

	case inboundRecognitionToggle:
		if err := s.recognition.Toggle(); err != nil {
			s.pipeline.Toast(i18n.ErrorSpeechNotSupported, chat.ToastError)
		}

	case inboundRecognitionStart:
		s.recognition.Started()

	case inboundRecognitionResult:
		var data resultData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			s.hub.sendTo(c, EventError, map[string]string{"message": "invalid recognition payload"})
			return
		}
		s.recognition.Result(data.Segments)

	case inboundRecognitionEnd:
		s.recognition.Ended()

	case inboundRecognitionError:
		var data errorData
		_ = json.Unmarshal(msg.Data, &data)
		if data.Error == "" {
			data.Error = "recognition failed"
		}
		s.recognition.Failed(errors.New(data.Error))

	case inboundRecognitionUnsupported:
		s.pipeline.Toast(i18n.ErrorSpeechNotSupported, chat.ToastError)

	case inboundOffline:
		s.pipeline.Toast(i18n.OfflineMessage, chat.ToastWarning)

	case inboundOnline:
		s.pipeline.Toast(i18n.BackOnline, chat.ToastSuccess)

	default:
		s.hub.sendTo(c, EventError, map[string]string{"message": "unsupported message type: " + msg.Type})
	}
}

// send runs one pipeline send. Rate-limit and reply failures already reach
// every browser as toasts; the rest are reported to the sender only.
func (s *Server) send(c *client, text string) {
	_, err := s.pipeline.SendUserMessage(s.base, text)
	switch {
	case err == nil, errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrRateLimited), errors.Is(err, chat.ErrReplyFailed):
	case errors.Is(err, chat.ErrBusy):
		s.hub.sendTo(c, EventError, map[string]string{"message": err.Error()})
	default:
		s.logger.Error("send failed", "error", err)
		s.hub.sendTo(c, EventError, map[string]string{"message": err.Error()})
	}
}

// RecognitionHandler returns the voice handler that forwards recognition
// events to the browsers. Transcripts fill the input box; they are not sent.
func (h *Hub) RecognitionHandler(lang func() finanzas.Language) voice.Handler {
	return voice.Handler{
		OnStart: func() {
			h.Broadcast(EventListening, map[string]any{"listening": true, "text": i18n.T(lang(), i18n.Listening)})
		},
		OnTranscript: func(transcript string) {
			h.Broadcast(EventInput, map[string]string{"text": transcript})
		},
		OnEnd: func() {
			h.Broadcast(EventListening, map[string]any{"listening": false})
		},
		OnError: func(err error) {
			h.logger.Warn("speech recognition failed", "error", err)
			h.Broadcast(EventListening, map[string]any{"listening": false})
			h.Toast(i18n.T(lang(), i18n.SpeechError), chat.ToastError)
		},
	}
}
