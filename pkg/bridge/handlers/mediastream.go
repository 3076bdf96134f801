package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cupidcall/cupid-bridge/pkg/bridge/call"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/metrics"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/registry"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/twilio"
)

// MediaStreamHandler upgrades the telephony provider's websocket and runs a
// bridge for it until the stream ends.
type MediaStreamHandler struct {
	Registry *registry.Store
	Opener   call.SessionOpener
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	Upgrader websocket.Upgrader
}

func (h *MediaStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("media stream upgrade failed", "error", err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.ActiveBridges.Inc()
		defer h.Metrics.ActiveBridges.Dec()
	}

	leg := &wsLeg{conn: conn}
	b := call.New(h.Registry, h.Opener, leg, h.Logger)
	defer b.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.Logger.Debug("media stream closed", "error", err)
			}
			return
		}
		h.countFrame(raw)
		if err := b.HandleMessage(r.Context(), raw); err != nil {
			h.Logger.Warn("media stream frame rejected", "error", err)
		}
	}
}

func (h *MediaStreamHandler) countFrame(raw []byte) {
	if h.Metrics == nil {
		return
	}
	var peek struct {
		Event string `json:"event"`
	}
	if json.Unmarshal(raw, &peek) == nil && peek.Event != "" {
		h.Metrics.StreamFrames.WithLabelValues(peek.Event).Inc()
	}
}

// wsLeg adapts the upgraded websocket to the bridge's telephony interface.
// Writes are serialized; Close is idempotent so both the read loop and the
// bridge may trigger teardown.
type wsLeg struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (l *wsLeg) WriteMedia(streamSID, payloadB64 string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.conn.WriteJSON(twilio.OutboundMedia(streamSID, payloadB64))
}

func (l *wsLeg) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = l.conn.Close()
	})
	return err
}
