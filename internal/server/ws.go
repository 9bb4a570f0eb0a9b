package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/hexfield/hexfield/internal/packets"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketFrontend serves the same packet stream over websocket, for
// clients that can't open a raw TCP socket. Each message carries one JSON
// envelope; the websocket framing replaces the length prefix.
type WebSocketFrontend struct {
	Address string
	Server  *Server
	Logger  *logrus.Logger
}

func (f *WebSocketFrontend) Start(ctx context.Context, wg *sync.WaitGroup) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			f.Logger.Warnf("websocket upgrade from %s failed: %v", r.RemoteAddr, err)
			return
		}
		f.Server.ServeTransport(ctx, &wsTransport{conn: conn})
	})

	httpServer := &http.Server{Addr: f.Address, Handler: mux}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		f.Logger.Infof("waiting for websocket connections on %v", f.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			f.Logger.Errorf("websocket server failed: %v", err)
		}
	}()

	return nil
}

// wsTransport adapts a websocket connection to the transport interface.
// Writes are serialized by the owning client's writer goroutine, but the
// mutex keeps close frames from interleaving with payloads.
type wsTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (t *wsTransport) ReadPacket() (*packets.Envelope, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading websocket message: %w", err)
	}

	env := &packets.Envelope{}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("unmarshaling websocket envelope: %w", err)
	}
	return env, nil
}

func (t *wsTransport) WritePacket(env *packets.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshaling websocket envelope: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return t.conn.Close()
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
