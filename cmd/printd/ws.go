package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

// wsHub pushes status frames to every connected websocket client.
type wsHub struct {
	upgrader websocket.Upgrader

	mx    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *wsHub) serve(w http.ResponseWriter, req *http.Request) {
	ws, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Println("ERROR: upgrade:", err)
		return
	}

	h.mx.Lock()
	h.conns[ws] = struct{}{}
	h.mx.Unlock()

	// clients only listen; drain until they hang up
	go func() {
		defer h.drop(ws)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *wsHub) drop(ws *websocket.Conn) {
	h.mx.Lock()
	delete(h.conns, ws)
	h.mx.Unlock()
	ws.Close()
}

func (h *wsHub) broadcast(data []byte) {
	h.mx.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for ws := range h.conns {
		conns = append(conns, ws)
	}
	h.mx.Unlock()

	for _, ws := range conns {
		ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Println("ERROR: ws send:", err)
			h.drop(ws)
		}
	}
}
