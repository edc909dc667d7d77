// Package transport provides the peer-to-peer wire layer for a
// Series2Graph++ cluster run: a chi-routed HTTP server exposing health and
// progress endpoints plus a websocket upgrade for inbound peer
// connections, and a thin envelope/dial API the protocol and pipeline
// layers build on.
//
// A sub peer dials the main peer's /peer/ws endpoint as a websocket client
// once it has joined; the resulting connection is owned by exactly the two
// peers on it, mirroring the teacher's single-writer-per-resource model.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/series2gpp/s2gpp-go/pkg/s2gerr"
)

// Kind tags the payload carried by an Envelope.
type Kind string

const (
	KindRotationMeans      Kind = "RotationMeans"
	KindRotationR          Kind = "RotationR"
	KindRotationComponents Kind = "RotationComponents"
	KindRotationMatrix     Kind = "RotationMatrix"
	KindTransitionBatch    Kind = "TransitionBatch"
	KindFirstPointHandover Kind = "FirstPointHandover"
	KindIntersectionBatch  Kind = "IntersectionBatch"
	KindNodeQuestion       Kind = "NodeQuestion"
	KindNodeAnswer         Kind = "NodeAnswer"
	KindOpenEdgeBatch      Kind = "OpenEdgeBatch"
	KindEdgeSnapshot       Kind = "EdgeSnapshot"
	KindDegreeMap          Kind = "DegreeMap"
	KindWeightMap          Kind = "WeightMap"
	KindOverlapEdges       Kind = "OverlapEdges"
	KindSubscoreBatch      Kind = "SubscoreBatch"
)

// Envelope is the JSON frame every peer message travels in. The websocket's
// own frame delimits messages on the wire, so Envelope only needs to carry
// routing metadata and an opaque payload.
type Envelope struct {
	Kind     Kind            `json:"kind"`
	FromPeer int             `json:"from_peer"`
	Payload  json.RawMessage `json:"payload"`
}

// Conn wraps a single websocket connection to one peer with a write mutex,
// since gorilla/websocket connections may not be written to concurrently.
type Conn struct {
	PeerID int
	ws     *websocket.Conn
	mu     sync.Mutex
}

// SendEnvelope marshals payload into an Envelope of the given kind and
// writes it as one JSON websocket message.
func (c *Conn) SendEnvelope(kind Kind, fromPeer int, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return s2gerr.Wrap(s2gerr.ErrCodeTransport, err, "marshaling %s payload", kind)
	}
	env := Envelope{Kind: kind, FromPeer: fromPeer, Payload: raw}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.WriteJSON(env); err != nil {
		return s2gerr.Wrap(s2gerr.ErrCodeTransport, err, "writing %s to peer %d", kind, c.PeerID)
	}
	return nil
}

// ReadEnvelope blocks for the next frame from this peer.
func (c *Conn) ReadEnvelope() (Envelope, error) {
	var env Envelope
	if err := c.ws.ReadJSON(&env); err != nil {
		return Envelope{}, s2gerr.Wrap(s2gerr.ErrCodeTransport, err, "reading from peer %d", c.PeerID)
	}
	return env, nil
}

// Close closes the underlying websocket connection.
func (c *Conn) Close() error { return c.ws.Close() }

// Server is one peer's HTTP/websocket front door.
type Server struct {
	router   chi.Router
	upgrader websocket.Upgrader
	onConn   func(*Conn)

	mu      sync.Mutex
	peers   map[int]*Conn
	stage   string
	percent float64
}

// NewServer builds a chi router exposing /healthz, /progress, and the
// /peer/ws upgrade endpoint. onConn is invoked once per accepted inbound
// peer connection, with that peer's id taken from the "peer_id" query
// parameter.
func NewServer(onConn func(*Conn)) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		onConn:   onConn,
		peers:    make(map[int]*Conn),
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/progress", s.handleProgress)
	r.Get("/peer/ws", s.handlePeerWS)
	s.router = r
	return s
}

// Handler returns the http.Handler to serve.
func (s *Server) Handler() http.Handler { return s.router }

// SetProgress updates the stage/percent reported by GET /progress.
func (s *Server) SetProgress(stage string, percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
	s.percent = percent
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stage, percent := s.stage, s.percent
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Stage   string  `json:"stage"`
		Percent float64 `json:"percent"`
	}{stage, percent})
}

func (s *Server) handlePeerWS(w http.ResponseWriter, r *http.Request) {
	peerID := 0
	if q := r.URL.Query().Get("peer_id"); q != "" {
		fmt.Sscanf(q, "%d", &peerID)
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := &Conn{PeerID: peerID, ws: ws}
	s.mu.Lock()
	s.peers[peerID] = conn
	s.mu.Unlock()
	if s.onConn != nil {
		s.onConn(conn)
	}
}

// Dial connects to a peer's /peer/ws endpoint as a client, announcing
// selfID via the peer_id query parameter.
func Dial(ctx context.Context, addr string, selfID int) (*Conn, error) {
	url := fmt.Sprintf("ws://%s/peer/ws?peer_id=%d", addr, selfID)
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, s2gerr.Wrap(s2gerr.ErrCodeTransport, err, "dialing peer at %s", addr)
	}
	return &Conn{ws: ws}, nil
}
