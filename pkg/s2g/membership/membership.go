// Package membership implements cluster-roster assembly: the main peer
// (id 0) accepts join requests from sub peers over HTTP, assigns each a
// dense peer id in join order, and publishes the final roster once every
// expected sub peer has joined.
//
// Redis pub/sub is an optional accelerant for propagating the roster to
// sub peers that joined before the roster was final; it is never required
// for correctness. When no Redis address is configured, the roster is
// instead returned synchronously in the join response body, which is
// sufficient for the common n_cluster_nodes=1 case and for tests.
package membership

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/series2gpp/s2gpp-go/pkg/s2gerr"
)

// Roster is the final, ordered set of peer addresses for a run.
type Roster struct {
	RunID     string   `json:"run_id"`
	Addresses []string `json:"addresses"` // index is the peer id; index 0 is the main peer
}

// Config controls the optional Redis accelerant.
type Config struct {
	RedisAddr string // empty disables Redis; roster then comes back synchronously over HTTP
}

// channelName returns the pub/sub channel a run's roster is published on.
func channelName(runID string) string { return "s2gpp:run:" + runID }

// Coordinator runs on the main peer. It accepts joins until nSubPeers have
// registered. Every join is answered at once with the assigned peer id; only
// the join that completes the roster carries the roster in its response,
// and the roster is then also published via Redis if configured.
type Coordinator struct {
	runID      string
	nSubPeers  int
	mainAddr   string
	redis      *redis.Client

	mu        sync.Mutex
	addresses []string // mainAddr followed by sub-peer addresses in join order
	done      chan struct{}
	closed    bool
}

// NewCoordinator builds a Coordinator for a run expecting nSubPeers
// registrations beyond the main peer itself.
func NewCoordinator(runID, mainAddr string, nSubPeers int, cfg Config) *Coordinator {
	c := &Coordinator{
		runID:     runID,
		nSubPeers: nSubPeers,
		mainAddr:  mainAddr,
		addresses: []string{mainAddr},
		done:      make(chan struct{}),
	}
	if cfg.RedisAddr != "" {
		c.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	return c
}

// Routes registers POST /peer/join on r.
func (c *Coordinator) Routes(r chi.Router) {
	r.Post("/peer/join", c.handleJoin)
}

type joinRequest struct {
	Addr string `json:"addr"`
}

type joinResponse struct {
	PeerID  int     `json:"peer_id"`
	Roster  *Roster `json:"roster,omitempty"` // present only once the roster is final
}

func (c *Coordinator) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	c.mu.Lock()
	peerID := len(c.addresses)
	c.addresses = append(c.addresses, req.Addr)
	final := len(c.addresses) == c.nSubPeers+1
	var roster *Roster
	if final {
		roster = &Roster{RunID: c.runID, Addresses: append([]string(nil), c.addresses...)}
	}
	c.mu.Unlock()

	resp := joinResponse{PeerID: peerID, Roster: roster}

	if final {
		c.publish(r.Context(), *roster)
		c.mu.Lock()
		if !c.closed {
			close(c.done)
			c.closed = true
		}
		c.mu.Unlock()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (c *Coordinator) publish(ctx context.Context, roster Roster) {
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(roster)
	if err != nil {
		return
	}
	_ = c.redis.Publish(ctx, channelName(roster.RunID), raw)
}

// Wait blocks until the roster is final, or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) (Roster, error) {
	select {
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return Roster{RunID: c.runID, Addresses: append([]string(nil), c.addresses...)}, nil
	case <-ctx.Done():
		return Roster{}, s2gerr.Wrap(s2gerr.ErrCodeTransport, ctx.Err(), "waiting for cluster roster")
	}
}

// Join is called by a sub peer at startup. It POSTs to the main peer's
// /peer/join endpoint and returns the assigned peer id plus the roster, if
// the main peer already returned it synchronously.
func Join(ctx context.Context, mainURL, selfAddr string) (peerID int, roster *Roster, err error) {
	body, err := json.Marshal(joinRequest{Addr: selfAddr})
	if err != nil {
		return 0, nil, s2gerr.Wrap(s2gerr.ErrCodeInternal, err, "marshaling join request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mainURL+"/peer/join", bytes.NewReader(body))
	if err != nil {
		return 0, nil, s2gerr.Wrap(s2gerr.ErrCodeTransport, err, "building join request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, s2gerr.Wrap(s2gerr.ErrCodeTransport, err, "joining cluster at %s", mainURL)
	}
	defer resp.Body.Close()

	var jr joinResponse
	if err := json.NewDecoder(resp.Body).Decode(&jr); err != nil {
		return 0, nil, s2gerr.Wrap(s2gerr.ErrCodeTransport, err, "decoding join response")
	}
	return jr.PeerID, jr.Roster, nil
}

// Subscribe listens on the Redis roster channel for a run and returns the
// roster once published. Used by sub peers that joined before the roster
// was final and so didn't receive it synchronously.
func Subscribe(ctx context.Context, redisAddr, runID string) (Roster, error) {
	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer client.Close()

	sub := client.Subscribe(ctx, channelName(runID))
	defer sub.Close()

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		return Roster{}, s2gerr.Wrap(s2gerr.ErrCodeTransport, err, "subscribing to roster channel for run %s", runID)
	}
	var roster Roster
	if err := json.Unmarshal([]byte(msg.Payload), &roster); err != nil {
		return Roster{}, s2gerr.Wrap(s2gerr.ErrCodeInternal, err, "decoding published roster")
	}
	return roster, nil
}
