// Package mocknet answers requests addressed to a simulated loopback
// (host, port) with synthesized responses, without a real listening socket.
// All other traffic passes through to the real transport unchanged.
package mocknet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/simserve/simserve/internal/metrics"
)

// RouteTable maps request paths to canned response values. Paths may use
// gorilla/mux templates such as /users/{id}.
type RouteTable map[string]any

// session holds the state of the single active simulated server. Sessions
// are immutable once published: route changes replace the whole session, so
// RoundTrip may read one without holding the interceptor lock.
type session struct {
	port   int
	table  RouteTable
	router *mux.Router
}

// newSession copies the table before compiling it, so later caller mutations
// cannot reach a published session.
func newSession(port int, table RouteTable) *session {
	copied := make(RouteTable, len(table))
	for k, v := range table {
		copied[k] = v
	}
	return &session{port: port, table: copied, router: buildRouter(copied)}
}

// Interceptor is the injected service object owning request interception.
// Exactly one simulated backend is addressable at a time; starting a new one
// tears down the previous session. True process-wide patching (swapping
// http.DefaultTransport) happens only inside install/uninstall and is
// idempotent.
type Interceptor struct {
	mu         sync.Mutex
	base       http.RoundTripper
	patched    bool
	active     *session
	latencyMin time.Duration
	latencyMax time.Duration
	rng        *rand.Rand
	log        *zap.Logger
}

// Option mutates an Interceptor at construction time.
type Option func(*Interceptor)

// WithBaseTransport injects the transport wrapped by the interceptor. Tests
// use this to exercise RoundTrip without touching http.DefaultTransport.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(i *Interceptor) { i.base = rt }
}

// WithLatencyBounds overrides the simulated latency window.
func WithLatencyBounds(min, max time.Duration) Option {
	return func(i *Interceptor) { i.latencyMin, i.latencyMax = min, max }
}

// New constructs an Interceptor. The zero configuration delays every
// intercepted request 100-300ms, matching real-network feel for loading UIs.
func New(log *zap.Logger, opts ...Option) *Interceptor {
	if log == nil {
		log = zap.NewNop()
	}
	i := &Interceptor{
		latencyMin: 100 * time.Millisecond,
		latencyMax: 300 * time.Millisecond,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		log:        log,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install wraps the process default transport. It is idempotent; Start
// calls it automatically.
func (i *Interceptor) Install() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.installLocked()
}

// Uninstall drops any active session and restores the original transport.
func (i *Interceptor) Uninstall() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.active = nil
	i.uninstallLocked()
}

// Start activates a simulated server on port, replacing any prior session
// wholesale, and installs interception if not yet installed. It returns the
// port it now answers on.
func (i *Interceptor) Start(port int, table RouteTable) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	if table == nil {
		table = RouteTable{}
	}
	i.installLocked()
	if i.active != nil {
		i.log.Debug("replacing active simulated server", zap.Int("port", i.active.port))
	}
	i.active = newSession(port, table)
	i.log.Info("simulated server started", zap.Int("port", port), zap.Int("routes", len(table)))
	return port
}

// Stop deactivates the singleton and restores the original transport. It is
// a no-op when nothing is running.
func (i *Interceptor) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.active == nil {
		return
	}
	i.log.Info("simulated server stopped", zap.Int("port", i.active.port))
	i.active = nil
	i.uninstallLocked()
}

// Active reports whether a simulated server currently answers requests.
func (i *Interceptor) Active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active != nil
}

// ActivePort returns the port of the live session, or false when idle.
func (i *Interceptor) ActivePort() (int, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.active == nil {
		return 0, false
	}
	return i.active.port, true
}

// SetRoute adds or replaces one route on the live table without a restart.
// It is a no-op when no session is active.
func (i *Interceptor) SetRoute(path string, response any) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.active == nil {
		return
	}
	merged := make(RouteTable, len(i.active.table)+1)
	for k, v := range i.active.table {
		merged[k] = v
	}
	merged[path] = response
	i.active = newSession(i.active.port, merged)
}

// Routes returns a copy of the active route table, or nil when idle.
func (i *Interceptor) Routes() RouteTable {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.active == nil {
		return nil
	}
	out := make(RouteTable, len(i.active.table))
	for k, v := range i.active.table {
		out[k] = v
	}
	return out
}

// RoundTrip implements http.RoundTripper. Requests addressed to a loopback
// host on the active port resolve from the route table; everything else
// reaches the wrapped transport with its signature preserved.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	i.mu.Lock()
	sess := i.active
	base := i.base
	delay := i.latencyMin
	if span := i.latencyMax - i.latencyMin; span > 0 {
		delay += time.Duration(i.rng.Int63n(int64(span)))
	}
	i.mu.Unlock()

	if sess == nil || !isLoopbackHost(req.URL.Hostname()) || requestPort(req) != sess.port {
		if base == nil {
			base = http.DefaultTransport
		}
		return base.RoundTrip(req)
	}

	// Simulated latency so surrounding loading-state UI exercises
	// realistically.
	select {
	case <-req.Context().Done():
		return nil, req.Context().Err()
	case <-time.After(delay):
	}

	metrics.InterceptedRequests.Inc()
	return synthesize(req, sess), nil
}

// synthesize builds the canned response for an intercepted request.
// Responses always report success; error simulation is unsupported.
func synthesize(req *http.Request, sess *session) *http.Response {
	path := req.URL.Path
	if path == "" {
		path = "/"
	}

	payload, ok := lookupRoute(sess, req)
	if !ok {
		payload = map[string]any{
			"message":   fmt.Sprintf("Simulated response for %s", path),
			"status":    http.StatusOK,
			"path":      path,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		body = []byte(fmt.Sprintf(`{"error":"unencodable route value: %s"}`, err))
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

func lookupRoute(sess *session, req *http.Request) (any, bool) {
	var match mux.RouteMatch
	if sess.router.Match(req, &match) && match.Route != nil {
		if v, ok := sess.table[match.Route.GetName()]; ok {
			return v, true
		}
	}
	return nil, false
}

// buildRouter compiles the route table into a mux router whose route names
// key back into the table.
func buildRouter(table RouteTable) *mux.Router {
	r := mux.NewRouter()
	for path := range table {
		r.Path(path).Name(path)
	}
	return r
}

// installLocked swaps http.DefaultTransport exactly once. Callers hold i.mu.
func (i *Interceptor) installLocked() {
	if i.patched || i.base != nil {
		return
	}
	i.base = http.DefaultTransport
	http.DefaultTransport = i
	i.patched = true
	i.log.Debug("request interception installed")
}

// uninstallLocked restores the original transport if we still own it.
func (i *Interceptor) uninstallLocked() {
	if !i.patched {
		return
	}
	if http.DefaultTransport == http.RoundTripper(i) {
		http.DefaultTransport = i.base
	}
	i.base = nil
	i.patched = false
	i.log.Debug("request interception removed")
}

func isLoopbackHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0":
		return true
	}
	return false
}

func requestPort(req *http.Request) int {
	if p := req.URL.Port(); p != "" {
		port := 0
		for _, c := range p {
			if c < '0' || c > '9' {
				return 0
			}
			port = port*10 + int(c-'0')
		}
		return port
	}
	if req.URL.Scheme == "https" {
		return 443
	}
	return 80
}
