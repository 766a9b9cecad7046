// Package runtime coordinates server lifecycles: it decides whether source
// code needs transformation, attempts delegated execution on the remote
// backend, falls back to local simulation, and tracks every live instance in
// a port-keyed registry.
package runtime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/simserve/simserve/internal/config"
	"github.com/simserve/simserve/internal/execservice"
	"github.com/simserve/simserve/internal/metrics"
	"github.com/simserve/simserve/internal/mocknet"
	"github.com/simserve/simserve/internal/parser"
)

// ErrServerNotFound is returned when no instance is registered on the port.
var ErrServerNotFound = errors.New("runtime: no server on port")

// Kind distinguishes how an instance actually runs.
type Kind string

const (
	// KindDelegated means the code runs on the remote execution backend.
	KindDelegated Kind = "delegated"
	// KindSimulated means requests are answered by the mock network layer.
	KindSimulated Kind = "simulated"
)

// ServerInstance describes one running server.
type ServerInstance struct {
	ID        string    `json:"id"`
	Port      int       `json:"port"`
	Source    string    `json:"-"`
	Kind      Kind      `json:"kind"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
	// ProcessID is the backend's handle; empty for simulated instances.
	ProcessID string `json:"processId,omitempty"`
}

// Orchestrator owns the instance registry and the start/stop workflow.
type Orchestrator struct {
	mu       sync.Mutex
	servers  map[int]*ServerInstance
	nextPort int

	exec  execservice.Client
	mock  *mocknet.Interceptor
	log   *zap.Logger
	cache *lru.Cache[string, *parser.ParseResult]
	cfg   config.RuntimeConfig
}

// New builds an Orchestrator from validated configuration.
func New(cfg *config.Config, log *zap.Logger, exec execservice.Client, mock *mocknet.Interceptor) (*Orchestrator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cache, err := lru.New[string, *parser.ParseResult](cfg.Runtime.ParseCacheSize)
	if err != nil {
		return nil, fmt.Errorf("runtime: parse cache: %w", err)
	}
	return &Orchestrator{
		servers:  make(map[int]*ServerInstance),
		nextPort: cfg.Runtime.BasePort,
		exec:     exec,
		mock:     mock,
		log:      log,
		cache:    cache,
		cfg:      cfg.Runtime,
	}, nil
}

// StartServer brings up source on the requested port. Port 0 means pick the
// next available one. Decorator-annotated source is transformed into a
// runnable server module first; conventional source runs as written. The
// call never fails just because the execution backend is down: it logs the
// failure and serves the routes through simulation instead.
func (o *Orchestrator) StartServer(ctx context.Context, source string, port int) (*ServerInstance, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.New("runtime: source is empty")
	}

	code := source
	var routes mocknet.RouteTable
	if HasDecorators(source) {
		pr := o.parseCached(source)
		// Validation errors never block a start: the learner still gets a
		// best-effort server to poke at. The report is surfaced through
		// ValidateSource before a run, and logged here.
		if report := parser.ValidateCode(source); !report.Valid {
			o.log.Warn("source has validation errors, starting best-effort",
				zap.Strings("errors", report.Errors))
		}
		code = parser.GenerateFlaskApp(pr)
		routes = deriveRoutes(pr)
	} else {
		routes = conventionalRoutes(source)
	}

	o.mu.Lock()
	if port == 0 {
		port = o.nextAvailableLocked()
	} else if prior, ok := o.servers[port]; ok {
		o.mu.Unlock()
		o.log.Info("port occupied, stopping prior instance",
			zap.Int("port", port), zap.String("id", prior.ID))
		if err := o.StopServer(ctx, port); err != nil {
			return nil, err
		}
		o.mu.Lock()
	}
	o.mu.Unlock()

	inst := &ServerInstance{
		ID:        uuid.NewString(),
		Port:      port,
		Source:    source,
		Status:    "running",
		StartedAt: time.Now().UTC(),
	}

	processID, err := o.launchDelegated(ctx, code, port)
	if err == nil {
		inst.Kind = KindDelegated
		inst.ProcessID = processID
	} else {
		inst.Kind = KindSimulated
		o.mock.Start(port, routes)
	}

	o.mu.Lock()
	o.servers[port] = inst
	o.mu.Unlock()

	metrics.ServersStarted.WithLabelValues(string(inst.Kind)).Inc()
	o.log.Info("server started",
		zap.String("id", inst.ID),
		zap.Int("port", inst.Port),
		zap.String("kind", string(inst.Kind)))
	return inst, nil
}

// StopServer tears down the instance on port. The registry entry is removed
// unconditionally; a failed remote stop is logged, not surfaced.
func (o *Orchestrator) StopServer(ctx context.Context, port int) error {
	o.mu.Lock()
	inst, ok := o.servers[port]
	if ok {
		delete(o.servers, port)
	}
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w %d", ErrServerNotFound, port)
	}

	switch inst.Kind {
	case KindDelegated:
		o.stopDelegated(ctx, inst)
	case KindSimulated:
		if active, live := o.mock.ActivePort(); live && active == port {
			o.mock.Stop()
		}
	}

	o.log.Info("server stopped", zap.String("id", inst.ID), zap.Int("port", port))
	return nil
}

// StopAllServers stops every registered instance, remote stops in parallel.
func (o *Orchestrator) StopAllServers(ctx context.Context) {
	o.mu.Lock()
	instances := make([]*ServerInstance, 0, len(o.servers))
	for _, inst := range o.servers {
		instances = append(instances, inst)
	}
	o.servers = make(map[int]*ServerInstance)
	o.mu.Unlock()

	var wg sync.WaitGroup
	for _, inst := range instances {
		if inst.Kind != KindDelegated {
			continue
		}
		wg.Add(1)
		go func(inst *ServerInstance) {
			defer wg.Done()
			o.stopDelegated(ctx, inst)
		}(inst)
	}
	wg.Wait()

	// The mock singleton may outlive its registry entry.
	o.mock.Stop()
	o.log.Info("all servers stopped", zap.Int("count", len(instances)))
}

// NextAvailablePort returns a port not used by any registered instance.
// Successive calls return strictly increasing ports.
func (o *Orchestrator) NextAvailablePort() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.nextAvailableLocked()
}

func (o *Orchestrator) nextAvailableLocked() int {
	for {
		port := o.nextPort
		o.nextPort++
		if _, used := o.servers[port]; !used {
			return port
		}
	}
}

// IsServerRunning reports whether an instance is registered on port.
func (o *Orchestrator) IsServerRunning(port int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.servers[port]
	return ok
}

// ListActiveServers returns copies of every registered instance, ordered by
// port.
func (o *Orchestrator) ListActiveServers() []ServerInstance {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]ServerInstance, 0, len(o.servers))
	for _, inst := range o.servers {
		out = append(out, *inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

// HasDecorators reports whether source uses the @endpoint annotation form.
func HasDecorators(source string) bool {
	return strings.Contains(source, "@endpoint")
}

// parseCached parses source through the LRU cache. The cache is keyed by
// content hash, so resubmitting the same file skips the scan.
func (o *Orchestrator) parseCached(source string) *parser.ParseResult {
	sum := sha256.Sum256([]byte(source))
	key := hex.EncodeToString(sum[:])
	if pr, ok := o.cache.Get(key); ok {
		return pr
	}
	pr := parser.Parse(source)
	o.cache.Add(key, pr)
	return pr
}

// stopDelegated asks the backend to terminate the process, best effort.
func (o *Orchestrator) stopDelegated(ctx context.Context, inst *ServerInstance) {
	ctx, cancel := context.WithTimeout(ctx, o.requestTimeout())
	defer cancel()
	if err := o.exec.Stop(ctx, inst.Port); err != nil {
		o.log.Warn("remote stop failed",
			zap.String("id", inst.ID),
			zap.Int("port", inst.Port),
			zap.Error(err))
	}
}

func (o *Orchestrator) requestTimeout() time.Duration {
	if o.cfg.RequestTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(o.cfg.RequestTimeout) * time.Millisecond
}
