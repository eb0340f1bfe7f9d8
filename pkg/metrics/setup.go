package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Logger is the logging surface the metrics server needs.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Metrics owns the Prometheus registry and the HTTP server exposing it.
type Metrics struct {
	Server   *http.Server
	Registry *prometheus.Registry

	// Registerer adds the service label to everything registered through it.
	Registerer prometheus.Registerer

	namespace string

	mu       sync.Mutex
	listener net.Listener
	group    *errgroup.Group
}

func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	var registerer prometheus.Registerer = registry
	if cfg.ServiceName != "" {
		registerer = prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, registry)
	}

	if cfg.EnableDefaultCollectors {
		registerer.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	address := cfg.Address
	if address == "" {
		address = DefaultMetricsAddress
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registerer}))

	return &Metrics{
		Server:     &http.Server{Addr: address, Handler: mux},
		Registry:   registry,
		Registerer: registerer,
		namespace:  namespace,
	}
}

// Start binds the listener and serves /metrics in the background. Bind
// errors are returned directly; serve errors surface from Stop.
func (m *Metrics) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listener != nil {
		return ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", m.Server.Addr)
	if err != nil {
		return err
	}
	m.listener = ln

	m.group = new(errgroup.Group)
	m.group.Go(func() error {
		if err := m.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return nil
}

// Addr is the address the server is listening on.
func (m *Metrics) Addr() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listener == nil {
		return "", ErrNotStarted
	}
	return m.listener.Addr().String(), nil
}

// Stop shuts the server down and waits for the serve goroutine. The
// metrics can be started again afterwards.
func (m *Metrics) Stop(ctx context.Context) error {
	m.mu.Lock()
	group := m.group
	server := m.Server
	started := m.listener != nil
	m.mu.Unlock()

	if !started {
		return nil
	}
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	err := group.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = nil
	m.group = nil
	// A shut down http.Server refuses to serve again.
	m.Server = &http.Server{
		Addr:              server.Addr,
		Handler:           server.Handler,
		ReadHeaderTimeout: server.ReadHeaderTimeout,
	}
	return err
}
