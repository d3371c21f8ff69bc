// Package proxy implements the forwarding pipeline: it classifies inbound
// traffic, runs the rewrite rules on both directions of the JSON-RPC path,
// and relays everything else opaquely to the fixed upstream.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/vialabs/tronbridge/api"
	"github.com/vialabs/tronbridge/internal/audit"
	"github.com/vialabs/tronbridge/internal/jsonrpc"
	"github.com/vialabs/tronbridge/internal/metrics"
	"github.com/vialabs/tronbridge/internal/rewrite"
)

// methodUnknown labels bodies that did not decode as a JSON-RPC envelope.
// They forward verbatim and no response enhancement applies.
const methodUnknown = "unknown"

// Options configures optional proxy collaborators.
type Options struct {
	// Store receives one exchange record per request. Nil disables logging.
	Store audit.Store

	// Metrics receives instrumentation. Nil disables it.
	Metrics *metrics.Metrics

	// UpstreamTimeout bounds the outbound call. Zero keeps the transport
	// default, which is the historical behavior.
	UpstreamTimeout time.Duration
}

// Proxy is the HTTP reverse proxy bridging eth-style JSON-RPC callers to a
// single TRON-style upstream. The only state shared across requests is the
// target URL and the outbound client; both are read-only after construction.
type Proxy struct {
	target  string
	client  *http.Client
	rules   *rewrite.Registry
	store   audit.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewProxy creates a proxy forwarding to the given upstream URL.
func NewProxy(target string, rules *rewrite.Registry, logger *slog.Logger, opts Options) (*Proxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("target URL %q must be absolute", target)
	}

	return &Proxy{
		target:  target,
		client:  &http.Client{Timeout: opts.UpstreamTimeout},
		rules:   rules,
		store:   opts.Store,
		metrics: opts.Metrics,
		logger:  logger,
	}, nil
}

// ServeHTTP routes POST / to the JSON-RPC pipeline and everything else to the
// opaque passthrough.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && r.URL.Path == "/" {
		p.serveRPC(w, r)
		return
	}
	p.servePassthrough(w, r)
}

func (p *Proxy) serveRPC(w http.ResponseWriter, r *http.Request) {
	ex := newExchange(api.RouteRPC)
	defer func() { p.observe(r.Context(), ex) }()

	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		p.logger.Error("reading request body", "error", err)
		ex.Outcome = api.OutcomeInternalError
		http.Error(w, "failed to read request", http.StatusBadRequest)
		return
	}
	ex.RequestBytes = len(body)
	ex.Method = methodUnknown

	forward := body
	if req, err := jsonrpc.DecodeRequest(body); err == nil {
		ex.Method = req.Method
		outcome, rule := p.rules.InterceptRequest(req)

		if outcome.Response != nil {
			ex.RequestRule = rule
			p.logger.Info("short-circuiting request", "method", req.Method, "rule", rule)
			p.writeShortCircuit(w, ex, outcome.Response)
			return
		}
		if outcome.Changed {
			ex.RequestRule = rule
			data, err := jsonrpc.EncodeRequest(outcome.Request)
			if err != nil {
				p.logger.Error("encoding rewritten request", "method", req.Method, "error", err)
				ex.Outcome = api.OutcomeInternalError
				http.Error(w, "failed to encode request", http.StatusInternalServerError)
				return
			}
			p.logger.Debug("request rewritten", "method", req.Method, "rule", rule)
			forward = data
		}
	} else {
		p.logger.Info("not a JSON-RPC request, forwarding as-is", "size", len(body))
	}

	out, err := http.NewRequestWithContext(r.Context(), http.MethodPost, p.target, bytes.NewReader(forward))
	if err != nil {
		ex.Outcome = api.OutcomeInternalError
		http.Error(w, "failed to build upstream request", http.StatusInternalServerError)
		return
	}
	copyRPCHeaders(out.Header, r.Header)

	resp, err := p.client.Do(out)
	if err != nil {
		p.badGateway(w, ex, err)
		return
	}
	defer resp.Body.Close()

	upstream, err := io.ReadAll(resp.Body)
	if err != nil {
		p.badGateway(w, ex, err)
		return
	}
	ex.UpstreamStatus = resp.StatusCode

	enhanced, changed, rule, err := p.rules.EnhanceResponse(ex.Method, upstream)
	if err != nil {
		p.logger.Error("encoding enhanced response", "method", ex.Method, "error", err)
		ex.Outcome = api.OutcomeInternalError
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	if changed {
		ex.ResponseRule = rule
		p.logger.Debug("response enhanced", "method", ex.Method, "rule", rule)
	}

	reframeResponseHeaders(w.Header(), resp.Header, len(enhanced), len(enhanced) != len(upstream))
	w.WriteHeader(resp.StatusCode)
	w.Write(enhanced)

	ex.Outcome = api.OutcomeForwarded
	ex.ResponseBytes = len(enhanced)
}

func (p *Proxy) servePassthrough(w http.ResponseWriter, r *http.Request) {
	ex := newExchange(api.RoutePassthrough)
	defer func() { p.observe(r.Context(), ex) }()

	// Only GET / carries its query to the upstream; any other method or
	// path behaves like a parameterless GET.
	target := p.target
	if r.Method == http.MethodGet && r.URL.Path == "/" {
		if q := r.URL.Query().Encode(); q != "" {
			target += "?" + q
		}
	}

	out, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		ex.Outcome = api.OutcomeInternalError
		http.Error(w, "failed to build upstream request", http.StatusInternalServerError)
		return
	}
	copyPassthroughHeaders(out.Header, r.Header)

	resp, err := p.client.Do(out)
	if err != nil {
		p.badGateway(w, ex, err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.badGateway(w, ex, err)
		return
	}
	ex.UpstreamStatus = resp.StatusCode

	copyPassthroughHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	w.Write(body)

	ex.Outcome = api.OutcomeForwarded
	ex.ResponseBytes = len(body)
}

func (p *Proxy) writeShortCircuit(w http.ResponseWriter, ex *exchange, resp *jsonrpc.Response) {
	data, err := jsonrpc.EncodeResponse(resp)
	if err != nil {
		p.logger.Error("encoding synthesized response", "error", err)
		ex.Outcome = api.OutcomeInternalError
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)

	ex.Outcome = api.OutcomeShortCircuit
	ex.ResponseBytes = len(data)
}

func (p *Proxy) badGateway(w http.ResponseWriter, ex *exchange, err error) {
	p.logger.Error("upstream dispatch failed", "target", p.target, "error", err)
	ex.Outcome = api.OutcomeUpstreamError
	http.Error(w, "bad gateway", http.StatusBadGateway)
}

// observe logs, records and instruments a finished exchange.
func (p *Proxy) observe(ctx context.Context, ex *exchange) {
	p.logger.Info("exchange finished",
		"route", ex.Route,
		"method", ex.Method,
		"outcome", ex.Outcome,
		"upstream_status", ex.UpstreamStatus,
		"duration", time.Since(ex.StartTime),
	)

	if p.metrics != nil {
		p.metrics.Requests.WithLabelValues(string(ex.Route), ex.Method).Inc()
		if ex.RequestRule != "" {
			p.metrics.Rewrites.WithLabelValues(ex.RequestRule).Inc()
		}
		if ex.ResponseRule != "" {
			p.metrics.Rewrites.WithLabelValues(ex.ResponseRule).Inc()
		}
		if ex.Outcome == api.OutcomeUpstreamError {
			p.metrics.UpstreamErrors.Inc()
		}
		p.metrics.Duration.WithLabelValues(string(ex.Route)).Observe(time.Since(ex.StartTime).Seconds())
	}

	if p.store != nil {
		if err := p.store.Write(ctx, ex.Record()); err != nil {
			p.logger.Error("writing exchange record", "error", err)
		}
	}
}

// ListenAndServe starts the proxy HTTP server and closes it when ctx ends.
func (p *Proxy) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: p,
	}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	p.logger.Info("starting proxy",
		"listen", addr,
		"target", p.target,
	)

	return srv.ListenAndServe()
}
