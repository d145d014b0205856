// Package traced wraps net/http with per-request network timings.
package traced

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"
)

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

type Client struct {
	client *http.Client
}

func NewClient() *Client {
	return &Client{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

// NewClientWith wraps an existing http.Client, e.g. one from httptest.
func NewClientWith(c *http.Client) *Client {
	return &Client{client: c}
}

type Response struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	Metrics    *NetworkMetrics
}

type tracer struct {
	mu                                     sync.Mutex
	metrics                                NetworkMetrics
	getConnStart, dnsStart, tcpStart       time.Time
	tlsStart, gotConn, wroteHeaders        time.Time
	wroteRequest, firstByte, requestBegins time.Time
}

func (t *tracer) clientTrace() *httptrace.ClientTrace {
	lock := func(fn func()) {
		t.mu.Lock()
		fn()
		t.mu.Unlock()
	}
	return &httptrace.ClientTrace{
		GetConn: func(_ string) { lock(func() { t.getConnStart = time.Now() }) },
		GotConn: func(info httptrace.GotConnInfo) {
			lock(func() {
				t.gotConn = time.Now()
				t.metrics.ConnWait = t.gotConn.Sub(t.getConnStart)
				t.metrics.ConnReused = info.Reused
			})
		},
		DNSStart:          func(_ httptrace.DNSStartInfo) { lock(func() { t.dnsStart = time.Now() }) },
		DNSDone:           func(_ httptrace.DNSDoneInfo) { lock(func() { t.metrics.DNS = time.Since(t.dnsStart) }) },
		ConnectStart:      func(_, _ string) { lock(func() { t.tcpStart = time.Now() }) },
		ConnectDone:       func(_, _ string, _ error) { lock(func() { t.metrics.TCP = time.Since(t.tcpStart) }) },
		TLSHandshakeStart: func() { lock(func() { t.tlsStart = time.Now() }) },
		TLSHandshakeDone: func(cs tls.ConnectionState, _ error) {
			lock(func() {
				t.metrics.TLS = time.Since(t.tlsStart)
				t.metrics.TLSProtocol = cs.NegotiatedProtocol
			})
		},
		WroteHeaders: func() {
			lock(func() {
				t.wroteHeaders = time.Now()
				t.metrics.ReqHeaders = t.wroteHeaders.Sub(t.gotConn)
			})
		},
		WroteRequest: func(_ httptrace.WroteRequestInfo) {
			lock(func() {
				t.wroteRequest = time.Now()
				t.metrics.ReqBody = t.wroteRequest.Sub(t.wroteHeaders)
			})
		},
		GotFirstResponseByte: func() {
			lock(func() {
				t.firstByte = time.Now()
				t.metrics.TTFB = t.firstByte.Sub(t.wroteRequest)
			})
		},
	}
}

func (t *tracer) finish() *NetworkMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.firstByte.IsZero() {
		t.metrics.Download = time.Since(t.firstByte)
	}
	t.metrics.Total = time.Since(t.requestBegins)
	m := t.metrics
	return &m
}

func (c *Client) begin(req *http.Request) (*http.Request, *tracer) {
	t := &tracer{requestBegins: time.Now()}
	return req.WithContext(httptrace.WithClientTrace(req.Context(), t.clientTrace())), t
}

// Do sends req and reads the whole body.
func (c *Client) Do(req *http.Request) (*Response, error) {
	req, t := c.begin(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Metrics:    t.finish(),
	}, nil
}

// StreamResponse is a response whose body is still being read. Close
// finalizes the metrics.
type StreamResponse struct {
	*http.Response
	t *tracer
}

func (s *StreamResponse) Close() *NetworkMetrics {
	s.Body.Close()
	return s.t.finish()
}

// DoStream sends req and returns as soon as headers arrive.
func (c *Client) DoStream(req *http.Request) (*StreamResponse, error) {
	req, t := c.begin(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	return &StreamResponse{Response: resp, t: t}, nil
}

// Warm opens a connection to url so the first real request skips the
// handshake. It returns the TLS handshake time, or zero.
func (c *Client) Warm(ctx context.Context, url string) time.Duration {
	var tlsStart time.Time
	var tlsDuration time.Duration

	trace := &httptrace.ClientTrace{
		TLSHandshakeStart: func() { tlsStart = time.Now() },
		TLSHandshakeDone:  func(_ tls.ConnectionState, _ error) { tlsDuration = time.Since(tlsStart) },
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return tlsDuration
}

// FirstHeader returns the first non-empty value among keys, or "?".
func FirstHeader(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}
