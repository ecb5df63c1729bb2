package gemini

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	"fluent/log"
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

type opKey struct{}

type opInfo struct {
	op    string
	model string
}

// withOp labels the requests made under ctx in the diagnostics log.
func withOp(ctx context.Context, op, model string) context.Context {
	return context.WithValue(ctx, opKey{}, opInfo{op: op, model: model})
}

func opFrom(ctx context.Context) opInfo {
	if info, ok := ctx.Value(opKey{}).(opInfo); ok {
		return info
	}
	return opInfo{op: "other"}
}

// tracedTransport times every phase of a request with httptrace and
// reports the metrics once the response body is closed.
type tracedTransport struct {
	base   http.RoundTripper
	report func(info opInfo, status int, sent int64, m *NetworkMetrics)
}

func newTracedTransport() *tracedTransport {
	return &tracedTransport{
		base: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
		report: logMetrics,
	}
}

func (t *tracedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Trace hooks fire on the transport's read and write goroutines; mu
	// guards everything below.
	var mu sync.Mutex
	metrics := &NetworkMetrics{}
	var getConnStart, dnsStart, tcpStart, tlsStart time.Time
	var gotConn, wroteHeaders, wroteRequest, firstByte time.Time

	locked := func(f func()) {
		mu.Lock()
		f()
		mu.Unlock()
	}

	trace := &httptrace.ClientTrace{
		GetConn: func(_ string) { locked(func() { getConnStart = time.Now() }) },
		GotConn: func(info httptrace.GotConnInfo) {
			locked(func() {
				gotConn = time.Now()
				metrics.ConnWait = gotConn.Sub(getConnStart)
				metrics.ConnReused = info.Reused
			})
		},
		DNSStart:     func(_ httptrace.DNSStartInfo) { locked(func() { dnsStart = time.Now() }) },
		DNSDone:      func(_ httptrace.DNSDoneInfo) { locked(func() { metrics.DNS = time.Since(dnsStart) }) },
		ConnectStart: func(_, _ string) { locked(func() { tcpStart = time.Now() }) },
		ConnectDone: func(_, _ string, _ error) {
			locked(func() { metrics.TCP = time.Since(tcpStart) })
		},
		TLSHandshakeStart: func() { locked(func() { tlsStart = time.Now() }) },
		TLSHandshakeDone: func(_ tls.ConnectionState, _ error) {
			locked(func() { metrics.TLS = time.Since(tlsStart) })
		},
		WroteHeaders: func() {
			locked(func() {
				wroteHeaders = time.Now()
				metrics.ReqHeaders = wroteHeaders.Sub(gotConn)
			})
		},
		WroteRequest: func(_ httptrace.WroteRequestInfo) {
			locked(func() {
				wroteRequest = time.Now()
				metrics.ReqBody = wroteRequest.Sub(wroteHeaders)
			})
		},
		GotFirstResponseByte: func() {
			locked(func() {
				firstByte = time.Now()
				metrics.TTFB = firstByte.Sub(wroteRequest)
			})
		},
	}

	info := opFrom(req.Context())
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
	reqStart := time.Now()

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.TLS != nil {
		locked(func() { metrics.TLSProtocol = resp.TLS.NegotiatedProtocol })
	}

	resp.Body = &tracedBody{
		ReadCloser: resp.Body,
		done: func() {
			mu.Lock()
			if !firstByte.IsZero() {
				metrics.Download = time.Since(firstByte)
			}
			metrics.Total = time.Since(reqStart)
			snapshot := *metrics
			mu.Unlock()
			if t.report != nil {
				t.report(info, resp.StatusCode, req.ContentLength, &snapshot)
			}
		},
	}
	return resp, nil
}

type tracedBody struct {
	io.ReadCloser
	once sync.Once
	done func()
}

func (b *tracedBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.done)
	return err
}

func logMetrics(info opInfo, status int, sent int64, m *NetworkMetrics) {
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	log.Request(log.RequestMetrics{
		Op:          info.op,
		Model:       info.model,
		Status:      status,
		BytesSent:   sent,
		DNSTimeMs:   ms(m.DNS),
		ConnTimeMs:  ms(m.TCP),
		TLSTimeMs:   ms(m.TLS),
		TTFBMs:      ms(m.TTFB),
		TotalTimeMs: ms(m.Total),
		ConnReused:  m.ConnReused,
		TLSProto:    m.TLSProtocol,
	})
}
