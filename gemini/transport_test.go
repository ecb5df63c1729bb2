package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNetworkMetricsSum(t *testing.T) {
	m := &NetworkMetrics{
		ConnWait:   10 * time.Millisecond,
		DNS:        20 * time.Millisecond,
		TCP:        30 * time.Millisecond,
		TLS:        40 * time.Millisecond,
		ReqHeaders: 5 * time.Millisecond,
		ReqBody:    15 * time.Millisecond,
		TTFB:       50 * time.Millisecond,
		Download:   25 * time.Millisecond,
	}
	got := m.Sum()
	want := 195 * time.Millisecond
	if got != want {
		t.Errorf("Sum() = %v, want %v", got, want)
	}
}

func TestTracedTransportReportsOnClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	type report struct {
		info   opInfo
		status int
		sent   int64
		total  time.Duration
	}
	var got []report
	tr := newTracedTransport()
	tr.report = func(info opInfo, status int, sent int64, m *NetworkMetrics) {
		got = append(got, report{info, status, sent, m.Total})
	}
	client := &http.Client{Transport: tr}

	ctx := withOp(context.Background(), "analyze", "m1")
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL, strings.NewReader("hello"))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatal("reported before body was closed")
	}
	io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body.Close()

	if len(got) != 1 {
		t.Fatalf("reports = %d, want 1", len(got))
	}
	r := got[0]
	if r.info.op != "analyze" || r.info.model != "m1" {
		t.Errorf("op = %+v", r.info)
	}
	if r.status != http.StatusTeapot {
		t.Errorf("status = %d", r.status)
	}
	if r.sent != 5 {
		t.Errorf("sent = %d, want 5", r.sent)
	}
	if r.total <= 0 {
		t.Error("total time not measured")
	}
}

func TestTracedTransportConcurrentLargeBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		io.WriteString(w, strings.Repeat("x", 64<<10))
	}))
	defer srv.Close()

	var mu sync.Mutex
	reports := 0
	tr := newTracedTransport()
	tr.report = func(_ opInfo, status int, sent int64, m *NetworkMetrics) {
		mu.Lock()
		defer mu.Unlock()
		reports++
		if status != http.StatusOK || sent != 200<<10 {
			t.Errorf("status = %d, sent = %d", status, sent)
		}
		if m.Total <= 0 {
			t.Error("total time not measured")
		}
	}
	client := &http.Client{Transport: tr}

	body := strings.Repeat("a", 200<<10)
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := withOp(context.Background(), "analyze", "m1")
			req, _ := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL, strings.NewReader(body))
			resp, err := client.Do(req)
			if err != nil {
				t.Error(err)
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if reports != 5 {
		t.Errorf("reports = %d, want 5", reports)
	}
}

func TestOpFromDefault(t *testing.T) {
	if got := opFrom(context.Background()); got.op != "other" {
		t.Errorf("op = %q", got.op)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	c, err := New(context.Background(), Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping with a live server: %v", err)
	}
	c.Warm(context.Background())

	srv.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Error("expected error once the server is gone")
	}
}
