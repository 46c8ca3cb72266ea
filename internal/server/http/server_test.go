package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rzbill/strand/internal/commitlog"
	cfgpkg "github.com/rzbill/strand/internal/config"
	"github.com/rzbill/strand/internal/runtime"
	logpkg "github.com/rzbill/strand/pkg/log"
)

func testServer(t *testing.T) (*httptest.Server, *runtime.Runtime) {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.DataDir = t.TempDir()
	cfg.Fsync = "never"
	rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: logpkg.NewTestLogger()})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	ts := httptest.NewServer(New(rt).Handler())
	t.Cleanup(ts.Close)
	return ts, rt
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	ts, _ := testServer(t)
	resp, err := http.Get(ts.URL + "/v1/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body["status"] != "ok" {
		t.Fatalf("body: %v %v", body, err)
	}
}

func TestCreateStreamAndStats(t *testing.T) {
	ts, rt := testServer(t)

	resp := postJSON(t, ts.URL+"/v1/streams/create", createStreamReq{Name: "orders", Partitions: 2})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %d", resp.StatusCode)
	}
	resp = postJSON(t, ts.URL+"/v1/streams/create", createStreamReq{Name: "orders", Partitions: 2})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate status: %d", resp.StatusCode)
	}
	resp = postJSON(t, ts.URL+"/v1/streams/create", createStreamReq{Name: "bad", ReplicationFactor: 5})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("oversized rf status: %d", resp.StatusCode)
	}

	p, err := rt.Partition("orders", 0)
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if _, err := p.Append(context.Background(), []commitlog.Record{{Value: []byte("x")}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	sresp, err := http.Get(ts.URL + "/v1/streams/stats?stream=orders")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer sresp.Body.Close()
	var stats struct {
		Partitions []struct {
			Stream        string `json:"Stream"`
			NewestOffset  int64  `json:"NewestOffset"`
			HighWaterMark int64  `json:"HighWaterMark"`
		} `json:"partitions"`
	}
	if err := json.NewDecoder(sresp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stats.Partitions) != 2 || stats.Partitions[0].NewestOffset != 0 {
		t.Fatalf("stats: %+v", stats)
	}
}

func TestMetadataEndpoint(t *testing.T) {
	ts, _ := testServer(t)
	postJSON(t, ts.URL+"/v1/streams/create", createStreamReq{Name: "orders", Partitions: 1})

	resp, err := http.Get(ts.URL + "/v1/metadata")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var md struct {
		Brokers []struct {
			ID string `json:"id"`
		} `json:"brokers"`
		Streams []struct {
			Config struct {
				Name string `json:"name"`
			} `json:"config"`
		} `json:"streams"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(md.Brokers) != 1 || len(md.Streams) != 1 || md.Streams[0].Config.Name != "orders" {
		t.Fatalf("metadata: %+v", md)
	}
}

func TestTailSSEWithFilter(t *testing.T) {
	ts, rt := testServer(t)
	postJSON(t, ts.URL+"/v1/streams/create", createStreamReq{Name: "orders", Partitions: 1})

	p, err := rt.Partition("orders", 0)
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	ctx := context.Background()
	offsets, err := p.Append(ctx, []commitlog.Record{
		{Value: []byte(`{"amount": 5}`)},
		{Value: []byte(`{"amount": 50}`)},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := p.WaitCommitted(ctx, offsets[1]); err != nil {
		t.Fatalf("wait committed: %v", err)
	}

	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(rctx, http.MethodGet,
		ts.URL+"/v1/streams/tail?stream=orders&start=earliest&filter="+
			strings.ReplaceAll("json.amount > 10", " ", "%20"), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev tailEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("event decode: %v", err)
		}
		// the filter must skip the first record
		if ev.Offset != offsets[1] {
			t.Fatalf("filtered event: %+v", ev)
		}
		return
	}
	t.Fatalf("no event received: %v", scanner.Err())
}

func TestTailRejectsBadFilter(t *testing.T) {
	ts, _ := testServer(t)
	postJSON(t, ts.URL+"/v1/streams/create", createStreamReq{Name: "orders", Partitions: 1})

	resp, err := http.Get(ts.URL + "/v1/streams/tail?stream=orders&filter=this%20is%20not%20cel")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}

func TestTailUnknownStream(t *testing.T) {
	ts, _ := testServer(t)
	resp, err := http.Get(ts.URL + "/v1/streams/tail?stream=ghost")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := testServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(buf.String(), "go_goroutines") {
		t.Fatalf("missing collector output")
	}
}
