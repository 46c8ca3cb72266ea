package serverrun

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestLoadConfigLayersOverrides(t *testing.T) {
	t.Setenv("STRAND_GRPC_ADDR", ":7300")
	cfg, err := LoadConfig(Options{DataDir: "/tmp/x", GRPCAddr: ":7400", BrokerID: "b1"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// flags beat env
	if cfg.GRPCAddr != ":7400" || cfg.DataDir != "/tmp/x" || cfg.Broker.ID != "b1" {
		t.Fatalf("overrides: %+v", cfg)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("STRAND_CLUSTER_MODE", "gossip")
	if _, err := LoadConfig(Options{}); err == nil {
		t.Fatalf("invalid cluster mode accepted")
	}
}

func TestRunServesAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			DataDir:  t.TempDir(),
			GRPCAddr: "127.0.0.1:0",
			HTTPAddr: "127.0.0.1:18391",
			LogLevel: "error",
		})
	}()

	// wait for the HTTP surface to come up
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://127.0.0.1:18391/v1/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not stop on cancel")
	}
}
