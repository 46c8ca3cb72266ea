package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rzbill/strand/internal/cluster"
	"github.com/rzbill/strand/internal/metadata"
	"github.com/rzbill/strand/internal/partition"
	"github.com/rzbill/strand/internal/runtime"
)

type Server struct {
	rt  *runtime.Runtime
	srv *http.Server
	lis net.Listener
}

func New(rt *runtime.Runtime) *Server {
	mux := http.NewServeMux()
	s := &Server{rt: rt, srv: &http.Server{Handler: cors(mux)}}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/metadata", s.handleMetadata)
	mux.HandleFunc("/v1/streams", s.handleListStreams)
	mux.HandleFunc("/v1/streams/create", s.handleCreateStream)
	mux.HandleFunc("/v1/streams/stats", s.handleStats)
	mux.HandleFunc("/v1/streams/tail", s.handleTailSSE)
	mux.Handle("/metrics", rt.Metrics().Handler())
	return s
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	var names []string
	if raw := r.URL.Query().Get("streams"); raw != "" {
		for _, n := range strings.Split(raw, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	writeJSON(w, s.rt.Directory().FetchMetadata(names))
}

func (s *Server) handleListStreams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"streams": s.rt.Directory().Streams()})
}

type createStreamReq struct {
	Name              string `json:"name"`
	Subject           string `json:"subject"`
	Partitions        int32  `json:"partitions"`
	ReplicationFactor int32  `json:"replicationFactor"`
	RetentionMaxAgeMs int64  `json:"retentionMaxAgeMs"`
	RetentionMaxBytes int64  `json:"retentionMaxBytes"`
}

func (s *Server) handleCreateStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req createStreamReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := s.rt.CreateStream(metadata.StreamConfig{
		Name:              req.Name,
		Subject:           req.Subject,
		Partitions:        req.Partitions,
		ReplicationFactor: req.ReplicationFactor,
		RetentionMaxAge:   time.Duration(req.RetentionMaxAgeMs) * time.Millisecond,
		RetentionMaxBytes: req.RetentionMaxBytes,
	})
	switch {
	case err == nil:
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, created)
	case errors.Is(err, metadata.ErrStreamExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, metadata.ErrBadStreamConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, cluster.ErrNotEnoughBrokers):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.rt.PartitionStats()
	if name := r.URL.Query().Get("stream"); name != "" {
		filtered := stats[:0]
		for _, st := range stats {
			if st.Stream == name {
				filtered = append(filtered, st)
			}
		}
		stats = filtered
	}
	writeJSON(w, map[string]any{"partitions": stats})
}

type tailEvent struct {
	Offset    int64             `json:"offset"`
	Timestamp int64             `json:"timestamp"`
	Key       string            `json:"key,omitempty"`
	Value     string            `json:"value"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// handleTailSSE streams committed records as Server-Sent Events, optionally
// filtered by a CEL expression, until the client disconnects.
func (s *Server) handleTailSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	part64, err := strconv.ParseInt(q.Get("partition"), 10, 32)
	if q.Get("partition") != "" && err != nil {
		writeError(w, http.StatusBadRequest, "invalid partition")
		return
	}
	p, err := s.rt.Partition(q.Get("stream"), int32(part64))
	switch {
	case err == nil:
	case errors.Is(err, metadata.ErrUnknownStream):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, runtime.ErrPartitionNotHosted):
		writeError(w, http.StatusConflict, err.Error())
		return
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filter, err := newCELFilter(q.Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter: "+err.Error())
		return
	}
	pos, arg, err := parseStart(q.Get("start"), q.Get("offset"), q.Get("timestamp"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reader, err := p.NewReader(pos, arg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer reader.Close()

	streamName := q.Get("stream")
	s.rt.Metrics().Subscriptions.WithLabelValues(streamName).Inc()
	defer s.rt.Metrics().Subscriptions.WithLabelValues(streamName).Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.(http.Flusher)

	ctx := r.Context()
	for {
		rec, err := reader.Next(ctx)
		if err != nil {
			return
		}
		if !filter.Eval(rec, int(p.ID())) {
			continue
		}
		ev := tailEvent{
			Offset:    rec.Offset,
			Timestamp: rec.Timestamp,
			Key:       string(rec.Key),
			Value:     string(rec.Value),
			Headers:   headerStrings(rec.Headers),
		}
		b, _ := json.Marshal(ev)
		if _, err := w.Write([]byte("data: ")); err != nil {
			return
		}
		if _, err := w.Write(b); err != nil {
			return
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		s.rt.Metrics().DeliveredRecords.WithLabelValues(streamName).Inc()
	}
}

func parseStart(start, offset, timestamp string) (partition.StartPosition, int64, error) {
	switch start {
	case "", "latest":
		return partition.StartLatest, 0, nil
	case "earliest":
		return partition.StartEarliest, 0, nil
	case "new":
		return partition.StartNewOnly, 0, nil
	case "offset":
		n, err := strconv.ParseInt(offset, 10, 64)
		if err != nil {
			return 0, 0, errors.New("start=offset requires a numeric offset parameter")
		}
		return partition.StartAtOffset, n, nil
	case "timestamp":
		n, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return 0, 0, errors.New("start=timestamp requires a unix-ms timestamp parameter")
		}
		return partition.StartAtTimestamp, n, nil
	default:
		return 0, 0, errors.New("unknown start position " + strconv.Quote(start))
	}
}

func headerStrings(h map[string][]byte) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = string(v)
	}
	return out
}
