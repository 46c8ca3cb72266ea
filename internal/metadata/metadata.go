// Package metadata is the stream directory: the durable registry of streams
// and the snapshot source behind FetchMetadata. Stream configs persist in
// Pebble next to the log data; partition topology (leader, replicas, epoch)
// comes live from the cluster coordinator, and the in-sync set from the
// running partition engines.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/strand/internal/cluster"
	pebblestore "github.com/rzbill/strand/internal/storage/pebble"
	logpkg "github.com/rzbill/strand/pkg/log"
)

var (
	// ErrStreamExists is returned by CreateStream for a duplicate stream name.
	ErrStreamExists = errors.New("metadata: stream already exists")
	// ErrUnknownStream is returned for lookups on unregistered streams.
	ErrUnknownStream = errors.New("metadata: unknown stream")
	// ErrBadStreamConfig is returned for invalid create requests.
	ErrBadStreamConfig = errors.New("metadata: invalid stream config")
)

// StreamConfig describes one stream.
type StreamConfig struct {
	Name              string        `json:"name"`
	Subject           string        `json:"subject"`
	Partitions        int32         `json:"partitions"`
	ReplicationFactor int32         `json:"replicationFactor"`
	RetentionMaxAge   time.Duration `json:"retentionMaxAge,omitempty"`
	RetentionMaxBytes int64         `json:"retentionMaxBytes,omitempty"`
	CreatedAt         int64         `json:"createdAt"`
}

// StreamError is the per-stream status in a metadata snapshot.
type StreamError int

const (
	// StreamOK: the stream exists and its topology follows.
	StreamOK StreamError = iota
	// StreamUnknown: the requested stream is not registered.
	StreamUnknown
)

// PartitionInfo is one partition's topology in a snapshot.
type PartitionInfo struct {
	ID       int32    `json:"id"`
	Epoch    uint64   `json:"epoch"`
	Leader   string   `json:"leader"`
	Replicas []string `json:"replicas"`
	ISR      []string `json:"isr"`
}

// StreamInfo is one stream's entry in a snapshot.
type StreamInfo struct {
	Config     StreamConfig    `json:"config"`
	Error      StreamError     `json:"error"`
	Partitions []PartitionInfo `json:"partitions,omitempty"`
}

// Metadata is a point-in-time view of the cluster for clients.
type Metadata struct {
	Brokers []cluster.Broker `json:"brokers"`
	Streams []StreamInfo     `json:"streams"`
}

// ISRSource reports the live in-sync replica set of one partition. The
// runtime wires the partition engines in here; without a source the snapshot
// falls back to the full replica set.
type ISRSource interface {
	ISR(stream string, partition int32) ([]string, bool)
}

const streamKeyPrefix = "s/"

func streamKey(name string) []byte { return []byte(streamKeyPrefix + name) }

func prefixIterOptions(prefix []byte) *pebble.IterOptions {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return &pebble.IterOptions{LowerBound: prefix, UpperBound: end[:i+1]}
		}
	}
	return &pebble.IterOptions{LowerBound: prefix}
}

// Directory is the stream registry.
type Directory struct {
	db     *pebblestore.DB
	coord  cluster.Coordinator
	logger logpkg.Logger

	mu      sync.RWMutex
	streams map[string]StreamConfig
	isr     ISRSource
}

// Open loads the registry from storage.
func Open(db *pebblestore.DB, coord cluster.Coordinator, logger logpkg.Logger) (*Directory, error) {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	d := &Directory{
		db:      db,
		coord:   coord,
		logger:  logger.WithComponent("metadata"),
		streams: make(map[string]StreamConfig),
	}
	if err := d.load(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Directory) load() error {
	iter, err := d.db.NewIter(prefixIterOptions([]byte(streamKeyPrefix)))
	if err != nil {
		return fmt.Errorf("metadata: open iterator: %w", err)
	}
	defer iter.Close()
	for ok := iter.First(); ok; ok = iter.Next() {
		var cfg StreamConfig
		if err := json.Unmarshal(iter.Value(), &cfg); err != nil {
			d.logger.Warn("skipping undecodable stream record", logpkg.Str("key", string(iter.Key())))
			continue
		}
		d.streams[cfg.Name] = cfg
	}
	return nil
}

// SetISRSource wires the live partition engines in for snapshots.
func (d *Directory) SetISRSource(src ISRSource) {
	d.mu.Lock()
	d.isr = src
	d.mu.Unlock()
}

func validateConfig(cfg *StreamConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("%w: name is required", ErrBadStreamConfig)
	}
	if strings.ContainsAny(cfg.Name, "./ ") {
		return fmt.Errorf("%w: name %q contains reserved characters", ErrBadStreamConfig, cfg.Name)
	}
	if cfg.Subject == "" {
		cfg.Subject = cfg.Name
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = 1
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}
	return nil
}

// CreateStream registers a stream and has the coordinator assign its
// partitions. Names are unique across subjects, since the RPC surface
// addresses streams by name; a duplicate returns ErrStreamExists. Any failure
// leaves the registry unmodified.
func (d *Directory) CreateStream(cfg StreamConfig) (StreamConfig, error) {
	if err := validateConfig(&cfg); err != nil {
		return StreamConfig{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.streams[cfg.Name]; ok {
		return StreamConfig{}, fmt.Errorf("%w: %s/%s", ErrStreamExists, existing.Subject, existing.Name)
	}

	if _, err := d.coord.Assign(cfg.Name, cfg.Partitions, cfg.ReplicationFactor); err != nil {
		return StreamConfig{}, fmt.Errorf("metadata: assign %q: %w", cfg.Name, err)
	}

	cfg.CreatedAt = time.Now().UnixMilli()
	data, err := json.Marshal(cfg)
	if err != nil {
		return StreamConfig{}, err
	}
	if err := d.db.Set(streamKey(cfg.Name), data); err != nil {
		return StreamConfig{}, fmt.Errorf("metadata: persist %q: %w", cfg.Name, err)
	}
	d.streams[cfg.Name] = cfg
	d.logger.Info("stream created",
		logpkg.Str("stream", cfg.Name),
		logpkg.Str("subject", cfg.Subject),
		logpkg.Int("partitions", int(cfg.Partitions)),
		logpkg.Int("replicationFactor", int(cfg.ReplicationFactor)))
	return cfg, nil
}

// GetStream returns a stream's config.
func (d *Directory) GetStream(name string) (StreamConfig, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cfg, ok := d.streams[name]
	if !ok {
		return StreamConfig{}, fmt.Errorf("%w: %q", ErrUnknownStream, name)
	}
	return cfg, nil
}

// Streams returns all stream configs sorted by name.
func (d *Directory) Streams() []StreamConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]StreamConfig, 0, len(d.streams))
	for _, cfg := range d.streams {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// StreamsForSubject returns the streams attached to a subject.
func (d *Directory) StreamsForSubject(subject string) []StreamConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []StreamConfig
	for _, cfg := range d.streams {
		if cfg.Subject == subject {
			out = append(out, cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FetchMetadata snapshots brokers and stream topology. With no names given it
// covers every registered stream; unknown names come back with StreamUnknown
// instead of failing the whole call.
func (d *Directory) FetchMetadata(names []string) Metadata {
	d.mu.RLock()
	isrSrc := d.isr
	var cfgs []StreamConfig
	var missing []string
	if len(names) == 0 {
		for _, cfg := range d.streams {
			cfgs = append(cfgs, cfg)
		}
	} else {
		for _, name := range names {
			if cfg, ok := d.streams[name]; ok {
				cfgs = append(cfgs, cfg)
			} else {
				missing = append(missing, name)
			}
		}
	}
	d.mu.RUnlock()
	sort.Slice(cfgs, func(i, j int) bool { return cfgs[i].Name < cfgs[j].Name })

	md := Metadata{Brokers: d.coord.Brokers()}
	sort.Slice(md.Brokers, func(i, j int) bool { return md.Brokers[i].ID < md.Brokers[j].ID })

	for _, cfg := range cfgs {
		info := StreamInfo{Config: cfg, Error: StreamOK}
		for p := int32(0); p < cfg.Partitions; p++ {
			a, err := d.coord.AssignmentFor(cfg.Name, p)
			if err != nil {
				continue
			}
			pi := PartitionInfo{
				ID:       p,
				Epoch:    a.Epoch,
				Leader:   a.Leader,
				Replicas: append([]string(nil), a.Replicas...),
			}
			if isrSrc != nil {
				if isr, ok := isrSrc.ISR(cfg.Name, p); ok {
					pi.ISR = isr
				}
			}
			if pi.ISR == nil {
				pi.ISR = append([]string(nil), a.Replicas...)
			}
			info.Partitions = append(info.Partitions, pi)
		}
		md.Streams = append(md.Streams, info)
	}
	for _, name := range missing {
		md.Streams = append(md.Streams, StreamInfo{
			Config: StreamConfig{Name: name},
			Error:  StreamUnknown,
		})
	}
	return md
}
