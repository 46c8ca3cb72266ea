package grpcserver

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "github.com/rzbill/strand/api/v1"
	"github.com/rzbill/strand/internal/cluster"
	"github.com/rzbill/strand/internal/commitlog"
	"github.com/rzbill/strand/internal/metadata"
	"github.com/rzbill/strand/internal/metrics"
	"github.com/rzbill/strand/internal/partition"
	"github.com/rzbill/strand/internal/runtime"
	"github.com/rzbill/strand/pkg/id"
	logpkg "github.com/rzbill/strand/pkg/log"
)

type apiService struct {
	apiv1.UnimplementedAPIServer
	rt     *runtime.Runtime
	m      *metrics.Metrics
	ids    *id.Generator
	logger logpkg.Logger
}

func newAPIService(rt *runtime.Runtime) *apiService {
	return &apiService{rt: rt, m: rt.Metrics(), ids: id.NewGenerator(), logger: rt.Logger().WithComponent("grpc")}
}

// CreateStream implements apiv1.APIServer.
func (s *apiService) CreateStream(ctx context.Context, req *apiv1.CreateStreamRequest) (*apiv1.CreateStreamResponse, error) {
	_, err := s.rt.CreateStream(metadata.StreamConfig{
		Name:              req.GetName(),
		Subject:           req.GetSubject(),
		Partitions:        req.GetPartitions(),
		ReplicationFactor: req.GetReplicationFactor(),
		RetentionMaxAge:   time.Duration(req.GetRetentionMaxAge()) * time.Millisecond,
		RetentionMaxBytes: req.GetRetentionMaxBytes(),
	})
	switch {
	case err == nil:
		return &apiv1.CreateStreamResponse{}, nil
	case errors.Is(err, metadata.ErrStreamExists):
		return nil, status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, metadata.ErrBadStreamConfig):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, cluster.ErrNotEnoughBrokers):
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	default:
		return nil, status.Error(codes.Internal, err.Error())
	}
}

// Publish implements apiv1.APIServer. The response carries an ack once the
// record reaches the requested durability point: append on the leader for
// LEADER, replication to the full ISR for ALL, immediately for NONE.
func (s *apiService) Publish(ctx context.Context, req *apiv1.PublishRequest) (*apiv1.PublishResponse, error) {
	streamName := req.GetStream()
	p, err := s.partitionFor(streamName, req.GetPartition())
	if err != nil {
		s.m.PublishRequests.WithLabelValues(streamName, "error").Inc()
		return nil, err
	}

	rec := commitlog.Record{
		Key:           req.GetKey(),
		Value:         req.GetValue(),
		Headers:       req.GetHeaders(),
		AckInbox:      req.GetAckInbox(),
		CorrelationID: req.GetCorrelationId(),
		AckPolicy:     toLogPolicy(req.GetAckPolicy()),
	}
	if rec.CorrelationID == "" {
		rec.CorrelationID = s.ids.Next().String()
	}
	if sc, err := s.rt.Directory().GetStream(streamName); err == nil {
		rec.Subject = sc.Subject
	}

	offsets, err := p.Append(ctx, []commitlog.Record{rec})
	if err != nil {
		s.m.PublishRequests.WithLabelValues(streamName, "error").Inc()
		if errors.Is(err, partition.ErrNotLeader) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	offset := offsets[0]
	s.m.PublishedRecords.WithLabelValues(streamName).Inc()

	if req.GetAckPolicy() == apiv1.AckPolicy_ALL {
		if err := p.WaitCommitted(ctx, offset); err != nil {
			s.m.PublishRequests.WithLabelValues(streamName, "timeout").Inc()
			if errors.Is(err, context.DeadlineExceeded) {
				s.m.PublishAckTimeout.WithLabelValues(streamName).Inc()
				return nil, status.Error(codes.DeadlineExceeded, "publish: commit not reached before deadline")
			}
			if errors.Is(err, context.Canceled) {
				return nil, status.FromContextError(err).Err()
			}
			return nil, status.Error(codes.Unavailable, err.Error())
		}
	}

	s.m.PublishRequests.WithLabelValues(streamName, "ok").Inc()
	resp := &apiv1.PublishResponse{}
	if req.GetAckPolicy() != apiv1.AckPolicy_NONE {
		resp.Ack = &apiv1.Ack{
			Stream:          streamName,
			Partition:       req.GetPartition(),
			Offset:          offset,
			AckInbox:        rec.AckInbox,
			CorrelationId:   rec.CorrelationID,
			AckPolicy:       req.GetAckPolicy(),
			CommitTimestamp: time.Now().UnixMilli(),
		}
	}
	return resp, nil
}

// Subscribe implements apiv1.APIServer. Records stream until the client
// cancels; only committed records are ever delivered.
func (s *apiService) Subscribe(req *apiv1.SubscribeRequest, stream apiv1.API_SubscribeServer) error {
	streamName := req.GetStream()
	p, err := s.partitionFor(streamName, req.GetPartition())
	if err != nil {
		return err
	}

	pos, arg, err := toStartPosition(req)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	r, err := p.NewReader(pos, arg)
	if err != nil {
		if errors.Is(err, partition.ErrBadStartPosition) {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		return status.Error(codes.Internal, err.Error())
	}
	defer r.Close()

	s.m.Subscriptions.WithLabelValues(streamName).Inc()
	defer s.m.Subscriptions.WithLabelValues(streamName).Dec()

	ctx := stream.Context()
	for {
		rec, err := r.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return status.FromContextError(err).Err()
			}
			if errors.Is(err, partition.ErrClosed) {
				return status.Error(codes.Unavailable, "partition closed")
			}
			return status.Error(codes.Internal, err.Error())
		}
		if err := stream.Send(toMessage(rec, streamName, req.GetPartition())); err != nil {
			return err
		}
		s.m.DeliveredRecords.WithLabelValues(streamName).Inc()
	}
}

// FetchMetadata implements apiv1.APIServer.
func (s *apiService) FetchMetadata(ctx context.Context, req *apiv1.FetchMetadataRequest) (*apiv1.FetchMetadataResponse, error) {
	md := s.rt.Directory().FetchMetadata(req.GetStreams())
	resp := &apiv1.FetchMetadataResponse{}
	for _, b := range md.Brokers {
		resp.Brokers = append(resp.Brokers, &apiv1.Broker{Id: b.ID, Host: b.Host, Port: b.Port})
	}
	for _, si := range md.Streams {
		sm := &apiv1.StreamMetadata{
			Name:    si.Config.Name,
			Subject: si.Config.Subject,
		}
		if si.Error == metadata.StreamUnknown {
			sm.Error = apiv1.StreamMetadata_UNKNOWN_STREAM
			resp.Metadata = append(resp.Metadata, sm)
			continue
		}
		sm.Partitions = make(map[int32]*apiv1.PartitionMetadata, len(si.Partitions))
		for _, pi := range si.Partitions {
			sm.Partitions[pi.ID] = &apiv1.PartitionMetadata{
				Id:       pi.ID,
				Leader:   pi.Leader,
				Replicas: pi.Replicas,
				Isr:      pi.ISR,
				Epoch:    pi.Epoch,
			}
		}
		resp.Metadata = append(resp.Metadata, sm)
	}
	return resp, nil
}

func (s *apiService) partitionFor(stream string, id int32) (*partition.Partition, error) {
	p, err := s.rt.Partition(stream, id)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, metadata.ErrUnknownStream):
		return nil, status.Error(codes.NotFound, err.Error())
	case errors.Is(err, runtime.ErrPartitionNotHosted):
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	default:
		return nil, status.Error(codes.Internal, err.Error())
	}
}

func toLogPolicy(p apiv1.AckPolicy) commitlog.AckPolicy {
	switch p {
	case apiv1.AckPolicy_ALL:
		return commitlog.AckAll
	case apiv1.AckPolicy_NONE:
		return commitlog.AckNone
	default:
		return commitlog.AckLeader
	}
}

func toStartPosition(req *apiv1.SubscribeRequest) (partition.StartPosition, int64, error) {
	switch req.GetStartPosition() {
	case apiv1.StartPosition_NEW_ONLY:
		return partition.StartNewOnly, 0, nil
	case apiv1.StartPosition_OFFSET:
		return partition.StartAtOffset, req.GetStartOffset(), nil
	case apiv1.StartPosition_EARLIEST:
		return partition.StartEarliest, 0, nil
	case apiv1.StartPosition_LATEST:
		return partition.StartLatest, 0, nil
	case apiv1.StartPosition_TIMESTAMP:
		return partition.StartAtTimestamp, req.GetStartTimestamp(), nil
	default:
		return 0, 0, errors.New("unknown start position")
	}
}

func toMessage(rec commitlog.Record, stream string, part int32) *apiv1.Message {
	return &apiv1.Message{
		Offset:        rec.Offset,
		Key:           rec.Key,
		Value:         rec.Value,
		Timestamp:     rec.Timestamp,
		Stream:        stream,
		Partition:     part,
		Subject:       rec.Subject,
		Reply:         rec.Reply,
		Headers:       rec.Headers,
		AckInbox:      rec.AckInbox,
		CorrelationId: rec.CorrelationID,
		AckPolicy:     fromLogPolicy(rec.AckPolicy),
	}
}

func fromLogPolicy(p commitlog.AckPolicy) apiv1.AckPolicy {
	switch p {
	case commitlog.AckAll:
		return apiv1.AckPolicy_ALL
	case commitlog.AckNone:
		return apiv1.AckPolicy_NONE
	default:
		return apiv1.AckPolicy_LEADER
	}
}
