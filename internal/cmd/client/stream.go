package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	apiv1 "github.com/rzbill/strand/api/v1"
)

func defaultAddr() string {
	if v := os.Getenv("STRAND_ADDR"); v != "" {
		return v
	}
	return "127.0.0.1:9190"
}

func dialAPI(cmd *cobra.Command) (apiv1.APIClient, *grpc.ClientConn, error) {
	addr, _ := cmd.Flags().GetString("addr")
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return apiv1.NewAPIClient(conn), conn, nil
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

// NewStreamCommand builds the "stream" command group.
func NewStreamCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "stream", Short: "Stream operations"}
	cmd.PersistentFlags().String("addr", defaultAddr(), "Broker gRPC address (or STRAND_ADDR)")
	cmd.AddCommand(newCreateCommand())
	cmd.AddCommand(newPublishCommand())
	cmd.AddCommand(newSubscribeCommand())
	cmd.AddCommand(newMetadataCommand())
	return cmd
}

func newCreateCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, conn, err := dialAPI(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			subject, _ := cmd.Flags().GetString("subject")
			partitions, _ := cmd.Flags().GetInt32("partitions")
			rf, _ := cmd.Flags().GetInt32("replication-factor")
			maxAge, _ := cmd.Flags().GetDuration("retention-max-age")
			maxBytes, _ := cmd.Flags().GetInt64("retention-max-bytes")

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			_, err = api.CreateStream(ctx, &apiv1.CreateStreamRequest{
				Name:              args[0],
				Subject:           subject,
				Partitions:        partitions,
				ReplicationFactor: rf,
				RetentionMaxAge:   maxAge.Milliseconds(),
				RetentionMaxBytes: maxBytes,
			})
			if err != nil {
				return rpcError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created stream %q\n", args[0])
			return nil
		},
	}
	c.Flags().String("subject", "", "Subject to attach (defaults to the stream name)")
	c.Flags().Int32("partitions", 1, "Partition count")
	c.Flags().Int32("replication-factor", 1, "Replicas per partition")
	c.Flags().Duration("retention-max-age", 0, "Per-stream age retention (0 = broker default)")
	c.Flags().Int64("retention-max-bytes", 0, "Per-stream size retention (0 = broker default)")
	return c
}

func newPublishCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "publish <name>",
		Short: "Publish a record and print its ack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, conn, err := dialAPI(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			key, _ := cmd.Flags().GetString("key")
			value, _ := cmd.Flags().GetString("value")
			part, _ := cmd.Flags().GetInt32("partition")
			ackFlag, _ := cmd.Flags().GetString("ack")
			corr, _ := cmd.Flags().GetString("correlation-id")
			policy, err := parseAckPolicy(ackFlag)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			resp, err := api.Publish(ctx, &apiv1.PublishRequest{
				Stream:        args[0],
				Partition:     part,
				Key:           []byte(key),
				Value:         []byte(value),
				AckPolicy:     policy,
				CorrelationId: corr,
			})
			if err != nil {
				return rpcError(err)
			}
			if ack := resp.GetAck(); ack != nil {
				printJSON(cmd, ack)
			}
			return nil
		},
	}
	c.Flags().String("key", "", "Record key")
	c.Flags().String("value", "", "Record value")
	c.Flags().Int32("partition", 0, "Target partition")
	c.Flags().String("ack", "leader", "Ack policy: leader|all|none")
	c.Flags().String("correlation-id", "", "Correlation id echoed in the ack")
	return c
}

func newSubscribeCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "subscribe <name>",
		Short: "Stream records to stdout until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, conn, err := dialAPI(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			part, _ := cmd.Flags().GetInt32("partition")
			startFlag, _ := cmd.Flags().GetString("start")
			offset, _ := cmd.Flags().GetInt64("offset")
			ts, _ := cmd.Flags().GetInt64("timestamp")
			pos, err := parseStartPosition(startFlag)
			if err != nil {
				return err
			}

			sub, err := api.Subscribe(cmd.Context(), &apiv1.SubscribeRequest{
				Stream:         args[0],
				Partition:      part,
				StartPosition:  pos,
				StartOffset:    offset,
				StartTimestamp: ts,
			})
			if err != nil {
				return rpcError(err)
			}
			for {
				msg, err := sub.Recv()
				if err != nil {
					if errors.Is(cmd.Context().Err(), context.Canceled) {
						return nil
					}
					return rpcError(err)
				}
				printJSON(cmd, msg)
			}
		},
	}
	c.Flags().Int32("partition", 0, "Partition to read")
	c.Flags().String("start", "new", "Start position: new|earliest|latest|offset|timestamp")
	c.Flags().Int64("offset", 0, "Offset for --start=offset")
	c.Flags().Int64("timestamp", 0, "Unix-ms timestamp for --start=timestamp")
	return c
}

func newMetadataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata [names...]",
		Short: "Fetch cluster and stream metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, conn, err := dialAPI(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			resp, err := api.FetchMetadata(ctx, &apiv1.FetchMetadataRequest{Streams: args})
			if err != nil {
				return rpcError(err)
			}
			printJSON(cmd, resp)
			return nil
		},
	}
}

func parseAckPolicy(s string) (apiv1.AckPolicy, error) {
	switch s {
	case "", "leader":
		return apiv1.AckPolicy_LEADER, nil
	case "all":
		return apiv1.AckPolicy_ALL, nil
	case "none":
		return apiv1.AckPolicy_NONE, nil
	default:
		return 0, fmt.Errorf("unknown ack policy %q; use leader|all|none", s)
	}
}

func parseStartPosition(s string) (apiv1.StartPosition, error) {
	switch s {
	case "", "new":
		return apiv1.StartPosition_NEW_ONLY, nil
	case "earliest":
		return apiv1.StartPosition_EARLIEST, nil
	case "latest":
		return apiv1.StartPosition_LATEST, nil
	case "offset":
		return apiv1.StartPosition_OFFSET, nil
	case "timestamp":
		return apiv1.StartPosition_TIMESTAMP, nil
	default:
		return 0, fmt.Errorf("unknown start position %q", s)
	}
}

// rpcError strips the gRPC status wrapper for CLI output.
func rpcError(err error) error {
	if st, ok := status.FromError(err); ok {
		return fmt.Errorf("%s: %s", st.Code(), st.Message())
	}
	return err
}
