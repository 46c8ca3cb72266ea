package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/strand/internal/cmd/client"
	serverrun "github.com/rzbill/strand/internal/cmd/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "strand",
		Short: "Strand broker CLI",
		Long:  "Strand is a partitioned, replicated log service. This CLI runs the broker and provides basic client operations.",
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	var opts serverrun.Options
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the broker (gRPC and HTTP)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serverrun.Run(cmd.Context(), opts)
		},
	}
	serverStartCmd.Flags().StringVar(&opts.ConfigPath, "config", "", "Config file (JSON or YAML)")
	serverStartCmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "Data directory (defaults to an OS-specific location)")
	serverStartCmd.Flags().StringVar(&opts.GRPCAddr, "grpc", "", "gRPC listen address")
	serverStartCmd.Flags().StringVar(&opts.HTTPAddr, "http", "", "HTTP listen address")
	serverStartCmd.Flags().StringVar(&opts.BrokerID, "broker-id", "", "Broker id within the cluster")
	serverStartCmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	serverStartCmd.Flags().StringVar(&opts.LogFormat, "log-format", "", "Log format: text|json")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	rootCmd.AddCommand(clientcmd.NewStreamCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
