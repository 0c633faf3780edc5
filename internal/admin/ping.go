package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	gs "github.com/dmitrijs2005/cottonadvisor/internal/server/grpc"
)

func (a *app) pingCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the gRPC API answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.GRPCAddr
			}
			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			resp, err := gs.NewClient(conn).Ping(ctx)
			if err != nil {
				return fmt.Errorf("ping %s: %w", addr, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", addr, resp.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "gRPC address (defaults to the configured one)")
	return cmd
}
