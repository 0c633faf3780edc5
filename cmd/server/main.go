// Command server runs the cotton advisory web interface and gRPC API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/cottonadvisor/internal/server"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/config"
)

func main() {
	cfg := config.LoadConfig()

	app, err := server.NewApp(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	app.Run(context.Background())
}
