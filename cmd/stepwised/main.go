// Command stepwised runs the stepwise daemon with the default configuration.
package main

import (
	"context"
	"log"

	"stepwise/internal/config"
	"stepwise/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("stepwised: %v", err)
	}
}
