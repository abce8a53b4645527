package main

import (
	"context"
	"log"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/app"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	a.Run(ctx)
}
