package main

import (
	"context"
	"log"

	"github.com/shreels/tgauth/internal/server"
	"github.com/shreels/tgauth/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)

	if err != nil {
		log.Fatalf("tgauth: %v", err)
	}

	app.Run(ctx)

}
