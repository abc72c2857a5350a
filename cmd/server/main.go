package main

import (
	"context"
	"log"
	"os"

	"github.com/passbeam/passbeam/internal/server"
	"github.com/passbeam/passbeam/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig(os.Args[1:])

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
