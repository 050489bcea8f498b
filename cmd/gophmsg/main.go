package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gophmsg/internal/server"
	"github.com/dmitrijs2005/gophmsg/internal/server/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx, os.Stdin, os.Stdout)

	if err := app.Close(ctx); err != nil {
		log.Printf("%v", err)
	}

}
