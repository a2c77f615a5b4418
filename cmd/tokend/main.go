package main

import (
	"log"

	"github.com/fitzroyhq/tokend/internal/tokend/app"
)

func main() {
	a, err := app.New(app.LoadConfig())
	if err != nil {
		log.Fatalf("tokend: %v", err)
	}

	if err := a.Run(); err != nil {
		log.Fatalf("tokend: %v", err)
	}
}
