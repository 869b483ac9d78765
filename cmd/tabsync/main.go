package main

import (
	"log"

	"github.com/idleeyan/tabsync/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ tabsync failed to start: %v", err)
	}
}
