package main

import (
	"log"

	_ "github.com/joho/godotenv/autoload"

	"github.com/MrSnakeDoc/engage/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ engage failed to start: %v", err)
	}
}
