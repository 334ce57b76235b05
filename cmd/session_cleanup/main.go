package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"kundenportal/internal/database"
	"kundenportal/internal/session"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	store := session.NewGormStore(db)
	if err := store.Migrate(); err != nil {
		log.Fatalf("migrate portal_sessions failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := store.DeleteExpired(ctx, time.Now())
	if err != nil {
		log.Fatalf("cleanup portal_sessions failed: %v", err)
	}

	log.Printf("session cleanup completed: portal_sessions=%d", n)
}
