package main

import (
	"log"
	"os"

	"github.com/rawblock/taylorevents/internal/api"
	"github.com/rawblock/taylorevents/internal/db"
	"github.com/rawblock/taylorevents/internal/runsvc"
)

func main() {
	log.Println("Starting Taylor-series event detection engine...")

	// ─── Environment Variables ───────────────────────────────────────
	// DATABASE_URL is optional: without it the service still runs, it
	// just can't checkpoint or resume runs across restarts.
	// ──────────────────────────────────────────────────────────────────

	var dbConn *db.PostgresStore
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		conn, err := db.Connect(dbURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL, continuing without checkpoint persistence. Error: %v", err)
		} else {
			defer conn.Close()
			if err := conn.InitSchema(); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
			dbConn = conn
		}
	} else {
		log.Println("DATABASE_URL not set — running without checkpoint persistence")
	}

	wsHub := api.NewHub()
	go wsHub.Run()

	runs := runsvc.New(wsHub, dbConn)

	r := api.SetupRouter(runs, wsHub, dbConn)

	port := getEnvOrDefault("PORT", "5339")
	log.Printf("Event detection service listening on :%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
