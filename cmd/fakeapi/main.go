// Command fakeapi serves an in-memory students backend for local runs of
// the console.
package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"student-console/internal/logger"
	"student-console/internal/middleware"
	"student-console/testing/fakeapi"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", ":3001", "listen address")
	seed := flag.Int("seed", 95, "number of generated students")
	delay := flag.Duration("delay", 0, "artificial latency per request")
	flag.Parse()

	slogLogger := logger.NewWithServiceContext("student-fakeapi", "dev")

	api := fakeapi.New()
	api.Seed(*seed)
	api.SetDelay(*delay)

	server := &http.Server{
		Addr:              *addr,
		Handler:           middleware.RequestLogger(slogLogger)(api.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slogLogger.Info("fake students API listening", "addr", *addr, "students", *seed)
	if err := server.ListenAndServe(); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
