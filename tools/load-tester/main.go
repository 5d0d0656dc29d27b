package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	logtide "github.com/logtide-dev/logtide-go"
)

func main() {
	endpoint := flag.String("url", "http://localhost:8080", "Base URL of the ingestion server")
	apiKey := flag.String("api-key", "supersecretkey", "API Key for authentication")
	service := flag.String("service", "load-tester", "Service name stamped on generated records")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 1000, "Records per second limit")
	batchSize := flag.Int("batch", 100, "Client batch size")
	compress := flag.Bool("compress", false, "Gzip ingest payloads")
	flag.Parse()

	log.Printf("Starting load test against %s", *endpoint)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	client, err := logtide.New(logtide.Config{
		Endpoint:  *endpoint,
		APIKey:    *apiKey,
		BatchSize: *batchSize,
		Compress:  *compress,
		GlobalMetadata: map[string]any{
			"generator": "load-tester",
		},
	})
	if err != nil {
		log.Fatalf("failed to create client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100

	var wg sync.WaitGroup
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				md := map[string]any{
					"worker":   workerID,
					"event_id": uuid.NewString(),
				}
				_ = client.Info(ctx, *service, fmt.Sprintf("load test event from worker %d", workerID), md)
			}
		}(i)
	}

	wg.Wait()
	if err := client.Close(); err != nil {
		log.Printf("close failed: %v", err)
	}

	m := client.Metrics()
	log.Println("Load test finished.")
	log.Printf("Sent: %d", m.LogsSent)
	log.Printf("Dropped: %d", m.LogsDropped)
	log.Printf("Errors: %d, Retries: %d, Breaker trips: %d", m.Errors, m.Retries, m.BreakerTrips)
	log.Printf("Avg send latency: %.2fms", m.AvgLatencyMs)
	log.Printf("Actual record rate: %.2f/s", float64(m.LogsSent)/duration.Seconds())
}
