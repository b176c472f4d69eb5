// ch-proxy is a caching proxy in front of the Companies House API. It
// terminates API key auth, shares one rate limit window and response cache
// across all consumers, and exposes Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/registrant/companies-house-client/pkg/client"
	"github.com/registrant/companies-house-client/pkg/logging"
)

func main() {
	// Configuration from environment
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8080")
	apiKey := os.Getenv("CH_API_KEY")
	logLevel := getEnv("LOG_LEVEL", "info")

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Output: os.Stderr,
	})

	if apiKey == "" {
		log.Fatal().Msg("CH_API_KEY is required")
	}

	// Setup Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("redis", redisURL).Msg("Failed to connect to Redis")
	}
	log.Info().Str("redis", redisURL).Msg("Connected to Redis")

	// Create Companies House client
	chClient, err := client.New(client.DefaultConfig(redisClient, apiKey))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Companies House client")
	}
	defer chClient.Close()

	// HTTP Server
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/ready", readyHandler(redisClient))
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/ch/", chProxyHandler(chClient))

	addr := ":" + port
	log.Info().Str("addr", addr).Msg("Starting Companies House proxy server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports readiness: the proxy can serve only while Redis is
// reachable.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			http.Error(w, fmt.Sprintf("redis unavailable: %v", err), http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// chProxyHandler forwards requests under /ch/ to the Companies House API.
// Example: /ch/company/09370755/officers -> /company/09370755/officers
func chProxyHandler(chClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := strings.TrimPrefix(r.URL.Path, "/ch")
		if r.URL.RawQuery != "" {
			endpoint += "?" + r.URL.RawQuery
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		resp, err := chClient.Get(ctx, endpoint)
		if err != nil {
			http.Error(w, fmt.Sprintf("upstream request failed: %v", err), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		// Copy response headers
		for key, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}

		w.WriteHeader(resp.StatusCode)

		if _, err := io.Copy(w, resp.Body); err != nil {
			log.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to stream response body")
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
