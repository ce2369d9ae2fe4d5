package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"GoJigsaw/internal/config"
	"GoJigsaw/internal/query"

	"github.com/gorilla/mux"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Find the first enabled ClickHouse writer config
	var chCfg *config.ClickHouseConfig
	for _, writerDef := range cfg.Aggregator.Jigsaw.Writers {
		if writerDef.Enabled && writerDef.Type == "clickhouse" {
			chCfg = &writerDef.ClickHouse
			break
		}
	}

	if chCfg == nil {
		log.Fatalf("No enabled ClickHouse writer found in config. API server cannot start.")
	}

	// Initialize querier with the found config
	querier, err := query.NewClickHouseQuerier(*chCfg)
	if err != nil {
		log.Fatalf("Failed to create querier: %v", err)
	}

	// Initialize router
	r := mux.NewRouter()

	apiHandler := &APIHandler{querier: querier}

	r.HandleFunc("/api/v1/heavyflows", apiHandler.heavyFlowsHandler).Methods("GET")

	// Start HTTP server
	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: r,
	}

	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("API server exited.")
}

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	querier query.Querier
}

// heavyFlowsHandler serves the persisted heavy flows for a task.
func (h *APIHandler) heavyFlowsHandler(w http.ResponseWriter, r *http.Request) {
	taskName := r.URL.Query().Get("task")

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.querier.TopFlows(r.Context(), taskName, limit)
	if err != nil {
		http.Error(w, "failed to query heavy flows: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
