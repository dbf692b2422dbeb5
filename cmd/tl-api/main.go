package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"sort"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"TrafficLens/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.API.ListenAddr == "" {
		log.Fatalf("api.listen_addr is not configured. API server cannot start.")
	}

	handler := &APIHandler{reportDir: cfg.Paths.ReportDir}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/dates", handler.listDatesHandler).Methods("GET")
	r.HandleFunc("/api/v1/summary/{date}", handler.summaryHandler).Methods("GET")
	r.HandleFunc("/api/v1/report/{date}", handler.reportHandler).Methods("GET")

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

// APIHandler serves the generated report artifacts.
type APIHandler struct {
	reportDir string
}

var (
	summaryNamePattern = regexp.MustCompile(`^summary_(\d{8})\.json$`)
	datePattern        = regexp.MustCompile(`^\d{8}$`)
)

// listDatesHandler returns the dates that have a summary artifact.
func (h *APIHandler) listDatesHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.reportDir)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read report directory: %v", err), http.StatusInternalServerError)
		return
	}

	dates := []string{}
	for _, entry := range entries {
		if m := summaryNamePattern.FindStringSubmatch(entry.Name()); m != nil {
			dates = append(dates, m[1])
		}
	}
	sort.Strings(dates)

	writeJSON(w, map[string]any{"dates": dates})
}

// summaryHandler serves summary_<date>.json.
func (h *APIHandler) summaryHandler(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, "summary_%s.json")
}

// reportHandler serves report_<date>.json.
func (h *APIHandler) reportHandler(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, "report_%s.json")
}

func (h *APIHandler) serveArtifact(w http.ResponseWriter, r *http.Request, nameFormat string) {
	date := mux.Vars(r)["date"]
	if !datePattern.MatchString(date) {
		http.Error(w, "date must be YYYYMMDD", http.StatusBadRequest)
		return
	}

	path := filepath.Join(h.reportDir, fmt.Sprintf(nameFormat, date))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, fmt.Sprintf("no artifact for date %s", date), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("failed to read artifact: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
