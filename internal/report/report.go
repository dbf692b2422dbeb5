package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"TrafficLens/internal/aggregate"
	"TrafficLens/internal/model"
)

// Generator writes the per-day report artifacts: the full record array as
// JSON (and optionally CSV), the composite summary, and the extended
// statistics file.
type Generator struct {
	outputDir  string
	includeCSV bool
	topN       int
}

// NewGenerator creates a Generator rooted at outputDir, creating the
// directory if needed.
func NewGenerator(outputDir string, includeCSV bool, topN int) (*Generator, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &Generator{outputDir: outputDir, includeCSV: includeCSV, topN: topN}, nil
}

// GenerateDaily writes all artifacts for one date and returns their paths
// keyed by artifact kind. A date with zero records produces no artifacts and
// an empty map.
func (g *Generator) GenerateDaily(date model.Date, records []model.TrafficRecord) (map[string]string, error) {
	artifacts := make(map[string]string)
	if len(records) == 0 {
		log.Printf("Date %s has no records, skipping artifacts", date)
		return artifacts, nil
	}

	ds := date.String()

	jsonPath := filepath.Join(g.outputDir, fmt.Sprintf("report_%s.json", ds))
	if err := writeRecordsJSON(jsonPath, records); err != nil {
		return nil, err
	}
	artifacts["json"] = jsonPath

	if g.includeCSV {
		csvPath := filepath.Join(g.outputDir, fmt.Sprintf("report_%s.csv", ds))
		if err := writeRecordsCSV(csvPath, records); err != nil {
			return nil, err
		}
		artifacts["csv"] = csvPath
	}

	summary := aggregate.Summarize(date, records, g.topN)
	summaryPath := filepath.Join(g.outputDir, fmt.Sprintf("summary_%s.json", ds))
	if err := writeJSON(summaryPath, summary); err != nil {
		return nil, err
	}
	artifacts["summary"] = summaryPath

	stats := aggregate.Stats(date, records)
	statsPath := filepath.Join(g.outputDir, fmt.Sprintf("stats_%s.json", ds))
	if err := writeJSON(statsPath, stats); err != nil {
		return nil, err
	}
	artifacts["stats"] = statsPath

	log.Printf("Generated %d artifact(s) for %s", len(artifacts), ds)
	return artifacts, nil
}

// MarshalRecords renders records as an indented JSON array. Timestamps
// serialize as RFC3339 strings and re-parse to the identical instant.
func MarshalRecords(records []model.TrafficRecord) ([]byte, error) {
	return json.MarshalIndent(records, "", "  ")
}

// UnmarshalRecords is the inverse of MarshalRecords.
func UnmarshalRecords(data []byte) ([]model.TrafficRecord, error) {
	var records []model.TrafficRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal records: %w", err)
	}
	return records, nil
}

func writeRecordsJSON(path string, records []model.TrafficRecord) error {
	data, err := MarshalRecords(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

var csvHeader = []string{
	"timestamp", "pid", "process_name", "local_interface", "local_port",
	"remote_address", "remote_port", "protocol", "upload_bps", "download_bps",
	"source_file",
}

func writeRecordsCSV(path string, records []model.TrafficRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Timestamp.Format(time.RFC3339),
			strconv.Itoa(r.PID),
			r.ProcessName,
			r.LocalInterface,
			strconv.Itoa(int(r.LocalPort)),
			r.RemoteAddress,
			strconv.Itoa(int(r.RemotePort)),
			r.Protocol,
			strconv.FormatUint(r.UploadBps, 10),
			strconv.FormatUint(r.DownloadBps, 10),
			r.SourceFile,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(path string, payload any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

// WriteRunSummary records the outcome of a whole processing run in the
// report directory.
func WriteRunSummary(outputDir string, successful, failed []model.Date) (string, error) {
	total := len(successful) + len(failed)
	rate := 0.0
	if total > 0 {
		rate = float64(len(successful)) / float64(total) * 100
	}

	payload := struct {
		Timestamp       string   `json:"timestamp"`
		SuccessfulDates []string `json:"successful_dates"`
		FailedDates     []string `json:"failed_dates"`
		TotalProcessed  int      `json:"total_processed"`
		SuccessRate     float64  `json:"success_rate"`
	}{
		Timestamp:      time.Now().Format(time.RFC3339),
		TotalProcessed: total,
		SuccessRate:    rate,
	}
	for _, d := range successful {
		payload.SuccessfulDates = append(payload.SuccessfulDates, d.ISO())
	}
	for _, d := range failed {
		payload.FailedDates = append(payload.FailedDates, d.ISO())
	}

	path := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.json", time.Now().Format("20060102_150405")))
	if err := writeJSON(path, payload); err != nil {
		return "", err
	}
	return path, nil
}
