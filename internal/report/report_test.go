package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"TrafficLens/internal/model"
)

func sampleRecords() []model.TrafficRecord {
	base := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	return []model.TrafficRecord{
		{
			Timestamp:      base,
			PID:            12345,
			ProcessName:    "firefox",
			LocalInterface: "eth0",
			LocalPort:      45678,
			RemoteAddress:  "192.168.1.100",
			RemotePort:     443,
			Protocol:       "tcp",
			UploadBps:      1024,
			DownloadBps:    2048,
			SourceFile:     "bandwhich_20240115_0930.log",
		},
		{
			Timestamp:      base.Add(time.Second),
			PID:            12346,
			ProcessName:    "chrome",
			LocalInterface: "eth0",
			LocalPort:      45679,
			RemoteAddress:  "8.8.8.8",
			RemotePort:     53,
			Protocol:       "udp",
			UploadBps:      64,
			DownloadBps:    128,
			SourceFile:     "bandwhich_20240115_0930.log",
		},
	}
}

func TestGenerateDaily(t *testing.T) {
	dir := t.TempDir()
	gen, err := NewGenerator(dir, true, 10)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	day := model.Date{Year: 2024, Month: time.January, Day: 15}
	artifacts, err := gen.GenerateDaily(day, sampleRecords())
	if err != nil {
		t.Fatalf("GenerateDaily failed: %v", err)
	}

	// 1. All four artifact kinds produced.
	for _, kind := range []string{"json", "csv", "summary", "stats"} {
		path, ok := artifacts[kind]
		if !ok {
			t.Fatalf("Missing %s artifact", kind)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Artifact %s not on disk: %v", kind, err)
		}
	}

	// 2. Artifact names carry the date.
	if filepath.Base(artifacts["json"]) != "report_20240115.json" {
		t.Errorf("Unexpected JSON artifact name: %s", artifacts["json"])
	}
	if filepath.Base(artifacts["summary"]) != "summary_20240115.json" {
		t.Errorf("Unexpected summary artifact name: %s", artifacts["summary"])
	}

	// 3. CSV has a header plus one row per record.
	data, err := os.ReadFile(artifacts["csv"])
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Errorf("CSV line count = %d, want 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,pid,process_name") {
		t.Errorf("Unexpected CSV header: %s", lines[0])
	}

	// 4. Summary artifact decodes and matches the input.
	sumData, err := os.ReadFile(artifacts["summary"])
	if err != nil {
		t.Fatalf("Failed to read summary: %v", err)
	}
	var summary model.DailySummary
	if err := json.Unmarshal(sumData, &summary); err != nil {
		t.Fatalf("Summary is not valid JSON: %v", err)
	}
	if summary.Overview.TotalRecords != 2 {
		t.Errorf("Summary total_records = %d, want 2", summary.Overview.TotalRecords)
	}
}

func TestGenerateDailyCSVDisabled(t *testing.T) {
	dir := t.TempDir()
	gen, err := NewGenerator(dir, false, 10)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	day := model.Date{Year: 2024, Month: time.January, Day: 15}
	artifacts, err := gen.GenerateDaily(day, sampleRecords())
	if err != nil {
		t.Fatalf("GenerateDaily failed: %v", err)
	}
	if _, ok := artifacts["csv"]; ok {
		t.Error("CSV artifact produced with include_csv disabled")
	}
	if _, ok := artifacts["json"]; !ok {
		t.Error("JSON artifact missing")
	}
}

func TestGenerateDailyNoRecords(t *testing.T) {
	dir := t.TempDir()
	gen, err := NewGenerator(dir, true, 10)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	day := model.Date{Year: 2024, Month: time.January, Day: 15}
	artifacts, err := gen.GenerateDaily(day, nil)
	if err != nil {
		t.Fatalf("GenerateDaily failed: %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("Expected no artifacts, got %v", artifacts)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read report dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Report dir should be empty, found %d entries", len(entries))
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	records := sampleRecords()
	data, err := MarshalRecords(records)
	if err != nil {
		t.Fatalf("MarshalRecords failed: %v", err)
	}

	parsed, err := UnmarshalRecords(data)
	if err != nil {
		t.Fatalf("UnmarshalRecords failed: %v", err)
	}
	if len(parsed) != len(records) {
		t.Fatalf("Round trip length = %d, want %d", len(parsed), len(records))
	}
	for i := range records {
		if !parsed[i].Timestamp.Equal(records[i].Timestamp) {
			t.Errorf("Record %d timestamp changed: %v vs %v", i, parsed[i].Timestamp, records[i].Timestamp)
		}
		got, want := parsed[i], records[i]
		got.Timestamp, want.Timestamp = time.Time{}, time.Time{}
		if got != want {
			t.Errorf("Record %d changed in round trip:\n got %+v\nwant %+v", i, got, want)
		}
	}
}

func TestUnmarshalRecordsInvalid(t *testing.T) {
	if _, err := UnmarshalRecords([]byte("not json")); err == nil {
		t.Fatal("Expected an error for invalid JSON")
	}
}

func TestWriteRunSummary(t *testing.T) {
	dir := t.TempDir()
	successful := []model.Date{{Year: 2024, Month: time.January, Day: 15}}
	failed := []model.Date{{Year: 2024, Month: time.January, Day: 16}}

	path, err := WriteRunSummary(dir, successful, failed)
	if err != nil {
		t.Fatalf("WriteRunSummary failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read run summary: %v", err)
	}
	var payload struct {
		SuccessfulDates []string `json:"successful_dates"`
		FailedDates     []string `json:"failed_dates"`
		TotalProcessed  int      `json:"total_processed"`
		SuccessRate     float64  `json:"success_rate"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("Run summary is not valid JSON: %v", err)
	}
	if payload.TotalProcessed != 2 || payload.SuccessRate != 50 {
		t.Errorf("Unexpected run summary: %+v", payload)
	}
	if len(payload.SuccessfulDates) != 1 || payload.SuccessfulDates[0] != "2024-01-15" {
		t.Errorf("Unexpected successful dates: %v", payload.SuccessfulDates)
	}
}
