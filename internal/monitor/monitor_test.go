package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"TrafficLens/internal/config"
	"TrafficLens/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	return &config.Config{
		Paths: config.PathsConfig{
			LogDir:     filepath.Join(base, "logs"),
			ReportDir:  filepath.Join(base, "reports"),
			ArchiveDir: filepath.Join(base, "archive"),
		},
		Processing: config.ProcessingConfig{NumWorkers: 2, BatchSize: 10},
		Reports:    config.ReportsConfig{IncludeCSV: true, TopN: 5},
		Archive: config.ArchiveConfig{
			Enabled:      true,
			Format:       "zip",
			KeepOriginal: false,
		},
	}
}

func writeLog(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create log dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

const sampleLog = `Refreshing:
connection: <12345> <eth0>:45678 => 192.168.1.100:443 (tcp) up/down Bps: 1024/2048 process: "firefox"
connection: <12346> <eth0>:45679 => 8.8.8.8:53 (udp) up/down Bps: 64/128 process: "chrome"
Refreshing:
<NO TRAFFIC>
Refreshing:
connection: <12345> <eth0>:45678 => 192.168.1.100:443 (tcp) up/down Bps: 512/1024 process: "firefox"
`

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	writeLog(t, cfg.Paths.LogDir, "bandwhich_20240115_0930.log", sampleLog)

	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer m.Close()

	// 1. First run processes the single date.
	outcome, err := m.Run("")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome == nil {
		t.Fatal("Expected an outcome, got nil")
	}
	if len(outcome.Errors()) != 0 {
		t.Fatalf("Unexpected failures: %v", outcome.Errors())
	}

	day := model.Date{Year: 2024, Month: time.January, Day: 15}
	raw, ok := outcome.Results()[day]
	if !ok {
		t.Fatalf("Missing result for %s", day)
	}
	result := raw.(DayResult)
	if result.FilesProcessed != 1 || result.RecordCount != 3 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if result.Summary == nil || result.Summary.Overview.UniqueProcesses != 2 {
		t.Errorf("Unexpected summary: %+v", result.Summary)
	}

	// 2. Artifacts and the archive are on disk; the source log is gone.
	for _, kind := range []string{"json", "csv", "summary", "stats"} {
		path, ok := result.Artifacts[kind]
		if !ok {
			t.Fatalf("Missing %s artifact", kind)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Artifact %s not on disk: %v", kind, err)
		}
	}
	if result.ArchivePath == "" {
		t.Fatal("Expected an archive to be created")
	}
	if _, err := os.Stat(result.ArchivePath); err != nil {
		t.Errorf("Archive not on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "bandwhich_20240115_0930.log")); !os.IsNotExist(err) {
		t.Error("Source log should have been archived away")
	}
	if result.EmailSent {
		t.Error("Email should be skipped when SMTP is disabled")
	}

	// 3. A second run finds nothing left to do.
	writeLog(t, cfg.Paths.LogDir, "bandwhich_20240115_1000.log", sampleLog)
	second, err := m.Run("")
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if second != nil {
		t.Errorf("Second run should skip the already-reported date, got %+v", second.Results())
	}
}

func TestRunNoTrafficDayFails(t *testing.T) {
	cfg := testConfig(t)
	writeLog(t, cfg.Paths.LogDir, "bandwhich_20240116_0000.log", "Refreshing:\n<NO TRAFFIC>\n")

	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer m.Close()

	outcome, err := m.Run("")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	day := model.Date{Year: 2024, Month: time.January, Day: 16}
	if _, ok := outcome.Errors()[day]; !ok {
		t.Fatalf("A day with no records should fail, got results %v", outcome.Results())
	}
	// The empty day must not have been archived.
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "bandwhich_20240116_0000.log")); err != nil {
		t.Errorf("Source log should survive a failed day: %v", err)
	}
}

func TestRunWithDateFilter(t *testing.T) {
	cfg := testConfig(t)
	writeLog(t, cfg.Paths.LogDir, "bandwhich_20240115_0930.log", sampleLog)
	writeLog(t, cfg.Paths.LogDir, "bandwhich_20240220_0930.log", sampleLog)

	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer m.Close()

	outcome, err := m.Run("^202401")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(outcome.Results()) != 1 {
		t.Fatalf("Expected exactly one date, got %v", outcome.Results())
	}
	if _, ok := outcome.Results()[model.Date{Year: 2024, Month: time.January, Day: 15}]; !ok {
		t.Error("Filter should have kept 2024-01-15")
	}
}

func TestRunInvalidDateFilter(t *testing.T) {
	cfg := testConfig(t)
	writeLog(t, cfg.Paths.LogDir, "bandwhich_20240115_0930.log", sampleLog)

	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer m.Close()

	if _, err := m.Run("[unbalanced"); err == nil {
		t.Fatal("Expected an error for an invalid filter expression")
	}
}

func TestFilterDatesNamedWindows(t *testing.T) {
	today := model.DateOf(time.Now())
	old := model.DateOf(time.Now().AddDate(0, 0, -90))
	dateFiles := map[model.Date][]model.LogFileInfo{
		today: nil,
		old:   nil,
	}

	filtered, err := filterDates(dateFiles, "today")
	if err != nil {
		t.Fatalf("filterDates failed: %v", err)
	}
	if len(filtered) != 1 {
		t.Fatalf("today window kept %d dates, want 1", len(filtered))
	}
	if _, ok := filtered[today]; !ok {
		t.Error("today window should keep the current date")
	}

	filtered, err = filterDates(dateFiles, "month")
	if err != nil {
		t.Fatalf("filterDates failed: %v", err)
	}
	if _, ok := filtered[old]; ok {
		t.Error("month window should drop a 90-day-old date")
	}
}
