package monitor

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"time"

	"TrafficLens/internal/aggregate"
	"TrafficLens/internal/archive"
	"TrafficLens/internal/config"
	"TrafficLens/internal/engine"
	"TrafficLens/internal/model"
	"TrafficLens/internal/notification"
	"TrafficLens/internal/parser"
	"TrafficLens/internal/publish"
	"TrafficLens/internal/report"
	"TrafficLens/internal/scanner"
	"TrafficLens/internal/storage"
)

// DayResult is the success payload for one processed date.
type DayResult struct {
	Date           model.Date
	FilesProcessed int
	RecordCount    int
	Artifacts      map[string]string
	Summary        *model.DailySummary
	EmailSent      bool
	ArchivePath    string
}

// Monitor wires the scanning, parsing, aggregation and delivery components
// into the full daily-report pipeline.
type Monitor struct {
	cfg       *config.Config
	scanner   *scanner.Scanner
	parser    *parser.Parser
	engine    *engine.Engine
	reports   *report.Generator
	archiver  *archive.Archiver
	email     *notification.EmailSender
	store     model.RecordWriter
	publisher *publish.Publisher
}

// New builds a Monitor from the loaded configuration. Optional collaborators
// (email, ClickHouse, NATS) are only initialized when enabled.
func New(cfg *config.Config) (*Monitor, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	reports, err := report.NewGenerator(cfg.Paths.ReportDir, cfg.Reports.IncludeCSV, cfg.Reports.TopN)
	if err != nil {
		return nil, err
	}

	archiver, err := archive.New(cfg.Paths.ArchiveDir, cfg.Archive.KeepOriginal)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		cfg:      cfg,
		scanner:  scanner.New(cfg.Paths.LogDir),
		parser:   parser.New(),
		engine:   engine.New(cfg.Processing.NumWorkers),
		reports:  reports,
		archiver: archiver,
	}

	if cfg.SMTP.Enabled {
		m.email = notification.NewEmailSender(cfg.SMTP)
	}
	if cfg.ClickHouse.Enabled {
		store, err := storage.NewClickHouseWriter(cfg.ClickHouse)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize record store: %w", err)
		}
		m.store = store
	}
	if cfg.NATS.Enabled {
		pub, err := publish.NewPublisher(cfg.NATS)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize summary publisher: %w", err)
		}
		m.publisher = pub
	}

	return m, nil
}

// Close releases the optional external connections.
func (m *Monitor) Close() {
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			log.Printf("Failed to close record store: %v", err)
		}
	}
	if m.publisher != nil {
		m.publisher.Close()
	}
}

// Run executes one full pipeline pass: scan, filter, process each pending
// date across the worker pool, then write the run summary. It returns the
// per-date outcomes.
func (m *Monitor) Run(dateFilter string) (*engine.KeyedOutcome, error) {
	dateFiles, err := m.scanner.Scan()
	if err != nil {
		return nil, err
	}
	if len(dateFiles) == 0 {
		log.Println("No log files found.")
		return nil, nil
	}

	if dateFilter != "" {
		dateFiles, err = filterDates(dateFiles, dateFilter)
		if err != nil {
			return nil, err
		}
	}

	// Idempotent runs: skip dates that already have report artifacts.
	for date := range dateFiles {
		if scanner.ReportExists(date, m.cfg.Paths.ReportDir) {
			log.Printf("Reports for %s already exist, skipping", date)
			delete(dateFiles, date)
		}
	}
	if len(dateFiles) == 0 {
		log.Println("All discovered logs have been processed already.")
		return nil, nil
	}

	m.verifyFingerprints(dateFiles)

	log.Printf("Processing logs for %d day(s) with %d worker(s)",
		len(dateFiles), m.cfg.Processing.NumWorkers)
	outcome := m.engine.ProcessByKey(dateFiles, m.processDay)

	var successful, failed []model.Date
	for date := range outcome.Results() {
		successful = append(successful, date)
	}
	for date := range outcome.Errors() {
		failed = append(failed, date)
	}
	sort.Slice(successful, func(i, j int) bool { return successful[i].Before(successful[j]) })
	sort.Slice(failed, func(i, j int) bool { return failed[i].Before(failed[j]) })

	if path, err := report.WriteRunSummary(m.cfg.Paths.ReportDir, successful, failed); err != nil {
		log.Printf("Failed to write run summary: %v", err)
	} else {
		log.Printf("Run summary written: %s", path)
	}

	if m.cfg.Archive.CleanOldArchives {
		deleted := m.archiver.CleanupOldArchives(m.cfg.Archive.RetentionDays)
		log.Printf("Cleaned up %d old archive file(s)", len(deleted))
	}

	if len(failed) > 0 && m.email != nil {
		m.alertFailures(failed, outcome.Errors())
	}

	return outcome, nil
}

// alertFailures notifies the configured recipients about dates that could
// not be processed.
func (m *Monitor) alertFailures(failed []model.Date, errors map[model.Date]string) {
	var notifier model.Notifier = m.email

	body := "<h2>Log processing failures</h2><ul>"
	for _, date := range failed {
		body += fmt.Sprintf("<li>%s: %s</li>", date.ISO(), errors[date])
	}
	body += "</ul>"

	subject := fmt.Sprintf("%s - %d date(s) failed", m.cfg.SMTP.SubjectPrefix, len(failed))
	if err := notifier.Send(subject, body); err != nil {
		log.Printf("Failed to send failure alert: %v", err)
	}
}

// verifyFingerprints recomputes each file's content hash in batches and warns
// about files that changed between scanning and processing.
func (m *Monitor) verifyFingerprints(dateFiles map[model.Date][]model.LogFileInfo) {
	var items []any
	for _, files := range dateFiles {
		for _, f := range files {
			items = append(items, f)
		}
	}

	checked := m.engine.ProcessInBatches(items, func(item any) (any, error) {
		info := item.(model.LogFileInfo)
		sum, err := scanner.Fingerprint(info.Path)
		if err != nil {
			return nil, err
		}
		return sum == info.Fingerprint, nil
	}, m.cfg.Processing.BatchSize)

	for i, result := range checked {
		info := items[i].(model.LogFileInfo)
		if result == nil {
			log.Printf("Integrity check failed for %s", info.Name())
		} else if ok := result.(bool); !ok {
			log.Printf("Content of %s changed since scanning", info.Name())
		}
	}
}

// processDay runs the per-date stage pipeline: parse all files, generate
// artifacts, persist and publish when configured, email, then archive the
// sources.
func (m *Monitor) processDay(date model.Date, files []model.LogFileInfo) (any, error) {
	pl := engine.NewPipeline()

	pl.AddStage("parse", func(ctx map[string]any) (any, error) {
		var all []model.TrafficRecord
		for _, info := range files {
			records, err := m.parser.ParseFile(info)
			if err != nil {
				return nil, err
			}
			all = append(all, records...)
		}
		return all, nil
	})

	pl.AddStage("artifacts", func(ctx map[string]any) (any, error) {
		records := ctx["parse"].([]model.TrafficRecord)
		return m.reports.GenerateDaily(date, records)
	}, "parse")

	pl.AddStage("store", func(ctx map[string]any) (any, error) {
		if m.store == nil {
			return false, nil
		}
		records := ctx["parse"].([]model.TrafficRecord)
		ctxT, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.store.WriteRecords(ctxT, records); err != nil {
			return nil, err
		}
		return true, nil
	}, "parse")

	pl.AddStage("publish", func(ctx map[string]any) (any, error) {
		if m.publisher == nil {
			return false, nil
		}
		records := ctx["parse"].([]model.TrafficRecord)
		summary := aggregate.Summarize(date, records, m.cfg.Reports.TopN)
		if summary == nil {
			return false, nil
		}
		if err := m.publisher.PublishSummary(date, summary); err != nil {
			return nil, err
		}
		return true, nil
	}, "parse")

	pl.AddStage("email", func(ctx map[string]any) (any, error) {
		if m.email == nil {
			return false, nil
		}
		records := ctx["parse"].([]model.TrafficRecord)
		if len(records) == 0 {
			return false, nil
		}
		artifacts := ctx["artifacts"].(map[string]string)
		var attachments []string
		for _, path := range artifacts {
			attachments = append(attachments, path)
		}
		sort.Strings(attachments)
		if err := m.email.SendDailyReport(date, records, attachments); err != nil {
			// Delivery failure should not fail the whole day.
			log.Printf("Failed to email report for %s: %v", date, err)
			return false, nil
		}
		return true, nil
	}, "artifacts")

	pl.AddStage("archive", func(ctx map[string]any) (any, error) {
		records := ctx["parse"].([]model.TrafficRecord)
		if !m.cfg.Archive.Enabled || len(records) == 0 {
			return "", nil
		}
		var paths []string
		for _, info := range files {
			paths = append(paths, info.Path)
		}
		info, err := m.archiver.Archive(date, paths, m.cfg.Archive.Format)
		if err != nil {
			return nil, err
		}
		if info == nil {
			return "", nil
		}
		return info.ArchivePath, nil
	}, "email")

	ctx, err := pl.Run(map[string]any{})
	if err != nil {
		return nil, err
	}

	records := ctx["parse"].([]model.TrafficRecord)
	if len(records) == 0 {
		return nil, fmt.Errorf("no valid records for %s", date)
	}

	return DayResult{
		Date:           date,
		FilesProcessed: len(files),
		RecordCount:    len(records),
		Artifacts:      ctx["artifacts"].(map[string]string),
		Summary:        aggregate.Summarize(date, records, m.cfg.Reports.TopN),
		EmailSent:      ctx["email"].(bool),
		ArchivePath:    ctx["archive"].(string),
	}, nil
}

// filterDates narrows the scanned dates with either a named window (today,
// yesterday, week, month) or a regular expression matched against YYYYMMDD.
func filterDates(dateFiles map[model.Date][]model.LogFileInfo, filter string) (map[model.Date][]model.LogFileInfo, error) {
	var keep func(d model.Date) bool

	switch filter {
	case "today":
		today := model.DateOf(time.Now())
		keep = func(d model.Date) bool { return d == today }
	case "yesterday":
		yesterday := model.DateOf(time.Now().AddDate(0, 0, -1))
		keep = func(d model.Date) bool { return d == yesterday }
	case "week":
		cutoff := model.DateOf(time.Now().AddDate(0, 0, -7))
		keep = func(d model.Date) bool { return !d.Before(cutoff) }
	case "month":
		cutoff := model.DateOf(time.Now().AddDate(0, 0, -30))
		keep = func(d model.Date) bool { return !d.Before(cutoff) }
	default:
		re, err := regexp.Compile(filter)
		if err != nil {
			return nil, fmt.Errorf("invalid date filter %q: %w", filter, err)
		}
		keep = func(d model.Date) bool { return re.MatchString(d.String()) }
	}

	filtered := make(map[model.Date][]model.LogFileInfo)
	for date, files := range dateFiles {
		if keep(date) {
			filtered[date] = files
		}
	}
	return filtered, nil
}
