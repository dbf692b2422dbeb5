package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"TrafficLens/internal/config"
	"TrafficLens/internal/model"
	"TrafficLens/internal/monitor"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	dateFilter := flag.String("date", "", "date filter: today, yesterday, week, month, or a regexp matched against YYYYMMDD")
	flag.Parse()

	// Optional .env for secrets such as EMAIL_PASSWORD.
	godotenv.Load()

	log.Println("Starting tl-report...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	m, err := monitor.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize monitor: %v", err)
	}
	defer m.Close()

	outcome, err := m.Run(*dateFilter)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}
	if outcome == nil {
		return
	}

	var dates []model.Date
	for date := range outcome.Results() {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for _, date := range dates {
		result := outcome.Results()[date].(monitor.DayResult)
		fmt.Printf("\n%s: %d record(s) from %d file(s)\n", date.ISO(), result.RecordCount, result.FilesProcessed)
		if result.Summary != nil {
			renderProcessTable(result.Summary)
		}
	}

	for date, msg := range outcome.Errors() {
		log.Printf("Date %s failed: %s", date, msg)
	}
	if len(outcome.Errors()) > 0 {
		os.Exit(1)
	}
}

func renderProcessTable(summary *model.DailySummary) {
	t := tablewriter.NewWriter(os.Stdout)
	t.SetHeader([]string{"Process", "Upload", "Download", "Max Up", "Max Down", "PIDs", "Remotes", "Up %", "Down %"})
	t.SetAutoWrapText(false)
	t.SetRowLine(false)

	for _, row := range summary.ProcessSummary {
		t.Append([]string{
			row.ProcessName,
			fmt.Sprintf("%d", row.UploadSum),
			fmt.Sprintf("%d", row.DownloadSum),
			fmt.Sprintf("%d", row.UploadMax),
			fmt.Sprintf("%d", row.DownloadMax),
			fmt.Sprintf("%d", row.UniquePIDs),
			fmt.Sprintf("%d", row.UniqueRemotes),
			fmt.Sprintf("%.1f", row.UploadPct),
			fmt.Sprintf("%.1f", row.DownloadPct),
		})
	}
	t.Render()
}
