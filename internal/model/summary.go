package model

import "time"

// ProcessSummaryRow aggregates one process name's traffic for a day.
type ProcessSummaryRow struct {
	ProcessName   string  `json:"process_name"`
	UploadSum     uint64  `json:"upload_sum"`
	UploadMean    float64 `json:"upload_mean"`
	UploadMax     uint64  `json:"upload_max"`
	UploadStd     float64 `json:"upload_std"`
	DownloadSum   uint64  `json:"download_sum"`
	DownloadMean  float64 `json:"download_mean"`
	DownloadMax   uint64  `json:"download_max"`
	DownloadStd   float64 `json:"download_std"`
	UniquePIDs    int     `json:"unique_pids"`
	UniqueRemotes int     `json:"unique_remotes"`
	UploadPct     float64 `json:"upload_pct"`
	DownloadPct   float64 `json:"download_pct"`
}

// RemoteSummaryRow aggregates one remote host's traffic for a day.
type RemoteSummaryRow struct {
	RemoteAddress   string  `json:"remote_address"`
	UploadSum       uint64  `json:"upload_sum"`
	UploadMean      float64 `json:"upload_mean"`
	UploadMax       uint64  `json:"upload_max"`
	DownloadSum     uint64  `json:"download_sum"`
	DownloadMean    float64 `json:"download_mean"`
	DownloadMax     uint64  `json:"download_max"`
	UniqueProcesses int     `json:"unique_processes"`
	CommonProtocol  string  `json:"common_protocol"`
	IsIP            bool    `json:"is_ip"`
}

// HourlyBucket sums traffic for one hour of the day (0-23).
type HourlyBucket struct {
	Hour            int    `json:"hour"`
	UploadSum       uint64 `json:"upload_sum"`
	DownloadSum     uint64 `json:"download_sum"`
	UniqueProcesses int    `json:"unique_processes"`
}

// TopNEntry is one ranked group in a top-N view.
type TopNEntry struct {
	Item  string  `json:"item"`
	Value float64 `json:"value"`
}

// TimeSpan describes the observed time range of a day's records.
type TimeSpan struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DurationHours float64   `json:"duration_hours"`
}

// Overview carries the headline counters of a daily summary.
type Overview struct {
	TotalRecords          int      `json:"total_records"`
	UniqueProcesses       int      `json:"unique_processes"`
	UniqueRemoteAddresses int      `json:"unique_remote_addresses"`
	TotalUploadMB         float64  `json:"total_upload_mb"`
	TotalDownloadMB       float64  `json:"total_download_mb"`
	TimeSpan              TimeSpan `json:"time_span"`
}

// TopItems bundles the ranked views of a daily summary.
type TopItems struct {
	TopProcessesByUpload   []TopNEntry `json:"top_processes_by_upload"`
	TopProcessesByDownload []TopNEntry `json:"top_processes_by_download"`
	TopRemotesByTraffic    []TopNEntry `json:"top_remotes_by_traffic"`
	MostActivePorts        []TopNEntry `json:"most_active_ports"`
}

// DailySummary is the composite aggregation output for one day.
type DailySummary struct {
	Date           string              `json:"date"`
	Overview       Overview            `json:"overview"`
	ProcessSummary []ProcessSummaryRow `json:"process_summary"`
	RemoteSummary  []RemoteSummaryRow  `json:"remote_summary"`
	HourlySummary  []HourlyBucket      `json:"time_summary"`
	TopItems       TopItems            `json:"top_items"`
}

// Percentiles holds the quantile cut points of a bandwidth distribution.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// DirectionStats describes one traffic direction across a day's records.
type DirectionStats struct {
	TotalBps    uint64      `json:"total_bps"`
	AverageBps  float64     `json:"average_bps"`
	MaxBps      uint64      `json:"max_bps"`
	Percentiles Percentiles `json:"percentiles"`
}

// TrafficStats is the extended statistics artifact written next to the
// daily summary.
type TrafficStats struct {
	Date                   string         `json:"date"`
	Upload                 DirectionStats `json:"upload"`
	Download               DirectionStats `json:"download"`
	TotalConnections       int            `json:"total_connections"`
	UniquePorts            int            `json:"unique_ports"`
	ProtocolDistribution   map[string]int `json:"protocol_distribution"`
	PortDistribution       map[string]int `json:"port_distribution"`
	MostConnectionsProcess string         `json:"process_with_most_connections"`
	MostTrafficProcess     string         `json:"process_with_most_traffic"`
}
