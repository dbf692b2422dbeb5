package aggregate

import (
	"math"
	"sort"
	"strconv"

	"TrafficLens/internal/model"
)

// Summarize computes the composite daily summary over one date's records.
// A day with no records yields no summary at all, which is distinct from a
// summary describing zero traffic.
func Summarize(date model.Date, records []model.TrafficRecord, topN int) *model.DailySummary {
	if len(records) == 0 {
		return nil
	}

	return &model.DailySummary{
		Date:           date.String(),
		Overview:       overview(records),
		ProcessSummary: ProcessSummary(records),
		RemoteSummary:  RemoteSummary(records),
		HourlySummary:  HourlySummary(records),
		TopItems: model.TopItems{
			TopProcessesByUpload: TopNBy(records, byProcess, func(group []model.TrafficRecord) float64 {
				return sumUpload(group)
			}, topN),
			TopProcessesByDownload: TopNBy(records, byProcess, func(group []model.TrafficRecord) float64 {
				return sumDownload(group)
			}, topN),
			TopRemotesByTraffic: TopNBy(records, byRemote, func(group []model.TrafficRecord) float64 {
				return sumUpload(group) + sumDownload(group)
			}, topN),
			MostActivePorts: TopNBy(records, byLocalPort, func(group []model.TrafficRecord) float64 {
				return float64(len(group))
			}, topN),
		},
	}
}

func byProcess(r model.TrafficRecord) string   { return r.ProcessName }
func byRemote(r model.TrafficRecord) string    { return r.RemoteAddress }
func byLocalPort(r model.TrafficRecord) string { return strconv.Itoa(int(r.LocalPort)) }

func sumUpload(group []model.TrafficRecord) float64 {
	var total float64
	for _, r := range group {
		total += float64(r.UploadBps)
	}
	return total
}

func sumDownload(group []model.TrafficRecord) float64 {
	var total float64
	for _, r := range group {
		total += float64(r.DownloadBps)
	}
	return total
}

func overview(records []model.TrafficRecord) model.Overview {
	processes := make(map[string]struct{})
	remotes := make(map[string]struct{})
	var uploadTotal, downloadTotal uint64

	start, end := records[0].Timestamp, records[0].Timestamp
	for _, r := range records {
		processes[r.ProcessName] = struct{}{}
		remotes[r.RemoteAddress] = struct{}{}
		uploadTotal += r.UploadBps
		downloadTotal += r.DownloadBps
		if r.Timestamp.Before(start) {
			start = r.Timestamp
		}
		if r.Timestamp.After(end) {
			end = r.Timestamp
		}
	}

	return model.Overview{
		TotalRecords:          len(records),
		UniqueProcesses:       len(processes),
		UniqueRemoteAddresses: len(remotes),
		TotalUploadMB:         float64(uploadTotal) / (1024 * 1024),
		TotalDownloadMB:       float64(downloadTotal) / (1024 * 1024),
		TimeSpan: model.TimeSpan{
			Start:         start,
			End:           end,
			DurationHours: end.Sub(start).Hours(),
		},
	}
}

// ProcessSummary groups records by process name. Rows are sorted by process
// name for deterministic output.
func ProcessSummary(records []model.TrafficRecord) []model.ProcessSummaryRow {
	type group struct {
		uploads   []float64
		downloads []float64
		pids      map[int]struct{}
		remotes   map[string]struct{}
	}

	groups := make(map[string]*group)
	for _, r := range records {
		g, ok := groups[r.ProcessName]
		if !ok {
			g = &group{pids: make(map[int]struct{}), remotes: make(map[string]struct{})}
			groups[r.ProcessName] = g
		}
		g.uploads = append(g.uploads, float64(r.UploadBps))
		g.downloads = append(g.downloads, float64(r.DownloadBps))
		g.pids[r.PID] = struct{}{}
		g.remotes[r.RemoteAddress] = struct{}{}
	}

	var grandUpload, grandDownload float64
	for _, g := range groups {
		grandUpload += sum(g.uploads)
		grandDownload += sum(g.downloads)
	}

	rows := make([]model.ProcessSummaryRow, 0, len(groups))
	for name, g := range groups {
		rows = append(rows, model.ProcessSummaryRow{
			ProcessName:   name,
			UploadSum:     uint64(sum(g.uploads)),
			UploadMean:    mean(g.uploads),
			UploadMax:     uint64(maxOf(g.uploads)),
			UploadStd:     sampleStd(g.uploads),
			DownloadSum:   uint64(sum(g.downloads)),
			DownloadMean:  mean(g.downloads),
			DownloadMax:   uint64(maxOf(g.downloads)),
			DownloadStd:   sampleStd(g.downloads),
			UniquePIDs:    len(g.pids),
			UniqueRemotes: len(g.remotes),
			UploadPct:     pct(sum(g.uploads), grandUpload),
			DownloadPct:   pct(sum(g.downloads), grandDownload),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ProcessName < rows[j].ProcessName })
	return rows
}

// RemoteSummary groups records by remote host. The modal protocol of a host
// is determined in a stable pass; ties go to the protocol encountered first.
func RemoteSummary(records []model.TrafficRecord) []model.RemoteSummaryRow {
	type group struct {
		uploads    []float64
		downloads  []float64
		processes  map[string]struct{}
		protoCount map[string]int
		protoOrder []string
	}

	groups := make(map[string]*group)
	for _, r := range records {
		g, ok := groups[r.RemoteAddress]
		if !ok {
			g = &group{processes: make(map[string]struct{}), protoCount: make(map[string]int)}
			groups[r.RemoteAddress] = g
		}
		g.uploads = append(g.uploads, float64(r.UploadBps))
		g.downloads = append(g.downloads, float64(r.DownloadBps))
		g.processes[r.ProcessName] = struct{}{}
		if _, seen := g.protoCount[r.Protocol]; !seen {
			g.protoOrder = append(g.protoOrder, r.Protocol)
		}
		g.protoCount[r.Protocol]++
	}

	rows := make([]model.RemoteSummaryRow, 0, len(groups))
	for addr, g := range groups {
		common := ""
		best := 0
		for _, proto := range g.protoOrder {
			if g.protoCount[proto] > best {
				best = g.protoCount[proto]
				common = proto
			}
		}

		rows = append(rows, model.RemoteSummaryRow{
			RemoteAddress:   addr,
			UploadSum:       uint64(sum(g.uploads)),
			UploadMean:      mean(g.uploads),
			UploadMax:       uint64(maxOf(g.uploads)),
			DownloadSum:     uint64(sum(g.downloads)),
			DownloadMean:    mean(g.downloads),
			DownloadMax:     uint64(maxOf(g.downloads)),
			UniqueProcesses: len(g.processes),
			CommonProtocol:  common,
			IsIP:            IsIPv4(addr),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].RemoteAddress < rows[j].RemoteAddress })
	return rows
}

// HourlySummary buckets records by hour of day, taken directly from each
// record's timestamp with no timezone conversion. Only hours with traffic
// appear, sorted ascending.
func HourlySummary(records []model.TrafficRecord) []model.HourlyBucket {
	type bucket struct {
		upload    uint64
		download  uint64
		processes map[string]struct{}
	}

	buckets := make(map[int]*bucket)
	for _, r := range records {
		hour := r.Timestamp.Hour()
		b, ok := buckets[hour]
		if !ok {
			b = &bucket{processes: make(map[string]struct{})}
			buckets[hour] = b
		}
		b.upload += r.UploadBps
		b.download += r.DownloadBps
		b.processes[r.ProcessName] = struct{}{}
	}

	rows := make([]model.HourlyBucket, 0, len(buckets))
	for hour, b := range buckets {
		rows = append(rows, model.HourlyBucket{
			Hour:            hour,
			UploadSum:       b.upload,
			DownloadSum:     b.download,
			UniqueProcesses: len(b.processes),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Hour < rows[j].Hour })
	return rows
}

// KeyFunc extracts the grouping key of a record.
type KeyFunc func(r model.TrafficRecord) string

// GroupValueFunc computes the aggregate value of one group.
type GroupValueFunc func(group []model.TrafficRecord) float64

// TopNBy returns the n groups with the largest aggregate value, descending.
// Ties keep first-seen group order, and n larger than the number of distinct
// groups returns every group.
func TopNBy(records []model.TrafficRecord, key KeyFunc, agg GroupValueFunc, n int) []model.TopNEntry {
	groups := make(map[string][]model.TrafficRecord)
	var order []string
	for _, r := range records {
		k := key(r)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	entries := make([]model.TopNEntry, 0, len(order))
	for _, k := range order {
		entries = append(entries, model.TopNEntry{Item: k, Value: agg(groups[k])})
	}

	// Stable sort keeps first-seen order among equal values.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Value > entries[j].Value })

	if n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// TopNByField is TopNBy with a named numeric field summed per group. The
// field "count" ranks groups by their record count.
func TopNByField(records []model.TrafficRecord, key KeyFunc, field string, n int) []model.TopNEntry {
	var agg GroupValueFunc
	switch field {
	case "upload_bps":
		agg = sumUpload
	case "download_bps":
		agg = sumDownload
	case "count":
		agg = func(group []model.TrafficRecord) float64 { return float64(len(group)) }
	default:
		return nil
	}
	return TopNBy(records, key, agg, n)
}

// IsIPv4 reports whether s is a strict dotted-quad IPv4 literal: four decimal
// octets, each between 0 and 255. No name resolution is performed.
func IsIPv4(s string) bool {
	part := 0
	digits := 0
	value := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
			if digits > 3 {
				return false
			}
			value = value*10 + int(c-'0')
			if value > 255 {
				return false
			}
		case c == '.':
			if digits == 0 {
				return false
			}
			part++
			if part > 3 {
				return false
			}
			digits = 0
			value = 0
		default:
			return false
		}
	}
	return part == 3 && digits > 0
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// sampleStd is the sample standard deviation (n-1 denominator). Groups with
// fewer than two samples report 0.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func pct(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}
