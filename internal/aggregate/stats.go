package aggregate

import (
	"sort"
	"strconv"

	"TrafficLens/internal/model"
)

// Stats computes the extended statistics artifact for one day's records.
// Returns nil when there are no records.
func Stats(date model.Date, records []model.TrafficRecord) *model.TrafficStats {
	if len(records) == 0 {
		return nil
	}

	uploads := make([]float64, len(records))
	downloads := make([]float64, len(records))
	ports := make(map[uint16]struct{})
	portDist := make(map[string]int)
	protoDist := make(map[string]int)
	connByProcess := make(map[string]int)
	uploadByProcess := make(map[string]uint64)

	var uploadTotal, downloadTotal, uploadMax, downloadMax uint64
	for i, r := range records {
		uploads[i] = float64(r.UploadBps)
		downloads[i] = float64(r.DownloadBps)
		uploadTotal += r.UploadBps
		downloadTotal += r.DownloadBps
		if r.UploadBps > uploadMax {
			uploadMax = r.UploadBps
		}
		if r.DownloadBps > downloadMax {
			downloadMax = r.DownloadBps
		}
		ports[r.LocalPort] = struct{}{}
		portDist[strconv.Itoa(int(r.LocalPort))]++
		protoDist[r.Protocol]++
		connByProcess[r.ProcessName]++
		uploadByProcess[r.ProcessName] += r.UploadBps
	}

	return &model.TrafficStats{
		Date: date.String(),
		Upload: model.DirectionStats{
			TotalBps:    uploadTotal,
			AverageBps:  mean(uploads),
			MaxBps:      uploadMax,
			Percentiles: percentiles(uploads),
		},
		Download: model.DirectionStats{
			TotalBps:    downloadTotal,
			AverageBps:  mean(downloads),
			MaxBps:      downloadMax,
			Percentiles: percentiles(downloads),
		},
		TotalConnections:       len(records),
		UniquePorts:            len(ports),
		ProtocolDistribution:   protoDist,
		PortDistribution:       portDist,
		MostConnectionsProcess: argmaxInt(connByProcess),
		MostTrafficProcess:     argmaxUint(uploadByProcess),
	}
}

func percentiles(values []float64) model.Percentiles {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return model.Percentiles{
		P50: quantile(sorted, 0.50),
		P90: quantile(sorted, 0.90),
		P95: quantile(sorted, 0.95),
		P99: quantile(sorted, 0.99),
	}
}

// quantile interpolates linearly between the two nearest ranks of an already
// sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lower := int(pos)
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

// argmaxInt picks the key with the largest count; ties resolve to the
// lexicographically smallest key to keep output deterministic.
func argmaxInt(counts map[string]int) string {
	best := ""
	bestCount := -1
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best = k
			bestCount = c
		}
	}
	return best
}

func argmaxUint(totals map[string]uint64) string {
	best := ""
	var bestTotal uint64
	first := true
	for k, v := range totals {
		if first || v > bestTotal || (v == bestTotal && k < best) {
			best = k
			bestTotal = v
			first = false
		}
	}
	return best
}
