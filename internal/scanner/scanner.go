package scanner

import (
	"crypto/md5"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"TrafficLens/internal/model"
)

// Snapshot file names look like bandwhich_20240115_0930.log. The encoded
// date and time must decode to a real calendar date and time of day.
var filenamePattern = regexp.MustCompile(`^bandwhich_(\d{8})_(\d{4})\.log$`)

// Scanner discovers snapshot files in a log directory and groups them by
// calendar date.
type Scanner struct {
	logDir string
}

// New creates a Scanner rooted at the given log directory.
func New(logDir string) *Scanner {
	return &Scanner{logDir: logDir}
}

// Scan walks the log directory (non-recursively) and returns the discovered
// files grouped by date, each group sorted ascending by base time. Files with
// names that do not match the snapshot grammar are silently excluded.
func (s *Scanner) Scan() (map[model.Date][]model.LogFileInfo, error) {
	entries, err := os.ReadDir(s.logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read log directory %s: %w", s.logDir, err)
	}

	dateFiles := make(map[model.Date][]model.LogFileInfo)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, ok := s.AnalyzeFile(filepath.Join(s.logDir, entry.Name()))
		if !ok {
			continue
		}
		dateFiles[info.Date] = append(dateFiles[info.Date], info)
	}

	for date := range dateFiles {
		files := dateFiles[date]
		sort.Slice(files, func(i, j int) bool {
			return files[i].BaseTime.Before(files[j].BaseTime)
		})
	}

	log.Printf("Scan complete: found logs for %d day(s) in %s", len(dateFiles), s.logDir)
	return dateFiles, nil
}

// AnalyzeFile inspects a single candidate file. It returns ok=false when the
// name does not match the snapshot grammar, the encoded date or time is not a
// real one, or the file cannot be read.
func (s *Scanner) AnalyzeFile(path string) (model.LogFileInfo, bool) {
	base := filepath.Base(path)
	m := filenamePattern.FindStringSubmatch(base)
	if m == nil {
		return model.LogFileInfo{}, false
	}

	// time.Parse rejects impossible dates (month 13, Feb 30) and times.
	baseTime, err := time.Parse("200601021504", m[1]+m[2])
	if err != nil {
		return model.LogFileInfo{}, false
	}

	stat, err := os.Stat(path)
	if err != nil {
		log.Printf("Failed to stat %s: %v", path, err)
		return model.LogFileInfo{}, false
	}

	sum, err := Fingerprint(path)
	if err != nil {
		log.Printf("Failed to fingerprint %s: %v", path, err)
		return model.LogFileInfo{}, false
	}

	return model.LogFileInfo{
		Path:        path,
		Date:        model.DateOf(baseTime),
		BaseTime:    baseTime,
		Size:        stat.Size(),
		Fingerprint: sum,
		ModTime:     stat.ModTime(),
	}, true
}

// Fingerprint computes the MD5 digest of a file's content. The digest is used
// for duplicate and integrity checks, never for parsing.
func Fingerprint(path string) ([16]byte, error) {
	var sum [16]byte

	f, err := os.Open(path)
	if err != nil {
		return sum, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// ReportExists reports whether any report or summary artifact for the given
// date is already present in reportDir. It looks at file names only.
func ReportExists(date model.Date, reportDir string) bool {
	entries, err := os.ReadDir(reportDir)
	if err != nil {
		return false
	}

	ds := date.String()
	for _, entry := range entries {
		name := entry.Name()
		if !strings.Contains(name, ds) {
			continue
		}
		if strings.HasPrefix(name, "report_") || strings.HasPrefix(name, "summary_") {
			return true
		}
	}
	return false
}
