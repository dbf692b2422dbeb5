package model

import (
	"fmt"
	"path/filepath"
	"time"
)

// Date identifies one calendar day, as encoded in snapshot filenames.
// It is comparable and therefore usable as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the calendar date from a timestamp.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// String renders the date in the compact YYYYMMDD form used in file names.
func (d Date) String() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

// ISO renders the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// LogFileInfo describes one discovered snapshot file. It is created by the
// scanner and never mutated afterwards.
type LogFileInfo struct {
	Path        string
	Date        Date
	BaseTime    time.Time
	Size        int64
	Fingerprint [16]byte
	ModTime     time.Time
}

// Name returns the base name of the file.
func (f LogFileInfo) Name() string {
	return filepath.Base(f.Path)
}

func (f LogFileInfo) String() string {
	return fmt.Sprintf("%s (%s, %.1fKB)", f.Name(), f.Date.ISO(), float64(f.Size)/1024)
}

// TrafficRecord is one normalized per-connection observation, derived from a
// single connection line of a snapshot block. Immutable once produced.
type TrafficRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	PID            int       `json:"pid"`
	ProcessName    string    `json:"process_name"`
	LocalInterface string    `json:"local_interface"`
	LocalPort      uint16    `json:"local_port"`
	RemoteAddress  string    `json:"remote_address"`
	RemotePort     uint16    `json:"remote_port"`
	Protocol       string    `json:"protocol"`
	UploadBps      uint64    `json:"upload_bps"`
	DownloadBps    uint64    `json:"download_bps"`
	SourceFile     string    `json:"source_file"`
}
