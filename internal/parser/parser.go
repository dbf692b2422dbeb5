package parser

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"TrafficLens/internal/model"
)

// Each snapshot block starts with this separator line.
const refreshSeparator = "Refreshing:"

// A block carrying this sentinel body consumes a block index but yields no records.
const noTrafficSentinel = "<NO TRAFFIC>"

var (
	processPattern    = regexp.MustCompile(`^process:\s*<(\d+)>\s*"([^"]+)"\s*up/down Bps:\s*(\d+)/(\d+)\s*connections:\s*(\d+)`)
	connectionPattern = regexp.MustCompile(`^connection:\s*<(\d+)>\s*<([^>]+)>:(\d+)\s*=>\s*([^:\s]+):(\d+)\s*\((tcp|udp)\)\s*up/down Bps:\s*(\d+)/(\d+)\s*process:\s*"([^"]+)"`)
	remotePattern     = regexp.MustCompile(`^remote_address:\s*<(\d+)>\s*(\S+)\s*up/down Bps:\s*(\d+)/(\d+)\s*connections:\s*(\d+)`)
)

// processEntry is the parsed form of a process line. Process lines are used
// for structural validation only; they never emit a traffic record.
type processEntry struct {
	PID         int
	Name        string
	UploadBps   uint64
	DownloadBps uint64
	Connections int
}

// remoteEntry is the parsed form of a remote_address line, also
// validation-only. Per-host aggregates are not reconciled against the
// connection lines.
type remoteEntry struct {
	PID         int
	Host        string
	UploadBps   uint64
	DownloadBps uint64
	Connections int
}

// Parser converts one snapshot file's byte stream into an ordered sequence of
// traffic records.
type Parser struct{}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

// ParseFile parses a snapshot file into traffic records, in block order then
// in-block line order. Connection lines within block i are stamped with the
// file's base time plus i seconds. An empty file yields no records; the only
// error case is a failure to open the file.
func (p *Parser) ParseFile(info model.LogFileInfo) ([]model.TrafficRecord, error) {
	f, err := os.Open(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", info.Path, err)
	}
	defer f.Close()

	records := p.Parse(f, info.BaseTime, info.Name())
	log.Printf("Parsed %s: %d record(s)", info.Name(), len(records))
	return records, nil
}

// Parse consumes a snapshot byte stream. Blocks are numbered in scan order;
// <NO TRAFFIC> and whitespace-only blocks consume an index without
// contributing records.
func (p *Parser) Parse(r io.Reader, baseTime time.Time, sourceFile string) []model.TrafficRecord {
	records := []model.TrafficRecord{}

	bs := newBlockScanner(r)
	for i := 0; ; i++ {
		block, ok := bs.Next()
		if !ok {
			break
		}

		trimmed := strings.TrimSpace(block)
		if trimmed == "" || trimmed == noTrafficSentinel {
			continue
		}

		timestamp := baseTime.Add(time.Duration(i) * time.Second)
		records = append(records, p.parseBlock(block, timestamp, sourceFile)...)
	}

	return records
}

// parseBlock scans one block line by line. Connection lines are the sole
// source of records; process and remote_address lines are matched for
// validation and otherwise ignored, and lines failing their grammar are
// skipped without aborting the block.
func (p *Parser) parseBlock(block string, timestamp time.Time, sourceFile string) []model.TrafficRecord {
	var records []model.TrafficRecord

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "process:"):
			parseProcessLine(line)
		case strings.HasPrefix(line, "connection:"):
			if rec, ok := parseConnectionLine(line, timestamp, sourceFile); ok {
				records = append(records, rec)
			}
		case strings.HasPrefix(line, "remote_address:"):
			parseRemoteLine(line)
		}
	}

	return records
}

// parseConnectionLine decodes a single connection line into a traffic record.
// The remote host is either a dotted-quad IPv4 literal or a domain-like token,
// accepted verbatim and never resolved.
func parseConnectionLine(line string, timestamp time.Time, sourceFile string) (model.TrafficRecord, bool) {
	m := connectionPattern.FindStringSubmatch(line)
	if m == nil {
		return model.TrafficRecord{}, false
	}

	pid, err := strconv.Atoi(m[1])
	if err != nil {
		return model.TrafficRecord{}, false
	}
	localPort, err := strconv.ParseUint(m[3], 10, 16)
	if err != nil {
		return model.TrafficRecord{}, false
	}
	remotePort, err := strconv.ParseUint(m[5], 10, 16)
	if err != nil {
		return model.TrafficRecord{}, false
	}
	upload, err := strconv.ParseUint(m[7], 10, 64)
	if err != nil {
		return model.TrafficRecord{}, false
	}
	download, err := strconv.ParseUint(m[8], 10, 64)
	if err != nil {
		return model.TrafficRecord{}, false
	}

	return model.TrafficRecord{
		Timestamp:      timestamp,
		PID:            pid,
		ProcessName:    m[9],
		LocalInterface: m[2],
		LocalPort:      uint16(localPort),
		RemoteAddress:  m[4],
		RemotePort:     uint16(remotePort),
		Protocol:       m[6],
		UploadBps:      upload,
		DownloadBps:    download,
		SourceFile:     sourceFile,
	}, true
}

func parseProcessLine(line string) (processEntry, bool) {
	m := processPattern.FindStringSubmatch(line)
	if m == nil {
		return processEntry{}, false
	}

	pid, _ := strconv.Atoi(m[1])
	upload, _ := strconv.ParseUint(m[3], 10, 64)
	download, _ := strconv.ParseUint(m[4], 10, 64)
	conns, _ := strconv.Atoi(m[5])

	return processEntry{
		PID:         pid,
		Name:        m[2],
		UploadBps:   upload,
		DownloadBps: download,
		Connections: conns,
	}, true
}

func parseRemoteLine(line string) (remoteEntry, bool) {
	m := remotePattern.FindStringSubmatch(line)
	if m == nil {
		return remoteEntry{}, false
	}

	pid, _ := strconv.Atoi(m[1])
	upload, _ := strconv.ParseUint(m[3], 10, 64)
	download, _ := strconv.ParseUint(m[4], 10, 64)
	conns, _ := strconv.Atoi(m[5])

	return remoteEntry{
		PID:         pid,
		Host:        m[2],
		UploadBps:   upload,
		DownloadBps: download,
		Connections: conns,
	}, true
}

// blockScanner yields the successive snapshot blocks of a stream. It is a
// single forward pass; Next returns ok=false once the stream is exhausted.
type blockScanner struct {
	sc   *bufio.Scanner
	done bool
}

func newBlockScanner(r io.Reader) *blockScanner {
	return &blockScanner{sc: bufio.NewScanner(r)}
}

// Next returns the body of the next block. A separator line always starts a
// new block; a separator with no accumulated lines before it (such as one on
// the first line of the file) does not produce an empty block.
func (bs *blockScanner) Next() (string, bool) {
	if bs.done {
		return "", false
	}

	var b strings.Builder
	lines := 0
	for bs.sc.Scan() {
		line := bs.sc.Text()
		if strings.HasPrefix(line, refreshSeparator) {
			if lines > 0 {
				return b.String(), true
			}
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
		lines++
	}

	bs.done = true
	if lines > 0 {
		return b.String(), true
	}
	return "", false
}
