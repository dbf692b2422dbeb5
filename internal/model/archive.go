package model

import "time"

// ArchivedFile records one source file captured in an archive.
type ArchivedFile struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ArchiveInfo is the metadata produced alongside a compressed archive.
type ArchiveInfo struct {
	ArchivePath       string         `json:"archive_path"`
	Format            string         `json:"archive_format"`
	ArchiveSize       int64          `json:"archive_size"`
	Created           time.Time      `json:"creation_time"`
	OriginalFiles     []ArchivedFile `json:"original_files"`
	TotalOriginalSize int64          `json:"total_original_size"`
	CompressionRatio  float64        `json:"compression_ratio"`
}
