package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"TrafficLens/internal/model"
)

// Supported archive formats.
const (
	FormatZip   = "zip"
	FormatTarGz = "tar.gz"
)

// Archiver compresses a day's processed source files into a single container
// and writes a metadata file next to it.
type Archiver struct {
	archiveDir   string
	keepOriginal bool
}

// New creates an Archiver rooted at archiveDir, creating the directory if
// needed.
func New(archiveDir string, keepOriginal bool) (*Archiver, error) {
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &Archiver{archiveDir: archiveDir, keepOriginal: keepOriginal}, nil
}

// Archive compresses the given source files into logs_<YYYYMMDD>.<format>,
// writes metadata_<YYYYMMDD>.json alongside, and deletes the sources unless
// the archiver keeps originals. Files that vanished since scanning are
// skipped. Archiving nothing returns nil info and no error.
func (a *Archiver) Archive(date model.Date, files []string, format string) (*model.ArchiveInfo, error) {
	if len(files) == 0 {
		log.Printf("No files to archive for %s", date)
		return nil, nil
	}

	ds := date.String()
	archivePath := filepath.Join(a.archiveDir, fmt.Sprintf("logs_%s.%s", ds, format))

	var err error
	switch format {
	case FormatZip:
		err = createZip(archivePath, files)
	case FormatTarGz:
		err = createTarGz(archivePath, files)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", format)
	}
	if err != nil {
		return nil, err
	}

	info, err := a.buildMetadata(archivePath, format, files)
	if err != nil {
		return nil, err
	}

	metadataPath := filepath.Join(a.archiveDir, fmt.Sprintf("metadata_%s.json", ds))
	metaFile, err := os.Create(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata file: %w", err)
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	if !a.keepOriginal {
		for _, path := range files {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Printf("Failed to delete original file %s: %v", path, err)
			}
		}
	}

	log.Printf("Archived %d file(s) for %s into %s (%.1fKB)",
		len(files), ds, archivePath, float64(info.ArchiveSize)/1024)
	return info, nil
}

func (a *Archiver) buildMetadata(archivePath, format string, files []string) (*model.ArchiveInfo, error) {
	stat, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	info := &model.ArchiveInfo{
		ArchivePath: archivePath,
		Format:      format,
		ArchiveSize: stat.Size(),
		Created:     time.Now(),
	}
	for _, path := range files {
		entry := model.ArchivedFile{Path: path, Name: filepath.Base(path)}
		if fs, err := os.Stat(path); err == nil {
			entry.Size = fs.Size()
			info.TotalOriginalSize += fs.Size()
		}
		info.OriginalFiles = append(info.OriginalFiles, entry)
	}
	if info.TotalOriginalSize > 0 {
		info.CompressionRatio = (1 - float64(info.ArchiveSize)/float64(info.TotalOriginalSize)) * 100
	}
	return info, nil
}

func createZip(archivePath string, files []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", archivePath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, path := range files {
		if err := addZipEntry(zw, path); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addZipEntry(zw *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer in.Close()

	// Store entries under their base name only.
	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to add zip entry for %s: %w", path, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("failed to compress %s: %w", path, err)
	}
	return nil
}

func createTarGz(archivePath string, files []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", archivePath, err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	for _, path := range files {
		if err := addTarEntry(tw, path); err != nil {
			tw.Close()
			gz.Close()
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func addTarEntry(tw *tar.Writer, path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	hdr, err := tar.FileInfoHeader(stat, "")
	if err != nil {
		return fmt.Errorf("failed to build tar header for %s: %w", path, err)
	}
	hdr.Name = filepath.Base(path)
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", path, err)
	}

	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer in.Close()

	if _, err := io.Copy(tw, in); err != nil {
		return fmt.Errorf("failed to compress %s: %w", path, err)
	}
	return nil
}

// CleanupOldArchives deletes archives and metadata files older than the
// retention window. It returns the deleted paths.
func (a *Archiver) CleanupOldArchives(retentionDays int) []string {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(a.archiveDir)
	if err != nil {
		log.Printf("Failed to read archive directory: %v", err)
		return nil
	}

	var deleted []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "logs_") && !strings.HasPrefix(name, "metadata_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(a.archiveDir, name)
			if err := os.Remove(path); err != nil {
				log.Printf("Failed to delete old archive %s: %v", path, err)
				continue
			}
			deleted = append(deleted, path)
			log.Printf("Deleted old archive: %s", name)
		}
	}
	return deleted
}
