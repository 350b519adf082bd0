package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const archivePrefix = "forecaster-results-"

// ArchiveService packages the results database into a tar.gz archive and
// uploads it to S3-compatible storage after training runs.
type ArchiveService struct {
	client  *S3Client
	dataDir string
	log     zerolog.Logger
}

// ArchiveMetadata describes one uploaded archive
type ArchiveMetadata struct {
	Timestamp time.Time    `json:"timestamp"`
	Version   string       `json:"version"`
	Files     []FileRecord `json:"files"`
}

// FileRecord describes a single file inside an archive
type FileRecord struct {
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// ArchiveInfo summarizes a stored archive
type ArchiveInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// NewArchiveService creates a new archive service
func NewArchiveService(client *S3Client, dataDir string, log zerolog.Logger) *ArchiveService {
	return &ArchiveService{
		client:  client,
		dataDir: dataDir,
		log:     log.With().Str("service", "archive").Logger(),
	}
}

// CreateAndUpload archives the given database files and uploads the result.
// The staging directory is removed when the upload finishes.
func (s *ArchiveService) CreateAndUpload(ctx context.Context, dbPaths []string) error {
	s.log.Info().Msg("Starting results archive")
	startTime := time.Now()

	stagingDir := filepath.Join(s.dataDir, "archive-staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	metadata := ArchiveMetadata{
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Files:     make([]FileRecord, 0, len(dbPaths)),
	}

	var files []string
	for _, src := range dbPaths {
		name := filepath.Base(src)
		dst := filepath.Join(stagingDir, name)
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("failed to stage %s: %w", name, err)
		}

		info, err := os.Stat(dst)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", name, err)
		}
		checksum, err := calculateChecksum(dst)
		if err != nil {
			return fmt.Errorf("failed to calculate checksum for %s: %w", name, err)
		}

		metadata.Files = append(metadata.Files, FileRecord{
			Filename:  name,
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
		files = append(files, name)
	}

	metadataPath := filepath.Join(stagingDir, "archive-metadata.json")
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	files = append(files, "archive-metadata.json")

	archiveName := fmt.Sprintf("%s%s.tar.gz", archivePrefix, time.Now().Format("2006-01-02-150405"))
	archivePath := filepath.Join(stagingDir, archiveName)
	if err := createArchive(archivePath, stagingDir, files); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	if err := s.client.Upload(ctx, archiveName, archiveFile); err != nil {
		return fmt.Errorf("failed to upload archive: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Msg("Results archive completed")
	return nil
}

// ListArchives lists stored archives, newest last
func (s *ArchiveService) ListArchives(ctx context.Context) ([]ArchiveInfo, error) {
	objects, err := s.client.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	now := time.Now()
	archives := make([]ArchiveInfo, 0, len(objects))
	for _, obj := range objects {
		archives = append(archives, ArchiveInfo{
			Filename:  obj.Key,
			Timestamp: obj.LastModified,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(obj.LastModified).Hours()),
		})
	}
	return archives, nil
}

// RotateOldArchives deletes archives older than retentionDays, always keeping
// the newest three.
func (s *ArchiveService) RotateOldArchives(ctx context.Context, retentionDays int) error {
	archives, err := s.ListArchives(ctx)
	if err != nil {
		return err
	}

	const minToKeep = 3
	if len(archives) <= minToKeep {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, a := range archives {
		if len(archives)-deleted <= minToKeep {
			break
		}
		if a.Timestamp.After(cutoff) {
			continue
		}
		if err := s.client.Delete(ctx, a.Filename); err != nil {
			s.log.Error().Err(err).Str("archive", a.Filename).Msg("Failed to delete old archive")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Msg("Rotated old archives")
	}
	return nil
}

func writeMetadata(path string, metadata ArchiveMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

func createArchive(archivePath, sourceDir string, filenames []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	for _, name := range filenames {
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, name), name); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
	}
	return nil
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    0644,
		ModTime: info.ModTime(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tarWriter, file)
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}
