package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/database"
)

const backupPrefix = "tazkiyah-backup-"

// BackupService snapshots the engine's databases, archives them and
// uploads the archive offsite. The ledger database is the one that
// matters most: it is the system of record for purification results,
// overrides and the audit trail.
type BackupService struct {
	databases map[string]*database.DB
	storage   *S3Client
	dataDir   string
	retain    int
	log       zerolog.Logger
}

// BackupManifest describes the contents of one backup archive
type BackupManifest struct {
	Timestamp time.Time          `json:"timestamp"`
	Databases []DatabaseSnapshot `json:"databases"`
}

// DatabaseSnapshot describes one database file inside the archive
type DatabaseSnapshot struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// NewBackupService creates a new backup service
func NewBackupService(databases map[string]*database.DB, storage *S3Client, dataDir string, retain int, log zerolog.Logger) *BackupService {
	if retain < 1 {
		retain = 1
	}
	return &BackupService{
		databases: databases,
		storage:   storage,
		dataDir:   dataDir,
		retain:    retain,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUpload snapshots every database, archives the snapshots with
// a manifest and uploads the archive, then prunes old backups.
func (s *BackupService) CreateAndUpload(ctx context.Context) error {
	start := time.Now()
	s.log.Info().Msg("Starting backup")

	stagingDir := filepath.Join(s.dataDir, "backup-staging")
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	manifest := BackupManifest{Timestamp: start.UTC()}
	var files []string

	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		snapPath := filepath.Join(stagingDir, name+".db")
		if err := s.databases[name].Snapshot(snapPath); err != nil {
			return fmt.Errorf("failed to snapshot %s: %w", name, err)
		}

		info, err := os.Stat(snapPath)
		if err != nil {
			return fmt.Errorf("failed to stat snapshot %s: %w", name, err)
		}
		checksum, err := fileChecksum(snapPath)
		if err != nil {
			return fmt.Errorf("failed to checksum snapshot %s: %w", name, err)
		}

		manifest.Databases = append(manifest.Databases, DatabaseSnapshot{
			Name:      name,
			Filename:  name + ".db",
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
		files = append(files, snapPath)
	}

	manifestPath := filepath.Join(stagingDir, "manifest.json")
	if err := writeManifest(manifestPath, manifest); err != nil {
		return err
	}
	files = append(files, manifestPath)

	archiveName := backupPrefix + start.UTC().Format("2006-01-02-150405") + ".tar.gz"
	archivePath := filepath.Join(stagingDir, archiveName)
	if err := createArchive(archivePath, files); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	if err := s.storage.Upload(ctx, archiveName, archive); err != nil {
		return err
	}

	s.log.Info().
		Str("archive", archiveName).
		Dur("elapsed", time.Since(start)).
		Msg("Backup uploaded")

	return s.Prune(ctx)
}

// Prune deletes backups beyond the retention count, oldest first
func (s *BackupService) Prune(ctx context.Context) error {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(backups) <= s.retain {
		return nil
	}

	// ListBackups sorts newest first; everything past the retention
	// window goes.
	for _, old := range backups[s.retain:] {
		if err := s.storage.Delete(ctx, old.Key); err != nil {
			return err
		}
		s.log.Info().Str("archive", old.Key).Msg("Pruned old backup")
	}
	return nil
}

// ListBackups returns stored backups, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]ObjectInfo, error) {
	objects, err := s.storage.List(ctx, backupPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
	return objects, nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeManifest(path string, manifest BackupManifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func createArchive(archivePath string, files []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	for _, file := range files {
		if strings.HasSuffix(file, ".tar.gz") {
			continue
		}
		if err := addToArchive(tw, file); err != nil {
			return err
		}
	}
	return nil
}

func addToArchive(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
