package domain

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// BackupJob captures everything one backup run needs. It is built once
// per run and never mutated; every path is a pure function of the base
// directory and the database name, so repeated runs always land on the
// same local artifacts.
type BackupJob struct {
	DatabaseName  string
	ContainerName string
	DBUser        string
	Timestamp     time.Time

	WorkDir     string
	DumpPath    string
	ArchivePath string
	LockPath    string
}

func NewBackupJob(baseDir, dbName, containerName, dbUser string, now time.Time) BackupJob {
	prefix := sanitizeName(dbName)
	workDir := filepath.Join(baseDir, prefix+"_backup_tmp")

	return BackupJob{
		DatabaseName:  dbName,
		ContainerName: containerName,
		DBUser:        dbUser,
		Timestamp:     now,
		WorkDir:       workDir,
		DumpPath:      filepath.Join(workDir, dbName+".dump"),
		ArchivePath:   filepath.Join(baseDir, prefix+"_backup.tar.gz"),
		LockPath:      filepath.Join(baseDir, prefix+"_backup.lock"),
	}
}

// RemoteName returns the timestamped object key for the archive,
// prefixed with the configured folder when one is set.
func (j BackupJob) RemoteName(folder string) string {
	name := fmt.Sprintf("%s_backup_%s.tar.gz", j.DatabaseName, j.Timestamp.Format("20060102_150405"))
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

// sanitizeName makes a database name safe for local filenames.
func sanitizeName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
