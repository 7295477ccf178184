package usecase

import (
	"context"
	"fmt"
	"os"
	"time"

	"edgevault/internal/domain"
)

// Backup drives one run of the backup lifecycle: clear stale state,
// dump, archive, upload, finalize. Steps run strictly in order and the
// first failure aborts the run.
type Backup struct {
	db       domain.Database
	archiver domain.Archiver
	storage  domain.Storage  // nil means local-only mode
	notifier domain.Notifier // nil means notifications disabled
	cleanup  *Cleanup        // nil means no remote retention
	logger   Logger
	opts     BackupOptions
}

type BackupOptions struct {
	BaseDir       string
	ContainerName string
	DBUser        string
	RemoteFolder  string
	DumpTimeout   time.Duration
	UploadTimeout time.Duration
}

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

func NewBackup(
	db domain.Database,
	archiver domain.Archiver,
	storage domain.Storage,
	notifier domain.Notifier,
	cleanup *Cleanup,
	logger Logger,
	opts BackupOptions,
) *Backup {
	return &Backup{
		db:       db,
		archiver: archiver,
		storage:  storage,
		notifier: notifier,
		cleanup:  cleanup,
		logger:   logger,
		opts:     opts,
	}
}

func (uc *Backup) Execute(ctx context.Context) error {
	start := time.Now()
	job := domain.NewBackupJob(uc.opts.BaseDir, uc.db.Name(), uc.opts.ContainerName, uc.opts.DBUser, start)

	uc.logger.Infof("[%s] Starting backup...", job.DatabaseName)

	unlock, err := acquireLock(job.LockPath)
	if err != nil {
		return fmt.Errorf("another backup appears to be running (lock %s): %w", job.LockPath, err)
	}
	defer unlock()

	if err := uc.run(ctx, job); err != nil {
		uc.logger.Errorf("[%s] Backup failed: %v", job.DatabaseName, err)
		uc.notify(ctx, fmt.Sprintf("Backup failed for %s: %v", job.DatabaseName, err))
		return err
	}

	uc.logger.Infof("[%s] Backup completed in %s",
		job.DatabaseName, time.Since(start).Round(time.Second))
	uc.notify(ctx, fmt.Sprintf("Backup completed for %s at %s",
		job.DatabaseName, job.Timestamp.Format("2006-01-02 15:04:05")))

	return nil
}

func (uc *Backup) run(ctx context.Context, job domain.BackupJob) error {
	uc.logger.Infof("[%s] Clearing stale state...", job.DatabaseName)
	if err := removeStale(job); err != nil {
		return fmt.Errorf("clear stale state: %w", err)
	}

	if err := os.MkdirAll(job.WorkDir, 0755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	uc.logger.Infof("[%s] Dumping database from container %s...",
		job.DatabaseName, job.ContainerName)

	dumpCtx := ctx
	if uc.opts.DumpTimeout > 0 {
		var cancel context.CancelFunc
		dumpCtx, cancel = context.WithTimeout(ctx, uc.opts.DumpTimeout)
		defer cancel()
	}
	if err := uc.db.Ping(dumpCtx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := uc.db.Dump(dumpCtx, job.DumpPath); err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	uc.logger.Infof("[%s] Archiving to %s...", job.DatabaseName, job.ArchivePath)
	if err := uc.archiver.Archive(job.WorkDir, job.ArchivePath); err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	if err := os.RemoveAll(job.WorkDir); err != nil {
		return fmt.Errorf("remove work dir: %w", err)
	}

	if uc.storage == nil {
		uc.logger.Infof("[%s] No upload target configured, archive kept at %s",
			job.DatabaseName, job.ArchivePath)
		return nil
	}

	remoteName := job.RemoteName(uc.opts.RemoteFolder)
	uc.logger.Infof("[%s] Uploading archive as %s...", job.DatabaseName, remoteName)

	uploadCtx := ctx
	if uc.opts.UploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, uc.opts.UploadTimeout)
		defer cancel()
	}
	if err := uc.storage.Upload(uploadCtx, job.ArchivePath, remoteName); err != nil {
		uc.logger.Errorf("[%s] Upload failed, archive preserved at %s",
			job.DatabaseName, job.ArchivePath)
		return fmt.Errorf("upload: %w", err)
	}

	if err := os.Remove(job.ArchivePath); err != nil {
		return fmt.Errorf("remove archive after upload: %w", err)
	}

	if uc.cleanup != nil {
		if err := uc.cleanup.Execute(ctx); err != nil {
			uc.logger.Warnf("[%s] Retention cleanup failed: %v", job.DatabaseName, err)
		}
	}

	return nil
}

func (uc *Backup) notify(ctx context.Context, message string) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.Notify(ctx, message); err != nil {
		uc.logger.Warnf("Failed to send notification: %v", err)
	}
}

// removeStale deletes the leftover archive and work directory from a
// prior run. Absence is fine; a deletion failure is not, because the
// run must not proceed over inconsistent state.
func removeStale(job domain.BackupJob) error {
	if err := os.Remove(job.ArchivePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.RemoveAll(job.WorkDir)
}

// acquireLock guards the shared workDir/archive paths against a
// concurrent invocation. The lock file is created exclusively and
// holds the owning pid.
func acquireLock(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()

	return func() { _ = os.Remove(path) }, nil
}
