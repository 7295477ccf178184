package app

import (
	"context"
	"fmt"

	"edgevault/internal/adapter/archiver"
	"edgevault/internal/adapter/database"
	"edgevault/internal/adapter/notifier"
	"edgevault/internal/adapter/storage"
	"edgevault/internal/config"
	"edgevault/internal/domain"
	"edgevault/internal/infrastructure/logger"
	"edgevault/internal/infrastructure/scheduler"
	"edgevault/internal/integrations/docker"
	"edgevault/internal/usecase"
)

type App struct {
	config    *config.Config
	logger    *logger.Logger
	scheduler *scheduler.Scheduler
	backupUC  *usecase.Backup
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting edgevault for database %s (container %s)",
		cfg.Database.Name, cfg.Database.ContainerName)

	dockerClient, err := docker.NewClient()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize docker client: %w", err)
	}

	db := database.NewPostgres(dockerClient, &cfg.Database)

	st, remoteFolder, err := initializeStorage(cfg, log)
	if err != nil {
		return nil, err
	}

	var notif domain.Notifier
	if cfg.Telegram.BotToken != "" {
		notif, err = notifier.NewTelegram(&cfg.Telegram)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telegram notifier: %w", err)
		}
		log.Infof("✓ Telegram notifications enabled")
	}

	var cleanupUC *usecase.Cleanup
	if st != nil && cfg.Upload.RetentionDays > 0 {
		cleanupUC = usecase.NewCleanup(st, log, cfg.Upload.RetentionDays)
		log.Infof("✓ Remote retention enabled: %d day(s)", cfg.Upload.RetentionDays)
	}

	backupUC := usecase.NewBackup(db, archiver.NewTarGz(), st, notif, cleanupUC, log,
		usecase.BackupOptions{
			BaseDir:       cfg.App.BaseDir,
			ContainerName: cfg.Database.ContainerName,
			DBUser:        cfg.Database.User,
			RemoteFolder:  remoteFolder,
			DumpTimeout:   cfg.Database.DumpTimeout,
			UploadTimeout: cfg.Upload.UploadTimeout,
		})

	return &App{
		config:    cfg,
		logger:    log,
		scheduler: scheduler.New(),
		backupUC:  backupUC,
	}, nil
}

func initializeStorage(cfg *config.Config, log *logger.Logger) (domain.Storage, string, error) {
	switch cfg.Upload.Target {
	case config.TargetNone:
		log.Infof("No upload target configured, running in local-only mode")
		return nil, "", nil

	case config.TargetS3:
		st, err := storage.NewS3(&cfg.Upload)
		if err != nil {
			return nil, "", fmt.Errorf("failed to initialize S3: %w", err)
		}
		log.Infof("✓ AWS S3 upload enabled (bucket: %s)", cfg.Upload.Bucket)
		return st, cfg.Upload.Folder, nil

	case config.TargetGDrive:
		st, err := storage.NewGDrive(&cfg.Upload)
		if err != nil {
			return nil, "", fmt.Errorf("failed to initialize Google Drive: %w", err)
		}
		log.Infof("✓ Google Drive upload enabled")
		return st, "", nil

	case config.TargetLocal:
		st, err := storage.NewLocal(cfg.Upload.LocalPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to initialize local storage: %w", err)
		}
		log.Infof("✓ Local upload enabled (path: %s)", cfg.Upload.LocalPath)
		return st, "", nil

	default:
		return nil, "", fmt.Errorf("unknown upload target: %s", cfg.Upload.Target)
	}
}

func (a *App) Run(ctx context.Context) error {
	if a.config.App.Schedule == "" {
		return a.backupUC.Execute(ctx)
	}

	if err := a.scheduler.AddJob(a.config.App.Schedule, func(ctx context.Context) error {
		a.logger.Infof("=== Triggered scheduled backup ===")
		return a.backupUC.Execute(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule backup: %w", err)
	}

	a.scheduler.Start()
	a.logger.Infof("Scheduler started: %s", a.config.App.Schedule)

	<-ctx.Done()
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down...")
	a.scheduler.Stop()
	a.logger.Close()
}
