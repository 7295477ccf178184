package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	TargetS3     = "s3"
	TargetGDrive = "gdrive"
	TargetLocal  = "local"
	TargetNone   = "none"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Telegram TelegramConfig
}

type AppConfig struct {
	LogLevel string
	LogFile  string
	BaseDir  string
	Schedule string
}

type DatabaseConfig struct {
	ContainerName string
	Name          string
	User          string
	DumpTimeout   time.Duration
}

type UploadConfig struct {
	Target string

	// AWS S3
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Folder    string

	// Google Drive
	CredentialsFile string
	FolderID        string

	// Local directory
	LocalPath string

	UploadTimeout time.Duration
	RetentionDays int
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// Load builds the configuration from the environment. A .env file in
// the working directory is loaded first when present; a JSON metadata
// file (data.json by default) may override the S3 folder prefix.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("CONTAINER_NAME", "tb-edge-db")
	v.SetDefault("DB_NAME", "tb-edge")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("METADATA_FILE", "data.json")

	baseDir := v.GetString("BACKUP_DIR")
	if baseDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve executable path: %w", err)
		}
		baseDir = filepath.Dir(exe)
	}

	folder := v.GetString("S3_FOLDER")
	if mf := v.GetString("METADATA_FILE"); mf != "" {
		metaFolder, err := readMetadataFolder(mf)
		if err != nil {
			return nil, err
		}
		if metaFolder != "" {
			folder = metaFolder
		}
	}

	target := v.GetString("UPLOAD_TARGET")
	if target == "" {
		if v.GetString("S3_BUCKET_NAME") != "" {
			target = TargetS3
		} else {
			target = TargetNone
		}
	}

	cfg := &Config{
		App: AppConfig{
			LogLevel: v.GetString("LOG_LEVEL"),
			LogFile:  v.GetString("LOG_FILE"),
			BaseDir:  baseDir,
			Schedule: v.GetString("SCHEDULE"),
		},
		Database: DatabaseConfig{
			ContainerName: v.GetString("CONTAINER_NAME"),
			Name:          v.GetString("DB_NAME"),
			User:          v.GetString("DB_USER"),
			DumpTimeout:   v.GetDuration("DUMP_TIMEOUT"),
		},
		Upload: UploadConfig{
			Target:          target,
			Region:          v.GetString("AWS_REGION"),
			Bucket:          v.GetString("S3_BUCKET_NAME"),
			AccessKey:       v.GetString("AWS_ACCESS_KEY_ID"),
			SecretKey:       v.GetString("AWS_SECRET_ACCESS_KEY"),
			Folder:          folder,
			CredentialsFile: v.GetString("GDRIVE_CREDENTIALS_FILE"),
			FolderID:        v.GetString("GDRIVE_FOLDER_ID"),
			LocalPath:       v.GetString("LOCAL_BACKUP_PATH"),
			UploadTimeout:   v.GetDuration("UPLOAD_TIMEOUT"),
			RetentionDays:   v.GetInt("RETENTION_DAYS"),
		},
		Telegram: TelegramConfig{
			BotToken: v.GetString("TELEGRAM_BOT_TOKEN"),
			ChatID:   v.GetString("TELEGRAM_CHAT_ID"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// readMetadataFolder reads the backup_folder field from the JSON
// metadata file. A missing file is not an error; a malformed one is.
func readMetadataFolder(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat metadata file: %w", err)
	}

	mv := viper.New()
	mv.SetConfigFile(path)
	mv.SetConfigType("json")
	if err := mv.ReadInConfig(); err != nil {
		return "", fmt.Errorf("failed to read metadata file %s: %w", path, err)
	}

	return mv.GetString("backup_folder"), nil
}

func (c *Config) Validate() error {
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.ContainerName == "" {
		return fmt.Errorf("CONTAINER_NAME is required")
	}

	var missing []string
	switch c.Upload.Target {
	case TargetS3:
		if c.Upload.AccessKey == "" {
			missing = append(missing, "AWS_ACCESS_KEY_ID")
		}
		if c.Upload.SecretKey == "" {
			missing = append(missing, "AWS_SECRET_ACCESS_KEY")
		}
		if c.Upload.Bucket == "" {
			missing = append(missing, "S3_BUCKET_NAME")
		}
	case TargetGDrive:
		if c.Upload.CredentialsFile == "" {
			missing = append(missing, "GDRIVE_CREDENTIALS_FILE")
		}
		if c.Upload.FolderID == "" {
			missing = append(missing, "GDRIVE_FOLDER_ID")
		}
	case TargetLocal:
		if c.Upload.LocalPath == "" {
			missing = append(missing, "LOCAL_BACKUP_PATH")
		}
	case TargetNone:
	default:
		return fmt.Errorf("unknown upload target: %s", c.Upload.Target)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	return nil
}

// UploadEnabled reports whether a remote target is configured.
func (c *Config) UploadEnabled() bool {
	return c.Upload.Target != TargetNone
}
