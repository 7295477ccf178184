package usecase

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"edgevault/internal/domain"
)

// Cleanup prunes remote archives older than the retention window.
type Cleanup struct {
	storage       domain.Storage
	logger        Logger
	retentionDays int
}

func NewCleanup(storage domain.Storage, logger Logger, retentionDays int) *Cleanup {
	return &Cleanup{
		storage:       storage,
		logger:        logger,
		retentionDays: retentionDays,
	}
}

func (uc *Cleanup) Execute(ctx context.Context) error {
	uc.logger.Infof("Starting retention cleanup, keeping %d day(s)", uc.retentionDays)

	cutoff := time.Now().AddDate(0, 0, -uc.retentionDays)

	files, err := uc.storage.GetOldFiles(ctx, cutoff)
	if err != nil {
		files, err = uc.fallbackListFiles(ctx, cutoff)
		if err != nil {
			return err
		}
	}

	deleted := 0
	for _, filename := range files {
		uc.logger.Infof("Deleting old backup: %s", filename)

		if err := uc.storage.Delete(ctx, filename); err != nil {
			uc.logger.Errorf("Failed to delete %s: %v", filename, err)
		} else {
			deleted++
		}
	}

	uc.logger.Infof("Retention cleanup done, deleted %d old backup(s)", deleted)
	return nil
}

// fallbackListFiles lists everything and filters on the timestamp
// embedded in the archive name, for storages whose age listing fails.
func (uc *Cleanup) fallbackListFiles(ctx context.Context, cutoff time.Time) ([]string, error) {
	files, err := uc.storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	oldFiles := make([]string, 0)
	for _, filename := range files {
		timestamp, err := extractTimestamp(filename)
		if err != nil {
			uc.logger.Warnf("Could not parse timestamp from %s: %v", filename, err)
			continue
		}

		if timestamp.Before(cutoff) {
			oldFiles = append(oldFiles, filename)
		}
	}

	return oldFiles, nil
}

var timestampPattern = regexp.MustCompile(`(\d{8})_(\d{6})`)

func extractTimestamp(filename string) (time.Time, error) {
	matches := timestampPattern.FindStringSubmatch(filename)
	if len(matches) < 3 {
		return time.Time{}, fmt.Errorf("invalid filename format: no timestamp found")
	}

	return time.Parse("20060102_150405", matches[1]+"_"+matches[2])
}
