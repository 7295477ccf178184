package database

import (
	"context"
	"fmt"
	"os"

	"edgevault/internal/config"
	"edgevault/internal/integrations/docker"
)

// PostgresDatabase dumps a Postgres database that runs inside a Docker
// container, equivalent to `docker exec <container> pg_dump -F c`.
type PostgresDatabase struct {
	docker docker.Docker
	config *config.DatabaseConfig
}

func NewPostgres(dc docker.Docker, cfg *config.DatabaseConfig) *PostgresDatabase {
	return &PostgresDatabase{docker: dc, config: cfg}
}

func (p *PostgresDatabase) Dump(ctx context.Context, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}

	err = p.docker.Exec(ctx, docker.ExecParams{
		ContainerName: p.config.ContainerName,
		Cmd: []string{
			"pg_dump",
			"-U", p.config.User,
			"-F", "c",
			p.config.Name,
		},
		Stdout: out,
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("pg_dump in container %s failed: %w", p.config.ContainerName, err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("failed to stat dump file: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("pg_dump produced an empty dump for %s", p.config.Name)
	}

	return nil
}

func (p *PostgresDatabase) Name() string {
	return p.config.Name
}

// Ping verifies the database container exists and is running.
func (p *PostgresDatabase) Ping(ctx context.Context) error {
	running, err := p.docker.ContainerRunning(ctx, p.config.ContainerName)
	if err != nil {
		return err
	}
	if !running {
		return fmt.Errorf("container %s is not running", p.config.ContainerName)
	}
	return nil
}
