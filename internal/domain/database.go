package domain

import "context"

type Database interface {
	Dump(ctx context.Context, outputPath string) error
	Name() string
	Ping(ctx context.Context) error
}
