package domain

type Archiver interface {
	Archive(sourceDir, destPath string) error
}
