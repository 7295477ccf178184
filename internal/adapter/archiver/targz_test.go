package archiver

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// readEntries unpacks an archive's entry names and regular-file
// contents for assertions.
func readEntries(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	entries := make(map[string]string)
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		var content string
		if header.Typeflag == tar.TypeReg {
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, err
			}
			content = string(data)
		}
		entries[header.Name] = content
	}
	return entries, nil
}

func TestTarGzArchiver(t *testing.T) {
	Convey("Given a TarGzArchiver", t, func() {
		archiver := NewTarGz()

		tempDir, err := os.MkdirTemp("", "targz_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		Convey("When archiving a directory with a dump file", func() {
			workDir := filepath.Join(tempDir, "tb_edge_backup_tmp")
			So(os.Mkdir(workDir, 0755), ShouldBeNil)
			So(os.WriteFile(filepath.Join(workDir, "tb-edge.dump"), []byte("dump bytes"), 0644), ShouldBeNil)

			archivePath := filepath.Join(tempDir, "tb_edge_backup.tar.gz")
			err := archiver.Archive(workDir, archivePath)

			Convey("It should produce a valid gzip tar stream", func() {
				So(err, ShouldBeNil)
				entries, err := readEntries(archivePath)
				So(err, ShouldBeNil)
				So(entries["tb_edge_backup_tmp/tb-edge.dump"], ShouldEqual, "dump bytes")
			})

			Convey("It should root every entry at the directory basename", func() {
				So(err, ShouldBeNil)
				entries, err := readEntries(archivePath)
				So(err, ShouldBeNil)

				topLevel := make(map[string]bool)
				for name := range entries {
					So(filepath.IsAbs(name), ShouldBeFalse)
					topLevel[strings.Split(name, "/")[0]] = true
				}
				So(len(topLevel), ShouldEqual, 1)
				So(topLevel["tb_edge_backup_tmp"], ShouldBeTrue)
			})
		})

		Convey("When archiving nested directories", func() {
			workDir := filepath.Join(tempDir, "nested_src")
			So(os.MkdirAll(filepath.Join(workDir, "sub"), 0755), ShouldBeNil)
			So(os.WriteFile(filepath.Join(workDir, "sub", "inner.txt"), []byte("inner"), 0644), ShouldBeNil)

			archivePath := filepath.Join(tempDir, "nested.tar.gz")
			err := archiver.Archive(workDir, archivePath)

			Convey("It should preserve the relative layout", func() {
				So(err, ShouldBeNil)
				entries, err := readEntries(archivePath)
				So(err, ShouldBeNil)
				So(entries["nested_src/sub/inner.txt"], ShouldEqual, "inner")
			})
		})

		Convey("When the source directory does not exist", func() {
			err := archiver.Archive(filepath.Join(tempDir, "missing"), filepath.Join(tempDir, "out.tar.gz"))

			Convey("It should return an error", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the destination path is invalid", func() {
			workDir := filepath.Join(tempDir, "src")
			So(os.Mkdir(workDir, 0755), ShouldBeNil)

			err := archiver.Archive(workDir, "/invalid/path/out.tar.gz")

			Convey("It should return an error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to create archive file")
			})
		})
	})
}
