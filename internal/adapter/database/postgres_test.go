package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"edgevault/internal/config"
	"edgevault/internal/integrations/docker"
)

type fakeDocker struct {
	running    bool
	runningErr error
	execErr    error
	output     []byte
	lastExec   docker.ExecParams
}

func (f *fakeDocker) ContainerRunning(ctx context.Context, name string) (bool, error) {
	return f.running, f.runningErr
}

func (f *fakeDocker) Exec(ctx context.Context, params docker.ExecParams) error {
	f.lastExec = params
	if f.execErr != nil {
		return f.execErr
	}
	if params.Stdout != nil {
		if _, err := params.Stdout.Write(f.output); err != nil {
			return err
		}
	}
	return nil
}

func TestPostgresDatabase(t *testing.T) {
	Convey("Given a PostgresDatabase backed by a fake docker client", t, func() {
		cfg := &config.DatabaseConfig{
			ContainerName: "tb-edge-db",
			Name:          "tb-edge",
			User:          "postgres",
		}
		tempDir, err := os.MkdirTemp("", "postgres_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		dumpPath := filepath.Join(tempDir, "tb-edge.dump")
		ctx := context.Background()

		Convey("Dump method", func() {
			Convey("When the exec succeeds with output", func() {
				dc := &fakeDocker{running: true, output: []byte("PGDMP custom format bytes")}
				db := NewPostgres(dc, cfg)

				err := db.Dump(ctx, dumpPath)

				Convey("It should write the dump file", func() {
					So(err, ShouldBeNil)
					content, err := os.ReadFile(dumpPath)
					So(err, ShouldBeNil)
					So(string(content), ShouldEqual, "PGDMP custom format bytes")
				})

				Convey("It should invoke pg_dump with the configured identity", func() {
					So(err, ShouldBeNil)
					So(dc.lastExec.ContainerName, ShouldEqual, "tb-edge-db")
					So(dc.lastExec.Cmd, ShouldResemble, []string{"pg_dump", "-U", "postgres", "-F", "c", "tb-edge"})
				})
			})

			Convey("When the exec fails", func() {
				dc := &fakeDocker{running: true, execErr: fmt.Errorf("exec exited with code 1: role does not exist")}
				db := NewPostgres(dc, cfg)

				err := db.Dump(ctx, dumpPath)

				Convey("It should surface the failure", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "pg_dump in container tb-edge-db failed")
				})
			})

			Convey("When the exec produces no output", func() {
				dc := &fakeDocker{running: true}
				db := NewPostgres(dc, cfg)

				err := db.Dump(ctx, dumpPath)

				Convey("It should reject the empty dump", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "empty dump")
				})
			})
		})

		Convey("Ping method", func() {
			Convey("When the container is running", func() {
				db := NewPostgres(&fakeDocker{running: true}, cfg)
				So(db.Ping(ctx), ShouldBeNil)
			})

			Convey("When the container is stopped or absent", func() {
				db := NewPostgres(&fakeDocker{running: false}, cfg)
				err := db.Ping(ctx)
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "not running")
			})
		})

		Convey("Name method", func() {
			db := NewPostgres(&fakeDocker{}, cfg)
			So(db.Name(), ShouldEqual, "tb-edge")
		})
	})
}
