package logger

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given the Logger package", t, func() {
		Convey("When creating a logger with console output only", func() {
			log, err := New("info", "")

			Convey("It should create a working logger", func() {
				So(err, ShouldBeNil)
				So(log, ShouldNotBeNil)
				So(func() { log.Infof("test line") }, ShouldNotPanic)
			})
		})

		Convey("When creating a logger with a file sink", func() {
			tempDir, err := os.MkdirTemp("", "logger_test")
			So(err, ShouldBeNil)
			defer os.RemoveAll(tempDir)

			logFile := filepath.Join(tempDir, "edgevault.log")
			log, err := New("debug", logFile)

			Convey("It should write the log file", func() {
				So(err, ShouldBeNil)
				So(log, ShouldNotBeNil)

				log.Debugf("test debug line")
				log.Close()

				_, err := os.Stat(logFile)
				So(err, ShouldBeNil)
			})
		})

		Convey("When the log level is invalid", func() {
			log, err := New("nonsense", "")

			Convey("It should fall back to info level", func() {
				So(err, ShouldBeNil)
				So(log, ShouldNotBeNil)
				So(func() { log.Infof("still logs") }, ShouldNotPanic)
			})
		})

		Convey("When the log file directory cannot be created", func() {
			log, err := New("info", "/proc/nonexistent/edgevault.log")

			Convey("It should return an error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to create log directory")
				So(log, ShouldBeNil)
			})
		})

		Convey("Close should not panic", func() {
			log, err := New("info", "")
			So(err, ShouldBeNil)
			So(func() { log.Close() }, ShouldNotPanic)
		})
	})
}
