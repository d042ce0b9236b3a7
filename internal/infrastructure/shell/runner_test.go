package shell

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/drupal-archive/internal/domain"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Debugf(template string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(template, args...))
}

func TestRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}

	Convey("Given a shell Runner", t, func() {
		log := &recordingLogger{}
		runner := NewRunner("sh", time.Minute, log)
		ctx := context.Background()

		Convey("When the command succeeds", func() {
			out, err := runner.Run(ctx, "printf '  hello\\n\\n'; echo oops >&2", 0)

			Convey("It should return trimmed stdout only", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "hello")
			})

			Convey("It should stream every output line to the debug log", func() {
				So(log.lines, ShouldContain, "  hello")
				So(log.lines, ShouldContain, "oops")
			})
		})

		Convey("When the command exits non-zero", func() {
			_, err := runner.Run(ctx, "echo broken >&2; exit 3", 0)

			Convey("It should return an ExternalCommandError with the exit code", func() {
				var cmdErr *domain.ExternalCommandError
				So(errors.As(err, &cmdErr), ShouldBeTrue)
				So(cmdErr.ExitCode, ShouldEqual, 3)
				So(cmdErr.TimedOut, ShouldBeFalse)
				So(cmdErr.Output, ShouldContainSubstring, "broken")
			})
		})

		Convey("When the command outlives its timeout", func() {
			start := time.Now()
			_, err := runner.Run(ctx, "sleep 5; echo late", 200*time.Millisecond)

			Convey("It should kill it and report a timeout", func() {
				var cmdErr *domain.ExternalCommandError
				So(errors.As(err, &cmdErr), ShouldBeTrue)
				So(cmdErr.TimedOut, ShouldBeTrue)
				So(time.Since(start), ShouldBeLessThan, 4*time.Second)
			})
		})
	})
}

func TestQuote(t *testing.T) {
	Convey("Given shell quoting helpers", t, func() {
		Convey("Plain paths are left untouched", func() {
			So(Quote("tar", "-cf", "/tmp/site.tar"), ShouldEqual, "tar -cf /tmp/site.tar")
		})

		Convey("Glob characters are escaped", func() {
			So(Quote("--exclude=site/sites/*/files"), ShouldEqual, `--exclude=site/sites/\*/files`)
		})

		Convey("Redact hides a secret in its quoted form", func() {
			cmd := "mysqldump " + Quote("--password=s3cr;t")
			So(Redact(cmd, "s3cr;t"), ShouldNotContainSubstring, "s3cr")
		})
	})
}
