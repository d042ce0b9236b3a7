package drush

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"

	"github.com/semmidev/drupal-archive/internal/domain"
)

type stubRunner struct {
	output   string
	err      error
	commands []string
}

func (s *stubRunner) Run(ctx context.Context, command string, timeout time.Duration) (string, error) {
	s.commands = append(s.commands, command)
	return s.output, s.err
}

func TestChecker(t *testing.T) {
	Convey("Given a drush Checker", t, func() {
		runner := &stubRunner{}
		checker := NewChecker(runner, "drush", 30*time.Second, zap.NewNop().Sugar())
		ctx := context.Background()

		Convey("It should probe drush --version", func() {
			runner.output = "Drush Version   :  8.1.15"
			So(checker.Check(ctx), ShouldBeTrue)
			So(runner.commands, ShouldResemble, []string{"drush --version"})
		})

		Convey("Versions at or below the ceiling are accepted", func() {
			for _, out := range []string{
				" Drush Version   :  8.1.17 ",
				"Drush Version   :  7.4.0",
				"Drush Version   :  8.0.99",
				"drush version 8.1.9",
			} {
				runner.output = out
				So(checker.Verify(ctx), ShouldBeNil)
			}
		})

		Convey("Versions above the ceiling are rejected numerically", func() {
			for _, out := range []string{
				"Drush Version   :  8.1.18",
				"Drush Version   :  8.10.0",
				"Drush Commandline Tool 9.7.2",
			} {
				runner.output = out
				err := checker.Verify(ctx)
				var incompatible *domain.IncompatibleToolVersionError
				So(errors.As(err, &incompatible), ShouldBeTrue)
				So(incompatible.Ceiling, ShouldEqual, "8.1.17")
				So(checker.Check(ctx), ShouldBeFalse)
			}
		})

		Convey("Output without a recognizable version is rejected", func() {
			for _, out := range []string{"", "Drush Commandline Tool 10.6.2", "drush 18.1.2", "command not found"} {
				runner.output = out
				err := checker.Verify(ctx)
				var undetectable *domain.ToolVersionUndetectableError
				So(errors.As(err, &undetectable), ShouldBeTrue)
			}
		})

		Convey("A failing probe is reported as undetectable", func() {
			runner.err = &domain.ExternalCommandError{Command: "drush --version", ExitCode: 127}
			err := checker.Verify(ctx)

			var undetectable *domain.ToolVersionUndetectableError
			So(errors.As(err, &undetectable), ShouldBeTrue)
			var cmdErr *domain.ExternalCommandError
			So(errors.As(err, &cmdErr), ShouldBeTrue)
			So(checker.Check(ctx), ShouldBeFalse)
		})
	})
}

func TestParseVersion(t *testing.T) {
	Convey("ParseVersion compares componentwise", t, func() {
		older, err := ParseVersion("8.9.0")
		So(err, ShouldBeNil)
		newer, err := ParseVersion("8.10.0")
		So(err, ShouldBeNil)
		So(newer.Compare(older), ShouldBeGreaterThan, 0)
	})
}
