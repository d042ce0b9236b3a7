package domain

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDatabaseCredentials(t *testing.T) {
	Convey("Given database credentials", t, func() {
		Convey("NormalizeDriver maps the mysqli alias", func() {
			So(NormalizeDriver("mysqli"), ShouldEqual, "mysql")
			So(NormalizeDriver(" MySQLi "), ShouldEqual, "mysql")
			So(NormalizeDriver("pgsql"), ShouldEqual, "pgsql")
		})

		Convey("When every required field is set", func() {
			creds := DatabaseCredentials{Driver: "mysql", Username: "u", Password: "p", Host: "h", Database: "d"}

			Convey("It should validate", func() {
				So(creds.MissingFields(), ShouldBeEmpty)
				So(creds.Validate(), ShouldBeNil)
			})
		})

		Convey("When several fields are empty", func() {
			creds := DatabaseCredentials{Driver: "mysql", Host: "h"}

			Convey("It should report all of them at once", func() {
				err := creds.Validate()
				var missing *MissingCredentialFieldError
				So(errors.As(err, &missing), ShouldBeTrue)
				So(missing.Fields, ShouldResemble, []string{"username", "password", "database"})
				So(err.Error(), ShouldContainSubstring, "username, password, database")
			})
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given the error taxonomy", t, func() {
		Convey("SettingsNotFoundError unwraps to the underlying config error", func() {
			cause := &ConfigNotFoundError{Path: "/site/sites/default/settings.php", Reason: "no $databases"}
			err := error(&SettingsNotFoundError{Searched: []string{"a"}, Err: cause})

			var cfgErr *ConfigNotFoundError
			So(errors.As(err, &cfgErr), ShouldBeTrue)
			So(cfgErr.Path, ShouldEqual, "/site/sites/default/settings.php")
		})

		Convey("ExternalCommandError keeps only the tail of the output", func() {
			err := &ExternalCommandError{Command: "tar", ExitCode: 2, Output: "1\n2\n3\n4\n5\n6\n7"}
			So(err.Error(), ShouldContainSubstring, "exit code 2")
			So(err.Error(), ShouldEndWith, "3\n4\n5\n6\n7")
		})

		Convey("ExternalCommandError reports timeouts", func() {
			err := &ExternalCommandError{Command: "sleep 10", ExitCode: -1, TimedOut: true}
			So(err.Error(), ShouldEqual, `command "sleep 10" timed out`)
		})
	})
}
