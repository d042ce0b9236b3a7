package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const sampleConfig = `
app:
  log_level: info
  temp_dir: /var/tmp/drupal-archive
commands:
  drush: /usr/local/bin/drush
timeouts:
  transfer: 45m
backup:
  local_path: /srv/backups
  retention_days: 14
  upload_targets:
    - type: s3
      enabled: true
      region: eu-west-1
      bucket: site-archives
      prefix: drupal
    - type: telegram
      enabled: false
schedules:
  - name: intranet
    source: /var/www/intranet
    cron: "0 30 2 * * *"
    enabled: true
  - name: legacy
    source: /var/www/legacy
    cron: "0 0 4 * * 0"
    use_drush: true
    enabled: false
`

func writeConfig(dir, content string) string {
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		panic(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("Given a config file", t, func() {
		dir := t.TempDir()

		Convey("When loading a complete file", func() {
			cfg, err := Load(writeConfig(dir, sampleConfig))

			Convey("It should merge the file over the defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.App.Name, ShouldEqual, "drupal-archive")
				So(cfg.App.LogLevel, ShouldEqual, "info")
				So(cfg.App.TempDir, ShouldEqual, "/var/tmp/drupal-archive")
				So(cfg.Commands.Drush, ShouldEqual, "/usr/local/bin/drush")
				So(cfg.Commands.MySQLDump, ShouldEqual, "mysqldump")
				So(cfg.Timeouts.Command, ShouldEqual, 300*time.Second)
				So(cfg.Timeouts.Transfer, ShouldEqual, 45*time.Minute)
				So(cfg.Timeouts.Probe, ShouldEqual, 30*time.Second)
				So(cfg.Backup.RetentionDays, ShouldEqual, 14)
				So(cfg.Backup.CleanupSchedule, ShouldEqual, DefaultCleanupCron)
			})

			Convey("It should filter enabled targets and schedules", func() {
				So(cfg.GetEnabledUploadTargets(), ShouldHaveLength, 1)
				So(cfg.GetEnabledUploadTargets()[0].Bucket, ShouldEqual, "site-archives")
				So(cfg.GetEnabledSchedules(), ShouldHaveLength, 1)
				So(cfg.GetEnabledSchedules()[0].Name, ShouldEqual, "intranet")
				So(cfg.ValidateSchedules(), ShouldBeNil)
			})
		})

		Convey("When an environment variable overrides a key", func() {
			os.Setenv("DRUPAL_ARCHIVE_TIMEOUTS_COMMAND", "10s")
			os.Setenv("DRUPAL_ARCHIVE_APP_LOG_LEVEL", "debug")
			defer os.Unsetenv("DRUPAL_ARCHIVE_TIMEOUTS_COMMAND")
			defer os.Unsetenv("DRUPAL_ARCHIVE_APP_LOG_LEVEL")

			cfg, err := Load(writeConfig(dir, sampleConfig))

			Convey("The environment should win", func() {
				So(err, ShouldBeNil)
				So(cfg.Timeouts.Command, ShouldEqual, 10*time.Second)
				So(cfg.App.LogLevel, ShouldEqual, "debug")
			})
		})

		Convey("When the explicit file does not exist", func() {
			_, err := Load(filepath.Join(dir, "missing.yaml"))

			Convey("It should fail", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to read config")
			})
		})

		Convey("When no file is given and none exists", func() {
			t.Chdir(dir)

			cfg, err := Load("")

			Convey("It should fall back to defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.App.LogLevel, ShouldEqual, "warn")
				So(cfg.Timeouts.Transfer, ShouldEqual, 600*time.Second)
				So(cfg.Schedules, ShouldBeEmpty)
			})
		})

		Convey("When an enabled target is incomplete", func() {
			_, err := Load(writeConfig(dir, `
backup:
  upload_targets:
    - type: gdrive
      enabled: true
      folder_id: abc
`))

			Convey("It should reject the configuration", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "upload_targets[0]")
			})
		})

		Convey("When a timeout is not positive", func() {
			_, err := Load(writeConfig(dir, "timeouts:\n  probe: 0s\n"))

			Convey("It should reject the configuration", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "timeouts.probe")
			})
		})
	})
}

func TestValidateSchedules(t *testing.T) {
	Convey("Given a config with schedules", t, func() {
		cfg := &Config{
			Backup: BackupConfig{LocalPath: "/srv/backups", CleanupSchedule: DefaultCleanupCron},
			Schedules: []ScheduleConfig{
				{Name: "intranet", Source: "/var/www/intranet", Cron: "0 0 2 * * *", Enabled: true},
			},
		}

		Convey("A valid configuration should pass", func() {
			So(cfg.ValidateSchedules(), ShouldBeNil)
		})

		Convey("A five-field cron should be rejected", func() {
			cfg.Schedules[0].Cron = "0 2 * * *"
			So(cfg.ValidateSchedules(), ShouldNotBeNil)
		})

		Convey("Duplicate names should be rejected", func() {
			cfg.Schedules = append(cfg.Schedules, cfg.Schedules[0])
			So(cfg.ValidateSchedules().Error(), ShouldContainSubstring, "duplicate name")
		})

		Convey("No enabled schedule should be rejected", func() {
			cfg.Schedules[0].Enabled = false
			So(cfg.ValidateSchedules(), ShouldNotBeNil)
		})

		Convey("A missing source should be rejected", func() {
			cfg.Schedules[0].Source = ""
			So(cfg.ValidateSchedules().Error(), ShouldContainSubstring, "source is required")
		})
	})
}
