package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/drupal-archive/internal/domain"
)

func TestPublisher(t *testing.T) {
	Convey("Given a Publisher with two targets", t, func() {
		s3 := newMemStorage()
		telegram := newMemStorage()
		publisher := NewPublisher([]UploadTarget{
			{Name: "s3", Storage: s3},
			{Name: "telegram", Storage: telegram},
		}, nopLogger)

		Convey("When every upload succeeds", func() {
			err := publisher.Publish(context.Background(), "/var/backups/site.tar.gz", "site.tar.gz")

			Convey("Both targets should hold the archive", func() {
				So(err, ShouldBeNil)
				So(s3.has("site.tar.gz"), ShouldBeTrue)
				So(telegram.has("site.tar.gz"), ShouldBeTrue)
			})
		})

		Convey("When one target fails", func() {
			telegram.failWith = errors.New("bot blocked")

			err := publisher.Publish(context.Background(), "/var/backups/site.tar.gz", "site.tar.gz")

			Convey("The other upload should still happen", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "telegram: bot blocked")
				So(s3.has("site.tar.gz"), ShouldBeTrue)
			})
		})
	})
}

type fakeArchiver struct {
	jobs []domain.ArchiveJobSpec
	err  error
}

func (a *fakeArchiver) Execute(_ context.Context, job domain.ArchiveJobSpec) (string, error) {
	a.jobs = append(a.jobs, job)
	if a.err != nil {
		return "", a.err
	}
	return job.Destination, nil
}

func TestScheduledBackup(t *testing.T) {
	Convey("Given a ScheduledBackup", t, func() {
		archiver := &fakeArchiver{}
		local := newMemStorage()
		remote := newMemStorage()
		uc := NewScheduledBackup(archiver, local,
			NewPublisher([]UploadTarget{{Name: "s3", Storage: remote}}, nopLogger), nopLogger)
		uc.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 0, 0, time.Local) }

		job := domain.ScheduledDump{Name: "intranet", Source: "/srv/www/intranet", Schedule: "0 0 2 * * *"}

		Convey("When the dump succeeds", func() {
			err := uc.Execute(context.Background(), job)

			Convey("It should dump into local storage with verification, then publish", func() {
				So(err, ShouldBeNil)
				So(archiver.jobs, ShouldResemble, []domain.ArchiveJobSpec{{
					Source:      "/srv/www/intranet",
					Destination: "/var/backups/intranet_20240309_140500.tar.gz",
					Verify:      true,
				}})
				So(remote.has("intranet_20240309_140500.tar.gz"), ShouldBeTrue)
			})
		})

		Convey("When the dump fails", func() {
			archiver.err = errors.New("mysqldump missing")

			err := uc.Execute(context.Background(), job)

			Convey("Nothing should be published", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "dump intranet")
				files, _ := remote.List(context.Background())
				So(files, ShouldBeEmpty)
			})
		})

		Convey("When an upload fails", func() {
			remote.failWith = errors.New("access denied")

			err := uc.Execute(context.Background(), job)

			Convey("The scheduled dump should still succeed", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}
