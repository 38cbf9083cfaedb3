package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/pgkeeper/internal/domain"
)

func writeAged(t *testing.T, path, content string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	when := time.Now().Add(-age)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatal(err)
	}
}

func TestLocalStorage(t *testing.T) {
	Convey("Given a LocalStorage over an artifact tree", t, func() {
		tempDir := t.TempDir()
		ctx := context.Background()
		storage := NewLocal(tempDir)

		writeAged(t, filepath.Join(tempDir, "20260101", "app_20260101_030000.dump.gz"), "old", 48*time.Hour)
		writeAged(t, filepath.Join(tempDir, "20260102", "app_20260102_030000.sql"), "newer", 24*time.Hour)
		writeAged(t, filepath.Join(tempDir, "20260103", "my_db_20260103_030000.dump"), "newest", time.Hour)
		writeAged(t, filepath.Join(tempDir, "20260103", "notes.txt"), "ignored", time.Minute)

		Convey("Healthy", func() {
			So(storage.Healthy(), ShouldBeNil)
			So(NewLocal(filepath.Join(tempDir, "missing")).Healthy(), ShouldNotBeNil)
		})

		Convey("List returns artifacts only, newest first", func() {
			entries, err := storage.List(ctx)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 3)
			So(entries[0].Name, ShouldEqual, "my_db_20260103_030000.dump")
			So(entries[0].Database, ShouldEqual, "my_db")
			So(entries[0].Format, ShouldEqual, "dump")
			So(entries[1].Format, ShouldEqual, "sql")
			So(entries[2].Compressed, ShouldBeTrue)
			So(entries[2].Size, ShouldEqual, 3)
		})

		Convey("List on a missing directory fails", func() {
			_, err := NewLocal(filepath.Join(tempDir, "missing")).List(ctx)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "backup directory not found")
		})

		Convey("Page", func() {
			Convey("splits the listing into pages", func() {
				page, err := storage.Page(ctx, 2, 2)
				So(err, ShouldBeNil)
				So(page.Total, ShouldEqual, 3)
				So(page.TotalPages, ShouldEqual, 2)
				So(len(page.Items), ShouldEqual, 1)
				So(page.Items[0].Name, ShouldEqual, "app_20260101_030000.dump.gz")
			})

			Convey("clamps out of range parameters", func() {
				page, err := storage.Page(ctx, 0, 1000)
				So(err, ShouldBeNil)
				So(page.Page, ShouldEqual, 1)
				So(page.PageSize, ShouldEqual, MaxPageSize)

				beyond, err := storage.Page(ctx, 9, 10)
				So(err, ShouldBeNil)
				So(beyond.Items, ShouldBeEmpty)
			})

			Convey("is empty for a missing directory", func() {
				page, err := NewLocal(filepath.Join(tempDir, "missing")).Page(ctx, 1, 10)
				So(err, ShouldBeNil)
				So(page.Total, ShouldEqual, 0)
				So(page.Items, ShouldNotBeNil)
			})
		})

		Convey("TailLogs", func() {
			logRoot := filepath.Join(tempDir, "logs")
			var long []string
			for i := 0; i < 150; i++ {
				long = append(long, fmt.Sprintf("line %d", i))
			}
			writeAged(t, filepath.Join(logRoot, "20260101", "backup_20260101_030000.log"), strings.Join(long, "\n")+"\n", time.Hour)
			writeAged(t, filepath.Join(logRoot, "20260102", "backup_20260102_030000.log"), "a\nb\n", time.Hour)
			writeAged(t, filepath.Join(logRoot, "20260102", "other.log"), "skip\n", time.Hour)

			lines, err := NewLocal(logRoot).TailLogs(ctx, LogTailLines)
			So(err, ShouldBeNil)
			So(len(lines), ShouldEqual, 102)
			So(lines[0], ShouldEqual, "line 50")
			So(lines[99], ShouldEqual, "line 149")
			So(lines[100:], ShouldResemble, []string{"a", "b"})

			missing, err := NewLocal(filepath.Join(tempDir, "nologs")).TailLogs(ctx, LogTailLines)
			So(err, ShouldBeNil)
			So(missing, ShouldBeEmpty)
		})
	})
}

func TestArtifactNaming(t *testing.T) {
	Convey("Given artifact naming helpers", t, func() {
		when := time.Date(2026, 5, 17, 3, 0, 9, 0, time.Local)

		Convey("ParseArtifactName round trips names with underscores", func() {
			name := domain.ArtifactName("sales_eu", when, domain.FormatSQL) + domain.CompressedExtension
			db, ts, err := ParseArtifactName(name)
			So(err, ShouldBeNil)
			So(db, ShouldEqual, "sales_eu")
			So(ts.Equal(when), ShouldBeTrue)
		})

		Convey("ParseArtifactName rejects names without a timestamp", func() {
			_, _, err := ParseArtifactName("app.dump")
			So(err, ShouldNotBeNil)
			_, _, err = ParseArtifactName("app_latest_copy.dump")
			So(err, ShouldNotBeNil)
		})

		Convey("IsArtifactName recognises the backup extensions", func() {
			So(IsArtifactName("x.dump"), ShouldBeTrue)
			So(IsArtifactName("x.sql.gz"), ShouldBeTrue)
			So(IsArtifactName("x.log"), ShouldBeFalse)
			So(IsArtifactName("x.gz"), ShouldBeFalse)
		})
	})
}
