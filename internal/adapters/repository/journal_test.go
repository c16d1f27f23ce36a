package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/markerrig/internal/adapters/repository"
	"github.com/okian/markerrig/internal/domain/model"
	"github.com/okian/markerrig/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func journals(t *testing.T) map[string]func() repository.Journal {
	t.Helper()
	return map[string]func() repository.Journal{
		"memory": func() repository.Journal { return repository.NewMemoryJournal() },
		"sqlite": func() repository.Journal {
			path := filepath.Join(t.TempDir(), "journal.db")
			j, err := repository.OpenSQLite(context.Background(), path, repository.WithLogger(logger.Nop()))
			if err != nil {
				t.Fatalf("open sqlite journal: %v", err)
			}
			return j
		},
	}
}

func TestJournal(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for name, open := range journals(t) {
		Convey("Given a "+name+" journal", t, func() {
			ctx := context.Background()
			j := open()
			defer func() { _ = j.Close() }()

			Convey("When markers are appended out of order", func() {
				So(j.AppendMarker(ctx, model.MarkerRecord{SessionID: "s1", Seq: 2, Name: "Open End", Code: 11, SentAt: base.Add(time.Minute)}), ShouldBeNil)
				So(j.AppendMarker(ctx, model.MarkerRecord{SessionID: "s1", Seq: 1, Name: "Open Start", Code: 10, SentAt: base}), ShouldBeNil)
				So(j.AppendMarker(ctx, model.MarkerRecord{SessionID: "s2", Seq: 1, Name: "Press", Code: 1, SentAt: base}), ShouldBeNil)

				Convey("Then they read back ordered by sequence and scoped to the session", func() {
					recs, err := j.Markers(ctx, "s1")
					So(err, ShouldBeNil)
					So(recs, ShouldHaveLength, 2)
					So(recs[0].Name, ShouldEqual, "Open Start")
					So(recs[0].Code, ShouldEqual, uint8(10))
					So(recs[0].SentAt.Equal(base), ShouldBeTrue)
					So(recs[1].Name, ShouldEqual, "Open End")
				})
			})

			Convey("When a trial is appended", func() {
				rec := model.TrialRecord{
					SessionID: "s1", Index: 0, Media: "clip01.mp4", Category: "Happy",
					Valence: 3, Arousal: 4, StartedAt: base, CompletedAt: base.Add(90 * time.Second),
				}
				So(j.AppendTrial(ctx, rec), ShouldBeNil)

				Convey("Then it reads back intact", func() {
					recs, err := j.Trials(ctx, "s1")
					So(err, ShouldBeNil)
					So(recs, ShouldHaveLength, 1)
					So(recs[0].Media, ShouldEqual, "clip01.mp4")
					So(recs[0].Category, ShouldEqual, "Happy")
					So(recs[0].Valence, ShouldEqual, 3)
					So(recs[0].Arousal, ShouldEqual, 4)
					So(recs[0].CompletedAt.Sub(recs[0].StartedAt), ShouldEqual, 90*time.Second)
				})
			})

			Convey("When an unknown session is read", func() {
				_, errM := j.Markers(ctx, "nope")
				_, errT := j.Trials(ctx, "nope")

				Convey("Then ErrNotFound is returned", func() {
					So(errors.Is(errM, repository.ErrNotFound), ShouldBeTrue)
					So(errors.Is(errT, repository.ErrNotFound), ShouldBeTrue)
				})
			})

			Convey("When a record lacks a session id", func() {
				err := j.AppendMarker(ctx, model.MarkerRecord{Name: "Press", Code: 1})
				So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
			})

			Convey("When the journal is closed", func() {
				So(j.Close(), ShouldBeNil)
				err := j.AppendMarker(ctx, model.MarkerRecord{SessionID: "s1", Seq: 1, Name: "Press", Code: 1})
				So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			})
		})
	}
}

func TestJournalCloseWhileInUse(t *testing.T) {
	for name, open := range journals(t) {
		Convey("Given a "+name+" journal shared by writers and readers", t, func() {
			j := open()
			ctx := context.Background()

			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				errs []error
			)
			keep := func(err error) {
				if err == nil {
					return
				}
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			for w := 0; w < 4; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 25; i++ {
						keep(j.AppendMarker(ctx, model.MarkerRecord{
							SessionID: "s1", Seq: int64(w*100 + i + 1), Name: "Press", Code: 1, SentAt: time.Now(),
						}))
						_, err := j.Markers(ctx, "s1")
						if !errors.Is(err, repository.ErrNotFound) {
							keep(err)
						}
					}
				}(w)
			}

			Convey("When it is closed mid-session", func() {
				So(j.Close(), ShouldBeNil)
				wg.Wait()

				Convey("Then every call either succeeds or reports ErrClosed", func() {
					for _, err := range errs {
						So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
					}
					So(j.Close(), ShouldBeNil)
				})
			})
		})
	}
}

func TestSQLiteJournalReopen(t *testing.T) {
	Convey("Given a SQLite journal on disk", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "rig.db")

		j, err := repository.OpenSQLite(ctx, path, repository.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)
		So(j.AppendMarker(ctx, model.MarkerRecord{SessionID: "s1", Seq: 1, Name: "Exp End", Code: 250, SentAt: time.Now()}), ShouldBeNil)
		So(j.Close(), ShouldBeNil)

		Convey("When it is reopened", func() {
			j2, err := repository.OpenSQLite(ctx, path, repository.WithLogger(logger.Nop()))
			So(err, ShouldBeNil)
			defer func() { _ = j2.Close() }()

			Convey("Then earlier records survive and migrations do not re-run", func() {
				recs, err := j2.Markers(ctx, "s1")
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 1)
				So(recs[0].Code, ShouldEqual, uint8(250))
			})
		})
	})

	Convey("An empty path should be rejected", t, func() {
		_, err := repository.OpenSQLite(context.Background(), "  ")
		So(err, ShouldNotBeNil)
	})
}
