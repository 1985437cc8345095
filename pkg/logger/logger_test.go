package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("Init should make Get usable", func() {
			So(Init(), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
			So(Sync(), ShouldBeNil)
		})

		Convey("Init should reject an unknown level", func() {
			err := Init(WithLevel("loud"))
			So(errors.Is(err, ErrUnknownLevel), ShouldBeTrue)
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		So(SetLevelString("info"), ShouldBeNil)
		var buf bytes.Buffer
		l := New(WithWriter(&buf), WithFormat("json"), WithCaller(false))
		ctx := context.Background()

		Convey("Named loggers carry the component field", func() {
			l.Named("stream").Info(ctx, "lane opened", String("session_id", "s1"), Int("seq", 3))

			var rec map[string]any
			So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
			So(rec["msg"], ShouldEqual, "lane opened")
			So(rec["component"], ShouldEqual, "stream")
			So(rec["session_id"], ShouldEqual, "s1")
			So(rec["seq"], ShouldEqual, float64(3))
		})

		Convey("With fields are attached to every record", func() {
			w := l.With(String("athlete_id", "a1"))
			w.Warn(ctx, "first")
			w.Warn(ctx, "second")
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			So(len(lines), ShouldEqual, 2)
			for _, line := range lines {
				So(line, ShouldContainSubstring, `"athlete_id":"a1"`)
			}
		})

		Convey("Records below the level are dropped", func() {
			l.Debug(ctx, "hidden")
			So(buf.Len(), ShouldEqual, 0)

			So(SetLevelString("debug"), ShouldBeNil)
			l.Debug(ctx, "visible")
			So(buf.String(), ShouldContainSubstring, "visible")
			So(SetLevelString("info"), ShouldBeNil)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("SetLevelString accepts the documented names", t, func() {
		for _, lvl := range []string{"debug", "INFO", " warn ", "warning", "error", ""} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		So(SetLevelString("info"), ShouldBeNil)
	})
}
