package logging

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestObservedLevels(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.SetLevel(INFO)

	logger.Debug("hidden")
	logger.Infow("route computed", "intercept", 25.7, "normal")
	logger.Warnf("leg %d timed out", 2)

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	entries := logs.All()
	test.That(t, entries[0].Message, test.ShouldEqual, "route computed")
	test.That(t, entries[0].ContextMap()["intercept"], test.ShouldEqual, 25.7)
	test.That(t, entries[0].ContextMap()["normal"], test.ShouldNotBeNil)
	test.That(t, entries[1].Level, test.ShouldEqual, zapcore.WarnLevel)
	test.That(t, entries[1].Message, test.ShouldEqual, "leg 2 timed out")
}

func TestDebugModeContext(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.SetLevel(ERROR)

	ctx := context.Background()
	logger.CDebug(ctx, "dropped")
	test.That(t, logs.Len(), test.ShouldEqual, 0)

	ctx = EnableDebugMode(ctx, "")
	test.That(t, IsDebugMode(ctx), test.ShouldBeTrue)
	test.That(t, GetName(ctx), test.ShouldHaveLength, 6)
	logger.CDebugf(ctx, "tick %d", 3)
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].Message, test.ShouldEqual, "tick 3")
}

func TestSublogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("drive").Sublogger("heading")
	sub.Info("hold")
	test.That(t, logs.All()[0].LoggerName, test.ShouldEqual, "drive.heading")

	named := NewBlankLogger("navsim").Sublogger("route")
	named.AddAppender(NewTestAppender(t))
	named.Info("ok")
	test.That(t, named.Sync(), test.ShouldBeNil)
}

func TestLevelFromString(t *testing.T) {
	level, err := LevelFromString("Warning")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
	test.That(t, level.AsZap(), test.ShouldEqual, zapcore.WarnLevel)

	_, err = LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}
