package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "navsim.log")
	appender := NewFileAppender(path)

	logger := NewBlankLogger("nav")
	logger.AddAppender(appender)
	logger.Infow("leg finished", "leg", 2)
	logger.Sublogger("camera").Warn("no target")

	test.That(t, logger.Sync(), test.ShouldBeNil)
	test.That(t, appender.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, `"msg":"leg finished"`)
	test.That(t, string(contents), test.ShouldContainSubstring, `"leg":2`)
	test.That(t, string(contents), test.ShouldContainSubstring, `"logger":"nav.camera"`)
	test.That(t, string(contents), test.ShouldContainSubstring, `"level":"WARN"`)
}
