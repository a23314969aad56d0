package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"github.com/silver2row/ctrl/logging"
)

const diagram = `{
	"signals": ["x", "y"],
	"sources": [{"label": "x", "type": "sequence", "outputs": ["x"], "attributes": {"signal": [1, 2, 3]}}],
	"filters": [{"label": "g", "type": "gain", "inputs": ["x"], "outputs": ["y"], "attributes": {"gain": 2}}],
	"sinks": [{"label": "log", "type": "logger", "inputs": ["x", "y"], "attributes": {"rows": 100}}],
	"timers": [{"label": "stop", "type": "constant", "outputs": ["is_running"], "period": "50ms", "repeat": false, "attributes": {"value": 0}}],
	"period": "10ms"
}`

func writeDiagram(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diagram.json")
	test.That(t, os.WriteFile(path, []byte(content), 0o600), test.ShouldBeNil)
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := NewApp(&out, logging.NewTestLogger(t))
	err := app.RunContext(context.Background(), append([]string{"ctrl"}, args...))
	return out.String(), err
}

func TestValidate(t *testing.T) {
	path := writeDiagram(t, diagram)
	out, err := run(t, "validate", path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "is valid: 3 signals, 1 sources, 1 filters, 1 timers, 1 sinks")

	_, err = run(t, "validate")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "validate needs exactly one config file")

	bad := writeDiagram(t, `{"filters": [{"label": "g", "type": "gain", "inputs": ["x"], "outputs": ["y"], "attributes": {"gian": 2}}]}`)
	_, err = run(t, "validate", bad)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestInfo(t *testing.T) {
	path := writeDiagram(t, diagram)
	out, err := run(t, "info", "--section", "timers", path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "timers")
	test.That(t, out, test.ShouldContainSubstring, "stop")
	test.That(t, out, test.ShouldNotContainSubstring, "sequence")

	_, err = run(t, "info", "--section", "everything", path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown info section "everything"`)
}

func TestRun(t *testing.T) {
	path := writeDiagram(t, diagram)
	out, err := run(t, "run", "--print-logs", path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "ran ")
	test.That(t, out, test.ShouldContainSubstring, "1.0000")
	test.That(t, out, test.ShouldContainSubstring, "2.0000")

	forever := writeDiagram(t, `{"signals": ["x"], "sources": [{"label": "x", "type": "constant", "outputs": ["x"]}]}`)
	out, err = run(t, "run", "--duration", "30ms", "--info", forever)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "ran ")
	test.That(t, out, test.ShouldContainSubstring, "summary")
}

func TestRunWatch(t *testing.T) {
	path := writeDiagram(t, `{"signals": ["x"], "sources": [{"label": "x", "type": "constant", "outputs": ["x"]}]}`)
	out, err := run(t, "run", "--watch", "--duration", "30ms", path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "ran ")
}

func TestLogFile(t *testing.T) {
	path := writeDiagram(t, diagram)
	logPath := filepath.Join(t.TempDir(), "ctrl.log")
	_, err := run(t, "--debug", "--log-file", logPath, "validate", path)
	test.That(t, err, test.ShouldBeNil)

	raw, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(raw), test.ShouldContainSubstring, "added block")
}

func TestBlocks(t *testing.T) {
	out, err := run(t, "blocks")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "gain")
	test.That(t, out, test.ShouldContainSubstring, "filter, timer")

	out, err = run(t, "blocks", "sequence")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, `"signal"`)
	test.That(t, out, test.ShouldContainSubstring, `"repeat"`)

	_, err = run(t, "blocks", "pid")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown block type "pid"`)
}
