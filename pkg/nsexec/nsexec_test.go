package nsexec

import (
	"context"
	"strings"
	"testing"
)

func TestPrepare_NoNamespace(t *testing.T) {
	got := Prepare(LinkScope, 0, "tc qdisc add dev eth0 root netem loss 100%")
	want := "tc qdisc add dev eth0 root netem loss 100%"
	if got != want {
		t.Errorf("Prepare() = %q, want %q", got, want)
	}
}

func TestPrepare_LinkScope(t *testing.T) {
	got := Prepare(LinkScope, 100, "tc qdisc add dev eth0 root netem loss 100%")
	want := "nsenter --target 100 --net --pid tc qdisc add dev eth0 root netem loss 100%"
	if got != want {
		t.Errorf("Prepare() = %q, want %q", got, want)
	}
}

func TestPrepare_NodeScope(t *testing.T) {
	got := Prepare(NodeScope, 200, "stress-ng -l 20 -t 10 --cpu 1 --cpu-method int64longdouble &")
	if !strings.HasPrefix(got, "nsenter --target 200 --net --pid --cgroup ") {
		t.Errorf("Prepare() = %q, want node-scope prefix", got)
	}
}

// Scenario 1 / §8 namespace-prefix invariant: nsenter occurrences == 1 + count('|').
func TestPrepare_PipelineRewrite(t *testing.T) {
	got := Prepare(LinkScope, 100, "echo '{}' | tcset /dev/stdin --import-setting")
	wantPrefixCount := 1 + strings.Count("echo '{}' | tcset /dev/stdin --import-setting", "|")

	gotPrefixCount := strings.Count(got, "nsenter --target 100")
	if gotPrefixCount != wantPrefixCount {
		t.Fatalf("nsenter occurrences = %d, want %d (command: %q)", gotPrefixCount, wantPrefixCount, got)
	}
	if !strings.HasPrefix(got, "nsenter --target 100 --net --pid ") {
		t.Errorf("Prepare() = %q, want prefix at start", got)
	}
}

type fakeRunner struct {
	lastCmd string
	rc      int
	err     error
}

func (f *fakeRunner) Run(ctx context.Context, shellCmd string) (int, error) {
	f.lastCmd = shellCmd
	return f.rc, f.err
}

type fakeLogger struct {
	active   []string
	inactive []string
}

func (f *fakeLogger) SetFaultActive(tag, kind, command string, returnCode int) {
	f.active = append(f.active, tag)
}

func (f *fakeLogger) SetFaultInactive(tag string) {
	f.inactive = append(f.inactive, tag)
}

func TestExecutor_Execute_NotifiesLoggerOnActivation(t *testing.T) {
	runner := &fakeRunner{rc: 0}
	logger := &fakeLogger{}
	e := &Executor{Runner: runner, Logger: logger}

	rc := e.Execute(context.Background(), LinkScope, 100, "tc qdisc add dev eth0 root netem loss 100%", true, "fault-1", "loss")

	if rc != 0 {
		t.Errorf("Execute() = %d, want 0", rc)
	}
	if len(logger.active) != 1 || logger.active[0] != "fault-1" {
		t.Errorf("logger.active = %v, want [fault-1]", logger.active)
	}
	if !strings.HasPrefix(runner.lastCmd, "nsenter --target 100") {
		t.Errorf("runner received %q, want nsenter-prefixed command", runner.lastCmd)
	}
}

func TestExecutor_Execute_EmptyCommandStillNotifies(t *testing.T) {
	runner := &fakeRunner{}
	logger := &fakeLogger{}
	e := &Executor{Runner: runner, Logger: logger}

	rc := e.Execute(context.Background(), NodeScope, 200, "", false, "fault-2", "stress_cpu")

	if rc != 0 {
		t.Errorf("Execute() = %d, want 0", rc)
	}
	if len(logger.inactive) != 1 || logger.inactive[0] != "fault-2" {
		t.Errorf("logger.inactive = %v, want [fault-2]", logger.inactive)
	}
	if runner.lastCmd != "" {
		t.Errorf("runner should not have been invoked for empty command, got %q", runner.lastCmd)
	}
}

func TestExecutor_Execute_DryRunNeverCallsRunner(t *testing.T) {
	runner := &fakeRunner{rc: 7}
	logger := &fakeLogger{}
	e := &Executor{Runner: runner, Logger: logger, DryRun: true}

	rc := e.Execute(context.Background(), LinkScope, 100, "tc qdisc add dev eth0 root netem loss 100%", true, "fault-1", "loss")

	if rc != 0 {
		t.Errorf("Execute() in dry-run = %d, want 0", rc)
	}
	if runner.lastCmd != "" {
		t.Errorf("runner should not be invoked in dry-run, got %q", runner.lastCmd)
	}
}

func TestExecutor_Execute_NonzeroExitDoesNotFailTask(t *testing.T) {
	runner := &fakeRunner{rc: 1}
	logger := &fakeLogger{}
	e := &Executor{Runner: runner, Logger: logger}

	rc := e.Execute(context.Background(), LinkScope, 100, "tc qdisc del dev eth0 root netem loss 100%", true, "fault-1", "loss")

	if rc != 1 {
		t.Errorf("Execute() = %d, want 1 (surfaced, not swallowed)", rc)
	}
	if len(logger.active) != 1 {
		t.Errorf("expected logger notification despite nonzero exit, got %v", logger.active)
	}
}
