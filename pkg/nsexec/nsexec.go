// Package nsexec is the namespace executor: it prefixes a synthesized command with the nsenter
// fragment needed to reach a target process's namespaces, rewrites pipeline stages so every
// stage re-enters, runs the result through a shell, and notifies a logger.
package nsexec

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jhkimqd/faultd/pkg/fault"
)

// Scope selects which namespaces a prefix reaches into.
type Scope int

const (
	// LinkScope prefixes with "nsenter --target {pid} --net --pid ".
	LinkScope Scope = iota
	// NodeScope prefixes with "nsenter --target {pid} --net --pid --cgroup ".
	NodeScope
)

// Runner executes a shell command string and returns its exit status. ShellRunner (sh -c)
// satisfies this in production; tests supply a fake.
type Runner interface {
	Run(ctx context.Context, shellCmd string) (int, error)
}

// ShellRunner runs commands through "sh -c".
type ShellRunner struct {
	// Shell overrides the shell binary; defaults to "sh" when empty.
	Shell string
}

func (r ShellRunner) Run(ctx context.Context, shellCmd string) (int, error) {
	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", shellCmd)
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Executor wires a Runner and a fault.Logger together with the nsenter prefixing rule.
type Executor struct {
	Runner Runner
	Logger fault.Logger

	// DryRun synthesizes and logs commands without ever handing them to Runner; Execute always
	// reports a 0 exit code. Useful for cmd/faultctl's default invocation and for tests that
	// assert on command text without a real namespace.
	DryRun bool

	// WarnAfter is the execution-time threshold for node-scope faults above which a warning is
	// logged; a zero value disables the warning.
	WarnAfter time.Duration
}

// Prefix builds the namespace-entry fragment for scope and nsPID, or "" if nsPID is zero
// (no namespace was specified, so the command runs in the engine's own namespace).
func Prefix(scope Scope, nsPID uint32) string {
	if nsPID == 0 {
		return ""
	}
	switch scope {
	case NodeScope:
		return fmt.Sprintf("nsenter --target %d --net --pid --cgroup ", nsPID)
	default:
		return fmt.Sprintf("nsenter --target %d --net --pid ", nsPID)
	}
}

// Prepare applies the prefixing rule and the pipeline rewrite to command. Every "|" in the
// prefixed command is replaced with "| {prefix}" so each pipeline stage
// re-enters the same namespace.
func Prepare(scope Scope, nsPID uint32, command string) string {
	prefix := Prefix(scope, nsPID)
	if prefix == "" {
		return command
	}
	prefixed := prefix + command
	return strings.ReplaceAll(prefixed, "|", "| "+prefix)
}

// Execute runs one synthesized command inside the given scope/namespace and notifies
// e.Logger of the activation/deactivation transition. command == "" still generates the
// corresponding logger call with return code 0, used for degradation steps that only need a
// teardown marker.
func (e *Executor) Execute(ctx context.Context, scope Scope, nsPID uint32, command string, enable bool, tag, kind string) int {
	return e.execute(ctx, scope, nsPID, command, enable, true, tag, kind)
}

// ExecuteStep runs one command without notifying the logger — used for every command in a
// multi-command Add/Del batch except the last, so a batch spanning several tc invocations
// (e.g. a filtered link's qdisc+filter+leaf) still produces exactly one
// set_fault_active/set_fault_inactive pair.
func (e *Executor) ExecuteStep(ctx context.Context, scope Scope, nsPID uint32, command string, tag, kind string) int {
	return e.execute(ctx, scope, nsPID, command, false, false, tag, kind)
}

func (e *Executor) execute(ctx context.Context, scope Scope, nsPID uint32, command string, enable, notify bool, tag, kind string) int {
	if command == "" {
		if notify {
			e.notify(enable, tag, kind, "", 0)
		}
		return 0
	}

	prepared := Prepare(scope, nsPID, command)

	if e.DryRun {
		log.Debug().Str("tag", tag).Str("command", prepared).Msg("dry-run: command synthesized but not executed")
		if notify {
			e.notify(enable, tag, kind, prepared, 0)
		}
		return 0
	}

	start := time.Now()
	rc, err := e.Runner.Run(ctx, prepared)
	elapsed := time.Since(start)

	if err != nil {
		log.Error().Err(err).Str("tag", tag).Str("command", prepared).Msg("command execution failed")
		rc = -1
	}

	if e.WarnAfter > 0 && scope == NodeScope && elapsed > e.WarnAfter {
		log.Warn().Str("tag", tag).Dur("elapsed", elapsed).Str("command", prepared).Msg("node-scope command exceeded warning threshold")
	}

	if rc != 0 {
		log.Debug().Str("tag", tag).Int("return_code", rc).Str("command", prepared).Msg("command exited non-zero")
	}

	if notify {
		e.notify(enable, tag, kind, prepared, rc)
	}
	return rc
}

func (e *Executor) notify(enable bool, tag, kind, command string, rc int) {
	if e.Logger == nil {
		return
	}
	if enable {
		e.Logger.SetFaultActive(tag, kind, command, rc)
		return
	}
	e.Logger.SetFaultInactive(tag)
}
