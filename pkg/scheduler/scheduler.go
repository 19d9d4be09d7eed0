// Package scheduler is the injection scheduler: it drives one FaultDescriptor through its
// PreWait → Active → PostWait → Done timeline, translating fault_pattern into the right
// sequence of synth.Synthesize/nsexec.Executor.Execute calls.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jhkimqd/faultd/pkg/cgroupstat"
	"github.com/jhkimqd/faultd/pkg/fault"
	"github.com/jhkimqd/faultd/pkg/metrics"
	"github.com/jhkimqd/faultd/pkg/nsexec"
	"github.com/jhkimqd/faultd/pkg/synth"
)

// Result is what Run returns once a fault task reaches a terminal state.
type Result struct {
	Tag     string
	Outcome Outcome
	Audit   []AuditEntry
}

// Scheduler runs fault tasks against a shared executor. It holds no mutable state of its own
// across tasks — all per-task bookkeeping lives in the Result returned by Run.
type Scheduler struct {
	Executor *nsexec.Executor
	Metrics  *metrics.Registry

	// CPUFraction resolves a StressCpu fault's cgroup CPU fraction for the given namespace
	// PID. Defaults to cgroupstat.ReadFraction; overridable in tests so the sizing logic can
	// be exercised without a real /proc/{pid}/cgroup and cgget.
	CPUFraction func(ctx context.Context, nsPID uint32) (cgroupstat.Fraction, error)
}

func (s *Scheduler) cpuFraction(ctx context.Context, nsPID uint32) (cgroupstat.Fraction, error) {
	if s.CPUFraction != nil {
		return s.CPUFraction(ctx, nsPID)
	}
	return cgroupstat.ReadFraction(ctx, nsPID)
}

// scope picks the nsenter scope for a descriptor's target.
func scope(target fault.Target) nsexec.Scope {
	if target.IsProcess() {
		return nsexec.NodeScope
	}
	return nsexec.LinkScope
}

// Run executes descriptor's full timeline and returns once it reaches Done or ctx is
// cancelled. Cancellation at any suspension point triggers the deactivation path before
// returning.
func (s *Scheduler) Run(ctx context.Context, d fault.Descriptor) Result {
	task := &task{
		sched: s,
		desc:  d,
		scope: scope(d.Target),
	}
	return task.run(ctx)
}

type task struct {
	sched *Scheduler
	desc  fault.Descriptor
	scope nsexec.Scope
	audit []AuditEntry
}

func (t *task) run(ctx context.Context) Result {
	if t.sched.Metrics != nil {
		t.sched.Metrics.FaultsActive.Inc()
		defer t.sched.Metrics.FaultsActive.Dec()
	}

	outcome := OutcomeDone

	if err := t.sleep(ctx, t.desc.PreInjection); err != nil {
		return t.finish(OutcomeCancelled)
	}

	probePattern := t.desc.FaultPattern
	if probePattern == fault.Burst || probePattern == fault.Degradation {
		probePattern = fault.Persistent
	}
	_, probeErr := synth.Synthesize(t.desc.Target, t.desc.FaultType, probePattern, t.desc.FaultArgs, t.desc.PatternArgs, t.desc.Filter, fault.Add)

	switch p := t.desc.FaultPattern; {
	case errors.Is(probeErr, synth.ErrUnknown):
		log.Error().Err(probeErr).Str("tag", t.desc.Tag).Msg("unknown fault type or pattern, skipping active phase")
	case p == fault.Persistent || p == fault.Random:
		outcome = t.runPersistentOrRandom(ctx)
	case p == fault.Burst:
		outcome = t.runBurst(ctx)
	case p == fault.Degradation:
		outcome = t.runDegradation(ctx)
	default:
		log.Error().Str("tag", t.desc.Tag).Str("pattern", string(t.desc.FaultPattern)).Msg("unknown fault pattern, skipping active phase")
	}

	if outcome == OutcomeDone {
		if err := t.sleep(ctx, t.desc.PostInjection); err != nil {
			outcome = OutcomeCancelled
		}
	}

	return t.finish(outcome)
}

func (t *task) finish(outcome Outcome) Result {
	if t.sched.Metrics != nil {
		t.sched.Metrics.FaultsCompletedTotal.WithLabelValues(string(outcome)).Inc()
	}
	return Result{Tag: t.desc.Tag, Outcome: outcome, Audit: t.audit}
}

// sleep is a cancellable suspension point. It returns an error when ctx is cancelled before d
// elapses.
func (t *task) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// synthesize wraps synth.Synthesize, logging rather than propagating ErrConfig/ErrUnknown:
// configuration errors log and use documented defaults (the synthesizer already applied them
// by the time it returns an error here), unknown enum values skip the step.
func (t *task) synthesize(pattern fault.Pattern, faultArgs, patternArgs []string, verb fault.Verb) ([]string, bool) {
	cmds, err := synth.Synthesize(t.desc.Target, t.desc.FaultType, pattern, faultArgs, patternArgs, t.desc.Filter, verb)
	if err != nil {
		log.Error().Err(err).Str("tag", t.desc.Tag).Str("verb", string(verb)).Msg("command synthesis error")
	}
	return cmds, err == nil
}

// execute runs every command in cmds, recording an audit entry and metrics for each, and logs
// activation/deactivation exactly once for the whole batch (the executor's enable=true/false
// logger call corresponds to the fault as a whole, not to each individual tc invocation).
func (t *task) execute(ctx context.Context, cmds []string, verb fault.Verb, enable bool) {
	action := string(verb)
	kind := string(t.desc.FaultType)

	if len(cmds) == 0 {
		t.sched.Executor.Execute(ctx, t.scope, t.desc.Target.NSPID(), "", enable, t.desc.Tag, kind)
		return
	}

	for i, cmd := range cmds {
		// Only the last command in a multi-command batch (e.g. filtered-link's
		// qdisc+filter+leaf) carries the activation/deactivation logger transition; earlier
		// commands are intermediate setup steps for the same activation.
		var rc int
		start := time.Now()
		if i == len(cmds)-1 {
			rc = t.sched.Executor.Execute(ctx, t.scope, t.desc.Target.NSPID(), cmd, enable, t.desc.Tag, kind)
		} else {
			rc = t.sched.Executor.ExecuteStep(ctx, t.scope, t.desc.Target.NSPID(), cmd, t.desc.Tag, kind)
		}
		t.audit = append(t.audit, newAuditEntry(action, cmd, rc))
		if t.sched.Metrics != nil {
			t.sched.Metrics.CommandsExecutedTotal.WithLabelValues(action).Inc()
			t.sched.Metrics.CommandDurationSeconds.Observe(time.Since(start).Seconds())
			if rc != 0 {
				t.sched.Metrics.CommandExitNonzeroTotal.Inc()
			}
		}
	}
}

// runPersistentOrRandom runs a single Add, holds for the injection window, then Del. StressCpu
// is cgroup-sized from fault_args[0] (the requested in-cgroup percent) and the descriptor's
// injection duration, the same resolution runBurst/runDegradation apply to their own steps —
// per spec §4.3.3/§7(c), cgroup-discovery failure aborts the fault before activation.
func (t *task) runPersistentOrRandom(ctx context.Context) Outcome {
	fraction, err := t.stressCPUSizing(ctx)
	if err != nil {
		log.Error().Err(err).Str("tag", t.desc.Tag).Msg("cgroup discovery failed, aborting before activation")
		return OutcomeDone
	}

	faultArgs := t.desc.FaultArgs
	if t.desc.FaultType == fault.StressCpu {
		faultArgs = stressCPUArgs(t.desc.Arg(0, "100"), int(t.desc.Injection.Seconds()), fraction)
	}

	add, _ := t.synthesize(t.desc.FaultPattern, faultArgs, t.desc.PatternArgs, fault.Add)
	t.execute(ctx, add, fault.Add, true)

	if err := t.sleep(ctx, t.desc.Injection); err != nil {
		t.teardownPersistentDetached(faultArgs)
		return OutcomeCancelled
	}

	t.teardownPersistent(ctx, faultArgs)
	return OutcomeDone
}

func (t *task) teardownPersistent(ctx context.Context, faultArgs []string) {
	del, _ := t.synthesize(t.desc.FaultPattern, faultArgs, t.desc.PatternArgs, fault.Del)
	t.execute(ctx, del, fault.Del, false)
}

// teardownPersistentDetached runs teardownPersistent on a fresh, not-yet-cancelled context —
// used once the task's own ctx has already been cancelled, since exec.CommandContext on an
// already-cancelled context returns immediately with context.Canceled and never runs the
// command, silently skipping the Del sequence spec §5 requires on every cancellation path.
func (t *task) teardownPersistentDetached(faultArgs []string) {
	ctx, cancel := detachedContext()
	defer cancel()
	t.teardownPersistent(ctx, faultArgs)
}

// stressCPUSizing resolves the cgroup CPU fraction once per task, for every StressCpu step
// (persistent, burst, or degradation) to share.
func (t *task) stressCPUSizing(ctx context.Context) (cgroupstat.Fraction, error) {
	if t.desc.FaultType != fault.StressCpu {
		return 1, nil
	}
	return t.sched.cpuFraction(ctx, t.desc.Target.NSPID())
}

// teardownTimeout bounds how long a best-effort teardown on a detached context may run: long
// enough for a real tc/ifconfig invocation, short enough not to hang a cancelled task forever.
const teardownTimeout = 5 * time.Second

// detachedContext returns a fresh, not-yet-cancelled context (with its cancel func) for
// best-effort teardown after the task's own context has already been cancelled.
func detachedContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), teardownTimeout)
}
