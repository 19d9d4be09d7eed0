package scheduler

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jhkimqd/faultd/pkg/cgroupstat"
	"github.com/jhkimqd/faultd/pkg/fault"
)

const (
	defaultBurstDurationMS = 1000
	defaultBurstPeriodMS   = 2000
)

// runBurst alternates on/off windows for the duration of the injection period. Each cycle
// re-synthesizes with pattern=Persistent — the root qdisc is added and torn down every cycle
// rather than toggling only the leaf netem/tbf, so a filtered burst's classifiers stay in
// sync with the on/off state.
func (t *task) runBurst(ctx context.Context) Outcome {
	durationMS, periodMS := burstTiming(t.desc.PatternArgs)

	if t.desc.FaultType == fault.StressCpu && durationMS < 1000 {
		durationMS = 1000
	}

	onDur := time.Duration(durationMS) * time.Millisecond
	offDur := time.Duration(periodMS-durationMS) * time.Millisecond
	periodDur := onDur + offDur

	var n int
	if periodDur > 0 {
		n = int(t.desc.Injection / periodDur)
	}

	fraction, err := t.stressCPUSizing(ctx)
	if err != nil {
		log.Error().Err(err).Str("tag", t.desc.Tag).Msg("cgroup discovery failed, aborting before activation")
		return OutcomeDone
	}

	faultArgs := t.desc.FaultArgs
	if t.desc.FaultType == fault.StressCpu {
		faultArgs = stressCPUArgs(t.desc.Arg(0, "100"), durationMS/1000, fraction)
	}

	for i := 0; i < n; i++ {
		add, _ := t.synthesize(fault.Persistent, faultArgs, t.desc.PatternArgs, fault.Add)
		t.execute(ctx, add, fault.Add, true)

		if err := t.sleep(ctx, onDur); err != nil {
			t.teardownBurstStepDetached(faultArgs)
			return OutcomeCancelled
		}

		t.teardownBurstStep(ctx, faultArgs)

		if err := t.sleep(ctx, offDur); err != nil {
			return OutcomeCancelled
		}
	}

	return OutcomeDone
}

func (t *task) teardownBurstStep(ctx context.Context, faultArgs []string) {
	del, _ := t.synthesize(fault.Persistent, faultArgs, t.desc.PatternArgs, fault.Del)
	t.execute(ctx, del, fault.Del, false)
}

// teardownBurstStepDetached runs teardownBurstStep on a fresh, not-yet-cancelled context — see
// teardownPersistentDetached for why a cancelled ctx would otherwise skip the Del sequence.
func (t *task) teardownBurstStepDetached(faultArgs []string) {
	ctx, cancel := detachedContext()
	defer cancel()
	t.teardownBurstStep(ctx, faultArgs)
}

// burstTiming resolves pattern_args=[duration_ms, period_ms] with the documented defaults;
// malformed values are treated as missing.
func burstTiming(patternArgs []string) (durationMS, periodMS int) {
	durationMS = parseIntArg(patternArgs, 0, defaultBurstDurationMS)
	periodMS = parseIntArg(patternArgs, 1, defaultBurstPeriodMS)
	return durationMS, periodMS
}

func parseIntArg(args []string, i, def int) int {
	if i < 0 || i >= len(args) || args[i] == "" {
		return def
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		log.Error().Str("arg", args[i]).Msg("expected an integer argument, using default")
		return def
	}
	return v
}

// stressCPUArgs renders the resolved (per_cpu_load, duration_s, n_cpus) triple node.go's
// stress-ng template expects, sized from the cgroup's allowed CPU fraction.
func stressCPUArgs(requestedPercentStr string, durationS int, fraction cgroupstat.Fraction) []string {
	requested, err := strconv.ParseFloat(requestedPercentStr, 64)
	if err != nil {
		requested = 100
	}
	return stressCPUArgsFromIntensity(int(requested), durationS, fraction)
}

// stressCPUArgsFromIntensity is stressCPUArgs for an already-numeric intensity, used by the
// degradation ramp where the requested percent changes every step.
func stressCPUArgsFromIntensity(requestedPercent, durationS int, fraction cgroupstat.Fraction) []string {
	perCPU, nCPUs := cgroupstat.SizeStressCPU(float64(requestedPercent), fraction)
	return []string{strconv.Itoa(perCPU), strconv.Itoa(durationS), strconv.Itoa(nCPUs)}
}
