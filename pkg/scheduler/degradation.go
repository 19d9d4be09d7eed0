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
	defaultStepSize      = 5
	defaultStepLengthMS  = 1000
	defaultStart         = 0
	defaultEnd           = 100
)

// runDegradation steps intensity linearly from start to end: pattern_args =
// [step_size, step_length_ms, start, end]. For link injectors intensity is clamped to 100%;
// for node injectors (an absolute CPU-usage target) it is only bounded by the caller-supplied
// end, never clamped to 100.
func (t *task) runDegradation(ctx context.Context) Outcome {
	stepSize, stepLengthMS, start, end := degradationParams(t.desc.PatternArgs)

	stepLength := time.Duration(stepLengthMS) * time.Millisecond

	var k int
	if stepLength > 0 {
		k = int(t.desc.Injection / stepLength)
	}

	fraction, err := t.stressCPUSizing(ctx)
	if err != nil {
		log.Error().Err(err).Str("tag", t.desc.Tag).Msg("cgroup discovery failed, aborting before activation")
		return OutcomeDone
	}

	intensity := start

	for i := 0; i < k; i++ {
		faultArgs, patternArgs := t.degradationStepArgs(intensity, stepLengthMS, fraction)

		add, _ := t.synthesize(fault.Random, faultArgs, patternArgs, fault.Add)
		t.execute(ctx, add, fault.Add, true)

		if err := t.sleep(ctx, stepLength); err != nil {
			t.teardownDegradationStepDetached(faultArgs, patternArgs)
			return OutcomeCancelled
		}

		t.teardownDegradationStep(ctx, faultArgs, patternArgs)

		intensity += stepSize
		if t.isLinkFault() && intensity > 100 {
			intensity = 100
		}
		if intensity > end {
			intensity = end
		}
	}

	return OutcomeDone
}

func (t *task) teardownDegradationStep(ctx context.Context, faultArgs, patternArgs []string) {
	del, _ := t.synthesize(fault.Random, faultArgs, patternArgs, fault.Del)
	t.execute(ctx, del, fault.Del, false)
}

// teardownDegradationStepDetached runs teardownDegradationStep on a fresh, not-yet-cancelled
// context — see teardownPersistentDetached for why a cancelled ctx would otherwise skip the Del
// sequence.
func (t *task) teardownDegradationStepDetached(faultArgs, patternArgs []string) {
	ctx, cancel := detachedContext()
	defer cancel()
	t.teardownDegradationStep(ctx, faultArgs, patternArgs)
}

// degradationStepArgs injects the current intensity into the argument slot appropriate to the
// fault type: link types via pattern_args[0], StressCpu via pre-resolved fault_args, Custom
// via the {} placeholder's fault_args[2].
func (t *task) degradationStepArgs(intensity, stepLengthMS int, fraction cgroupstat.Fraction) ([]string, []string) {
	switch t.desc.FaultType {
	case fault.StressCpu:
		args := stressCPUArgsFromIntensity(intensity, stepLengthMS/1000, fraction)
		return args, t.desc.PatternArgs
	case fault.Custom:
		args := []string{t.desc.Arg(0, ""), t.desc.Arg(1, ""), strconv.Itoa(intensity)}
		return args, t.desc.PatternArgs
	default:
		return t.desc.FaultArgs, []string{strconv.Itoa(intensity)}
	}
}

func (t *task) isLinkFault() bool {
	return t.desc.Target.IsInterface() || t.desc.Target.IsMulti()
}

// degradationParams resolves pattern_args=[step_size, step_length_ms, start, end] with the
// documented defaults.
func degradationParams(patternArgs []string) (stepSize, stepLengthMS, start, end int) {
	stepSize = parseIntArg(patternArgs, 0, defaultStepSize)
	stepLengthMS = parseIntArg(patternArgs, 1, defaultStepLengthMS)
	start = parseIntArg(patternArgs, 2, defaultStart)
	end = parseIntArg(patternArgs, 3, defaultEnd)
	return
}
