// Package synth is the command synthesizer: a pure, deterministic function layer that turns a
// (target, fault_type, fault_pattern, fault_args, pattern_args, filter, verb) tuple into a
// totally-ordered list of shell command strings. It performs no I/O — any values that require
// probing the system (cgroup CPU fractions, discovered ports) must be resolved by the caller
// and passed in through fault_args/pattern_args.
package synth

import (
	"errors"
	"fmt"

	"github.com/jhkimqd/faultd/pkg/fault"
)

// ErrConfig marks a configuration error (missing/malformed args) that callers should log and
// default rather than treat as fatal. Callers should log and continue using the returned
// (possibly best-effort) commands rather than aborting the fault.
var ErrConfig = errors.New("synth: configuration error")

// ErrUnknown marks an unrecognized fault_type or fault_pattern: the active phase is skipped
// but pre/post waits still happen.
var ErrUnknown = errors.New("synth: unknown enum value")

// Synthesize compiles one fault invocation into its shell command sequence. pattern must be
// fault.Persistent or fault.Random — Burst and Degradation are scheduling-level concepts
// the caller resolves into repeated Persistent/Random synthesis calls (see pkg/scheduler and
// the Design Notes in DESIGN.md on this point).
func Synthesize(target fault.Target, ftype fault.Type, pattern fault.Pattern, faultArgs, patternArgs []string, filter fault.Filter, verb fault.Verb) ([]string, error) {
	switch {
	case target.IsMulti():
		return synthesizeMulti(target, verb)
	case target.IsProcess():
		return synthesizeNode(ftype, pattern, faultArgs, verb)
	case target.IsInterface():
		if filter.IsUnfiltered() {
			return synthesizeLinkUnfiltered(target, ftype, pattern, faultArgs, patternArgs, verb)
		}
		return synthesizeLinkFiltered(target, ftype, pattern, faultArgs, patternArgs, filter, verb)
	default:
		return nil, fmt.Errorf("%w: target has no variant set", ErrConfig)
	}
}

// netemFragment renders the "type {args}" fragment the unfiltered and filtered netem templates
// share.
func netemFragment(ftype fault.Type, pattern fault.Pattern, faultArgs, patternArgs []string) (string, error) {
	switch ftype {
	case fault.Delay:
		delay := argOr(faultArgs, 0, "100ms")
		switch pattern {
		case fault.Persistent:
			return fmt.Sprintf("delay %s", delay), nil
		case fault.Random:
			pct := argOr(patternArgs, 0, "0")
			inv, err := invertPercent(pct)
			if err != nil {
				return fmt.Sprintf("delay %s reorder 0%%", delay), fmt.Errorf("%w: %v", ErrConfig, err)
			}
			return fmt.Sprintf("delay %s reorder %s%%", delay, inv), nil
		default:
			return "", fmt.Errorf("%w: fault pattern %q not valid for delay", ErrUnknown, pattern)
		}
	case fault.Loss, fault.Corrupt, fault.Duplicate, fault.Reorder:
		switch pattern {
		case fault.Persistent:
			return fmt.Sprintf("%s 100%%", ftype), nil
		case fault.Random:
			pct := argOr(patternArgs, 0, "0")
			return fmt.Sprintf("%s %s%%", ftype, pct), nil
		default:
			return "", fmt.Errorf("%w: fault pattern %q not valid for %s", ErrUnknown, pattern, ftype)
		}
	default:
		return "", fmt.Errorf("%w: fault type %q has no netem fragment", ErrUnknown, ftype)
	}
}

func argOr(args []string, i int, def string) string {
	if i < 0 || i >= len(args) || args[i] == "" {
		return def
	}
	return args[i]
}
