package synth

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// invertPercent returns 100-p formatted without a trailing ".0" for whole numbers, matching
// the delay+reorder template.
func invertPercent(pct string) (string, error) {
	v, err := strconv.ParseFloat(pct, 64)
	if err != nil {
		return "", fmt.Errorf("invalid percent %q: %w", pct, err)
	}
	return trimFloat(100 - v), nil
}

func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return s
}

// redirectMask is the kernel's meta-random comparison width: meta random produces 64 bits of
// randomness but the comparison value is truncated to 32 bits, so the mask must be supplied
// explicitly or the upper half always exceeds the threshold.
const redirectMask = "4294967295"

// redirectThreshold computes floor((2^32-1) * p/100), the "lt" value the kernel's meta random
// primitive compares against — the multiplier is the mask itself (4294967295), matching the
// original fault_injectors.py's `int(4294967295 * p/100)`.
func redirectThreshold(pct string) (uint64, error) {
	v, err := strconv.ParseFloat(pct, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid percent %q: %w", pct, err)
	}
	return uint64(math.Floor(4294967295.0 * v / 100.0)), nil
}

// redirectMode resolves fault_args[1] to "mirror" or "redirect", defaulting (and correcting
// any other value) to "redirect".
func redirectMode(args []string) string {
	mode := argOr(args, 1, "redirect")
	if mode != "mirror" && mode != "redirect" {
		return "redirect"
	}
	return mode
}

// joinSemi joins commands with "; " the way redirect's two-stage Add is emitted.
func joinSemi(cmds ...string) string {
	return strings.Join(cmds, "; ")
}
