package synth

import (
	"fmt"
	"strings"

	"github.com/jhkimqd/faultd/pkg/fault"
)

// synthesizeNode dispatches node-scoped fault types. StressCpu's per-CPU load, duration, and
// CPU count are resolved by the caller from the cgroup's allowed CPU fraction (pkg/cgroupstat)
// and passed in pre-computed as fault_args[0..2]; this layer only renders the template.
func synthesizeNode(ftype fault.Type, pattern fault.Pattern, faultArgs []string, verb fault.Verb) ([]string, error) {
	switch ftype {
	case fault.StressCpu:
		return synthesizeStressCpu(faultArgs, verb)
	case fault.Custom:
		return synthesizeCustom(faultArgs, verb)
	default:
		return nil, fmt.Errorf("%w: fault type %q not valid on a node target", ErrUnknown, ftype)
	}
}

func synthesizeStressCpu(faultArgs []string, verb fault.Verb) ([]string, error) {
	// stress-ng self-terminates at -t duration; there is no teardown command.
	if verb == fault.Del {
		return nil, nil
	}

	perCPULoad := argOr(faultArgs, 0, "100")
	durationS := argOr(faultArgs, 1, "1")
	nCPUs := argOr(faultArgs, 2, "1")

	cmd := fmt.Sprintf("stress-ng -l %s -t %s --cpu %s --cpu-method int64longdouble &", perCPULoad, durationS, nCPUs)
	return []string{cmd}, nil
}

// synthesizeCustom substitutes a single "{}" placeholder in the activation command with the
// caller-resolved current intensity (fault_args[2], present only for degradation steps).
// More than one placeholder is a usage error that must be logged, not raised as fatal.
func synthesizeCustom(faultArgs []string, verb fault.Verb) ([]string, error) {
	if verb == fault.Del {
		teardown := argOr(faultArgs, 1, "")
		if teardown == "" {
			return nil, nil
		}
		return []string{teardown}, nil
	}

	activation := argOr(faultArgs, 0, "")
	if activation == "" {
		return nil, fmt.Errorf("%w: custom fault requires fault_args[0]", ErrConfig)
	}

	intensity, hasIntensity := "", len(faultArgs) > 2 && faultArgs[2] != ""
	if hasIntensity {
		intensity = faultArgs[2]
	}

	count := strings.Count(activation, "{}")
	switch {
	case count == 0:
		return []string{activation}, nil
	case count == 1:
		if !hasIntensity {
			return []string{activation}, fmt.Errorf("%w: activation command has a {} placeholder but no intensity was supplied", ErrConfig)
		}
		return []string{strings.Replace(activation, "{}", intensity, 1)}, nil
	default:
		filled := activation
		if hasIntensity {
			filled = strings.ReplaceAll(activation, "{}", intensity)
		}
		return []string{filled}, fmt.Errorf("%w: activation command has %d {} placeholders, expected at most 1", ErrConfig, count)
	}
}
