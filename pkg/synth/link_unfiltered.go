package synth

import (
	"fmt"

	"github.com/jhkimqd/faultd/pkg/fault"
)

// synthesizeLinkUnfiltered builds a single `tc qdisc {verb} ... root netem|tbf ...` command,
// or the two ifconfig/redirect forms that don't fit that template.
func synthesizeLinkUnfiltered(target fault.Target, ftype fault.Type, pattern fault.Pattern, faultArgs, patternArgs []string, verb fault.Verb) ([]string, error) {
	device := target.Device()

	switch ftype {
	case fault.Delay, fault.Loss, fault.Corrupt, fault.Duplicate, fault.Reorder:
		frag, err := netemFragment(ftype, pattern, faultArgs, patternArgs)
		cmd := fmt.Sprintf("tc qdisc %s dev %s root netem %s", verb, device, frag)
		return []string{cmd}, err

	case fault.Bottleneck:
		if pattern != fault.Persistent && pattern != fault.Random {
			return nil, fmt.Errorf("%w: bottleneck only supports persistent/random", ErrUnknown)
		}
		rate := argOr(faultArgs, 0, "1000")
		burst := argOr(faultArgs, 1, "1600")
		limit := argOr(faultArgs, 2, "3000")
		cmd := fmt.Sprintf("tc qdisc %s dev %s root tbf rate %skbit burst %s limit %s", verb, device, rate, burst, limit)
		return []string{cmd}, nil

	case fault.Down:
		if verb == fault.Add {
			return []string{fmt.Sprintf("ifconfig %s down", device)}, nil
		}
		return []string{fmt.Sprintf("ifconfig %s up", device)}, nil

	case fault.Redirect:
		return synthesizeRedirectUnfiltered(device, pattern, faultArgs, patternArgs, verb)

	default:
		return nil, fmt.Errorf("%w: fault type %q not valid on a link target", ErrUnknown, ftype)
	}
}

func synthesizeRedirectUnfiltered(device string, pattern fault.Pattern, faultArgs, patternArgs []string, verb fault.Verb) ([]string, error) {
	if verb == fault.Del {
		return []string{fmt.Sprintf("tc qdisc del dev %s ingress", device)}, nil
	}

	iface := argOr(faultArgs, 0, "eth0")
	mode := redirectMode(faultArgs)
	ingress := fmt.Sprintf("tc qdisc add dev %s handle ffff: ingress", device)

	switch pattern {
	case fault.Persistent:
		filterCmd := fmt.Sprintf("tc filter add dev %s parent ffff: matchall action mirred egress %s dev %s", device, mode, iface)
		return []string{joinSemi(ingress, filterCmd)}, nil

	case fault.Random:
		pct := argOr(patternArgs, 0, "0")
		lt, err := redirectThreshold(pct)
		if err != nil {
			return []string{ingress}, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		match := fmt.Sprintf(`basic match "meta( random mask %s lt %d )"`, redirectMask, lt)
		filterCmd := fmt.Sprintf("tc filter add dev %s parent ffff: %s action mirred egress %s dev %s", device, match, mode, iface)
		return []string{joinSemi(ingress, filterCmd)}, nil

	default:
		return nil, fmt.Errorf("%w: fault pattern %q not valid for redirect", ErrUnknown, pattern)
	}
}
