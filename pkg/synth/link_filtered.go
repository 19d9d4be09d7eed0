package synth

import (
	"fmt"

	"github.com/jhkimqd/faultd/pkg/fault"
)

// synthesizeLinkFiltered builds a root prio qdisc (or an ingress qdisc for redirect), one u32
// classifier per filtered port, and an action qdisc/filter action carrying the same netem/tbf
// leaf (or mirred action) used by the unfiltered form.
func synthesizeLinkFiltered(target fault.Target, ftype fault.Type, pattern fault.Pattern, faultArgs, patternArgs []string, filter fault.Filter, verb fault.Verb) ([]string, error) {
	device := target.Device()

	if ftype == fault.Redirect {
		return synthesizeRedirectFiltered(device, pattern, faultArgs, patternArgs, filter, verb)
	}

	if verb == fault.Del {
		return []string{fmt.Sprintf("tc qdisc del dev %s root handle 1: prio", device)}, nil
	}

	cmds := []string{fmt.Sprintf("tc qdisc add dev %s root handle 1: prio", device)}
	cmds = append(cmds, portClassifiers(device, filter, "1:0", "1:1", "")...)

	leaf, err := actionLeaf(ftype, pattern, faultArgs, patternArgs)
	if err != nil {
		return cmds, err
	}
	cmds = append(cmds, fmt.Sprintf("tc qdisc add dev %s parent 1:1 handle 2: %s", device, leaf))
	return cmds, nil
}

func synthesizeRedirectFiltered(device string, pattern fault.Pattern, faultArgs, patternArgs []string, filter fault.Filter, verb fault.Verb) ([]string, error) {
	if verb == fault.Del {
		return []string{fmt.Sprintf("tc qdisc del dev %s ingress", device)}, nil
	}

	iface := argOr(faultArgs, 0, "eth0")
	mode := redirectMode(faultArgs)

	var action string
	switch pattern {
	case fault.Persistent:
		action = fmt.Sprintf("action mirred egress %s dev %s", mode, iface)
	case fault.Random:
		pct := argOr(patternArgs, 0, "0")
		lt, err := redirectThreshold(pct)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		match := fmt.Sprintf(`basic match "meta( random mask %s lt %d )" action mirred egress %s dev %s`, redirectMask, lt, mode, iface)
		action = match
	default:
		return nil, fmt.Errorf("%w: fault pattern %q not valid for redirect", ErrUnknown, pattern)
	}

	cmds := []string{fmt.Sprintf("tc qdisc add dev %s handle ffff: ingress", device)}
	cmds = append(cmds, portClassifiers(device, filter, "ffff:", "", action)...)
	return cmds, nil
}

// portClassifiers emits one u32 filter per dst/src port in filter, or a single unqualified
// classifier when both port lists are empty. suffix, when non-empty, is appended to each
// filter (the redirect form's mirred action).
func portClassifiers(device string, filter fault.Filter, parent, flowid, suffix string) []string {
	ipnum := fault.ProtocolNumbers[filter.Protocol]
	base := func(portClause string) string {
		cmd := fmt.Sprintf("tc filter add dev %s parent %s protocol ip prio 1 u32 match ip protocol %d 0xff%s", device, parent, ipnum, portClause)
		if flowid != "" {
			cmd += fmt.Sprintf(" flowid %s", flowid)
		}
		if suffix != "" {
			cmd += " " + suffix
		}
		return cmd
	}

	if len(filter.DstPorts) == 0 && len(filter.SrcPorts) == 0 {
		return []string{base("")}
	}

	var cmds []string
	for _, p := range filter.DstPorts {
		cmds = append(cmds, base(fmt.Sprintf(" match ip dport %d 0xffff", p)))
	}
	for _, p := range filter.SrcPorts {
		cmds = append(cmds, base(fmt.Sprintf(" match ip sport %d 0xffff", p)))
	}
	return cmds
}

// actionLeaf renders the netem/tbf leaf shared with the unfiltered form, minus the
// "tc qdisc {verb} dev {d} root" prefix that §4.1.2 replaces with "parent 1:1 handle 2:".
func actionLeaf(ftype fault.Type, pattern fault.Pattern, faultArgs, patternArgs []string) (string, error) {
	switch ftype {
	case fault.Delay, fault.Loss, fault.Corrupt, fault.Duplicate, fault.Reorder:
		frag, err := netemFragment(ftype, pattern, faultArgs, patternArgs)
		return "netem " + frag, err
	case fault.Bottleneck:
		if pattern != fault.Persistent && pattern != fault.Random {
			return "", fmt.Errorf("%w: bottleneck only supports persistent/random", ErrUnknown)
		}
		rate := argOr(faultArgs, 0, "1000")
		burst := argOr(faultArgs, 1, "1600")
		limit := argOr(faultArgs, 2, "3000")
		return fmt.Sprintf("tbf rate %skbit burst %s limit %s", rate, burst, limit), nil
	default:
		return "", fmt.Errorf("%w: fault type %q has no filtered leaf", ErrUnknown, ftype)
	}
}
