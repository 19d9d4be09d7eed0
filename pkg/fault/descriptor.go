// Package fault defines the data model consumed by the command synthesizer, namespace
// executor, and injection scheduler: the immutable FaultDescriptor, its Target variants, and
// the enums that drive synthesis and scheduling.
package fault

import "time"

// Type identifies which kind of perturbation a descriptor requests.
type Type string

const (
	Delay     Type = "delay"
	Loss      Type = "loss"
	Corrupt   Type = "corrupt"
	Duplicate Type = "duplicate"
	Reorder   Type = "reorder"
	Bottleneck Type = "bottleneck"
	Redirect  Type = "redirect"
	Down      Type = "down"
	StressCpu Type = "stress_cpu"
	Custom    Type = "custom"
)

// Pattern identifies the temporal shape of a fault's active phase.
type Pattern string

const (
	Persistent  Pattern = "persistent"
	Burst       Pattern = "burst"
	Degradation Pattern = "degradation"
	Random      Pattern = "random"
)

// Protocol is a textual IP protocol tag accepted by a link filter.
type Protocol string

const (
	ProtocolAny      Protocol = ""
	ProtocolICMP     Protocol = "ICMP"
	ProtocolIGMP     Protocol = "IGMP"
	ProtocolIP       Protocol = "IP"
	ProtocolTCP      Protocol = "TCP"
	ProtocolUDP      Protocol = "UDP"
	ProtocolIPv6     Protocol = "IPv6"
	ProtocolIPv6ICMP Protocol = "IPv6-ICMP"
)

// ProtocolNumbers is the fixed mapping from textual protocol tags to IP protocol numbers.
var ProtocolNumbers = map[Protocol]int{
	ProtocolICMP:     1,
	ProtocolIGMP:     2,
	ProtocolIP:       4,
	ProtocolTCP:      6,
	ProtocolUDP:      17,
	ProtocolIPv6:     41,
	ProtocolIPv6ICMP: 58,
}

// Verb selects whether the synthesizer emits activation or teardown commands.
type Verb string

const (
	Add Verb = "add"
	Del Verb = "del"
)

// Target is a closed tagged union over the three injector variants. Exactly one of Interface,
// Process, or MultiInterface is populated; the InterfaceTarget, ProcessTarget and
// MultiInterfaceTarget constructors are the only supported way to build one.
type Target struct {
	kind          targetKind
	device        string
	nsPID         uint32
	multiConfig   string
}

type targetKind int

const (
	targetInterface targetKind = iota
	targetProcess
	targetMulti
)

// InterfaceTarget builds a Target for the Link injector: a single interface inside an
// optional namespace.
func InterfaceTarget(device string, nsPID uint32) Target {
	return Target{kind: targetInterface, device: device, nsPID: nsPID}
}

// ProcessTarget builds a Target for the Node injector: a process's net/pid/cgroup namespaces,
// with no specific interface.
func ProcessTarget(nsPID uint32) Target {
	return Target{kind: targetProcess, nsPID: nsPID}
}

// MultiInterfaceTarget builds a Target for the Multi injector: an opaque tcset JSON blob
// describing every affected interface, applied atomically.
func MultiInterfaceTarget(configBlob string, nsPID uint32) Target {
	return Target{kind: targetMulti, multiConfig: configBlob, nsPID: nsPID}
}

// IsInterface reports whether this is a single-interface Link target.
func (t Target) IsInterface() bool { return t.kind == targetInterface }

// IsProcess reports whether this is a process-scoped Node target.
func (t Target) IsProcess() bool { return t.kind == targetProcess }

// IsMulti reports whether this is a Multi-interface target.
func (t Target) IsMulti() bool { return t.kind == targetMulti }

// Device returns the interface name for a Link target ("" otherwise).
func (t Target) Device() string { return t.device }

// NSPID returns the target namespace's process ID, or 0 if the fault runs unnamespaced.
func (t Target) NSPID() uint32 { return t.nsPID }

// HasNSPID reports whether this target is scoped to a namespace.
func (t Target) HasNSPID() bool { return t.nsPID != 0 }

// MultiConfig returns the opaque tcset JSON blob for a Multi target ("" otherwise).
func (t Target) MultiConfig() string { return t.multiConfig }

// Filter narrows a link fault to traffic matching a protocol and/or port set. Only the Link
// injector consumes a Filter.
type Filter struct {
	Protocol Protocol
	DstPorts []uint16
	SrcPorts []uint16
}

// IsUnfiltered reports whether this filter matches all traffic, selecting the unfiltered
// synthesis path over the per-port classifier path.
func (f Filter) IsUnfiltered() bool {
	return f.Protocol == ProtocolAny
}

// Descriptor is the immutable record a scheduler task consumes for the lifetime of one fault.
// Build it as a struct literal; fault_args and pattern_args are read-only thereafter.
type Descriptor struct {
	Tag           string
	Target        Target
	FaultType     Type
	FaultPattern  Pattern
	FaultArgs     []string
	PatternArgs   []string
	Filter        Filter
	PreInjection  time.Duration
	Injection     time.Duration
	PostInjection time.Duration
}

// Arg returns fault_args[i], or def if the index is out of range — an explicit get-or-default
// accessor in place of an index-out-of-range-as-defaulting trick.
func (d Descriptor) Arg(i int, def string) string {
	if i < 0 || i >= len(d.FaultArgs) {
		return def
	}
	return d.FaultArgs[i]
}

// PatternArg returns pattern_args[i], or def if the index is out of range.
func (d Descriptor) PatternArg(i int, def string) string {
	if i < 0 || i >= len(d.PatternArgs) {
		return def
	}
	return d.PatternArgs[i]
}
