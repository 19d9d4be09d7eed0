package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jhkimqd/faultd/pkg/fault"
)

// faultFile is the YAML shape faultctl loads a single FaultDescriptor from. It is a CLI
// convenience, not the scenario declaration language — that parser is the external
// collaborator spec.md §1 places out of core scope.
type faultFile struct {
	Tag    string `yaml:"tag"`
	Target struct {
		Device      string `yaml:"device"`
		NSPID       uint32 `yaml:"ns_pid"`
		MultiConfig string `yaml:"multi_config"`
		Kind        string `yaml:"kind"` // "interface" | "process" | "multi"
	} `yaml:"target"`
	FaultType    string   `yaml:"fault_type"`
	FaultPattern string   `yaml:"fault_pattern"`
	FaultArgs    []string `yaml:"fault_args"`
	PatternArgs  []string `yaml:"pattern_args"`
	Filter       struct {
		Protocol string   `yaml:"protocol"`
		DstPorts []uint16 `yaml:"dst_ports"`
		SrcPorts []uint16 `yaml:"src_ports"`
	} `yaml:"filter"`
	PreInjection  time.Duration `yaml:"pre_injection"`
	Injection     time.Duration `yaml:"injection"`
	PostInjection time.Duration `yaml:"post_injection"`
}

func loadFaultFile(path string) (*faultFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fault file: %w", err)
	}
	var ff faultFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parsing fault file: %w", err)
	}
	return &ff, nil
}

func (ff *faultFile) toDescriptor() (fault.Descriptor, error) {
	var target fault.Target
	switch ff.Target.Kind {
	case "", "interface":
		target = fault.InterfaceTarget(ff.Target.Device, ff.Target.NSPID)
	case "process":
		target = fault.ProcessTarget(ff.Target.NSPID)
	case "multi":
		target = fault.MultiInterfaceTarget(ff.Target.MultiConfig, ff.Target.NSPID)
	default:
		return fault.Descriptor{}, fmt.Errorf("unknown target kind %q", ff.Target.Kind)
	}

	if ff.Tag == "" {
		return fault.Descriptor{}, fmt.Errorf("tag is required")
	}

	return fault.Descriptor{
		Tag:          ff.Tag,
		Target:       target,
		FaultType:    fault.Type(ff.FaultType),
		FaultPattern: fault.Pattern(ff.FaultPattern),
		FaultArgs:    ff.FaultArgs,
		PatternArgs:  ff.PatternArgs,
		Filter: fault.Filter{
			Protocol: fault.Protocol(ff.Filter.Protocol),
			DstPorts: ff.Filter.DstPorts,
			SrcPorts: ff.Filter.SrcPorts,
		},
		PreInjection:  ff.PreInjection,
		Injection:     ff.Injection,
		PostInjection: ff.PostInjection,
	}, nil
}
