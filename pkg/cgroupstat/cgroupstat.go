// Package cgroupstat resolves the CPU fraction a cgroup is allowed to use: the I/O steps of
// reading /proc/{pid}/cgroup and shelling out to cgget are kept separate from the pure sizing
// arithmetic so pkg/synth stays a pure function layer.
package cgroupstat

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	cgroupLineRe = regexp.MustCompile(`^(\d*):cpu,cpuacct:/(.*)$`)
	cfsPeriodRe  = regexp.MustCompile(`(?m)^cpu\.cfs_period_us: (\d*)$`)
	cfsQuotaRe   = regexp.MustCompile(`(?m)^cpu\.cfs_quota_us: (\d*)$`)

	// validCgroupName matches the cgroup path component cgget receives. Grounded in
	// kornnellio-runc-Go's validateCgroupKey discipline: reject anything outside a plain path
	// alphabet before the name is passed to cgget.
	validCgroupName = regexp.MustCompile(`^[a-zA-Z0-9_.\-/]+$`)
)

// validateCgroupName rejects a cgroup name with "." or ".." components or characters outside
// the valid pattern before it is passed as an argument to cgget, mirroring kornnellio-runc-Go's
// validateCgroupKey.
func validateCgroupName(name string) error {
	if name == "" {
		return fmt.Errorf("empty cgroup name")
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("relative path component %q not allowed", part)
		}
	}
	if !validCgroupName.MatchString(name) {
		return fmt.Errorf("does not match valid cgroup name pattern")
	}
	return nil
}

// ErrCgroupDiscovery signals that cgroup discovery failed; callers abort the fault before
// activation because the engine cannot size the stress load safely.
var ErrCgroupDiscovery = fmt.Errorf("cgroupstat: cgroup discovery failed")

// Fraction is the share of one host CPU a cgroup is permitted: quota/period.
type Fraction float64

// ReadFraction reads /proc/{pid}/cgroup, extracts the cpu,cpuacct controller's cgroup name,
// and queries cgget for its cfs_quota_us/cfs_period_us to compute the allowed CPU fraction.
func ReadFraction(ctx context.Context, pid uint32) (Fraction, error) {
	name, err := cgroupName(pid)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCgroupDiscovery, err)
	}

	quota, period, err := readQuotaPeriod(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCgroupDiscovery, err)
	}
	if period == 0 {
		return 0, fmt.Errorf("%w: cpu.cfs_period_us is zero for cgroup %q", ErrCgroupDiscovery, name)
	}

	frac := Fraction(float64(quota) / float64(period))
	log.Debug().Uint32("pid", pid).Str("cgroup", name).Float64("fraction", float64(frac)).Msg("resolved cgroup cpu fraction")
	return frac, nil
}

func cgroupName(pid uint32) (string, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/cgroup", pid))
	if err != nil {
		return "", fmt.Errorf("reading /proc/%d/cgroup: %w", pid, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		m := cgroupLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[2]
		if err := validateCgroupName(name); err != nil {
			return "", fmt.Errorf("cgroup name %q failed validation: %w", name, err)
		}
		return name, nil
	}

	return "", fmt.Errorf("no cpu,cpuacct line found in /proc/%d/cgroup", pid)
}

func readQuotaPeriod(ctx context.Context, name string) (quota, period int64, err error) {
	out, err := exec.CommandContext(ctx, "cgget", "-g", "cpu", name).CombinedOutput()
	if err != nil {
		return 0, 0, fmt.Errorf("cgget -g cpu %s: %w", name, err)
	}
	return parseQuotaPeriod(out)
}

// parseQuotaPeriod applies the cfs_quota_us/cfs_period_us regexes to cgget's output. Split out
// from readQuotaPeriod so it's testable without shelling out.
func parseQuotaPeriod(out []byte) (quota, period int64, err error) {
	periodM := cfsPeriodRe.FindStringSubmatch(string(out))
	quotaM := cfsQuotaRe.FindStringSubmatch(string(out))
	if periodM == nil || quotaM == nil {
		return 0, 0, fmt.Errorf("cgget output missing cfs_period_us/cfs_quota_us")
	}

	period, err = strconv.ParseInt(periodM[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing cfs_period_us: %w", err)
	}
	quota, err = strconv.ParseInt(quotaM[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing cfs_quota_us: %w", err)
	}
	return quota, period, nil
}

// SizeStressCPU computes the stress-ng invocation parameters for a requested in-cgroup load
// requestedPercent, given the cgroup's allowed CPU fraction: the synthesizer asks the host
// for requestedPercent*fraction total percent, split across
// ceil(effective/100) CPUs at floor(effective/nCPUs) per CPU. Pure arithmetic — no I/O.
func SizeStressCPU(requestedPercent float64, fraction Fraction) (perCPULoad int, nCPUs int) {
	effective := requestedPercent * float64(fraction)
	n := int(effective) / 100
	if effective-float64(n*100) > 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return int(effective) / n, n
}
