package synth

import (
	"strings"
	"testing"

	"github.com/jhkimqd/faultd/pkg/fault"
)

// Scenario 1: persistent loss on eth0, no filter.
func TestSynthesize_PersistentLossUnfiltered(t *testing.T) {
	target := fault.InterfaceTarget("eth0", 100)

	add, err := Synthesize(target, fault.Loss, fault.Persistent, nil, nil, fault.Filter{}, fault.Add)
	if err != nil {
		t.Fatalf("Add: unexpected error: %v", err)
	}
	wantAdd := []string{"tc qdisc add dev eth0 root netem loss 100%"}
	if !equal(add, wantAdd) {
		t.Fatalf("Add = %v, want %v", add, wantAdd)
	}

	del, err := Synthesize(target, fault.Loss, fault.Persistent, nil, nil, fault.Filter{}, fault.Del)
	if err != nil {
		t.Fatalf("Del: unexpected error: %v", err)
	}
	wantDel := []string{"tc qdisc del dev eth0 root netem loss 100%"}
	if !equal(del, wantDel) {
		t.Fatalf("Del = %v, want %v", del, wantDel)
	}
}

// Scenario 3: random TCP dport-80 loss 10%.
func TestSynthesize_RandomTCPFilteredLoss(t *testing.T) {
	target := fault.InterfaceTarget("eth0", 0)
	filter := fault.Filter{Protocol: fault.ProtocolTCP, DstPorts: []uint16{80}}

	add, err := Synthesize(target, fault.Loss, fault.Random, nil, []string{"10"}, filter, fault.Add)
	if err != nil {
		t.Fatalf("Add: unexpected error: %v", err)
	}
	want := []string{
		"tc qdisc add dev eth0 root handle 1: prio",
		"tc filter add dev eth0 parent 1:0 protocol ip prio 1 u32 match ip protocol 6 0xff match ip dport 80 0xffff flowid 1:1",
		"tc qdisc add dev eth0 parent 1:1 handle 2: netem loss 10%",
	}
	if !equal(add, want) {
		t.Fatalf("Add = %v, want %v", add, want)
	}

	del, err := Synthesize(target, fault.Loss, fault.Random, nil, []string{"10"}, filter, fault.Del)
	if err != nil {
		t.Fatalf("Del: unexpected error: %v", err)
	}
	wantDel := []string{"tc qdisc del dev eth0 root handle 1: prio"}
	if !equal(del, wantDel) {
		t.Fatalf("Del = %v, want %v", del, wantDel)
	}
}

// Scenario 4: random redirect 25% to eth1. The emitted threshold is floor((2^32-1)*p/100),
// matching both the worked example (1073741823 for p=25) and the original fault_injectors.py's
// `int(4294967295 * p/100)`.
func TestSynthesize_RandomRedirect(t *testing.T) {
	target := fault.InterfaceTarget("eth0", 0)

	add, err := Synthesize(target, fault.Redirect, fault.Random, []string{"eth1", "redirect"}, []string{"25"}, fault.Filter{}, fault.Add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(add) != 1 {
		t.Fatalf("expected one joined command, got %v", add)
	}
	if !strings.Contains(add[0], `basic match "meta( random mask 4294967295 lt 1073741823 )"`) {
		t.Fatalf("missing expected match clause: %v", add[0])
	}
	if !strings.Contains(add[0], "action mirred egress redirect dev eth1") {
		t.Fatalf("missing expected mirred action: %v", add[0])
	}
}

// Scenario 5: CPU stress, persistent 40% in a cgroup with quota/period=0.5 — the sizing math
// itself lives in pkg/cgroupstat; this only checks the template renders pre-resolved values.
func TestSynthesize_StressCpu(t *testing.T) {
	target := fault.ProcessTarget(200)

	add, err := Synthesize(target, fault.StressCpu, fault.Persistent, []string{"20", "10", "1"}, nil, fault.Filter{}, fault.Add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"stress-ng -l 20 -t 10 --cpu 1 --cpu-method int64longdouble &"}
	if !equal(add, want) {
		t.Fatalf("Add = %v, want %v", add, want)
	}

	del, err := Synthesize(target, fault.StressCpu, fault.Persistent, []string{"20", "10", "1"}, nil, fault.Filter{}, fault.Del)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(del) != 0 {
		t.Fatalf("stress-ng del should be a dummy, got %v", del)
	}
}

// Scenario 6: custom degradation with placeholder.
func TestSynthesize_CustomDegradationStep(t *testing.T) {
	target := fault.ProcessTarget(300)

	for i, intensity := range []string{"0", "10", "20", "30", "40"} {
		add, err := Synthesize(target, fault.Custom, fault.Degradation, []string{"set_rate {} &", "clear_rate", intensity}, nil, fault.Filter{}, fault.Add)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		want := []string{"set_rate " + intensity + " &"}
		if !equal(add, want) {
			t.Fatalf("step %d: Add = %v, want %v", i, add, want)
		}

		del, err := Synthesize(target, fault.Custom, fault.Degradation, []string{"set_rate {} &", "clear_rate", intensity}, nil, fault.Filter{}, fault.Del)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		wantDel := []string{"clear_rate"}
		if !equal(del, wantDel) {
			t.Fatalf("step %d: Del = %v, want %v", i, del, wantDel)
		}
	}
}

func TestSynthesize_CustomTooManyPlaceholders(t *testing.T) {
	target := fault.ProcessTarget(300)

	_, err := Synthesize(target, fault.Custom, fault.Degradation, []string{"set_rate {} and {} &", "", "5"}, nil, fault.Filter{}, fault.Add)
	if err == nil {
		t.Fatal("expected ErrConfig for multiple placeholders")
	}
}

func TestSynthesize_BottleneckDefaults(t *testing.T) {
	target := fault.InterfaceTarget("eth0", 0)

	add, err := Synthesize(target, fault.Bottleneck, fault.Persistent, []string{"1000"}, nil, fault.Filter{}, fault.Add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"tc qdisc add dev eth0 root tbf rate 1000kbit burst 1600 limit 3000"}
	if !equal(add, want) {
		t.Fatalf("Add = %v, want %v", add, want)
	}
}

func TestSynthesize_Down(t *testing.T) {
	target := fault.InterfaceTarget("eth0", 0)

	add, _ := Synthesize(target, fault.Down, fault.Persistent, nil, nil, fault.Filter{}, fault.Add)
	if !equal(add, []string{"ifconfig eth0 down"}) {
		t.Fatalf("Add = %v", add)
	}
	del, _ := Synthesize(target, fault.Down, fault.Persistent, nil, nil, fault.Filter{}, fault.Del)
	if !equal(del, []string{"ifconfig eth0 up"}) {
		t.Fatalf("Del = %v", del)
	}
}

func TestSynthesize_Multi(t *testing.T) {
	blob := `{"eth0":{"outgoing":{"delay":"100ms"},"incoming":{}}}`
	target := fault.MultiInterfaceTarget(blob, 0)

	add, err := Synthesize(target, "", "", nil, nil, fault.Filter{}, fault.Add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(add) != 1 || !strings.Contains(add[0], "tcset /dev/stdin --import-setting") {
		t.Fatalf("Add = %v", add)
	}

	del, err := Synthesize(target, "", "", nil, nil, fault.Filter{}, fault.Del)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(del[0], `"eth0"`) || !strings.Contains(del[0], "tcset /dev/stdin --import-setting") {
		t.Fatalf("Del = %v", del)
	}
}

func TestSynthesize_UnknownTypeOnLink(t *testing.T) {
	target := fault.InterfaceTarget("eth0", 0)
	_, err := Synthesize(target, fault.StressCpu, fault.Persistent, nil, nil, fault.Filter{}, fault.Add)
	if err == nil {
		t.Fatal("expected error for node-only fault type on a link target")
	}
}

func TestRedirectThreshold(t *testing.T) {
	cases := []struct {
		pct  string
		want uint64
	}{
		{"0", 0},
		{"100", 4294967295},
		{"25", 1073741823},
		{"50", 2147483647},
	}
	for _, c := range cases {
		got, err := redirectThreshold(c.pct)
		if err != nil {
			t.Fatalf("redirectThreshold(%q): %v", c.pct, err)
		}
		if got != c.want {
			t.Errorf("redirectThreshold(%q) = %d, want %d", c.pct, got, c.want)
		}
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
