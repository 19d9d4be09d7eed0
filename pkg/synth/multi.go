package synth

import (
	"encoding/json"
	"fmt"

	"github.com/jhkimqd/faultd/pkg/fault"
)

// synthesizeMulti pipes a full tcset JSON document to "tcset /dev/stdin --import-setting" as
// a single atomic bulk update. Del composes an empty-settings document for the same interface
// names and pipes that instead.
func synthesizeMulti(target fault.Target, verb fault.Verb) ([]string, error) {
	blob := target.MultiConfig()
	if blob == "" {
		return nil, fmt.Errorf("%w: multi target has no config blob", ErrConfig)
	}

	if verb == fault.Add {
		return []string{fmt.Sprintf("echo '%s' | tcset /dev/stdin --import-setting", blob)}, nil
	}

	empty, err := emptySettings(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return []string{fmt.Sprintf("echo '%s' | tcset /dev/stdin --import-setting", empty)}, nil
}

// emptySettings rebuilds blob's top-level interface keys with empty outgoing/incoming
// settings, the reset document called for on Del.
func emptySettings(blob string) (string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(blob), &doc); err != nil {
		return "", fmt.Errorf("parsing multi config blob: %w", err)
	}

	type ifaceSettings struct {
		Outgoing map[string]any `json:"outgoing"`
		Incoming map[string]any `json:"incoming"`
	}

	reset := make(map[string]ifaceSettings, len(doc))
	for iface := range doc {
		reset[iface] = ifaceSettings{Outgoing: map[string]any{}, Incoming: map[string]any{}}
	}

	out, err := json.Marshal(reset)
	if err != nil {
		return "", fmt.Errorf("marshaling reset config: %w", err)
	}
	return string(out), nil
}
