package jellyfin

import (
	"encoding/json"
	"maps"
)

// Blob is an opaque JSON object forwarded to Jellyfin unchanged.
type Blob map[string]any

// Policy is a Jellyfin user policy. The flags the migration reasons about are
// typed; every other key is carried in Extra and re-emitted unchanged.
type Policy struct {
	IsAdministrator bool
	IsHidden        bool
	IsDisabled      bool
	Extra           Blob
}

var policyFlagKeys = []string{"IsAdministrator", "IsHidden", "IsDisabled"}

// PolicyFromMap builds a Policy from a decoded configuration table.
func PolicyFromMap(values map[string]any) (Policy, error) {
	var p Policy
	if len(values) == 0 {
		return p, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return p, err
	}
	err = json.Unmarshal(data, &p)
	return p, err
}

// Clone returns a deep enough copy for per-user mutation.
func (p Policy) Clone() Policy {
	out := p
	if p.Extra != nil {
		out.Extra = maps.Clone(p.Extra)
	}
	return out
}

func (p Policy) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+len(policyFlagKeys))
	for k, v := range p.Extra {
		out[k] = v
	}
	out["IsAdministrator"] = p.IsAdministrator
	out["IsHidden"] = p.IsHidden
	out["IsDisabled"] = p.IsDisabled
	return json.Marshal(out)
}

func (p *Policy) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	flag := func(key string) bool {
		v, _ := raw[key].(bool)
		delete(raw, key)
		return v
	}
	p.IsAdministrator = flag("IsAdministrator")
	p.IsHidden = flag("IsHidden")
	p.IsDisabled = flag("IsDisabled")
	p.Extra = nil
	if len(raw) > 0 {
		p.Extra = Blob(raw)
	}
	return nil
}
