package session

import (
	"maps"
	"time"
)

// Record is the persisted form of one container handle.
type Record struct {
	Key              string            `toml:"key"`
	ID               string            `toml:"id"`
	Runtime          string            `toml:"runtime"`
	State            string            `toml:"state"`
	HomeDir          string            `toml:"home_dir,omitempty"`
	BaseDir          string            `toml:"base_dir,omitempty"`
	LogFile          string            `toml:"log_file,omitempty"`
	Port             int               `toml:"port,omitempty"`
	PID              int               `toml:"pid,omitempty"`
	ProcessStart     string            `toml:"process_start,omitempty"`
	Deployable       *DeployableRecord `toml:"deployable,omitempty"`
	SystemProperties map[string]string `toml:"system_properties,omitempty"`
	Failure          string            `toml:"failure,omitempty"`
	UpdatedAt        time.Time         `toml:"updated_at"`
}

// DeployableRecord is the persisted form of an attached deployable.
type DeployableRecord struct {
	Path    string `toml:"path"`
	Context string `toml:"context"`
}

// Failed reports whether provisioning of this key failed.
func (r Record) Failed() bool {
	return r.Failure != ""
}

func (r Record) clone() Record {
	out := r
	out.SystemProperties = maps.Clone(r.SystemProperties)
	if r.Deployable != nil {
		d := *r.Deployable
		out.Deployable = &d
	}
	return out
}
