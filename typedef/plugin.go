// Package typedef holds the roster records persisted across host restarts.
package typedef

// PluginConfig holds the user-set knobs for a plugin's roster entry. The
// host enforces only AllowFileSystem, which gates the "datadir" host API
// slot; the other flags are informational, surfaced to the
// plugin-management UI (there is no sandboxing).
type PluginConfig struct {
	AllowFileSystem  bool           `json:"allowFileSystem"`
	AllowNetwork     bool           `json:"allowNetwork"`
	AllowCPU         bool           `json:"allowCPU"`
	AllowTime        bool           `json:"allowTime"`
	AllowStateAccess bool           `json:"allowStateAccess"`
	UserSettings     map[string]any `json:"userSettings,omitempty"`
}

// PluginState is one roster entry: everything the host needs to remember
// about a plugin between runs, independent of whether it is currently
// loaded.
type PluginState struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Version     string       `json:"version,omitempty"`
	Author      string       `json:"author,omitempty"`
	Description string       `json:"description,omitempty"`
	Path        string       `json:"path"`
	Enabled     bool         `json:"enabled"`
	Config      PluginConfig `json:"config"`
	StateBlob   []byte       `json:"stateBlob,omitempty"`
	Missing     bool         `json:"missing,omitempty"`
	LastError   string       `json:"lastError,omitempty"`
}
