package protocol

import "encoding/json"

// Implementation identifies a peer by name and version. Both sides exchange
// it during initialization.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities declares the feature areas a client supports.
type ClientCapabilities struct {
	Roots        *RootsCapability           `json:"roots,omitempty"`
	Sampling     *SamplingCapability        `json:"sampling,omitempty"`
	Experimental map[string]json.RawMessage `json:"experimental,omitempty"`
}

// ServerCapabilities declares the feature areas a server supports.
type ServerCapabilities struct {
	Tools        *ToolsCapability           `json:"tools,omitempty"`
	Resources    *ResourcesCapability       `json:"resources,omitempty"`
	Prompts      *PromptsCapability         `json:"prompts,omitempty"`
	Logging      *LoggingCapability         `json:"logging,omitempty"`
	Experimental map[string]json.RawMessage `json:"experimental,omitempty"`
}

// RootsCapability declares client root support and whether the client emits
// notifications/roots/list_changed.
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// SamplingCapability declares that the client answers
// sampling/createMessage requests. Presence is the whole declaration.
type SamplingCapability struct{}

// ToolsCapability declares server tool support and whether the server emits
// notifications/tools/list_changed.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourcesCapability declares server resource support, per-URI
// subscription support, and list_changed emission.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// PromptsCapability declares server prompt support and list_changed
// emission.
type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// LoggingCapability declares that the server emits notifications/message
// records and accepts logging/setLevel.
type LoggingCapability struct{}
