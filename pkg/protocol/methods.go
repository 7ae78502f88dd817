package protocol

// Protocol revisions the SDK speaks, newest first.
const (
	// LatestProtocolVersion is the newest protocol revision the SDK
	// implements. Clients propose it during initialization.
	LatestProtocolVersion = "2024-11-05"
)

// SupportedProtocolVersions lists every protocol revision the SDK accepts,
// newest first.
var SupportedProtocolVersions = []string{
	LatestProtocolVersion,
	"2024-10-07",
}

// Lifecycle methods.
const (
	MethodInitialize        = "initialize"
	MethodPing              = "ping"
	NotificationInitialized = "notifications/initialized"
)

// Tool methods.
const (
	MethodToolsList              = "tools/list"
	MethodToolsCall              = "tools/call"
	NotificationToolsListChanged = "notifications/tools/list_changed"
)

// Resource methods.
const (
	MethodResourcesList              = "resources/list"
	MethodResourcesRead              = "resources/read"
	MethodResourcesTemplatesList     = "resources/templates/list"
	MethodResourcesSubscribe         = "resources/subscribe"
	MethodResourcesUnsubscribe       = "resources/unsubscribe"
	NotificationResourcesListChanged = "notifications/resources/list_changed"
	NotificationResourcesUpdated     = "notifications/resources/updated"
)

// Prompt methods.
const (
	MethodPromptsList              = "prompts/list"
	MethodPromptsGet               = "prompts/get"
	NotificationPromptsListChanged = "notifications/prompts/list_changed"
)

// Logging methods.
const (
	MethodLoggingSetLevel = "logging/setLevel"
	NotificationMessage   = "notifications/message"
)

// Roots methods.
const (
	MethodRootsList              = "roots/list"
	NotificationRootsListChanged = "notifications/roots/list_changed"
)

// Sampling methods.
const (
	MethodSamplingCreateMessage = "sampling/createMessage"
)

// IsProtocolVersionSupported reports whether version appears in
// SupportedProtocolVersions.
func IsProtocolVersionSupported(version string) bool {
	for _, v := range SupportedProtocolVersions {
		if v == version {
			return true
		}
	}
	return false
}
