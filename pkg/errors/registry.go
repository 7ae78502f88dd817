package errors

// CapabilityRequired reports an operation gated by a capability the peer or
// the local role did not advertise.
func CapabilityRequired(capability string) MCPError {
	return Newf(CodeCapabilityRequired, CategoryState,
		"capability %q is required for this operation", capability)
}

// NotInitialized reports a feature operation attempted before the
// initialization handshake completed.
func NotInitialized(operation string) MCPError {
	return Newf(CodeNotInitialized, CategoryState,
		"operation %s requires an initialized session", operation)
}

// AlreadyInitialized reports a second initialize request on a session.
func AlreadyInitialized() MCPError {
	return New(CodeAlreadyInitialized, "session is already initialized", CategoryState)
}

// VersionMismatch reports a protocol version the local side does not speak.
func VersionMismatch(proposed string, supported []string) MCPError {
	return Newf(CodeVersionMismatch, CategoryVersion,
		"unsupported protocol version %q", proposed).
		WithData(map[string]interface{}{
			"supported": supported,
			"requested": proposed,
		})
}

// DuplicateEntry reports an add of a tool, resource, prompt or root whose
// key is already registered.
func DuplicateEntry(kind, key string) MCPError {
	return Newf(CodeDuplicateEntry, CategoryRegistry, "%s %q is already registered", kind, key).
		WithSeverity(SeverityWarning)
}

// EntryNotFound reports a lookup or remove of an unregistered tool,
// resource, prompt or root.
func EntryNotFound(kind, key string) MCPError {
	return Newf(CodeEntryNotFound, CategoryRegistry, "%s %q is not registered", kind, key).
		WithSeverity(SeverityWarning)
}
