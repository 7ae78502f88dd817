package protocol

// LoggingLevel is a syslog-style severity carried in notifications/message
// records and logging/setLevel requests.
type LoggingLevel string

const (
	LoggingLevelDebug     LoggingLevel = "debug"
	LoggingLevelInfo      LoggingLevel = "info"
	LoggingLevelNotice    LoggingLevel = "notice"
	LoggingLevelWarning   LoggingLevel = "warning"
	LoggingLevelError     LoggingLevel = "error"
	LoggingLevelCritical  LoggingLevel = "critical"
	LoggingLevelAlert     LoggingLevel = "alert"
	LoggingLevelEmergency LoggingLevel = "emergency"
)

var loggingLevelSeverity = map[LoggingLevel]int{
	LoggingLevelDebug:     0,
	LoggingLevelInfo:      1,
	LoggingLevelNotice:    2,
	LoggingLevelWarning:   3,
	LoggingLevelError:     4,
	LoggingLevelCritical:  5,
	LoggingLevelAlert:     6,
	LoggingLevelEmergency: 7,
}

// Severity returns the numeric ordering of a level, debug lowest. Unknown
// levels return -1.
func (l LoggingLevel) Severity() int {
	if s, ok := loggingLevelSeverity[l]; ok {
		return s
	}
	return -1
}

// IsValid reports whether l is one of the eight defined levels.
func (l LoggingLevel) IsValid() bool {
	_, ok := loggingLevelSeverity[l]
	return ok
}

// Meets reports whether a record at level l passes a minimum-level filter
// of min.
func (l LoggingLevel) Meets(min LoggingLevel) bool {
	return l.Severity() >= min.Severity()
}

// SetLevelParams is the payload of logging/setLevel.
type SetLevelParams struct {
	Level LoggingLevel `json:"level"`
}

// LoggingMessageParams is the payload of notifications/message.
type LoggingMessageParams struct {
	Level  LoggingLevel `json:"level"`
	Logger string       `json:"logger,omitempty"`
	Data   interface{}  `json:"data,omitempty"`
}
