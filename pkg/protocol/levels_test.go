package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggingLevelOrdering(t *testing.T) {
	ordered := []LoggingLevel{
		LoggingLevelDebug,
		LoggingLevelInfo,
		LoggingLevelNotice,
		LoggingLevelWarning,
		LoggingLevelError,
		LoggingLevelCritical,
		LoggingLevelAlert,
		LoggingLevelEmergency,
	}

	for i, level := range ordered {
		assert.Equal(t, i, level.Severity(), "severity of %s", level)
		assert.True(t, level.IsValid())
	}
	assert.Equal(t, -1, LoggingLevel("verbose").Severity())
	assert.False(t, LoggingLevel("verbose").IsValid())
}

func TestLoggingLevelMeets(t *testing.T) {
	assert.True(t, LoggingLevelError.Meets(LoggingLevelWarning))
	assert.True(t, LoggingLevelWarning.Meets(LoggingLevelWarning))
	assert.False(t, LoggingLevelInfo.Meets(LoggingLevelWarning))
	assert.True(t, LoggingLevelEmergency.Meets(LoggingLevelDebug))
}

func TestProtocolVersionSupport(t *testing.T) {
	assert.True(t, IsProtocolVersionSupported(LatestProtocolVersion))
	assert.True(t, IsProtocolVersionSupported("2024-10-07"))
	assert.False(t, IsProtocolVersionSupported("1999-01-01"))
	assert.Equal(t, LatestProtocolVersion, SupportedProtocolVersions[0])
}
