package telemetry

import (
	"runtime"

	"github.com/asteroid-belt/farrierly/pkg/version"
)

// Event names - CLI
const (
	EventAppStarted         = "app_started"
	EventCLICommandExecuted = "cli_command_executed"
	EventCLIErrorOccurred   = "cli_error_occurred"
	EventPrefChanged        = "pref_changed"
)

// Event names - Sync
const (
	EventSyncCycleCompleted   = "sync_cycle_completed"
	EventSyncEntryQuarantined = "sync_entry_quarantined"
	EventSyncConflictDetected = "sync_conflict_detected"
	EventSyncRequeued         = "sync_requeued"
)

// Version is set at compile time via ldflags.
var Version string

// baseProperties returns common properties for all events.
func baseProperties() map[string]interface{} {
	return map[string]interface{}{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"version":    Version,
		"prerelease": version.IsPrerelease(),
		"dev_build":  version.IsDevBuild(),
		"channel":    version.Channel(),
	}
}

// --- CLI Tracking Methods ---

// TrackAppStarted tracks application startup.
func (c *posthogClient) TrackAppStarted(mode string, pendingCount int64) {
	props := baseProperties()
	props["mode"] = mode
	props["pending_count"] = pendingCount
	c.Track(EventAppStarted, props)
}

// TrackCLICommandExecuted tracks CLI command execution.
func (c *posthogClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {
	props := baseProperties()
	props["command_name"] = commandName
	props["has_flags"] = hasFlags
	props["execution_duration_ms"] = durationMs
	c.Track(EventCLICommandExecuted, props)
}

// TrackCLIError tracks CLI errors.
func (c *posthogClient) TrackCLIError(commandName, errorType string) {
	props := baseProperties()
	props["command_name"] = commandName
	props["error_type"] = errorType
	c.Track(EventCLIErrorOccurred, props)
}

// TrackPrefChanged tracks preference changes. Only the key is sent.
func (c *posthogClient) TrackPrefChanged(key string, isDefault bool) {
	props := baseProperties()
	props["pref_key"] = key
	props["is_default"] = isDefault
	c.Track(EventPrefChanged, props)
}

// --- Sync Tracking Methods ---

// TrackSyncCycleCompleted tracks the outcome of one drain cycle.
func (c *posthogClient) TrackSyncCycleCompleted(fetched, completed, failed, quarantined, conflicts int, durationMs int64) {
	props := baseProperties()
	props["fetched"] = fetched
	props["completed"] = completed
	props["failed"] = failed
	props["quarantined"] = quarantined
	props["conflicts"] = conflicts
	props["duration_ms"] = durationMs
	c.Track(EventSyncCycleCompleted, props)
}

// TrackSyncEntryQuarantined tracks an entry giving up on the backend.
func (c *posthogClient) TrackSyncEntryQuarantined(entityType, operation string, retryCount int) {
	props := baseProperties()
	props["entity_type"] = entityType
	props["operation"] = operation
	props["retry_count"] = retryCount
	c.Track(EventSyncEntryQuarantined, props)
}

// TrackSyncConflictDetected tracks a local change that lost to the backend.
func (c *posthogClient) TrackSyncConflictDetected(entityType, operation string) {
	props := baseProperties()
	props["entity_type"] = entityType
	props["operation"] = operation
	c.Track(EventSyncConflictDetected, props)
}

// TrackSyncRequeued tracks quarantined entries handed back to the queue.
func (c *posthogClient) TrackSyncRequeued(count int) {
	props := baseProperties()
	props["count"] = count
	c.Track(EventSyncRequeued, props)
}

// --- No-op Implementations ---

func (c *noopClient) TrackAppStarted(mode string, pendingCount int64)                                                  {}
func (c *noopClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64)                      {}
func (c *noopClient) TrackCLIError(commandName, errorType string)                                                      {}
func (c *noopClient) TrackPrefChanged(key string, isDefault bool)                                                      {}
func (c *noopClient) TrackSyncCycleCompleted(fetched, completed, failed, quarantined, conflicts int, durationMs int64) {}
func (c *noopClient) TrackSyncEntryQuarantined(entityType, operation string, retryCount int)                           {}
func (c *noopClient) TrackSyncConflictDetected(entityType, operation string)                                           {}
func (c *noopClient) TrackSyncRequeued(count int)                                                                      {}
