package scheduler

import "time"

// AuditEntry records one Add/Del invocation a fault task issued, adapted from
// jhkimqd/chaos-utils/pkg/core/cleanup/coordinator.go's AuditEntry into per-fault bookkeeping
// rather than a cleanup-coordinator-wide log.
type AuditEntry struct {
	Timestamp  time.Time
	Action     string // "add" or "del"
	Command    string
	ReturnCode int
}

func newAuditEntry(action, command string, returnCode int) AuditEntry {
	return AuditEntry{Timestamp: time.Now(), Action: action, Command: command, ReturnCode: returnCode}
}
