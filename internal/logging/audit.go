package logging

import (
	"net/http"

	"go.uber.org/zap"

	"outreach/internal/api"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names a state-changing call against the outreach API.
type AuditEventType string

const (
	AuditTaskCreate    AuditEventType = "task_create"
	AuditSelectionSave AuditEventType = "selection_save"
	AuditDraftGenerate AuditEventType = "draft_generate"
	AuditCampaignSend  AuditEventType = "campaign_send"
	AuditOther         AuditEventType = "other"
)

// auditOps maps client operation names to audit event types.
var auditOps = map[string]AuditEventType{
	"create search task": AuditTaskCreate,
	"save influencers":   AuditSelectionSave,
	"generate draft":     AuditDraftGenerate,
	"send campaign":      AuditCampaignSend,
}

// AuditEventFor classifies a client operation.
func AuditEventFor(op string) AuditEventType {
	if t, ok := auditOps[op]; ok {
		return t
	}
	return AuditOther
}

// AuditCall records a finished request in the audit log when it changed
// server state. Reads are ignored. It matches the signature expected by
// api.WithObserver.
func AuditCall(call api.Call) {
	if call.Method == http.MethodGet || call.Method == http.MethodHead {
		return
	}
	l := Get(CategoryAudit)
	fields := []zap.Field{
		zap.String("event", string(AuditEventFor(call.Op))),
		zap.String("op", call.Op),
		zap.String("method", call.Method),
		zap.String("request_id", call.RequestID),
		zap.Int("status", call.Status),
		zap.Int64("dur_ms", call.Elapsed.Milliseconds()),
		zap.Bool("success", call.Err == nil),
	}
	if call.Err != nil {
		l.Warn("audit", append(fields, zap.Error(call.Err))...)
		return
	}
	l.Info("audit", fields...)
}
