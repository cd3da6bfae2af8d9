package audit

import (
	"context"
	"time"
)

// Action names the domain mutations worth an audit trail entry.
type Action string

const (
	ActionEmployeeCreated    Action = "employee_created"
	ActionEmployeeUpdated    Action = "employee_updated"
	ActionEmployeeDeleted    Action = "employee_deleted"
	ActionCredentialIssued   Action = "credential_issued"
	ActionCredentialRedeemed Action = "credential_redeemed"
	ActionCredentialRevoked  Action = "credential_revoked"
	ActionStageAdvanced      Action = "onboarding_stage_advanced"
	ActionProgressSet        Action = "onboarding_progress_set"
	ActionTaskUpdated        Action = "onboarding_task_updated"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out. IDs are strings here because an
// event may reference any mix of organization, employee, user, and
// credential identifiers.
type Event struct {
	Action         Action            `json:"action"`
	Timestamp      time.Time         `json:"timestamp"`
	OrganizationID string            `json:"organization_id,omitempty"`
	EmployeeID     string            `json:"employee_id,omitempty"`
	UserID         string            `json:"user_id,omitempty"`
	CredentialID   string            `json:"credential_id,omitempty"`
	CredentialKind string            `json:"credential_kind,omitempty"`
	Actor          string            `json:"actor,omitempty"`
	RequestID      string            `json:"request_id,omitempty"`
	Detail         map[string]string `json:"detail,omitempty"`
}

// Emitter is the port services depend on. Implementations must be safe for
// concurrent use; Emit failures must not corrupt the business operation that
// triggered them.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Sink persists or forwards events. Publisher and Worker write through it.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
