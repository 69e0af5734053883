package model

import (
	"time"

	"github.com/google/uuid"
)

// Request lifecycle event kinds.
const (
	EventRequestCreated     = "REQUEST_CREATED"
	EventRequestEdited      = "REQUEST_EDITED"
	EventRequestReinitiated = "REQUEST_REINITIATED"
	EventRequestWithdrawn   = "REQUEST_WITHDRAWN"
	EventSupervisorApproved = "SUPERVISOR_APPROVED"
	EventSupervisorRejected = "SUPERVISOR_REJECTED"
	EventStageApproved      = "STAGE_APPROVED"
	EventStageRejected      = "STAGE_REJECTED"
	EventAdminApproved      = "ADMIN_APPROVED"
	EventAdminRejected      = "ADMIN_REJECTED"
	EventAdminOverride      = "ADMIN_OVERRIDE"
	EventCommentAdded       = "COMMENT_ADDED"
	EventFilesAdded         = "FILES_ADDED"
	EventFileRemoved        = "FILE_REMOVED"
)

// RequestEvent is the structured append-only trail behind the human-readable
// last_action string on a request. One row per transition, never updated.
type RequestEvent struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID uuid.UUID  `gorm:"type:uuid;not null;index" json:"request_id"`
	ActorID   *uuid.UUID `gorm:"type:uuid;index" json:"actor_id"`
	Kind      string     `gorm:"type:varchar(50);not null;index" json:"kind"`
	Detail    string     `gorm:"type:text" json:"detail"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
