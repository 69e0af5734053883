package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Request status vocabulary. These literals are externally visible and must be
// preserved verbatim. StatusAdminApproved is deliberately NOT the same literal
// as StatusApproved: gates that check for full approval (e.g. PDF download)
// only accept StatusApproved.
const (
	StatusNew           = "NEW"
	StatusInProgress    = "IN_PROGRESS"
	StatusApproved      = "APPROVED"
	StatusRejected      = "REJECTED"
	StatusAdminApproved = "Approved by ADMIN"
)

// Decision literals recorded on ApproverAction rows.
const (
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)

// DisplayTimeFormat is the human-readable timestamp format used in last_action
// trails, approver action rows and projected responses.
const DisplayTimeFormat = "02-01-2006 15:04"

// Attachment is one stored file reference on a request.
type Attachment struct {
	FileURL         string `json:"file_url"`
	FileDisplayName string `json:"file_display_name"`
}

// AttachmentList is stored as a jsonb column.
type AttachmentList []Attachment

func (a AttachmentList) Value() (driver.Value, error) {
	if a == nil {
		a = AttachmentList{}
	}
	return json.Marshal(a)
}

func (a *AttachmentList) Scan(value interface{}) error {
	if value == nil {
		*a = AttachmentList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return errors.New("unsupported type for AttachmentList")
	}
}

// Request is the workflow unit (an NFA — "Note For Approval") routed through
// the supervisor stage and the ordered approver chain.
type Request struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InitiatorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"initiator_id"`
	SupervisorID uuid.UUID `gorm:"type:uuid;not null;index" json:"supervisor_id"`

	Subject     string `gorm:"type:varchar(255);not null" json:"subject"`
	Description string `gorm:"type:text;not null" json:"description"`
	Area        string `gorm:"type:varchar(255);not null" json:"area"`
	Project     string `gorm:"type:varchar(255);not null" json:"project"`
	Tower       string `gorm:"type:varchar(255);not null" json:"tower"`
	Department  string `gorm:"type:varchar(255);not null" json:"department"`
	References  string `gorm:"type:varchar(255)" json:"references"`
	Priority    string `gorm:"type:varchar(50);not null" json:"priority"` // opaque label, not validated

	// Approvers never contains SupervisorID — filtered on every write path.
	// CurrentApproverIndex is meaningful only while status is IN_PROGRESS.
	Approvers            pq.StringArray `gorm:"type:text[];not null" json:"approvers"`
	CurrentApproverIndex int            `gorm:"not null;default:0" json:"current_approver_index"`
	Status               string         `gorm:"type:varchar(30);not null;default:'NEW';index" json:"status"`

	SupervisorApproved   *bool      `json:"supervisor_approved"`
	SupervisorApprovedAt *time.Time `json:"supervisor_approved_at"`
	SupervisorComment    string     `gorm:"type:text" json:"supervisor_comment"`

	AdminComment string         `gorm:"type:text" json:"admin_comment"`
	LastAction   string         `gorm:"type:varchar(512)" json:"last_action"`
	Files        AttachmentList `gorm:"type:jsonb" json:"files"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether no further review/override may mutate the status.
func (r *Request) IsTerminal() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected
}

// ApproverIDs parses the stored approver chain into uuids. Malformed entries
// are skipped; write paths only ever store valid uuid strings.
func (r *Request) ApproverIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Approvers))
	for _, s := range r.Approvers {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// ApproverAction is the immutable record of one approver's decision at one
// chain stage. ApproverID is always the expected approver for that stage,
// even when an elevated user acted on their behalf (ApprovedBy then carries
// the acting user's name). The composite unique index enforces the
// at-most-once guarantee per stage at the storage level.
type ApproverAction struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_request_approver" json:"request_id"`
	ApproverID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_request_approver" json:"approver_id"`
	Approved   string    `gorm:"type:varchar(20);not null" json:"approved"` // APPROVED or REJECTED
	ReceivedAt string    `gorm:"type:varchar(50)" json:"received_at"`
	ActionTime string    `gorm:"type:varchar(50)" json:"action_time"`
	Comment    string    `gorm:"type:text" json:"comment"`
	ApprovedBy string    `gorm:"type:varchar(255)" json:"approved_by,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
