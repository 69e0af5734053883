package service

import (
	"time"

	"nfa-backend/internal/model"
)

// The projector renders "NA" for every absent value instead of null. This
// sentinel is part of the external contract and must not be changed.
const naValue = "NA"

// ApprovalEntry is one row of the projected approval hierarchy: the synthetic
// Supervisor stage first, then one entry per chain approver in order.
type ApprovalEntry struct {
	Role       string `json:"role"` // "Supervisor" or "Approver"
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Approved   string `json:"approved"`
	ReceivedAt string `json:"received_at"`
	ActionTime string `json:"action_time"`
	Comment    string `json:"comment"`
}

// ApproverActionView mirrors a stored ApproverAction for read responses.
type ApproverActionView struct {
	ApproverID string `json:"approver_id"`
	Approved   string `json:"approved"`
	ReceivedAt string `json:"received_at"`
	ActionTime string `json:"action_time"`
	Comment    string `json:"comment"`
	ApprovedBy string `json:"approved_by,omitempty"`
}

// RequestView is the read-only projection of a request used for all read
// responses. Timestamps are display-formatted strings; absent values render
// as the "NA" sentinel.
type RequestView struct {
	ID                   string               `json:"id"`
	InitiatorID          string               `json:"initiator_id"`
	SupervisorID         string               `json:"supervisor_id"`
	Subject              string               `json:"subject"`
	Description          string               `json:"description"`
	Area                 string               `json:"area"`
	Project              string               `json:"project"`
	Tower                string               `json:"tower"`
	Department           string               `json:"department"`
	References           string               `json:"references"`
	Priority             string               `json:"priority"`
	Approvers            []string             `json:"approvers"`
	CurrentApproverIndex int                  `json:"current_approver_index"`
	Status               string               `json:"status"`
	CreatedAt            string               `json:"created_at"`
	UpdatedAt            string               `json:"updated_at"`
	LastAction           string               `json:"last_action"`
	SupervisorApprovedAt string               `json:"supervisor_approved_at"`
	AdminComment         string               `json:"admin_comment,omitempty"`
	InitiatorName        string               `json:"initiator_name"`
	SupervisorName       string               `json:"supervisor_name"`
	PendingAt            string               `json:"pending_at"`
	ApproverActions      []ApproverActionView `json:"approver_actions"`
	ApprovalHierarchy    []ApprovalEntry      `json:"approval_hierarchy"`
	Files                []model.Attachment   `json:"files"`
	IsApproved           *bool                `json:"isApproved,omitempty"`
}

// BuildRequestView derives the read-only view of a request from its stored
// state, its approver actions and the users referenced by it. Pure function,
// no persistence side effects.
func BuildRequestView(req *model.Request, actions []model.ApproverAction, users map[string]*model.User) RequestView {
	view := RequestView{
		ID:                   req.ID.String(),
		InitiatorID:          req.InitiatorID.String(),
		SupervisorID:         req.SupervisorID.String(),
		Subject:              orNA(req.Subject),
		Description:          orNA(req.Description),
		Area:                 orNA(req.Area),
		Project:              orNA(req.Project),
		Tower:                orNA(req.Tower),
		Department:           orNA(req.Department),
		References:           orNA(req.References),
		Priority:             orNA(req.Priority),
		Approvers:            append([]string{}, req.Approvers...),
		CurrentApproverIndex: req.CurrentApproverIndex,
		Status:               orNA(req.Status),
		CreatedAt:            formatTime(&req.CreatedAt),
		UpdatedAt:            formatTime(&req.UpdatedAt),
		LastAction:           orNA(req.LastAction),
		SupervisorApprovedAt: formatTime(req.SupervisorApprovedAt),
		AdminComment:         req.AdminComment,
		InitiatorName:        userName(users, req.InitiatorID.String()),
		SupervisorName:       userName(users, req.SupervisorID.String()),
		PendingAt:            pendingAt(req, users),
		Files:                req.Files,
	}
	if view.Files == nil {
		view.Files = model.AttachmentList{}
	}

	actionByApprover := make(map[string]*model.ApproverAction, len(actions))
	for i := range actions {
		a := actions[i]
		view.ApproverActions = append(view.ApproverActions, ApproverActionView{
			ApproverID: a.ApproverID.String(),
			Approved:   orNA(a.Approved),
			ReceivedAt: orNA(a.ReceivedAt),
			ActionTime: orNA(a.ActionTime),
			Comment:    orNA(a.Comment),
			ApprovedBy: a.ApprovedBy,
		})
		actionByApprover[a.ApproverID.String()] = &actions[i]
	}

	// Synthetic supervisor entry first. Its received_at is the request
	// creation time; action_time is the supervisor decision time.
	supervisorDecision := "Pending"
	if req.SupervisorApproved != nil {
		if *req.SupervisorApproved {
			supervisorDecision = "Approved"
		} else {
			supervisorDecision = model.DecisionRejected
		}
	}
	view.ApprovalHierarchy = append(view.ApprovalHierarchy, ApprovalEntry{
		Role:       "Supervisor",
		UserID:     req.SupervisorID.String(),
		Name:       userName(users, req.SupervisorID.String()),
		Approved:   supervisorDecision,
		ReceivedAt: formatTime(&req.CreatedAt),
		ActionTime: formatTime(req.SupervisorApprovedAt),
		Comment:    orNA(req.SupervisorComment),
	})

	for _, approverID := range req.Approvers {
		entry := ApprovalEntry{
			Role:       "Approver",
			UserID:     approverID,
			Name:       userName(users, approverID),
			Approved:   "Pending",
			ReceivedAt: naValue,
			ActionTime: naValue,
			Comment:    naValue,
		}
		if a, ok := actionByApprover[approverID]; ok {
			entry.Approved = orNA(a.Approved)
			entry.ReceivedAt = orNA(a.ReceivedAt)
			entry.ActionTime = orNA(a.ActionTime)
			entry.Comment = orNA(a.Comment)
		}
		view.ApprovalHierarchy = append(view.ApprovalHierarchy, entry)
	}

	return view
}

// pendingAt labels who the request is currently waiting on.
func pendingAt(req *model.Request, users map[string]*model.User) string {
	switch req.Status {
	case model.StatusNew:
		return "Supervisor"
	case model.StatusInProgress:
		if req.CurrentApproverIndex < len(req.Approvers) {
			return "Approver: " + userName(users, req.Approvers[req.CurrentApproverIndex])
		}
	}
	return naValue
}

func userName(users map[string]*model.User, id string) string {
	if u, ok := users[id]; ok && u != nil {
		return u.Name
	}
	return naValue
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return naValue
	}
	return t.Format(model.DisplayTimeFormat)
}

func orNA(s string) string {
	if s == "" {
		return naValue
	}
	return s
}
