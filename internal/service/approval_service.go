package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nfa-backend/internal/apperr"
	"nfa-backend/internal/model"
	"nfa-backend/internal/repository"
	"nfa-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// --- DTOs ---

type RequestContent struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Area        string `json:"area"`
	Project     string `json:"project"`
	Tower       string `json:"tower"`
	Department  string `json:"department"`
	References  string `json:"references"`
	Priority    string `json:"priority"`
}

// FileUpload is one uploaded attachment payload.
type FileUpload struct {
	Name    string
	Content []byte
}

type SubmitRequestInput struct {
	SupervisorID string
	Content      RequestContent
	Approvers    []string
	Files        []FileUpload
}

type ReviewInput struct {
	RequestID string `json:"request_id" binding:"required"`
	Approved  bool   `json:"approved"`
	Comment   string `json:"comment"`
}

type EditRequestInput struct {
	Content   RequestContent
	Approvers []string
	Files     []FileUpload
}

// ReinitiateInput drives the two re-initiation modes of a REJECTED request:
// EditDetails=true resets the same row in place (Content and Approvers
// required), EditDetails=false clones into a new row, optionally overriding
// content and chain when a full new set is supplied.
type ReinitiateInput struct {
	EditDetails bool
	Content     *RequestContent
	Approvers   []string
	Files       []FileUpload
}

// Broadcaster pushes serialized lifecycle events to connected clients.
type Broadcaster interface {
	GetBroadcast() chan []byte
}

// --- Interface ---

// ApprovalService owns the request state machine: it validates transitions,
// advances the approver pointer, records stage actions and keeps the audit
// trail consistent. Every method runs as a single transaction.
type ApprovalService interface {
	Submit(ctx context.Context, callerID string, in SubmitRequestInput) (*RequestView, error)
	Review(ctx context.Context, callerID string, in ReviewInput) (*RequestView, error)
	AdminApprove(ctx context.Context, callerID, requestID string) (*RequestView, error)
	AdminDecide(ctx context.Context, callerID string, in ReviewInput) (*RequestView, error)
	AdminStageOverride(ctx context.Context, callerID string, in ReviewInput) (*RequestView, error)
	Edit(ctx context.Context, callerID, requestID string, in EditRequestInput) (*RequestView, error)
	Reinitiate(ctx context.Context, callerID, requestID string, in ReinitiateInput) (*RequestView, error)
	Withdraw(ctx context.Context, callerID, requestID string) error
	AddFiles(ctx context.Context, callerID, requestID string, files []FileUpload) ([]model.Attachment, error)
	RemoveFile(ctx context.Context, callerID, requestID, fileURL string) error
	AddAdminComment(ctx context.Context, callerID, requestID, comment string) (*RequestView, error)
}

type approvalService struct {
	requests repository.RequestRepository
	actions  repository.ActionRepository
	events   repository.EventRepository
	users    repository.UserRepository
	txm      repository.TransactionManager
	store    storage.AttachmentStore
	hub      Broadcaster // optional websocket hub
}

// NewApprovalService wires the approval engine with its collaborators.
func NewApprovalService(
	requests repository.RequestRepository,
	actions repository.ActionRepository,
	events repository.EventRepository,
	users repository.UserRepository,
	txm repository.TransactionManager,
	store storage.AttachmentStore,
	hub Broadcaster,
) ApprovalService {
	return &approvalService{
		requests: requests,
		actions:  actions,
		events:   events,
		users:    users,
		txm:      txm,
		store:    store,
		hub:      hub,
	}
}

// --- Implementation ---

func (s *approvalService) Submit(ctx context.Context, callerID string, in SubmitRequestInput) (*RequestView, error) {
	if err := validateContent(in.Content, false); err != nil {
		return nil, err
	}
	supervisorID, err := uuid.Parse(in.SupervisorID)
	if err != nil {
		return nil, apperr.InvalidState("invalid supervisor id")
	}
	approvers, err := parseApprovers(in.Approvers, supervisorID)
	if err != nil {
		return nil, err
	}

	var req *model.Request
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		caller, err := s.loadCaller(txCtx, callerID)
		if err != nil {
			return err
		}
		if _, err := s.users.GetByID(txCtx, supervisorID.String()); err != nil {
			return apperr.NotFound("supervisor %s not found", supervisorID)
		}

		now := time.Now().UTC()
		content := in.Content
		if content.Priority == "" {
			content.Priority = "Low"
		}
		req = &model.Request{
			ID:                   uuid.New(),
			InitiatorID:          caller.ID,
			SupervisorID:         supervisorID,
			Subject:              content.Subject,
			Description:          content.Description,
			Area:                 content.Area,
			Project:              content.Project,
			Tower:                content.Tower,
			Department:           content.Department,
			References:           content.References,
			Priority:             content.Priority,
			Approvers:            approvers,
			CurrentApproverIndex: 0,
			Status:               model.StatusNew,
			LastAction:           "Request created at " + now.Format(model.DisplayTimeFormat),
			Files:                model.AttachmentList{},
		}
		if err := s.saveUploads(req, in.Files); err != nil {
			return err
		}
		if err := s.requests.Create(txCtx, req); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		return s.emit(txCtx, req, &caller.ID, model.EventRequestCreated, "request created")
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("request.submitted", req)
	return s.view(ctx, req)
}

// Review is the single transition-advancing operation: the supervisor stage
// while the request is NEW, the current chain stage while IN_PROGRESS.
func (s *approvalService) Review(ctx context.Context, callerID string, in ReviewInput) (*RequestView, error) {
	return s.decide(ctx, callerID, in, false)
}

// AdminStageOverride applies the same transition logic as Review but skips
// the expected-approver gate and marks recorded comments as overrides.
func (s *approvalService) AdminStageOverride(ctx context.Context, callerID string, in ReviewInput) (*RequestView, error) {
	return s.decide(ctx, callerID, in, true)
}

func (s *approvalService) decide(ctx context.Context, callerID string, in ReviewInput, override bool) (*RequestView, error) {
	var req *model.Request
	var eventName string
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		caller, err := s.loadCaller(txCtx, callerID)
		if err != nil {
			return err
		}
		if override && !caller.IsElevated() {
			return apperr.Forbidden("admin privileges required")
		}
		req, err = s.getRequest(txCtx, in.RequestID)
		if err != nil {
			return err
		}
		if req.IsTerminal() {
			return apperr.InvalidState("request is already %s and cannot be changed", req.Status)
		}

		now := time.Now().UTC()
		switch req.Status {
		case model.StatusNew:
			eventName, err = s.decideSupervisorStage(txCtx, req, caller, in, now, override)
		case model.StatusInProgress:
			eventName, err = s.decideChainStage(txCtx, req, caller, in, now, override)
		default:
			return apperr.InvalidState("request cannot be approved or rejected in its current state")
		}
		if err != nil {
			return err
		}

		req.UpdatedAt = now
		if err := s.requests.Save(txCtx, req); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(eventName, req)
	return s.view(ctx, req)
}

// decideSupervisorStage applies the supervisor decision on a NEW request.
func (s *approvalService) decideSupervisorStage(ctx context.Context, req *model.Request, caller *model.User, in ReviewInput, now time.Time, override bool) (string, error) {
	if !override && caller.ID != req.SupervisorID && !caller.IsElevated() {
		return "", apperr.Forbidden("not authorized to approve/reject at supervisor stage")
	}

	ts := now.Format(model.DisplayTimeFormat)
	comment := in.Comment
	prefix := ""
	if override {
		comment = strings.TrimSpace("[Admin Override] " + comment)
		prefix = "Admin override: "
	}

	approved := in.Approved
	req.SupervisorApproved = &approved
	req.SupervisorComment = comment
	req.SupervisorApprovedAt = &now

	eventKind := model.EventSupervisorRejected
	eventName := "request.rejected"
	switch {
	case approved && len(req.Approvers) > 0:
		req.Status = model.StatusInProgress
		req.CurrentApproverIndex = 0
		req.LastAction = prefix + "Supervisor approved at " + ts
		eventKind = model.EventSupervisorApproved
		eventName = "request.in_progress"
	case approved:
		req.Status = model.StatusApproved
		req.LastAction = prefix + "Supervisor approved at " + ts + ". No further approvers – request is fully approved."
		eventKind = model.EventSupervisorApproved
		eventName = "request.approved"
	default:
		req.Status = model.StatusRejected
		req.LastAction = prefix + "Supervisor rejected at " + ts
	}
	if override {
		eventKind = model.EventAdminOverride
	}
	return eventName, s.emit(ctx, req, &caller.ID, eventKind, req.LastAction)
}

// decideChainStage applies one chain-stage decision on an IN_PROGRESS request.
func (s *approvalService) decideChainStage(ctx context.Context, req *model.Request, caller *model.User, in ReviewInput, now time.Time, override bool) (string, error) {
	if req.CurrentApproverIndex >= len(req.Approvers) {
		return "", apperr.InvalidState("no further approver action is pending for this request")
	}
	expectedID, err := uuid.Parse(req.Approvers[req.CurrentApproverIndex])
	if err != nil {
		return "", apperr.InvalidState("malformed approver chain")
	}
	if !override && caller.ID != expectedID && !caller.IsElevated() {
		return "", apperr.Forbidden("not authorized to approve this pending stage")
	}

	// Friendly pre-check; the unique index on (request_id, approver_id)
	// closes the race when two decisions arrive at once.
	existing, err := s.actions.Get(ctx, req.ID, expectedID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", apperr.Conflict("an action has already been taken on this stage")
	}

	ts := now.Format(model.DisplayTimeFormat)
	decision := model.DecisionRejected
	if in.Approved {
		decision = model.DecisionApproved
	}

	// The expected approver's id is always stored, even when an elevated
	// user acts on their behalf; ApprovedBy records who actually acted.
	action := &model.ApproverAction{
		RequestID:  req.ID,
		ApproverID: expectedID,
		Approved:   decision,
		ReceivedAt: ts,
		ActionTime: ts,
		Comment:    in.Comment,
	}
	eventKind := model.EventStageRejected
	if in.Approved {
		eventKind = model.EventStageApproved
	}
	switch {
	case override:
		action.Comment = strings.TrimSpace("[Admin Override] " + in.Comment)
		action.ApprovedBy = caller.Name
		req.LastAction = "Admin override: stage decided at " + ts
		eventKind = model.EventAdminOverride
	case caller.ID != expectedID:
		action.ApprovedBy = caller.Name
		req.LastAction = "Approved by " + caller.Name + " at " + ts
	default:
		req.LastAction = "Approver " + expectedID.String() + " approved at " + ts
	}
	if err := s.actions.Insert(ctx, action); err != nil {
		return "", err
	}

	eventName := "request.rejected"
	if in.Approved {
		req.CurrentApproverIndex++
		if req.CurrentApproverIndex >= len(req.Approvers) {
			req.Status = model.StatusApproved
			req.LastAction += ". All approvals are completed."
			eventName = "request.approved"
		} else {
			req.LastAction += ". Next approver is user " + req.Approvers[req.CurrentApproverIndex] + "."
			eventName = "request.stage_advanced"
		}
	} else {
		req.Status = model.StatusRejected
		if override {
			req.LastAction = "Admin override: Rejected at " + ts + "."
		} else {
			req.LastAction = "Approver action rejected at " + ts
		}
	}
	return eventName, s.emit(ctx, req, &caller.ID, eventKind, req.LastAction)
}

// AdminApprove unconditionally stamps the distinct "Approved by ADMIN" status,
// bypassing the chain entirely. This literal is deliberately not APPROVED:
// gates that check for full approval do not accept it.
func (s *approvalService) AdminApprove(ctx context.Context, callerID, requestID string) (*RequestView, error) {
	var req *model.Request
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		caller, err := s.requireElevated(txCtx, callerID)
		if err != nil {
			return err
		}
		req, err = s.getRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		req.Status = model.StatusAdminApproved
		req.LastAction = "Approved by ADMIN at " + now.Format(model.DisplayTimeFormat)
		req.UpdatedAt = now
		if err := s.requests.Save(txCtx, req); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		return s.emit(txCtx, req, &caller.ID, model.EventAdminApproved, req.LastAction)
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("request.admin_approved", req)
	return s.view(ctx, req)
}

// AdminDecide forces a terminal APPROVED or REJECTED status regardless of the
// current stage.
func (s *approvalService) AdminDecide(ctx context.Context, callerID string, in ReviewInput) (*RequestView, error) {
	var req *model.Request
	var eventName string
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		caller, err := s.requireElevated(txCtx, callerID)
		if err != nil {
			return err
		}
		req, err = s.getRequest(txCtx, in.RequestID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		ts := now.Format(model.DisplayTimeFormat)
		eventKind := model.EventAdminRejected
		eventName = "request.rejected"
		if in.Approved {
			req.Status = model.StatusApproved
			req.LastAction = "Admin approved at " + ts
			eventKind = model.EventAdminApproved
			eventName = "request.approved"
		} else {
			req.Status = model.StatusRejected
			req.LastAction = "Admin rejected at " + ts
		}
		req.UpdatedAt = now
		if err := s.requests.Save(txCtx, req); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		return s.emit(txCtx, req, &caller.ID, eventKind, req.LastAction)
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(eventName, req)
	return s.view(ctx, req)
}

// Edit replaces content and chain of a NEW request and wipes any stale stage
// actions left over from a superseded state.
func (s *approvalService) Edit(ctx context.Context, callerID, requestID string, in EditRequestInput) (*RequestView, error) {
	if err := validateContent(in.Content, true); err != nil {
		return nil, err
	}

	var req *model.Request
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		caller, err := s.loadCaller(txCtx, callerID)
		if err != nil {
			return err
		}
		req, err = s.getRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.Status != model.StatusNew {
			return apperr.InvalidState("only NEW requests can be edited")
		}
		if req.InitiatorID != caller.ID {
			return apperr.Forbidden("you are not allowed to edit this request")
		}
		approvers, err := parseApprovers(in.Approvers, req.SupervisorID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		applyContent(req, in.Content)
		req.Approvers = approvers
		req.UpdatedAt = now
		req.LastAction = "Request edited at " + now.Format(model.DisplayTimeFormat)
		if err := s.actions.DeleteByRequest(txCtx, req.ID); err != nil {
			return err
		}
		if err := s.saveUploads(req, in.Files); err != nil {
			return err
		}
		if err := s.requests.Save(txCtx, req); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		return s.emit(txCtx, req, &caller.ID, model.EventRequestEdited, req.LastAction)
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("request.edited", req)
	return s.view(ctx, req)
}

func (s *approvalService) Reinitiate(ctx context.Context, callerID, requestID string, in ReinitiateInput) (*RequestView, error) {
	var result *model.Request
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		caller, err := s.loadCaller(txCtx, callerID)
		if err != nil {
			return err
		}
		req, err := s.getRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.InitiatorID != caller.ID {
			return apperr.Forbidden("you are not allowed to reinitiate this request")
		}
		if req.Status != model.StatusRejected {
			return apperr.InvalidState("only REJECTED requests can be re-initiated")
		}

		now := time.Now().UTC()
		ts := now.Format(model.DisplayTimeFormat)

		if in.EditDetails {
			// In-place mode: same row, full new detail set required.
			if in.Content == nil || in.Approvers == nil {
				return apperr.InvalidState("all fields are required for editing details")
			}
			if err := validateContent(*in.Content, true); err != nil {
				return err
			}
			approvers, err := parseApprovers(in.Approvers, req.SupervisorID)
			if err != nil {
				return err
			}
			applyContent(req, *in.Content)
			req.Approvers = approvers
			req.Status = model.StatusNew
			req.CurrentApproverIndex = 0
			req.SupervisorApproved = nil
			req.SupervisorApprovedAt = nil
			req.SupervisorComment = ""
			req.LastAction = "Request re-initiated at " + ts
			req.UpdatedAt = now
			if err := s.actions.DeleteByRequest(txCtx, req.ID); err != nil {
				return err
			}
			if err := s.saveUploads(req, in.Files); err != nil {
				return err
			}
			if err := s.requests.Save(txCtx, req); err != nil {
				return fmt.Errorf("failed to update request: %w", err)
			}
			result = req
			return s.emit(txCtx, req, &caller.ID, model.EventRequestReinitiated, req.LastAction)
		}

		// Clone mode: new row copying the rejected request, or a full
		// override set when supplied. Old attachments are not copied.
		clone := &model.Request{
			ID:                   uuid.New(),
			InitiatorID:          req.InitiatorID,
			SupervisorID:         req.SupervisorID,
			Subject:              req.Subject,
			Description:          req.Description,
			Area:                 req.Area,
			Project:              req.Project,
			Tower:                req.Tower,
			Department:           req.Department,
			References:           req.References,
			Priority:             req.Priority,
			Approvers:            append(pq.StringArray{}, req.Approvers...),
			CurrentApproverIndex: 0,
			Status:               model.StatusNew,
			LastAction:           "Request re-initiated at " + ts,
			Files:                model.AttachmentList{},
		}
		if in.Content != nil && in.Approvers != nil {
			if err := validateContent(*in.Content, true); err != nil {
				return err
			}
			approvers, err := parseApprovers(in.Approvers, req.SupervisorID)
			if err != nil {
				return err
			}
			applyContent(clone, *in.Content)
			clone.Approvers = approvers
		}
		if err := s.saveUploads(clone, in.Files); err != nil {
			return err
		}
		if err := s.requests.Create(txCtx, clone); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		result = clone
		return s.emit(txCtx, clone, &caller.ID, model.EventRequestReinitiated, clone.LastAction)
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("request.reinitiated", result)
	return s.view(ctx, result)
}

// Withdraw permanently deletes a NEW request together with its dependent rows.
func (s *approvalService) Withdraw(ctx context.Context, callerID, requestID string) error {
	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		caller, err := s.loadCaller(txCtx, callerID)
		if err != nil {
			return err
		}
		req, err := s.getRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.Status != model.StatusNew {
			return apperr.InvalidState("only NEW requests can be withdrawn")
		}
		if req.InitiatorID != caller.ID {
			return apperr.Forbidden("you are not allowed to withdraw this request")
		}
		if err := s.actions.DeleteByRequest(txCtx, req.ID); err != nil {
			return err
		}
		if err := s.events.DeleteByRequest(txCtx, req.ID); err != nil {
			return err
		}
		return s.requests.Delete(txCtx, req.ID)
	})
}

// AddFiles appends stored attachments to an existing request.
func (s *approvalService) AddFiles(ctx context.Context, callerID, requestID string, files []FileUpload) ([]model.Attachment, error) {
	if len(files) == 0 {
		return nil, apperr.InvalidState("no files provided")
	}
	var stored model.AttachmentList
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		caller, err := s.loadCaller(txCtx, callerID)
		if err != nil {
			return err
		}
		req, err := s.getRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.InitiatorID != caller.ID && !caller.IsElevated() {
			return apperr.Forbidden("not authorized to upload files for this request")
		}
		if err := s.saveUploads(req, files); err != nil {
			return err
		}
		req.UpdatedAt = time.Now().UTC()
		if err := s.requests.Save(txCtx, req); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		stored = req.Files
		return s.emit(txCtx, req, &caller.ID, model.EventFilesAdded, fmt.Sprintf("%d file(s) added", len(files)))
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// RemoveFile detaches one attachment from a request and removes it from disk.
func (s *approvalService) RemoveFile(ctx context.Context, callerID, requestID, fileURL string) error {
	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		caller, err := s.requireElevated(txCtx, callerID)
		if err != nil {
			return err
		}
		req, err := s.getRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		if len(req.Files) == 0 {
			return apperr.NotFound("no files associated with this request")
		}

		target := normalizeFileURL(fileURL)
		kept := make(model.AttachmentList, 0, len(req.Files))
		for _, f := range req.Files {
			if normalizeFileURL(f.FileURL) != target {
				kept = append(kept, f)
			}
		}
		if len(kept) == len(req.Files) {
			return apperr.NotFound("file not found in the request")
		}
		req.Files = kept
		req.UpdatedAt = time.Now().UTC()
		if err := s.requests.Save(txCtx, req); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		if err := s.store.Remove(fileURL); err != nil {
			return err
		}
		return s.emit(txCtx, req, &caller.ID, model.EventFileRemoved, fileURL)
	})
}

// AddAdminComment appends to the admin comment trail with a " | " separator.
func (s *approvalService) AddAdminComment(ctx context.Context, callerID, requestID, comment string) (*RequestView, error) {
	var req *model.Request
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		caller, err := s.requireElevated(txCtx, callerID)
		if err != nil {
			return err
		}
		req, err = s.getRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.AdminComment != "" {
			req.AdminComment += " | " + comment
		} else {
			req.AdminComment = comment
		}
		now := time.Now().UTC()
		req.LastAction = "Admin comment added at " + now.Format(model.DisplayTimeFormat)
		req.UpdatedAt = now
		if err := s.requests.Save(txCtx, req); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		return s.emit(txCtx, req, &caller.ID, model.EventCommentAdded, comment)
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, req)
}

// --- Helpers ---

func (s *approvalService) loadCaller(ctx context.Context, callerID string) (*model.User, error) {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("%w: caller identity not found", apperr.ErrUnauthorized)
	}
	return caller, nil
}

func (s *approvalService) requireElevated(ctx context.Context, callerID string) (*model.User, error) {
	caller, err := s.loadCaller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.IsElevated() {
		return nil, apperr.Forbidden("admin privileges required")
	}
	return caller, nil
}

func (s *approvalService) getRequest(ctx context.Context, requestID string) (*model.Request, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return nil, apperr.InvalidState("invalid request id")
	}
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("request not found")
	}
	return req, nil
}

// saveUploads stores every upload and appends the locators to the request.
// Any storage failure aborts the caller's transaction so the request is never
// left half-updated.
func (s *approvalService) saveUploads(req *model.Request, files []FileUpload) error {
	for _, f := range files {
		att, err := s.store.Save(f.Content, req.ID.String(), f.Name)
		if err != nil {
			return err
		}
		req.Files = append(req.Files, att)
	}
	return nil
}

func (s *approvalService) emit(ctx context.Context, req *model.Request, actorID *uuid.UUID, kind, detail string) error {
	return s.events.Append(ctx, &model.RequestEvent{
		RequestID: req.ID,
		ActorID:   actorID,
		Kind:      kind,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
}

// broadcast pushes a lifecycle event to the websocket hub without blocking
// the request path when no consumer is attached.
func (s *approvalService) broadcast(event string, req *model.Request) {
	if s.hub == nil || req == nil {
		return
	}
	msg, err := json.Marshal(map[string]interface{}{
		"type":       event,
		"request_id": req.ID.String(),
		"status":         req.Status,
		"approver_index": req.CurrentApproverIndex,
	})
	if err != nil {
		return
	}
	select {
	case s.hub.GetBroadcast() <- msg:
	default:
	}
}

// view assembles the read projection for a request (actions + user names).
func (s *approvalService) view(ctx context.Context, req *model.Request) (*RequestView, error) {
	actions, err := s.actions.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	users := s.collectUsers(ctx, req)
	v := BuildRequestView(req, actions, users)
	return &v, nil
}

// collectUsers resolves every user referenced by a request. Missing users are
// simply absent from the map and render as "NA".
func (s *approvalService) collectUsers(ctx context.Context, reqs ...*model.Request) map[string]*model.User {
	users := make(map[string]*model.User)
	lookup := func(id string) {
		if _, ok := users[id]; ok {
			return
		}
		if u, err := s.users.GetByID(ctx, id); err == nil {
			users[id] = u
		}
	}
	for _, req := range reqs {
		lookup(req.InitiatorID.String())
		lookup(req.SupervisorID.String())
		for _, a := range req.Approvers {
			lookup(a)
		}
	}
	return users
}

// parseApprovers validates the chain and silently removes the supervisor —
// the supervisor is implicitly stage 0 and never part of the chain.
func parseApprovers(approvers []string, supervisorID uuid.UUID) (pq.StringArray, error) {
	out := make(pq.StringArray, 0, len(approvers))
	for _, a := range approvers {
		id, err := uuid.Parse(strings.TrimSpace(a))
		if err != nil {
			return nil, apperr.InvalidState("approvers must be a list of user ids")
		}
		if id == supervisorID {
			continue
		}
		out = append(out, id.String())
	}
	return out, nil
}

func validateContent(c RequestContent, requireAll bool) error {
	required := map[string]string{
		"subject":     c.Subject,
		"description": c.Description,
		"area":        c.Area,
		"project":     c.Project,
		"tower":       c.Tower,
		"department":  c.Department,
	}
	if requireAll {
		required["references"] = c.References
		required["priority"] = c.Priority
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return apperr.InvalidState("%s is required", field)
		}
	}
	return nil
}

func applyContent(req *model.Request, c RequestContent) {
	req.Subject = c.Subject
	req.Description = c.Description
	req.Area = c.Area
	req.Project = c.Project
	req.Tower = c.Tower
	req.Department = c.Department
	req.References = c.References
	req.Priority = c.Priority
}

func normalizeFileURL(url string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(url), "/"))
}
