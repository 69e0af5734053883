package service

import (
	"context"
	"strings"
	"time"

	"nfa-backend/internal/apperr"
	"nfa-backend/internal/model"
	"nfa-backend/internal/pdf"
	"nfa-backend/internal/repository"
)

// RequestFilter narrows the request listing.
type RequestFilter struct {
	NoteID    string // exact request id
	Date      string // YYYY-MM-DD, matches the creation day
	Initiator string // case-insensitive substring of the initiator's name
	Filter    string // PENDING (NEW|IN_PROGRESS) or APPROVED
	Page      int
	Limit     int
}

// RequestQueryService is the read side: visibility-filtered listings,
// projections, admin statistics and the approved-NFA document.
type RequestQueryService interface {
	Get(ctx context.Context, callerID, requestID string) (*RequestView, error)
	List(ctx context.Context, callerID string, filter RequestFilter) ([]RequestView, int, error)
	ListAll(ctx context.Context, callerID string) ([]RequestView, error)
	ListEvents(ctx context.Context, callerID, requestID string) ([]model.RequestEvent, error)
	TotalRequests(ctx context.Context, callerID string) (int, error)
	PendingRequests(ctx context.Context, callerID string) (int, error)
	PendingPerUser(ctx context.Context, callerID string) ([]UserPendingCount, error)
	UserFiles(ctx context.Context, callerID, userID string) ([]model.Attachment, error)
	UserFilesSummary(ctx context.Context, callerID string) ([]UserFilesEntry, error)
	RenderPDF(ctx context.Context, callerID, requestID string) ([]byte, error)
}

type UserPendingCount struct {
	UserID          string `json:"user_id"`
	PendingRequests int    `json:"pending_requests"`
}

type UserFilesEntry struct {
	UserID    string             `json:"user_id"`
	UserName  string             `json:"user_name"`
	Files     []model.Attachment `json:"files"`
	FileCount int                `json:"file_count"`
}

type requestQueryService struct {
	requests repository.RequestRepository
	actions  repository.ActionRepository
	events   repository.EventRepository
	users    repository.UserRepository
	engine   *approvalService
}

// NewRequestQueryService builds the read side on the same repositories as the
// approval engine.
func NewRequestQueryService(
	requests repository.RequestRepository,
	actions repository.ActionRepository,
	events repository.EventRepository,
	users repository.UserRepository,
) RequestQueryService {
	return &requestQueryService{
		requests: requests,
		actions:  actions,
		events:   events,
		users:    users,
		engine:   &approvalService{requests: requests, actions: actions, events: events, users: users},
	}
}

func (s *requestQueryService) Get(ctx context.Context, callerID, requestID string) (*RequestView, error) {
	caller, err := s.engine.loadCaller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	req, err := s.engine.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(caller, req) {
		return nil, apperr.Forbidden("not authorized to view this request")
	}
	return s.engine.view(ctx, req)
}

func (s *requestQueryService) List(ctx context.Context, callerID string, filter RequestFilter) ([]RequestView, int, error) {
	caller, err := s.engine.loadCaller(ctx, callerID)
	if err != nil {
		return nil, 0, err
	}
	all, err := s.requests.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	var dayStart, dayEnd time.Time
	if filter.Date != "" {
		dayStart, err = time.Parse("2006-01-02", filter.Date)
		if err != nil {
			return nil, 0, apperr.InvalidState("date must be in YYYY-MM-DD format")
		}
		dayEnd = dayStart.AddDate(0, 0, 1)
	}

	users := make(map[string]*model.User)
	matched := make([]*model.Request, 0, len(all))
	for i := range all {
		req := &all[i]
		if filter.NoteID != "" && req.ID.String() != filter.NoteID {
			continue
		}
		if filter.Date != "" && (req.CreatedAt.Before(dayStart) || !req.CreatedAt.Before(dayEnd)) {
			continue
		}
		if filter.Initiator != "" {
			initiator, err := s.users.GetByID(ctx, req.InitiatorID.String())
			if err != nil || !strings.Contains(strings.ToLower(initiator.Name), strings.ToLower(filter.Initiator)) {
				continue
			}
			users[req.InitiatorID.String()] = initiator
		}
		switch strings.ToUpper(filter.Filter) {
		case "PENDING":
			if req.Status != model.StatusNew && req.Status != model.StatusInProgress {
				continue
			}
		case "APPROVED":
			if req.Status != model.StatusApproved {
				continue
			}
		}
		if !visibleTo(caller, req) {
			continue
		}
		matched = append(matched, req)
	}

	total := len(matched)
	if filter.Page > 0 && filter.Limit > 0 {
		start := (filter.Page - 1) * filter.Limit
		if start > total {
			start = total
		}
		end := start + filter.Limit
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}

	views := make([]RequestView, 0, len(matched))
	for _, req := range matched {
		actions, err := s.actions.ListByRequest(ctx, req.ID)
		if err != nil {
			return nil, 0, err
		}
		for id, u := range s.engine.collectUsers(ctx, req) {
			users[id] = u
		}
		views = append(views, BuildRequestView(req, actions, users))
	}
	return views, total, nil
}

// ListAll is the admin listing: everything, no visibility filter, with the
// isApproved convenience flag set.
func (s *requestQueryService) ListAll(ctx context.Context, callerID string) ([]RequestView, error) {
	if _, err := s.engine.requireElevated(ctx, callerID); err != nil {
		return nil, err
	}
	all, err := s.requests.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]RequestView, 0, len(all))
	for i := range all {
		req := &all[i]
		actions, err := s.actions.ListByRequest(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		v := BuildRequestView(req, actions, s.engine.collectUsers(ctx, req))
		isApproved := strings.Contains(strings.ToUpper(req.Status), "APPROVED")
		v.IsApproved = &isApproved
		views = append(views, v)
	}
	return views, nil
}

func (s *requestQueryService) ListEvents(ctx context.Context, callerID, requestID string) ([]model.RequestEvent, error) {
	if _, err := s.engine.requireElevated(ctx, callerID); err != nil {
		return nil, err
	}
	req, err := s.engine.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.events.ListByRequest(ctx, req.ID)
}

func (s *requestQueryService) TotalRequests(ctx context.Context, callerID string) (int, error) {
	if _, err := s.engine.requireElevated(ctx, callerID); err != nil {
		return 0, err
	}
	all, err := s.requests.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (s *requestQueryService) PendingRequests(ctx context.Context, callerID string) (int, error) {
	if _, err := s.engine.requireElevated(ctx, callerID); err != nil {
		return 0, err
	}
	all, err := s.requests.List(ctx)
	if err != nil {
		return 0, err
	}
	pending := 0
	for _, r := range all {
		if r.Status == model.StatusNew || r.Status == model.StatusInProgress {
			pending++
		}
	}
	return pending, nil
}

func (s *requestQueryService) PendingPerUser(ctx context.Context, callerID string) ([]UserPendingCount, error) {
	if _, err := s.engine.requireElevated(ctx, callerID); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.requests.List(ctx)
	if err != nil {
		return nil, err
	}
	counts := make([]UserPendingCount, 0, len(users))
	for _, u := range users {
		pending := 0
		for _, r := range all {
			if r.InitiatorID == u.ID && (r.Status == model.StatusNew || r.Status == model.StatusInProgress) {
				pending++
			}
		}
		counts = append(counts, UserPendingCount{UserID: u.ID.String(), PendingRequests: pending})
	}
	return counts, nil
}

func (s *requestQueryService) UserFiles(ctx context.Context, callerID, userID string) ([]model.Attachment, error) {
	if _, err := s.engine.requireElevated(ctx, callerID); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.NotFound("user not found")
	}
	reqs, err := s.requests.ListByInitiator(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	files := []model.Attachment{}
	for _, r := range reqs {
		files = append(files, r.Files...)
	}
	return files, nil
}

func (s *requestQueryService) UserFilesSummary(ctx context.Context, callerID string) ([]UserFilesEntry, error) {
	if _, err := s.engine.requireElevated(ctx, callerID); err != nil {
		return nil, err
	}
	all, err := s.requests.List(ctx)
	if err != nil {
		return nil, err
	}
	byUser := make(map[string]*UserFilesEntry)
	order := []string{}
	for _, r := range all {
		id := r.InitiatorID.String()
		entry, ok := byUser[id]
		if !ok {
			name := "Unknown"
			if u, err := s.users.GetByID(ctx, id); err == nil {
				name = u.Name
			}
			entry = &UserFilesEntry{UserID: id, UserName: name, Files: []model.Attachment{}}
			byUser[id] = entry
			order = append(order, id)
		}
		entry.Files = append(entry.Files, r.Files...)
	}
	result := make([]UserFilesEntry, 0, len(order))
	for _, id := range order {
		e := byUser[id]
		e.FileCount = len(e.Files)
		result = append(result, *e)
	}
	return result, nil
}

// RenderPDF produces the printable document for a fully approved NFA. The
// gate checks the APPROVED literal exactly: admin-direct-approved requests
// ("Approved by ADMIN") are not eligible.
func (s *requestQueryService) RenderPDF(ctx context.Context, callerID, requestID string) ([]byte, error) {
	caller, err := s.engine.loadCaller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	req, err := s.engine.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.StatusApproved {
		return nil, apperr.InvalidState("PDF can only be downloaded for approved NFAs")
	}
	if caller.ID != req.InitiatorID && !caller.IsElevated() {
		return nil, apperr.Forbidden("not authorized to download this PDF")
	}

	view, err := s.engine.view(ctx, req)
	if err != nil {
		return nil, err
	}
	doc := pdf.Document{
		ID:             view.ID,
		InitiatorName:  view.InitiatorName,
		SupervisorName: view.SupervisorName,
		Subject:        view.Subject,
		Description:    view.Description,
		Area:           view.Area,
		Project:        view.Project,
		Tower:          view.Tower,
		Department:     view.Department,
		References:     view.References,
		Priority:       view.Priority,
	}
	for _, entry := range view.ApprovalHierarchy {
		doc.Summary = append(doc.Summary, pdf.SummaryRow{
			Role:       entry.Role,
			Name:       entry.Name,
			Decision:   entry.Approved,
			ActionTime: entry.ActionTime,
			Comment:    entry.Comment,
		})
	}
	return pdf.Render(doc)
}

// visibleTo implements the read-visibility rule: initiator and supervisor
// always see the request; the current pending approver sees it while it waits
// on them; chain approvers see it once it is terminal.
func visibleTo(caller *model.User, req *model.Request) bool {
	if caller.ID == req.InitiatorID || caller.ID == req.SupervisorID {
		return true
	}
	id := caller.ID.String()
	if req.IsTerminal() {
		for _, a := range req.Approvers {
			if a == id {
				return true
			}
		}
		return false
	}
	return req.Status == model.StatusInProgress &&
		req.CurrentApproverIndex < len(req.Approvers) &&
		req.Approvers[req.CurrentApproverIndex] == id
}
