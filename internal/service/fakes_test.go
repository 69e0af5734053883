package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"nfa-backend/internal/apperr"
	"nfa-backend/internal/model"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// In-memory repository fakes. They mirror the persistence contracts the
// engine relies on, including the duplicate-key translation on the stage
// action table.

type memUserRepo struct {
	users map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func (r *memUserRepo) add(u *model.User) *model.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID.String()] = u
	return u
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.add(user)
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) List(_ context.Context) ([]model.User, error) {
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.users[id])
	}
	return out, nil
}

func (r *memUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := r.users[user.ID.String()]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *user
	r.users[user.ID.String()] = &copied
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id string) error {
	delete(r.users, id)
	return nil
}

type memRequestRepo struct {
	requests map[uuid.UUID]*model.Request
	order    []uuid.UUID
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{requests: make(map[uuid.UUID]*model.Request)}
}

func (r *memRequestRepo) Create(_ context.Context, req *model.Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	copied := *req
	r.requests[req.ID] = &copied
	r.order = append(r.order, req.ID)
	return nil
}

func (r *memRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Request, error) {
	if req, ok := r.requests[id]; ok {
		copied := *req
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRequestRepo) List(_ context.Context) ([]model.Request, error) {
	out := make([]model.Request, 0, len(r.order))
	for _, id := range r.order {
		if req, ok := r.requests[id]; ok {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *memRequestRepo) ListByInitiator(ctx context.Context, initiatorID uuid.UUID) ([]model.Request, error) {
	all, _ := r.List(ctx)
	out := make([]model.Request, 0)
	for _, req := range all {
		if req.InitiatorID == initiatorID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *memRequestRepo) Save(_ context.Context, req *model.Request) error {
	if _, ok := r.requests[req.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *req
	r.requests[req.ID] = &copied
	return nil
}

func (r *memRequestRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.requests, id)
	return nil
}

func (r *memRequestRepo) CountInvolving(_ context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	for _, req := range r.requests {
		if req.InitiatorID == userID || req.SupervisorID == userID {
			total++
		}
	}
	return total, nil
}

type memActionRepo struct {
	actions []model.ApproverAction
}

func newMemActionRepo() *memActionRepo {
	return &memActionRepo{}
}

// Insert enforces the (request_id, approver_id) uniqueness the real table
// carries, translated to the same Conflict error.
func (r *memActionRepo) Insert(_ context.Context, action *model.ApproverAction) error {
	for _, a := range r.actions {
		if a.RequestID == action.RequestID && a.ApproverID == action.ApproverID {
			return apperr.Conflict("action already recorded for this approval stage")
		}
	}
	if action.ID == uuid.Nil {
		action.ID = uuid.New()
	}
	r.actions = append(r.actions, *action)
	return nil
}

func (r *memActionRepo) Get(_ context.Context, requestID, approverID uuid.UUID) (*model.ApproverAction, error) {
	for i := range r.actions {
		if r.actions[i].RequestID == requestID && r.actions[i].ApproverID == approverID {
			copied := r.actions[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memActionRepo) ListByRequest(_ context.Context, requestID uuid.UUID) ([]model.ApproverAction, error) {
	out := make([]model.ApproverAction, 0)
	for _, a := range r.actions {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memActionRepo) DeleteByRequest(_ context.Context, requestID uuid.UUID) error {
	kept := r.actions[:0]
	for _, a := range r.actions {
		if a.RequestID != requestID {
			kept = append(kept, a)
		}
	}
	r.actions = kept
	return nil
}

type memEventRepo struct {
	events []model.RequestEvent
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{}
}

func (r *memEventRepo) Append(_ context.Context, event *model.RequestEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	r.events = append(r.events, *event)
	return nil
}

func (r *memEventRepo) ListByRequest(_ context.Context, requestID uuid.UUID) ([]model.RequestEvent, error) {
	out := make([]model.RequestEvent, 0)
	for _, e := range r.events {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memEventRepo) DeleteByRequest(_ context.Context, requestID uuid.UUID) error {
	kept := r.events[:0]
	for _, e := range r.events {
		if e.RequestID != requestID {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}

type memTokenRepo struct {
	tokens map[string]*model.SessionToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]*model.SessionToken)}
}

func (r *memTokenRepo) Create(_ context.Context, token *model.SessionToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	copied := *token
	r.tokens[token.Token] = &copied
	return nil
}

func (r *memTokenRepo) Get(_ context.Context, token string) (*model.SessionToken, error) {
	if t, ok := r.tokens[token]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

func (r *memTokenRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.SessionToken, error) {
	out := make([]model.SessionToken, 0)
	for _, t := range r.tokens {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memTokenRepo) Delete(_ context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

func (r *memTokenRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	for k, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, k)
		}
	}
	return nil
}

func (r *memTokenRepo) DeleteAll(_ context.Context) error {
	r.tokens = make(map[string]*model.SessionToken)
	return nil
}

// passthroughTx runs the unit directly; serialization is not under test here.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type memStore struct {
	saved   []model.Attachment
	removed []string
	failing bool
}

func (s *memStore) Save(_ []byte, requestID, originalName string) (model.Attachment, error) {
	if s.failing {
		return model.Attachment{}, fmt.Errorf("disk full")
	}
	att := model.Attachment{
		FileURL:         "/files/others/" + requestID + "_" + strings.ReplaceAll(originalName, " ", "_"),
		FileDisplayName: originalName,
	}
	s.saved = append(s.saved, att)
	return att, nil
}

func (s *memStore) Remove(fileURL string) error {
	s.removed = append(s.removed, fileURL)
	return nil
}

// --- Fixture ---

type testEnv struct {
	users    *memUserRepo
	requests *memRequestRepo
	actions  *memActionRepo
	events   *memEventRepo
	store    *memStore
	engine   ApprovalService
	query    RequestQueryService

	initiator  *model.User
	supervisor *model.User
	approverA  *model.User
	approverB  *model.User
	admin      *model.User
	outsider   *model.User
}

func newTestEnv() *testEnv {
	env := &testEnv{
		users:    newMemUserRepo(),
		requests: newMemRequestRepo(),
		actions:  newMemActionRepo(),
		events:   newMemEventRepo(),
		store:    &memStore{},
	}
	env.initiator = env.users.add(&model.User{Name: "Ines Initiator", Username: "ines", Email: "ines@example.com", Role: pq.Int64Array{model.RolePlainUser}})
	env.supervisor = env.users.add(&model.User{Name: "Sam Supervisor", Username: "sam", Email: "sam@example.com", Role: pq.Int64Array{model.RolePlainUser}})
	env.approverA = env.users.add(&model.User{Name: "Ana Approver", Username: "ana", Email: "ana@example.com", Role: pq.Int64Array{model.RolePlainUser}})
	env.approverB = env.users.add(&model.User{Name: "Ben Approver", Username: "ben", Email: "ben@example.com", Role: pq.Int64Array{model.RolePlainUser}})
	env.admin = env.users.add(&model.User{Name: "Ada Admin", Username: "ada", Email: "ada@example.com", Role: pq.Int64Array{model.RoleAdmin}})
	env.outsider = env.users.add(&model.User{Name: "Olga Outsider", Username: "olga", Email: "olga@example.com", Role: pq.Int64Array{model.RolePlainUser}})

	env.engine = NewApprovalService(env.requests, env.actions, env.events, env.users, passthroughTx{}, env.store, nil)
	env.query = NewRequestQueryService(env.requests, env.actions, env.events, env.users)
	return env
}

func validContent() RequestContent {
	return RequestContent{
		Subject:     "Tower B lift maintenance",
		Description: "Annual maintenance contract renewal",
		Area:        "North",
		Project:     "Wish Town",
		Tower:       "B",
		Department:  "Facilities",
		References:  "FAC-2024-11",
		Priority:    "High",
	}
}

// submit creates a request with the default two-approver chain and returns
// its stored state.
func (env *testEnv) submit(approvers ...string) *RequestView {
	if approvers == nil {
		approvers = []string{env.approverA.ID.String(), env.approverB.ID.String()}
	}
	view, err := env.engine.Submit(context.Background(), env.initiator.ID.String(), SubmitRequestInput{
		SupervisorID: env.supervisor.ID.String(),
		Content:      validContent(),
		Approvers:    approvers,
	})
	if err != nil {
		panic(err)
	}
	return view
}

func (env *testEnv) request(id string) *model.Request {
	req, err := env.requests.GetByID(context.Background(), uuid.MustParse(id))
	if err != nil {
		panic(err)
	}
	return req
}
