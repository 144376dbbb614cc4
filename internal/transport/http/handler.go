// Package httpapi implements the HTTP surface of the marketplace.
//
// All routes expect an x-user-id header forwarded by the gateway.
//
// Routes:
//
//	GET    /health                                   → liveness probe
//	GET    /communities                              → list communities
//	POST   /communities                              → create community (caller becomes owner)
//	GET    /communities/{id}                         → one community
//	POST   /communities/{id}/join                    → join community
//	GET    /communities/{id}/jobs                    → community job board
//	POST   /communities/{id}/jobs                    → post a job
//	GET    /jobs/{id}                                → one job
//	PATCH  /jobs/{id}                                → edit posting fields (employer only)
//	DELETE /jobs/{id}                                → delete job (employer only)
//	POST   /jobs/{id}/apply                          → apply with profile snapshot
//	GET    /jobs/{id}/applicants                     → applicant ledger (employer only)
//	POST   /jobs/{id}/applicants/{userID}/accept     → accept applicant
//	POST   /jobs/{id}/applicants/{userID}/reject     → reject applicant
//	POST   /jobs/{id}/close                          → close job, cascade applicants
//	POST   /jobs/{id}/reopen                         → reopen closed job
//	POST   /jobs/{id}/payment                        → confirm payment for caller's role
//	POST   /jobs/{id}/rating                         → rate the counterparty
//	GET    /me/applications                          → caller's applied-jobs view
//	GET    /me/notifications                         → caller's notifications
//	POST   /me/notifications/{id}/read               → mark notification read
//	PUT    /me/skills                                → replace caller's skill list
//	GET    /users/{id}                               → public profile with rating aggregate
//	GET    /users/{id}/history                       → job history entries
//	GET    /chats                                    → caller's conversations
//	POST   /chats                                    → find-or-create conversation
//	DELETE /chats/{id}                               → soft-delete for caller
//	GET    /chats/{id}/messages                      → conversation messages
//	POST   /chats/{id}/messages                      → send message
//	GET    /geo/suggest?q=                           → place suggestions for postings
//	GET    /events                                   → SSE stream of change events
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rcng81/gighop/internal/geo"
	"github.com/rcng81/gighop/internal/lifecycle"
	"github.com/rcng81/gighop/internal/notify"
	"github.com/rcng81/gighop/internal/rating"
	"github.com/rcng81/gighop/internal/store"
)

// Engine is the lifecycle surface the handlers drive.
type Engine interface {
	Apply(ctx context.Context, actorID string, jobID uuid.UUID, profile lifecycle.Profile) (*lifecycle.Applicant, error)
	Accept(ctx context.Context, actorID string, jobID uuid.UUID, applicantID string) error
	Reject(ctx context.Context, actorID string, jobID uuid.UUID, applicantID string) error
	CloseJob(ctx context.Context, actorID string, jobID uuid.UUID) error
	ReopenJob(ctx context.Context, actorID string, jobID uuid.UUID) error
	ConfirmPayment(ctx context.Context, actorID string, jobID uuid.UUID) (bool, error)
	SubmitRating(ctx context.Context, actorID string, jobID uuid.UUID, value int) (bool, error)
}

// Repository is the storage surface the handlers read and write outside
// the lifecycle engine.
type Repository interface {
	CreateCommunity(ctx context.Context, c *store.Community) error
	Community(ctx context.Context, id uuid.UUID) (*store.Community, error)
	Communities(ctx context.Context) ([]store.Community, error)
	JoinCommunity(ctx context.Context, id uuid.UUID, userID string) error
	JobsByCommunity(ctx context.Context, communityID uuid.UUID) ([]lifecycle.Job, error)

	CreateJob(ctx context.Context, j *lifecycle.Job) error
	Job(ctx context.Context, jobID uuid.UUID) (*lifecycle.Job, error)
	UpdateJob(ctx context.Context, jobID uuid.UUID, p store.UpdateJobParams) error
	DeleteJob(ctx context.Context, jobID uuid.UUID) error
	Applicants(ctx context.Context, jobID uuid.UUID) ([]lifecycle.Applicant, error)
	ApplicationsBy(ctx context.Context, userID string) ([]store.Application, error)

	User(ctx context.Context, userID string) (*store.User, error)
	EnsureUser(ctx context.Context, userID, firstName, lastName string) error
	UpdateSkills(ctx context.Context, userID string, skills []string) error
	EntriesFor(ctx context.Context, userID string) ([]rating.HistoryEntry, error)

	Notifications(ctx context.Context, userID string) ([]notify.Notification, error)
	MarkNotificationRead(ctx context.Context, userID string, id uuid.UUID) error

	StartChat(ctx context.Context, p store.StartChatParams) (*store.Chat, error)
	ChatsFor(ctx context.Context, userID string) ([]store.Chat, error)
	DeleteChat(ctx context.Context, chatID uuid.UUID, userID string) error
	Messages(ctx context.Context, chatID uuid.UUID, userID string) ([]store.ChatMessage, error)
	AppendMessage(ctx context.Context, chatID uuid.UUID, senderID, body string) (*store.ChatMessage, error)
}

// Suggester provides place-name suggestions for job postings.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]geo.Suggestion, error)
}

// Handler holds shared dependencies.
type Handler struct {
	eng Engine
	db  Repository
	geo Suggester
	bus Streamer
	log *slog.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(eng Engine, db Repository, geo Suggester, bus Streamer, log *slog.Logger) *Handler {
	return &Handler{eng: eng, db: db, geo: geo, bus: bus, log: log}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// ─── Communities ─────────────────────────────────────────────────────────────

func (h *Handler) listCommunities(w http.ResponseWriter, r *http.Request) {
	cs, err := h.db.Communities(r.Context())
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) createCommunity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeErrMsg(w, http.StatusBadRequest, "body must contain name")
		return
	}

	c := &store.Community{
		Name:        body.Name,
		Description: body.Description,
		OwnerID:     userID(r),
	}
	if err := h.db.CreateCommunity(r.Context(), c); err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) getCommunity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid community id")
		return
	}
	c, err := h.db.Community(r.Context(), id)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) joinCommunity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid community id")
		return
	}
	if err := h.db.JoinCommunity(r.Context(), id, userID(r)); err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

func (h *Handler) listCommunityJobs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid community id")
		return
	}
	jobs, err := h.db.JobsByCommunity(r.Context(), id)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// ─── Jobs ────────────────────────────────────────────────────────────────────

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	communityID, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid community id")
		return
	}

	var body struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Price       float64  `json:"price"`
		Tags        []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrMsg(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Title == "" {
		writeErrMsg(w, http.StatusBadRequest, "title is required")
		return
	}
	if body.Price <= 0 {
		writeErrMsg(w, http.StatusBadRequest, "price must be positive")
		return
	}

	// The community must exist before a job is posted into it.
	if _, err := h.db.Community(r.Context(), communityID); err != nil {
		writeErr(w, h.log, err)
		return
	}

	j := &lifecycle.Job{
		CommunityID: communityID,
		EmployerID:  userID(r),
		Title:       body.Title,
		Description: body.Description,
		Price:       body.Price,
		Tags:        body.Tags,
	}
	if err := h.db.CreateJob(r.Context(), j); err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, j)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid job id")
		return
	}
	j, err := h.db.Job(r.Context(), id)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// requireEmployer loads the job and checks the caller posted it.
func (h *Handler) requireEmployer(w http.ResponseWriter, r *http.Request, jobID uuid.UUID) (*lifecycle.Job, bool) {
	j, err := h.db.Job(r.Context(), jobID)
	if err != nil {
		writeErr(w, h.log, err)
		return nil, false
	}
	if !j.IsEmployer(userID(r)) {
		writeErrMsg(w, http.StatusForbidden, "only the employer may do that")
		return nil, false
	}
	return j, true
}

func (h *Handler) updateJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid job id")
		return
	}
	if _, ok := h.requireEmployer(w, r, id); !ok {
		return
	}

	var body struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Price       *float64 `json:"price"`
		Tags        []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrMsg(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Price != nil && *body.Price <= 0 {
		writeErrMsg(w, http.StatusBadRequest, "price must be positive")
		return
	}

	p := store.UpdateJobParams{
		Title:       body.Title,
		Description: body.Description,
		Price:       body.Price,
		Tags:        body.Tags,
	}
	if err := h.db.UpdateJob(r.Context(), id, p); err != nil {
		writeErr(w, h.log, err)
		return
	}
	j, err := h.db.Job(r.Context(), id)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (h *Handler) deleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid job id")
		return
	}
	if _, ok := h.requireEmployer(w, r, id); !ok {
		return
	}
	if err := h.db.DeleteJob(r.Context(), id); err != nil {
		writeErr(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listApplicants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid job id")
		return
	}
	if _, ok := h.requireEmployer(w, r, id); !ok {
		return
	}
	as, err := h.db.Applicants(r.Context(), id)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, as)
}

// ─── Lifecycle actions ───────────────────────────────────────────────────────

func (h *Handler) applyToJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid job id")
		return
	}

	u, err := h.db.User(r.Context(), userID(r))
	if err != nil {
		writeErr(w, h.log, err)
		return
	}

	a, err := h.eng.Apply(r.Context(), u.ID, id, lifecycle.Profile{
		Name:   u.DisplayName(),
		Skills: u.Skills,
	})
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) acceptApplicant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid job id")
		return
	}
	applicantID := chi.URLParam(r, "userID")
	if err := h.eng.Accept(r.Context(), userID(r), id, applicantID); err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *Handler) rejectApplicant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid job id")
		return
	}
	applicantID := chi.URLParam(r, "userID")
	if err := h.eng.Reject(r.Context(), userID(r), id, applicantID); err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *Handler) closeJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid job id")
		return
	}
	if err := h.eng.CloseJob(r.Context(), userID(r), id); err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (h *Handler) reopenJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid job id")
		return
	}
	if err := h.eng.ReopenJob(r.Context(), userID(r), id); err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "open"})
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid job id")
		return
	}
	completed, err := h.eng.ConfirmPayment(r.Context(), userID(r), id)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": completed})
}

func (h *Handler) submitRating(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid job id")
		return
	}
	var body struct {
		Rating int `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrMsg(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	completed, err := h.eng.SubmitRating(r.Context(), userID(r), id, body.Rating)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": completed})
}

// ─── Caller-scoped views ─────────────────────────────────────────────────────

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.db.ApplicationsBy(r.Context(), userID(r))
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	ns, err := h.db.Notifications(r.Context(), userID(r))
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := h.db.MarkNotificationRead(r.Context(), userID(r), id); err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *Handler) updateSkills(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Skills []string `json:"skills"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrMsg(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.db.UpdateSkills(r.Context(), userID(r), body.Skills); err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// ─── Profiles ────────────────────────────────────────────────────────────────

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.db.User(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) getUserHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.db.EntriesFor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ─── Chats ───────────────────────────────────────────────────────────────────

func (h *Handler) startChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OtherUserID string `json:"otherUserId"`
		JobTitle    string `json:"jobTitle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.OtherUserID == "" {
		writeErrMsg(w, http.StatusBadRequest, "body must contain otherUserId")
		return
	}
	if body.OtherUserID == userID(r) {
		writeErrMsg(w, http.StatusBadRequest, "cannot start a chat with yourself")
		return
	}

	me, err := h.db.User(r.Context(), userID(r))
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	other, err := h.db.User(r.Context(), body.OtherUserID)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}

	c, err := h.db.StartChat(r.Context(), store.StartChatParams{
		UserID:    me.ID,
		UserName:  me.DisplayName(),
		OtherID:   other.ID,
		OtherName: other.DisplayName(),
		JobTitle:  body.JobTitle,
	})
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) listChats(w http.ResponseWriter, r *http.Request) {
	cs, err := h.db.ChatsFor(r.Context(), userID(r))
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) deleteChat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	if err := h.db.DeleteChat(r.Context(), id, userID(r)); err != nil {
		writeErr(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	ms, err := h.db.Messages(r.Context(), id, userID(r))
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeErrMsg(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Body == "" {
		writeErrMsg(w, http.StatusBadRequest, "body must contain body")
		return
	}
	m, err := h.db.AppendMessage(r.Context(), id, userID(r), body.Body)
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// ─── Geo ─────────────────────────────────────────────────────────────────────

func (h *Handler) suggestPlaces(w http.ResponseWriter, r *http.Request) {
	out, err := h.geo.Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeErr(w, h.log, err)
		return
	}
	if out == nil {
		out = []geo.Suggestion{}
	}
	writeJSON(w, http.StatusOK, out)
}
