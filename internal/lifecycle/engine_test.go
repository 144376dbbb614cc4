package lifecycle_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/rcng81/gighop/internal/lifecycle"
)

// ---- fakes ----

type fakeStore struct {
	jobs       map[uuid.UUID]*lifecycle.Job
	applicants map[uuid.UUID]map[string]*lifecycle.Applicant
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:       map[uuid.UUID]*lifecycle.Job{},
		applicants: map[uuid.UUID]map[string]*lifecycle.Applicant{},
	}
}

func (s *fakeStore) addJob(j *lifecycle.Job) {
	if j.Ratings == nil {
		j.Ratings = map[string]int{}
	}
	s.jobs[j.ID] = j
	if s.applicants[j.ID] == nil {
		s.applicants[j.ID] = map[string]*lifecycle.Applicant{}
	}
}

func (s *fakeStore) Job(ctx context.Context, jobID uuid.UUID) (*lifecycle.Job, error) {
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *fakeStore) Applicant(ctx context.Context, jobID uuid.UUID, userID string) (*lifecycle.Applicant, error) {
	a, ok := s.applicants[jobID][userID]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStore) CreateApplicant(ctx context.Context, a *lifecycle.Applicant) error {
	if s.applicants[a.JobID] == nil {
		s.applicants[a.JobID] = map[string]*lifecycle.Applicant{}
	}
	cp := *a
	s.applicants[a.JobID][a.UserID] = &cp
	return nil
}

func (s *fakeStore) AcceptApplicant(ctx context.Context, jobID uuid.UUID, userID string) error {
	s.applicants[jobID][userID].Status = lifecycle.ApplicantAccepted
	j := s.jobs[jobID]
	for _, id := range j.AcceptedApplicantIDs {
		if id == userID {
			return nil
		}
	}
	j.AcceptedApplicantIDs = append(j.AcceptedApplicantIDs, userID)
	return nil
}

func (s *fakeStore) RejectApplicant(ctx context.Context, jobID uuid.UUID, userID string) error {
	s.applicants[jobID][userID].Status = lifecycle.ApplicantRejected
	j := s.jobs[jobID]
	kept := j.AcceptedApplicantIDs[:0]
	for _, id := range j.AcceptedApplicantIDs {
		if id != userID {
			kept = append(kept, id)
		}
	}
	j.AcceptedApplicantIDs = kept
	return nil
}

func (s *fakeStore) CloseJob(ctx context.Context, jobID uuid.UUID, cascade bool) error {
	s.jobs[jobID].Status = lifecycle.JobClosed
	if cascade {
		for _, a := range s.applicants[jobID] {
			a.Status = lifecycle.ApplicantClosed
		}
	}
	return nil
}

func (s *fakeStore) ReopenJob(ctx context.Context, jobID uuid.UUID) error {
	s.jobs[jobID].Status = lifecycle.JobOpen
	for _, a := range s.applicants[jobID] {
		if a.Status == lifecycle.ApplicantClosed {
			a.Status = lifecycle.ApplicantPending
		}
	}
	return nil
}

func (s *fakeStore) ConfirmPayment(ctx context.Context, jobID uuid.UUID, poster bool) error {
	if poster {
		s.jobs[jobID].Payment.PosterConfirmed = true
	} else {
		s.jobs[jobID].Payment.WorkerConfirmed = true
	}
	return nil
}

func (s *fakeStore) SetRating(ctx context.Context, jobID uuid.UUID, raterID string, value int) error {
	s.jobs[jobID].Ratings[raterID] = value
	return nil
}

type notified struct {
	userID string
	status lifecycle.ApplicantStatus
}

type fakeNotifier struct{ calls []notified }

func (n *fakeNotifier) StatusChanged(ctx context.Context, userID string, job *lifecycle.Job, status lifecycle.ApplicantStatus) error {
	n.calls = append(n.calls, notified{userID: userID, status: status})
	return nil
}

type fakeFinalizer struct{ finalized []uuid.UUID }

func (f *fakeFinalizer) FinalizeJob(ctx context.Context, job *lifecycle.Job) error {
	f.finalized = append(f.finalized, job.ID)
	return nil
}

// ---- helpers ----

const (
	employer = "employer-1"
	worker   = "worker-1"
	outsider = "outsider-1"
)

func openJob(tags ...string) *lifecycle.Job {
	return &lifecycle.Job{
		ID:         uuid.New(),
		EmployerID: employer,
		Title:      "Math tutoring",
		Price:      25,
		Tags:       tags,
		Status:     lifecycle.JobOpen,
	}
}

func wantKind(t *testing.T, err error, kind lifecycle.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := lifecycle.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

// ---- Apply ----

func TestApply_CreatesPendingApplicant(t *testing.T) {
	store := newFakeStore()
	job := openJob("tutoring", "math")
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	a, err := eng.Apply(context.Background(), worker, job.ID, lifecycle.Profile{
		Name: "W One", Skills: []string{"tutoring", "math", "piano"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if a.Status != lifecycle.ApplicantPending {
		t.Fatalf("expected pending, got %s", a.Status)
	}
	if got, _ := store.Applicant(context.Background(), job.ID, worker); got.Status != lifecycle.ApplicantPending {
		t.Fatalf("applicant not persisted as pending")
	}
}

func TestApply_SkillMismatch(t *testing.T) {
	store := newFakeStore()
	job := openJob("tutoring", "math")
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	_, err := eng.Apply(context.Background(), worker, job.ID, lifecycle.Profile{
		Name: "W One", Skills: []string{"math"},
	})
	wantKind(t, err, lifecycle.KindInvalidInput)
}

func TestApply_ClosedJob(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	job.Status = lifecycle.JobClosed
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	_, err := eng.Apply(context.Background(), worker, job.ID, lifecycle.Profile{Skills: []string{"math"}})
	wantKind(t, err, lifecycle.KindInvalidState)
}

func TestApply_Twice(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	if _, err := eng.Apply(context.Background(), worker, job.ID, lifecycle.Profile{}); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	_, err := eng.Apply(context.Background(), worker, job.ID, lifecycle.Profile{})
	wantKind(t, err, lifecycle.KindInvalidState)
}

func TestApply_JobMissing(t *testing.T) {
	eng := lifecycle.NewEngine(newFakeStore(), nil, nil, nil, nil)
	_, err := eng.Apply(context.Background(), worker, uuid.New(), lifecycle.Profile{})
	wantKind(t, err, lifecycle.KindNotFound)
}

// ---- Accept / Reject ----

func TestAccept_AppendsAcceptedID(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	job := openJob()
	store.addJob(job)
	eng := lifecycle.NewEngine(store, notifier, nil, nil, nil)

	if _, err := eng.Apply(context.Background(), worker, job.ID, lifecycle.Profile{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := eng.Accept(context.Background(), employer, job.ID, worker); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	got, _ := store.Job(context.Background(), job.ID)
	if len(got.AcceptedApplicantIDs) != 1 || got.AcceptedApplicantIDs[0] != worker {
		t.Fatalf("accepted ids = %v, want [%s]", got.AcceptedApplicantIDs, worker)
	}
	if len(notifier.calls) != 1 || notifier.calls[0].status != lifecycle.ApplicantAccepted {
		t.Fatalf("expected one accepted notification, got %#v", notifier.calls)
	}
}

func TestAccept_ByNonEmployer(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	if _, err := eng.Apply(context.Background(), worker, job.ID, lifecycle.Profile{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	wantKind(t, eng.Accept(context.Background(), outsider, job.ID, worker), lifecycle.KindUnauthorized)
}

func TestAccept_AlreadyAccepted(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	if _, err := eng.Apply(context.Background(), worker, job.ID, lifecycle.Profile{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := eng.Accept(context.Background(), employer, job.ID, worker); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	wantKind(t, eng.Accept(context.Background(), employer, job.ID, worker), lifecycle.KindInvalidState)
}

func TestReject_AfterAccept_RemovesAcceptedID(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	if _, err := eng.Apply(context.Background(), worker, job.ID, lifecycle.Profile{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := eng.Accept(context.Background(), employer, job.ID, worker); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := eng.Reject(context.Background(), employer, job.ID, worker); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	got, _ := store.Job(context.Background(), job.ID)
	if len(got.AcceptedApplicantIDs) != 0 {
		t.Fatalf("accepted ids = %v, want empty", got.AcceptedApplicantIDs)
	}

	// a second reject is refused and leaves the state unchanged
	wantKind(t, eng.Reject(context.Background(), employer, job.ID, worker), lifecycle.KindInvalidState)
	got, _ = store.Job(context.Background(), job.ID)
	if len(got.AcceptedApplicantIDs) != 0 {
		t.Fatalf("second reject changed accepted ids: %v", got.AcceptedApplicantIDs)
	}
}

// ---- Close / Reopen cascades ----

func TestCloseJob_CascadesApplicants(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	for _, u := range []string{"a", "b", "c"} {
		if _, err := eng.Apply(context.Background(), u, job.ID, lifecycle.Profile{}); err != nil {
			t.Fatalf("Apply(%s): %v", u, err)
		}
	}
	if err := eng.Accept(context.Background(), employer, job.ID, "a"); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := eng.CloseJob(context.Background(), employer, job.ID); err != nil {
		t.Fatalf("CloseJob: %v", err)
	}

	got, _ := store.Job(context.Background(), job.ID)
	if got.Status != lifecycle.JobClosed {
		t.Fatalf("job status = %s, want closed", got.Status)
	}
	for _, u := range []string{"a", "b", "c"} {
		a, _ := store.Applicant(context.Background(), job.ID, u)
		if a.Status != lifecycle.ApplicantClosed {
			t.Fatalf("applicant %s = %s, want closed", u, a.Status)
		}
	}
}

func TestReopenJob_RevertsClosedApplicantsToPending(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	for _, u := range []string{"a", "b"} {
		if _, err := eng.Apply(context.Background(), u, job.ID, lifecycle.Profile{}); err != nil {
			t.Fatalf("Apply(%s): %v", u, err)
		}
	}
	if err := eng.Accept(context.Background(), employer, job.ID, "a"); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := eng.CloseJob(context.Background(), employer, job.ID); err != nil {
		t.Fatalf("CloseJob: %v", err)
	}
	if err := eng.ReopenJob(context.Background(), employer, job.ID); err != nil {
		t.Fatalf("ReopenJob: %v", err)
	}

	got, _ := store.Job(context.Background(), job.ID)
	if got.Status != lifecycle.JobOpen {
		t.Fatalf("job status = %s, want open", got.Status)
	}
	// the previously-accepted applicant is indistinguishable from the
	// originally-pending one after the reopen cascade
	for _, u := range []string{"a", "b"} {
		a, _ := store.Applicant(context.Background(), job.ID, u)
		if a.Status != lifecycle.ApplicantPending {
			t.Fatalf("applicant %s = %s, want pending", u, a.Status)
		}
	}
}

func TestCloseJob_Unauthorized(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	wantKind(t, eng.CloseJob(context.Background(), outsider, job.ID), lifecycle.KindUnauthorized)
}

func TestReopenJob_AlreadyOpen(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	wantKind(t, eng.ReopenJob(context.Background(), employer, job.ID), lifecycle.KindInvalidState)
}

// ---- Payment ----

func TestConfirmPayment_RoleFlags(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	job.AcceptedApplicantIDs = []string{worker}
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	if _, err := eng.ConfirmPayment(context.Background(), employer, job.ID); err != nil {
		t.Fatalf("employer ConfirmPayment: %v", err)
	}
	if _, err := eng.ConfirmPayment(context.Background(), worker, job.ID); err != nil {
		t.Fatalf("worker ConfirmPayment: %v", err)
	}

	got, _ := store.Job(context.Background(), job.ID)
	if !got.Payment.PosterConfirmed || !got.Payment.WorkerConfirmed {
		t.Fatalf("payment flags = %+v, want both true", got.Payment)
	}
}

func TestConfirmPayment_Outsider(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	_, err := eng.ConfirmPayment(context.Background(), outsider, job.ID)
	wantKind(t, err, lifecycle.KindUnauthorized)
}

// ---- Ratings & completion ----

func TestSubmitRating_RangeValidation(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	for _, v := range []int{0, 6, -1} {
		_, err := eng.SubmitRating(context.Background(), employer, job.ID, v)
		wantKind(t, err, lifecycle.KindInvalidInput)
	}
	if _, err := eng.SubmitRating(context.Background(), employer, job.ID, 5); err != nil {
		t.Fatalf("SubmitRating(5): %v", err)
	}
}

func TestSubmitRating_Twice(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	if _, err := eng.SubmitRating(context.Background(), employer, job.ID, 4); err != nil {
		t.Fatalf("SubmitRating: %v", err)
	}
	_, err := eng.SubmitRating(context.Background(), employer, job.ID, 3)
	wantKind(t, err, lifecycle.KindInvalidState)
}

func TestSubmitRating_Outsider(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	_, err := eng.SubmitRating(context.Background(), outsider, job.ID, 4)
	wantKind(t, err, lifecycle.KindUnauthorized)
}

func TestEvaluateCompletion_ClosesAndFinalizesOnce(t *testing.T) {
	store := newFakeStore()
	finalizer := &fakeFinalizer{}
	job := openJob()
	job.AcceptedApplicantIDs = []string{worker}
	job.Payment = lifecycle.PaymentConfirmation{PosterConfirmed: true, WorkerConfirmed: true}
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, finalizer, nil, nil)

	if closed, err := eng.SubmitRating(context.Background(), employer, job.ID, 5); err != nil || closed {
		t.Fatalf("employer rating: closed=%v err=%v, want open", closed, err)
	}
	closed, err := eng.SubmitRating(context.Background(), worker, job.ID, 4)
	if err != nil {
		t.Fatalf("worker rating: %v", err)
	}
	if !closed {
		t.Fatal("expected job to close after both ratings and payments")
	}

	got, _ := store.Job(context.Background(), job.ID)
	if got.Status != lifecycle.JobClosed {
		t.Fatalf("job status = %s, want closed", got.Status)
	}
	if len(finalizer.finalized) != 1 {
		t.Fatalf("finalizer called %d times, want 1", len(finalizer.finalized))
	}

	// idempotent: re-evaluating a closed job does nothing
	closed, err = eng.EvaluateCompletion(context.Background(), job.ID)
	if err != nil || closed {
		t.Fatalf("re-evaluate: closed=%v err=%v, want false nil", closed, err)
	}
	if len(finalizer.finalized) != 1 {
		t.Fatalf("finalizer re-invoked on closed job")
	}
}

func TestEvaluateCompletion_RequiresAcceptedWorkerRating(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	job.Payment = lifecycle.PaymentConfirmation{PosterConfirmed: true, WorkerConfirmed: true}
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	// no accepted workers: the employer's rating alone can never complete
	closed, err := eng.SubmitRating(context.Background(), employer, job.ID, 5)
	if err != nil {
		t.Fatalf("SubmitRating: %v", err)
	}
	if closed {
		t.Fatal("job with zero accepted workers must not complete naturally")
	}
	got, _ := store.Job(context.Background(), job.ID)
	if got.Status != lifecycle.JobOpen {
		t.Fatalf("job status = %s, want open", got.Status)
	}
}

func TestEvaluateCompletion_RequiresBothPaymentFlags(t *testing.T) {
	store := newFakeStore()
	job := openJob()
	job.AcceptedApplicantIDs = []string{worker}
	job.Payment = lifecycle.PaymentConfirmation{PosterConfirmed: true}
	store.addJob(job)
	eng := lifecycle.NewEngine(store, nil, nil, nil, nil)

	if _, err := eng.SubmitRating(context.Background(), employer, job.ID, 5); err != nil {
		t.Fatalf("SubmitRating: %v", err)
	}
	closed, err := eng.SubmitRating(context.Background(), worker, job.ID, 4)
	if err != nil {
		t.Fatalf("SubmitRating: %v", err)
	}
	if closed {
		t.Fatal("job must stay open until both payment flags are confirmed")
	}
}
