package lifecycle

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Store is the persistence surface the engine drives. Every mutating
// method is atomic: multi-row cascades (close, reopen, accept) commit in a
// single transaction, so a rejected precondition or a failed write never
// leaves a partial cascade behind.
type Store interface {
	Job(ctx context.Context, jobID uuid.UUID) (*Job, error)
	Applicant(ctx context.Context, jobID uuid.UUID, userID string) (*Applicant, error)
	CreateApplicant(ctx context.Context, a *Applicant) error

	// AcceptApplicant sets the applicant to accepted and appends its id to
	// the job's accepted list unless already present.
	AcceptApplicant(ctx context.Context, jobID uuid.UUID, userID string) error
	// RejectApplicant sets the applicant to rejected and removes its id
	// from the job's accepted list if present.
	RejectApplicant(ctx context.Context, jobID uuid.UUID, userID string) error

	// CloseJob marks the job closed. With cascade, every applicant record
	// is set to closed as well (employer close); without it, applicant
	// statuses are left untouched (natural completion).
	CloseJob(ctx context.Context, jobID uuid.UUID, cascade bool) error
	// ReopenJob marks the job open and reverts every closed applicant to
	// pending.
	ReopenJob(ctx context.Context, jobID uuid.UUID) error

	ConfirmPayment(ctx context.Context, jobID uuid.UUID, poster bool) error
	SetRating(ctx context.Context, jobID uuid.UUID, raterID string, value int) error
}

// Notifier records an application-status notification for a user. At most
// one unread notification exists per (user, job); a newer status overwrites
// it.
type Notifier interface {
	StatusChanged(ctx context.Context, userID string, job *Job, status ApplicantStatus) error
}

// Finalizer writes permanent job-history entries and recomputes rating
// aggregates once a job naturally completes.
type Finalizer interface {
	FinalizeJob(ctx context.Context, job *Job) error
}

// Publisher pushes a change event to the live feed subscribers.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// Live-feed channels.
const (
	EventJobChanged       = "gighop.job.changed"
	EventApplicantChanged = "gighop.applicant.changed"
)

// Engine validates and executes every job/applicant transition. It is the
// single authority over the state machine: callers never write status
// fields directly, and the acting user is an explicit parameter to every
// operation rather than ambient context.
type Engine struct {
	store     Store
	notifier  Notifier
	finalizer Finalizer
	bus       Publisher
	log       *slog.Logger
}

// NewEngine returns a configured Engine. notifier, finalizer and bus are
// best-effort collaborators and may be nil.
func NewEngine(store Store, notifier Notifier, finalizer Finalizer, bus Publisher, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, notifier: notifier, finalizer: finalizer, bus: bus, log: log}
}

// Apply creates a pending application for actorID. It fails with
// invalid_state when the job is closed or the user has already applied, and
// with invalid_input when the profile's skills do not cover the job's
// required tags.
func (e *Engine) Apply(ctx context.Context, actorID string, jobID uuid.UUID, profile Profile) (*Applicant, error) {
	job, err := e.store.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != JobOpen {
		return nil, invalidState("job %s is not open for applications", jobID)
	}
	if _, err := e.store.Applicant(ctx, jobID, actorID); err == nil {
		return nil, invalidState("user %s has already applied to job %s", actorID, jobID)
	} else if KindOf(err) != KindNotFound {
		return nil, err
	}
	if !hasAllSkills(profile.Skills, job.Tags) {
		return nil, invalidInput("applicant skills do not cover required tags %v", job.Tags)
	}

	a := &Applicant{
		JobID:  jobID,
		UserID: actorID,
		Name:   profile.Name,
		Skills: profile.Skills,
		Status: ApplicantPending,
	}
	if err := e.store.CreateApplicant(ctx, a); err != nil {
		return nil, err
	}
	e.publish(ctx, EventApplicantChanged, map[string]string{
		"jobId": jobID.String(), "userId": actorID, "status": string(ApplicantPending),
	})
	return a, nil
}

// Accept moves a pending applicant to accepted and appends it to the job's
// accepted-worker list. Only the employer may accept, and only while the
// job is open.
func (e *Engine) Accept(ctx context.Context, actorID string, jobID uuid.UUID, applicantID string) error {
	job, applicant, err := e.employerAction(ctx, actorID, jobID, applicantID)
	if err != nil {
		return err
	}
	if !CanTransition(applicant.Status, ApplicantAccepted) {
		return invalidState("applicant %s is %s, cannot accept", applicantID, applicant.Status)
	}
	if err := e.store.AcceptApplicant(ctx, jobID, applicantID); err != nil {
		return err
	}
	e.notifyStatus(ctx, applicantID, job, ApplicantAccepted)
	e.publish(ctx, EventApplicantChanged, map[string]string{
		"jobId": jobID.String(), "userId": applicantID, "status": string(ApplicantAccepted),
	})
	return nil
}

// Reject moves a pending or accepted applicant to rejected and removes it
// from the accepted-worker list. Rejecting an already-rejected applicant
// fails with invalid_state, so the operation is idempotent in effect.
func (e *Engine) Reject(ctx context.Context, actorID string, jobID uuid.UUID, applicantID string) error {
	job, applicant, err := e.employerAction(ctx, actorID, jobID, applicantID)
	if err != nil {
		return err
	}
	if !CanTransition(applicant.Status, ApplicantRejected) {
		return invalidState("applicant %s is %s, cannot reject", applicantID, applicant.Status)
	}
	if err := e.store.RejectApplicant(ctx, jobID, applicantID); err != nil {
		return err
	}
	e.notifyStatus(ctx, applicantID, job, ApplicantRejected)
	e.publish(ctx, EventApplicantChanged, map[string]string{
		"jobId": jobID.String(), "userId": applicantID, "status": string(ApplicantRejected),
	})
	return nil
}

// CloseJob closes an open job on behalf of its employer and cascades every
// applicant record to closed, whatever its prior status.
func (e *Engine) CloseJob(ctx context.Context, actorID string, jobID uuid.UUID) error {
	job, err := e.store.Job(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.IsEmployer(actorID) {
		return unauthorized("only the employer may close job %s", jobID)
	}
	if job.Status != JobOpen {
		return invalidState("job %s is already closed", jobID)
	}
	if err := e.store.CloseJob(ctx, jobID, true); err != nil {
		return err
	}
	e.publish(ctx, EventJobChanged, map[string]string{
		"jobId": jobID.String(), "status": string(JobClosed),
	})
	return nil
}

// ReopenJob reopens a closed job on behalf of its employer. Every applicant
// closed by the cascade reverts to pending — including records that were
// accepted or rejected before the close; the original distinction is not
// recoverable from a closed record.
func (e *Engine) ReopenJob(ctx context.Context, actorID string, jobID uuid.UUID) error {
	job, err := e.store.Job(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.IsEmployer(actorID) {
		return unauthorized("only the employer may reopen job %s", jobID)
	}
	if job.Status != JobClosed {
		return invalidState("job %s is already open", jobID)
	}
	if err := e.store.ReopenJob(ctx, jobID); err != nil {
		return err
	}
	e.publish(ctx, EventJobChanged, map[string]string{
		"jobId": jobID.String(), "status": string(JobOpen),
	})
	return nil
}

// ConfirmPayment sets the poster flag when the actor is the employer, or
// the worker flag when the actor is an accepted worker. Flags are
// monotonic: confirming twice is a no-op, and they are never unset.
// A completed confirmation pair may complete the job, so the completion
// check runs afterwards; the returned bool reports whether the job closed.
func (e *Engine) ConfirmPayment(ctx context.Context, actorID string, jobID uuid.UUID) (bool, error) {
	job, err := e.store.Job(ctx, jobID)
	if err != nil {
		return false, err
	}
	if job.Status != JobOpen {
		return false, invalidState("job %s is not open", jobID)
	}
	var poster bool
	switch {
	case job.IsEmployer(actorID):
		poster = true
	case job.IsAcceptedWorker(actorID):
		poster = false
	default:
		return false, unauthorized("user %s is neither the poster nor an accepted worker", actorID)
	}
	if err := e.store.ConfirmPayment(ctx, jobID, poster); err != nil {
		return false, err
	}
	return e.EvaluateCompletion(ctx, jobID)
}

// SubmitRating records actorID's 1..5 rating of the job, then runs the
// completion check. Each participant may rate once.
func (e *Engine) SubmitRating(ctx context.Context, actorID string, jobID uuid.UUID, value int) (bool, error) {
	if value < 1 || value > 5 {
		return false, invalidInput("rating must be between 1 and 5, got %d", value)
	}
	job, err := e.store.Job(ctx, jobID)
	if err != nil {
		return false, err
	}
	if job.Status != JobOpen {
		return false, invalidState("job %s is not open", jobID)
	}
	if !job.IsEmployer(actorID) && !job.IsAcceptedWorker(actorID) {
		return false, unauthorized("user %s is neither the poster nor an accepted worker", actorID)
	}
	if _, ok := job.Ratings[actorID]; ok {
		return false, invalidState("user %s has already rated job %s", actorID, jobID)
	}
	if err := e.store.SetRating(ctx, jobID, actorID, value); err != nil {
		return false, err
	}
	return e.EvaluateCompletion(ctx, jobID)
}

// EvaluateCompletion closes the job when the employer has rated, at least
// one accepted worker has rated, and both payment flags are set. It is
// idempotent: an already-closed job reports false with no writes. A job
// with zero accepted workers can never complete this way — it can only be
// closed explicitly by the employer.
//
// Finalization (history entries, rating aggregates) is best-effort: a
// failure is logged and does not roll back the closure.
func (e *Engine) EvaluateCompletion(ctx context.Context, jobID uuid.UUID) (bool, error) {
	job, err := e.store.Job(ctx, jobID)
	if err != nil {
		return false, err
	}
	if job.Status != JobOpen {
		return false, nil
	}
	if _, ok := job.Ratings[job.EmployerID]; !ok {
		return false, nil
	}
	workerRated := false
	for _, id := range job.AcceptedApplicantIDs {
		if _, ok := job.Ratings[id]; ok {
			workerRated = true
			break
		}
	}
	if !workerRated || !job.Payment.PosterConfirmed || !job.Payment.WorkerConfirmed {
		return false, nil
	}

	if err := e.store.CloseJob(ctx, jobID, false); err != nil {
		return false, err
	}
	job.Status = JobClosed

	if e.finalizer != nil {
		if err := e.finalizer.FinalizeJob(ctx, job); err != nil {
			e.log.Warn("finalize job failed", "jobId", jobID, "err", err)
		}
	}
	e.publish(ctx, EventJobChanged, map[string]string{
		"jobId": jobID.String(), "status": string(JobClosed),
	})
	return true, nil
}

// employerAction loads the job and applicant and checks the shared
// accept/reject preconditions.
func (e *Engine) employerAction(ctx context.Context, actorID string, jobID uuid.UUID, applicantID string) (*Job, *Applicant, error) {
	job, err := e.store.Job(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if !job.IsEmployer(actorID) {
		return nil, nil, unauthorized("only the employer may manage applicants for job %s", jobID)
	}
	if job.Status != JobOpen {
		return nil, nil, invalidState("job %s is not open", jobID)
	}
	applicant, err := e.store.Applicant(ctx, jobID, applicantID)
	if err != nil {
		return nil, nil, err
	}
	return job, applicant, nil
}

func (e *Engine) notifyStatus(ctx context.Context, userID string, job *Job, status ApplicantStatus) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.StatusChanged(ctx, userID, job, status); err != nil {
		e.log.Warn("status notification failed", "jobId", job.ID, "userId", userID, "err", err)
	}
}

func (e *Engine) publish(ctx context.Context, channel string, payload any) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, channel, payload); err != nil {
		e.log.Warn("publish event failed", "channel", channel, "err", err)
	}
}
