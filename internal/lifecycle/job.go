package lifecycle

import (
	"time"

	"github.com/google/uuid"
)

// PaymentConfirmation tracks the two monotonic payment flags. Both must be
// true before a job can naturally complete.
type PaymentConfirmation struct {
	PosterConfirmed bool `json:"posterConfirmed"`
	WorkerConfirmed bool `json:"workerConfirmed"`
}

// Job is the aggregate root: a posted task with a price, required skills
// and lifecycle status, plus the embedded sub-state mutated by transitions.
type Job struct {
	ID          uuid.UUID `json:"id"`
	CommunityID uuid.UUID `json:"communityId"`
	EmployerID  string    `json:"employerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Tags        []string  `json:"tags"`
	Status      JobStatus `json:"status"`

	// AcceptedApplicantIDs preserves acceptance order.
	AcceptedApplicantIDs []string `json:"acceptedApplicantIds"`

	// Ratings maps rater userID → 1..5. Sparse: one entry per participant
	// who has rated.
	Ratings map[string]int `json:"ratings"`

	Payment   PaymentConfirmation `json:"paymentConfirmation"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// IsEmployer reports whether userID posted this job.
func (j *Job) IsEmployer(userID string) bool { return j.EmployerID == userID }

// IsAcceptedWorker reports whether userID is in the accepted-worker list.
func (j *Job) IsAcceptedWorker(userID string) bool {
	for _, id := range j.AcceptedApplicantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Applicant is one user's application record against a job. Records are
// never deleted: they form an append-only audit trail under the job.
type Applicant struct {
	JobID     uuid.UUID       `json:"jobId"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Skills    []string        `json:"skills"` // snapshot taken at apply time
	Status    ApplicantStatus `json:"status"`
	AppliedAt time.Time       `json:"appliedAt"`
}

// Profile is the applicant-side snapshot captured when a user applies.
type Profile struct {
	Name   string
	Skills []string
}

// hasAllSkills reports whether skills covers every required tag.
func hasAllSkills(skills, tags []string) bool {
	have := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		have[s] = struct{}{}
	}
	for _, t := range tags {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}
