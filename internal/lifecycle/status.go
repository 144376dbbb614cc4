// Package lifecycle owns the job/applicant aggregate and the state machine
// that governs every transition on it.
//
// Job status graph:
//
//	open ──► closed        (employer close, or natural completion)
//	closed ──► open        (employer reopen)
//
// Applicant status graph (within an open job):
//
//	pending ──► accepted ──► rejected
//	    │                       ▲
//	    └───────────────────────┘
//
// An employer close cascades every applicant to "closed" regardless of its
// prior value; a reopen reverts every "closed" applicant to "pending".
// Natural completion closes the job without touching applicant statuses.
package lifecycle

import "fmt"

// JobStatus values mirror the status column on the jobs table.
type JobStatus string

const (
	JobOpen   JobStatus = "open"
	JobClosed JobStatus = "closed"
)

// ApplicantStatus values mirror the status column on the applicants table.
type ApplicantStatus string

const (
	ApplicantPending  ApplicantStatus = "pending"
	ApplicantAccepted ApplicantStatus = "accepted"
	ApplicantRejected ApplicantStatus = "rejected"
	// ApplicantClosed is only reachable through an employer close cascade,
	// never through a direct applicant-level transition.
	ApplicantClosed ApplicantStatus = "closed"
)

// applicantTransitions lists every allowed direct (from → to) pair.
// Cascade targets (closed, and closed → pending on reopen) are excluded:
// those are job-level side effects, not applicant-level transitions.
var applicantTransitions = map[ApplicantStatus][]ApplicantStatus{
	ApplicantPending:  {ApplicantAccepted, ApplicantRejected},
	ApplicantAccepted: {ApplicantRejected},
	// rejected and closed have no direct outgoing transitions
}

// ParseJobStatus converts a raw string to a JobStatus, returning an error
// for unknown values.
func ParseJobStatus(s string) (JobStatus, error) {
	st := JobStatus(s)
	switch st {
	case JobOpen, JobClosed:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// ParseApplicantStatus converts a raw string to an ApplicantStatus,
// returning an error for unknown values.
func ParseApplicantStatus(s string) (ApplicantStatus, error) {
	st := ApplicantStatus(s)
	switch st {
	case ApplicantPending, ApplicantAccepted, ApplicantRejected, ApplicantClosed:
		return st, nil
	}
	return "", fmt.Errorf("unknown applicant status %q", s)
}

// CanTransition returns true when an applicant may move from → to by a
// direct employer action.
func CanTransition(from, to ApplicantStatus) bool {
	for _, s := range applicantTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
