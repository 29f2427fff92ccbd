// Package labormarket talks to the external labor market that supplies
// participants for a run. The canonical backend is Amazon Mechanical Turk;
// a local in-process client covers debug runs and tests.
package labormarket

import "context"

// AssignmentStatus is the labor market's view of an assignment, queried
// during reconciliation when a submission notification may have been lost.
type AssignmentStatus string

const (
	StatusSubmitted AssignmentStatus = "submitted"
	StatusApproved  AssignmentStatus = "approved"
	StatusRejected  AssignmentStatus = "rejected"
	StatusUnknown   AssignmentStatus = "unknown"
)

// Client is the full labor market surface. It is a superset of the
// recruiter port the core service consumes; the watchdog additionally
// needs AssignmentStatus and ExpireJob.
type Client interface {
	// Recruit asks the labor market for count additional participants.
	Recruit(ctx context.Context, count int) error
	// CloseRecruitment stops the job from accepting new participants.
	CloseRecruitment(ctx context.Context) error
	// ApproveAssignment releases payment for a completed assignment.
	ApproveAssignment(ctx context.Context, assignmentRef string) error
	// GrantBonus pays a bonus on top of the base reward.
	GrantBonus(ctx context.Context, assignmentRef string, amount float64, reason string) error
	// AssignmentStatus reports the market-side state of an assignment.
	AssignmentStatus(ctx context.Context, assignmentRef string) (AssignmentStatus, error)
	// ExpireJob immediately expires the job posting behind an assignment
	// so no further participants can accept it.
	ExpireJob(ctx context.Context, assignmentRef string) error
}
