// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by crowdcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityNetwork identifies a capacity-bounded participant group.
	EntityNetwork EntityType = "network"
	// EntityParticipant identifies an experiment participant record.
	EntityParticipant EntityType = "participant"
	// EntityNode identifies a participant's membership in one network.
	EntityNode EntityType = "node"
)

// NetworkRole distinguishes warm-up networks from scored experiment networks.
type NetworkRole string

// Canonical network roles. Practice networks are always filled before
// experiment networks during admission.
const (
	RolePractice   NetworkRole = "practice"
	RoleExperiment NetworkRole = "experiment"
)

// ParticipantStatus represents canonical participant lifecycle states.
type ParticipantStatus string

// Participant lifecycle statuses. Working and submitted are the only open
// states; all others are terminal and immutable once written.
const (
	// StatusWorking indicates the participant is actively in the experiment.
	StatusWorking ParticipantStatus = "working"
	// StatusSubmitted indicates the external assignment was turned in but not
	// yet judged.
	StatusSubmitted ParticipantStatus = "submitted"
	StatusApproved  ParticipantStatus = "approved"
	StatusRejected  ParticipantStatus = "rejected"
	StatusAbandoned ParticipantStatus = "abandoned"
	StatusReturned  ParticipantStatus = "returned"
)

// Terminal reports whether the status admits no further transition.
func (s ParticipantStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusAbandoned, StatusReturned:
		return true
	}
	return false
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Network is a capacity-bounded group into which participants are admitted.
// Full flips to true inside the admission transaction that fills the last
// slot and never reverts during a run.
type Network struct {
	Base
	Role     NetworkRole `json:"role"`
	Full     bool        `json:"full"`
	MaxSize  int         `json:"max_size"`
	OrderKey int         `json:"order_key"`
}

// Participant tracks one external worker's pass through the experiment.
// BadData is an overlay judgment recorded alongside the terminal status, not
// a status of its own.
type Participant struct {
	Base
	AssignmentRef string            `json:"assignment_ref"`
	WorkerRef     string            `json:"worker_ref"`
	Status        ParticipantStatus `json:"status"`
	BadData       bool              `json:"bad_data"`
	EndTime       *time.Time        `json:"end_time"`
}

// Open reports whether the participant can still receive lifecycle events.
func (p Participant) Open() bool { return !p.Status.Terminal() }

// Node records a participant's membership in exactly one network. Nodes are
// tombstoned via Failed rather than deleted.
type Node struct {
	Base
	ParticipantID string     `json:"participant_id"`
	NetworkID     string     `json:"network_id"`
	Failed        bool       `json:"failed"`
	FailedAt      *time.Time `json:"failed_at"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured for rule evaluation.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
