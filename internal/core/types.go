package core

import "crowdcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	NetworkRole        = domain.NetworkRole
	ParticipantStatus  = domain.ParticipantStatus
	Severity           = domain.Severity
	Base               = domain.Base
	Network            = domain.Network
	Participant        = domain.Participant
	Node               = domain.Node
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	RulesEngine        = domain.RulesEngine
)

const (
	EntityNetwork     = domain.EntityNetwork
	EntityParticipant = domain.EntityParticipant
	EntityNode        = domain.EntityNode
)

const (
	RolePractice   = domain.RolePractice
	RoleExperiment = domain.RoleExperiment
)

const (
	StatusWorking   = domain.StatusWorking
	StatusSubmitted = domain.StatusSubmitted
	StatusApproved  = domain.StatusApproved
	StatusRejected  = domain.StatusRejected
	StatusAbandoned = domain.StatusAbandoned
	StatusReturned  = domain.StatusReturned
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
)
