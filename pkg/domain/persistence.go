package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. There are no delete operations:
// networks live for the whole run and nodes are tombstoned in place.
type Transaction interface {
	Snapshot() TransactionView
	CreateNetwork(Network) (Network, error)
	UpdateNetwork(id string, mutator func(*Network) error) (Network, error)
	CreateParticipant(Participant) (Participant, error)
	UpdateParticipant(id string, mutator func(*Participant) error) (Participant, error)
	CreateNode(Node) (Node, error)
	UpdateNode(id string, mutator func(*Node) error) (Node, error)
	FindNetwork(id string) (Network, bool)
	FindParticipant(id string) (Participant, bool)
	FindNode(id string) (Node, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// in-transaction queries.
type TransactionView interface {
	ListNetworks() []Network
	ListParticipants() []Participant
	ListNodes() []Node
	FindNetwork(id string) (Network, bool)
	FindParticipant(id string) (Participant, bool)
	FindNode(id string) (Node, bool)
	NodesByParticipant(participantID string) []Node
	NodesByNetwork(networkID string) []Node
}

// RuleView provides read-only access to domain entities for rule evaluation.
type RuleView = TransactionView

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetNetwork(id string) (Network, bool)
	ListNetworks() []Network
	GetParticipant(id string) (Participant, bool)
	ListParticipants() []Participant
	ListNodes() []Node
}
