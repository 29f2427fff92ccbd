// Package memory provides an in-memory implementation of the core persistence
// store used for tests, debug runs, and as the transactional engine reused by
// the durable backends.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"crowdcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain
// persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Network aliases domain.Network for in-memory persistence operations.
	Network = domain.Network
	// Participant aliases domain.Participant.
	Participant = domain.Participant
	// Node aliases domain.Node.
	Node = domain.Node
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	networks     map[string]Network
	participants map[string]Participant
	nodes        map[string]Node
}

// Snapshot captures a point-in-time clone of the store state. Durable
// backends serialize it wholesale after each committed transaction.
type Snapshot struct {
	Networks     map[string]Network     `json:"networks"`
	Participants map[string]Participant `json:"participants"`
	Nodes        map[string]Node        `json:"nodes"`
}

func newMemoryState() memoryState {
	return memoryState{
		networks:     make(map[string]Network),
		participants: make(map[string]Participant),
		nodes:        make(map[string]Node),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Networks:     make(map[string]Network, len(state.networks)),
		Participants: make(map[string]Participant, len(state.participants)),
		Nodes:        make(map[string]Node, len(state.nodes)),
	}
	for k, v := range state.networks {
		s.Networks[k] = v
	}
	for k, v := range state.participants {
		s.Participants[k] = cloneParticipant(v)
	}
	for k, v := range state.nodes {
		s.Nodes[k] = cloneNode(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Networks {
		state.networks[k] = v
	}
	for k, v := range s.Participants {
		state.participants[k] = cloneParticipant(v)
	}
	for k, v := range s.Nodes {
		state.nodes[k] = cloneNode(v)
	}
	return state
}

func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Networks == nil {
		snapshot.Networks = map[string]Network{}
	}
	if snapshot.Participants == nil {
		snapshot.Participants = map[string]Participant{}
	}
	if snapshot.Nodes == nil {
		snapshot.Nodes = map[string]Node{}
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.networks {
		cloned.networks[k] = v
	}
	for k, v := range s.participants {
		cloned.participants[k] = cloneParticipant(v)
	}
	for k, v := range s.nodes {
		cloned.nodes[k] = cloneNode(v)
	}
	return cloned
}

func cloneParticipant(p Participant) Participant {
	cp := p
	if p.EndTime != nil {
		end := *p.EndTime
		cp.EndTime = &end
	}
	return cp
}

func cloneNode(n Node) Node {
	cp := n
	if n.FailedAt != nil {
		at := *n.FailedAt
		cp.FailedAt = &at
	}
	return cp
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider; intended for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of the transactional state to
// rules and in-transaction queries.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListNetworks returns all networks ordered by order key, then creation time.
func (v transactionView) ListNetworks() []Network {
	out := make([]Network, 0, len(v.state.networks))
	for _, n := range v.state.networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderKey != out[j].OrderKey {
			return out[i].OrderKey < out[j].OrderKey
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListParticipants returns all participants ordered by creation time.
func (v transactionView) ListParticipants() []Participant {
	out := make([]Participant, 0, len(v.state.participants))
	for _, p := range v.state.participants {
		out = append(out, cloneParticipant(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListNodes returns all nodes ordered by creation time.
func (v transactionView) ListNodes() []Node {
	out := make([]Node, 0, len(v.state.nodes))
	for _, n := range v.state.nodes {
		out = append(out, cloneNode(n))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindNetwork retrieves a network by ID from the snapshot.
func (v transactionView) FindNetwork(id string) (Network, bool) {
	n, ok := v.state.networks[id]
	return n, ok
}

// FindParticipant retrieves a participant by ID from the snapshot.
func (v transactionView) FindParticipant(id string) (Participant, bool) {
	p, ok := v.state.participants[id]
	if !ok {
		return Participant{}, false
	}
	return cloneParticipant(p), true
}

// FindNode retrieves a node by ID from the snapshot.
func (v transactionView) FindNode(id string) (Node, bool) {
	n, ok := v.state.nodes[id]
	if !ok {
		return Node{}, false
	}
	return cloneNode(n), true
}

// NodesByParticipant returns the participant's membership records in creation order.
func (v transactionView) NodesByParticipant(participantID string) []Node {
	var out []Node
	for _, n := range v.ListNodes() {
		if n.ParticipantID == participantID {
			out = append(out, n)
		}
	}
	return out
}

// NodesByNetwork returns the network's membership records in creation order.
func (v transactionView) NodesByNetwork(networkID string) []Node {
	var out []Node
	for _, n := range v.ListNodes() {
		if n.NetworkID == networkID {
			out = append(out, n)
		}
	}
	return out
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes the transactional state for in-transaction reads.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindNetwork retrieves a network within the transaction.
func (tx *transaction) FindNetwork(id string) (Network, bool) {
	n, ok := tx.state.networks[id]
	return n, ok
}

// FindParticipant retrieves a participant within the transaction.
func (tx *transaction) FindParticipant(id string) (Participant, bool) {
	p, ok := tx.state.participants[id]
	if !ok {
		return Participant{}, false
	}
	return cloneParticipant(p), true
}

// FindNode retrieves a node within the transaction.
func (tx *transaction) FindNode(id string) (Node, bool) {
	n, ok := tx.state.nodes[id]
	if !ok {
		return Node{}, false
	}
	return cloneNode(n), true
}

// CreateNetwork stores a new network within the transaction.
func (tx *transaction) CreateNetwork(n Network) (Network, error) {
	if n.ID == "" {
		n.ID = tx.store.newID()
	}
	if _, exists := tx.state.networks[n.ID]; exists {
		return Network{}, fmt.Errorf("network %q already exists", n.ID)
	}
	if n.MaxSize <= 0 {
		return Network{}, fmt.Errorf("network capacity must be positive")
	}
	if n.Role == "" {
		n.Role = domain.RoleExperiment
	}
	if n.OrderKey == 0 {
		n.OrderKey = len(tx.state.networks) + 1
	}
	n.CreatedAt = tx.now
	n.UpdatedAt = tx.now
	tx.state.networks[n.ID] = n
	tx.recordChange(Change{Entity: domain.EntityNetwork, Action: domain.ActionCreate, After: n})
	return n, nil
}

// UpdateNetwork mutates a network using the provided mutator function.
func (tx *transaction) UpdateNetwork(id string, mutator func(*Network) error) (Network, error) {
	current, ok := tx.state.networks[id]
	if !ok {
		return Network{}, fmt.Errorf("network %q not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Network{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.networks[id] = current
	tx.recordChange(Change{Entity: domain.EntityNetwork, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateParticipant stores a new participant within the transaction.
func (tx *transaction) CreateParticipant(p Participant) (Participant, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.participants[p.ID]; exists {
		return Participant{}, fmt.Errorf("participant %q already exists", p.ID)
	}
	if p.AssignmentRef == "" {
		return Participant{}, fmt.Errorf("participant assignment reference required")
	}
	if p.Status == "" {
		p.Status = domain.StatusWorking
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.participants[p.ID] = cloneParticipant(p)
	tx.recordChange(Change{Entity: domain.EntityParticipant, Action: domain.ActionCreate, After: cloneParticipant(p)})
	return cloneParticipant(p), nil
}

// UpdateParticipant mutates a participant using the provided mutator function.
func (tx *transaction) UpdateParticipant(id string, mutator func(*Participant) error) (Participant, error) {
	current, ok := tx.state.participants[id]
	if !ok {
		return Participant{}, fmt.Errorf("participant %q not found", id)
	}
	before := cloneParticipant(current)
	if err := mutator(&current); err != nil {
		return Participant{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.participants[id] = cloneParticipant(current)
	tx.recordChange(Change{Entity: domain.EntityParticipant, Action: domain.ActionUpdate, Before: before, After: cloneParticipant(current)})
	return cloneParticipant(current), nil
}

// CreateNode stores a new membership record within the transaction.
func (tx *transaction) CreateNode(n Node) (Node, error) {
	if n.ID == "" {
		n.ID = tx.store.newID()
	}
	if _, exists := tx.state.nodes[n.ID]; exists {
		return Node{}, fmt.Errorf("node %q already exists", n.ID)
	}
	if _, ok := tx.state.participants[n.ParticipantID]; !ok {
		return Node{}, fmt.Errorf("node participant %q not found", n.ParticipantID)
	}
	if _, ok := tx.state.networks[n.NetworkID]; !ok {
		return Node{}, fmt.Errorf("node network %q not found", n.NetworkID)
	}
	n.CreatedAt = tx.now
	n.UpdatedAt = tx.now
	tx.state.nodes[n.ID] = cloneNode(n)
	tx.recordChange(Change{Entity: domain.EntityNode, Action: domain.ActionCreate, After: cloneNode(n)})
	return cloneNode(n), nil
}

// UpdateNode mutates a node using the provided mutator function.
func (tx *transaction) UpdateNode(id string, mutator func(*Node) error) (Node, error) {
	current, ok := tx.state.nodes[id]
	if !ok {
		return Node{}, fmt.Errorf("node %q not found", id)
	}
	before := cloneNode(current)
	if err := mutator(&current); err != nil {
		return Node{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.nodes[id] = cloneNode(current)
	tx.recordChange(Change{Entity: domain.EntityNode, Action: domain.ActionUpdate, Before: before, After: cloneNode(current)})
	return cloneNode(current), nil
}

// Read helpers ---------------------------------------------------------------

// GetNetwork retrieves a network by ID from committed state.
func (s *Store) GetNetwork(id string) (Network, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.state.networks[id]
	return n, ok
}

// ListNetworks returns all networks from committed state in order-key order.
func (s *Store) ListNetworks() []Network {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListNetworks()
}

// GetParticipant retrieves a participant by ID from committed state.
func (s *Store) GetParticipant(id string) (Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.participants[id]
	if !ok {
		return Participant{}, false
	}
	return cloneParticipant(p), true
}

// ListParticipants returns all participants from committed state.
func (s *Store) ListParticipants() []Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListParticipants()
}

// ListNodes returns all nodes from committed state.
func (s *Store) ListNodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListNodes()
}
