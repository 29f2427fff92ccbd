package labormarket

import (
	"context"
	"sync"
)

// LocalClient is an in-process labor market used for debug runs. It records
// every call and never contacts an external service. Assignment statuses can
// be seeded with SetStatus to drive reconciliation paths.
type LocalClient struct {
	mu          sync.Mutex
	recruited   int
	closed      bool
	expired     bool
	expiredRefs []string
	approved    []string
	bonuses     map[string]float64
	statuses    map[string]AssignmentStatus
}

var _ Client = (*LocalClient)(nil)

// NewLocal returns an empty local client.
func NewLocal() *LocalClient {
	return &LocalClient{
		bonuses:  map[string]float64{},
		statuses: map[string]AssignmentStatus{},
	}
}

func (c *LocalClient) Recruit(_ context.Context, count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recruited += count
	return nil
}

func (c *LocalClient) CloseRecruitment(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *LocalClient) ExpireJob(_ context.Context, assignmentRef string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expired = true
	c.expiredRefs = append(c.expiredRefs, assignmentRef)
	return nil
}

func (c *LocalClient) ApproveAssignment(_ context.Context, assignmentRef string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.approved = append(c.approved, assignmentRef)
	c.statuses[assignmentRef] = StatusApproved
	return nil
}

func (c *LocalClient) GrantBonus(_ context.Context, assignmentRef string, amount float64, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bonuses[assignmentRef] += amount
	return nil
}

func (c *LocalClient) AssignmentStatus(_ context.Context, assignmentRef string) (AssignmentStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.statuses[assignmentRef]; ok {
		return st, nil
	}
	return StatusUnknown, nil
}

// SetStatus seeds the market-side status for an assignment.
func (c *LocalClient) SetStatus(assignmentRef string, st AssignmentStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[assignmentRef] = st
}

// Recruited reports the total number of participants requested so far.
func (c *LocalClient) Recruited() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recruited
}

// Closed reports whether recruitment has been closed.
func (c *LocalClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Expired reports whether any job posting has been expired.
func (c *LocalClient) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// ExpiredRefs returns the assignment refs passed to ExpireJob.
func (c *LocalClient) ExpiredRefs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.expiredRefs))
	copy(out, c.expiredRefs)
	return out
}

// Approvals returns the assignment refs approved so far.
func (c *LocalClient) Approvals() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.approved))
	copy(out, c.approved)
	return out
}

// Bonus returns the total bonus granted on an assignment.
func (c *LocalClient) Bonus(assignmentRef string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bonuses[assignmentRef]
}
