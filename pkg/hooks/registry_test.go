package hooks

import (
	"crowdcore/pkg/domain"
	"math/rand"
	"testing"
)

func TestPolicyRegistryResolve(t *testing.T) {
	reg := NewPolicyRegistry()
	for _, tag := range []string{"random", "round_robin"} {
		policy, err := reg.Resolve(tag)
		if err != nil {
			t.Fatalf("resolve %s: %v", tag, err)
		}
		if policy.Name() != tag {
			t.Fatalf("expected name %s, got %s", tag, policy.Name())
		}
	}
	if _, err := reg.Resolve("bogus"); err == nil {
		t.Fatalf("expected unknown policy error")
	}
}

func TestPolicyRegistryRejectsDuplicates(t *testing.T) {
	reg := NewPolicyRegistry()
	if err := reg.Register("random", func() NetworkPolicy { return RandomPolicy{} }); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := reg.Register("", func() NetworkPolicy { return RandomPolicy{} }); err == nil {
		t.Fatalf("expected empty tag error")
	}
	if err := reg.Register("custom", nil); err == nil {
		t.Fatalf("expected nil factory error")
	}
	if err := reg.Register("custom", func() NetworkPolicy { return RoundRobinPolicy{} }); err != nil {
		t.Fatalf("register custom: %v", err)
	}
	tags := reg.Tags()
	if len(tags) != 3 {
		t.Fatalf("expected 3 tags, got %v", tags)
	}
}

func TestRandomPolicyDeterministicWithSeed(t *testing.T) {
	eligible := []domain.Network{
		{Base: domain.Base{ID: "a"}},
		{Base: domain.Base{ID: "b"}},
		{Base: domain.Base{ID: "c"}},
	}
	p := RandomPolicy{Rand: rand.New(rand.NewSource(7))}
	q := RandomPolicy{Rand: rand.New(rand.NewSource(7))}
	for i := 0; i < 10; i++ {
		if p.ChooseNetwork(eligible, domain.Participant{}).ID != q.ChooseNetwork(eligible, domain.Participant{}).ID {
			t.Fatalf("expected identical sequences for identical seeds")
		}
	}
}

func TestRoundRobinPolicyPicksFirstEligible(t *testing.T) {
	eligible := []domain.Network{{Base: domain.Base{ID: "x"}}, {Base: domain.Base{ID: "y"}}}
	if got := (RoundRobinPolicy{}).ChooseNetwork(eligible, domain.Participant{}); got.ID != "x" {
		t.Fatalf("expected first eligible network, got %s", got.ID)
	}
}
