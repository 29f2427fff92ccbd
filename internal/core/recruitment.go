package core

import (
	"context"
)

// checkRecruitment runs after every participant completion. While open
// networks remain it requests one replacement; once every network is full it
// closes recruitment exactly once per run. Transient recruiter failures are
// logged and deferred rather than escalated: the next completion repeats the
// check.
func (s *Service) checkRecruitment(ctx context.Context) {
	open := 0
	for _, network := range s.store.ListNetworks() {
		if !network.Full {
			open++
		}
	}
	if open > 0 {
		if s.recruitmentClosed.Load() {
			return
		}
		if err := s.recruiter.Recruit(ctx, 1); err != nil {
			s.logger.Error("recruit failed", "error", err)
		}
		return
	}
	if s.recruitmentClosed.CompareAndSwap(false, true) {
		s.logger.Info("all networks full, closing recruitment")
		if err := s.recruiter.CloseRecruitment(ctx); err != nil {
			s.logger.Error("close recruitment failed", "error", err)
		}
	}
}

// DisableRecruitment flips the close-once guard without calling the labor
// market, used when the watchdog shuts a run down after an unrecoverable
// reconciliation failure.
func (s *Service) DisableRecruitment() {
	s.recruitmentClosed.Store(true)
}

// RecruitmentClosed reports whether the one-way recruitment close has fired.
func (s *Service) RecruitmentClosed() bool {
	return s.recruitmentClosed.Load()
}

// OpenNetworksRemain reports whether any network still accepts participants.
func (s *Service) OpenNetworksRemain() bool {
	for _, network := range s.store.ListNetworks() {
		if !network.Full {
			return true
		}
	}
	return false
}
