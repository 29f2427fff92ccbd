package core

import (
	"context"
	"sort"
)

// WorkingParticipants returns every participant still in StatusWorking,
// ordered by creation time ascending. The reconciliation sweep scans this
// set for sessions that have outlived their expected duration.
func (s *Service) WorkingParticipants(ctx context.Context) ([]Participant, error) {
	var out []Participant
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, p := range view.ListParticipants() {
			if p.Status == StatusWorking {
				out = append(out, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// RecentlyEnded returns up to n terminated participants ordered by end time
// descending, newest first. Participants without an end time are skipped.
func (s *Service) RecentlyEnded(ctx context.Context, n int) ([]Participant, error) {
	if n <= 0 {
		return nil, nil
	}
	var ended []Participant
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, p := range view.ListParticipants() {
			if p.Status.Terminal() && p.EndTime != nil {
				ended = append(ended, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(ended, func(i, j int) bool { return ended[i].EndTime.After(*ended[j].EndTime) })
	if len(ended) > n {
		ended = ended[:n]
	}
	return ended, nil
}

// MostRecentOpenParticipant returns the newest participant that has not yet
// reached a terminal status. ok is false when every participant is done.
func (s *Service) MostRecentOpenParticipant(ctx context.Context) (Participant, bool, error) {
	var (
		newest Participant
		found  bool
	)
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, p := range view.ListParticipants() {
			if p.Status.Terminal() {
				continue
			}
			if !found || p.CreatedAt.After(newest.CreatedAt) {
				newest = p
				found = true
			}
		}
		return nil
	})
	if err != nil {
		return Participant{}, false, err
	}
	return newest, found, nil
}
