package core

import (
	"context"
	"fmt"
	"time"

	"crowdcore/pkg/domain"
)

// failParticipantNodes tombstones every non-failed node of the participant
// within the supplied transaction. Idempotent per node.
func failParticipantNodes(tx domain.Transaction, participantID string, at time.Time) error {
	for _, n := range tx.Snapshot().NodesByParticipant(participantID) {
		if n.Failed {
			continue
		}
		failedAt := at
		if _, err := tx.UpdateNode(n.ID, func(node *Node) error {
			node.Failed = true
			node.FailedAt = &failedAt
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// FailParticipant fails all of a participant's non-failed nodes in one store
// transaction. All-or-nothing; already-failed nodes are left untouched.
func (s *Service) FailParticipant(ctx context.Context, participantID string) (err error) {
	defer s.observe(ctx, "fail_participant", time.Now(), err)
	now := s.clock.Now()
	_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, found := tx.FindParticipant(participantID); !found {
			return fmt.Errorf("participant %q not found", participantID)
		}
		return failParticipantNodes(tx, participantID, now)
	})
	return err
}

// SubmissionReceived moves a working participant to submitted, runs the
// attention and data checks, and settles the outcome: both pass -> approved
// (bonus hook consulted, assignment approved in the labor market); attention
// fail -> rejected; data fail -> rejected with the bad-data flag. Failure
// outcomes cascade node failure in the same transaction. Late duplicate
// notifications for terminal participants are ignored. Completion triggers
// the recruitment check either way.
func (s *Service) SubmissionReceived(ctx context.Context, participantID string) (err error) {
	defer s.observe(ctx, "submission_received", time.Now(), err)
	now := s.clock.Now()

	var participant Participant
	terminal := false
	_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		current, found := tx.FindParticipant(participantID)
		if !found {
			return fmt.Errorf("participant %q not found", participantID)
		}
		if current.Status.Terminal() {
			terminal = true
			return nil
		}
		if current.Status == StatusWorking {
			updated, err := tx.UpdateParticipant(participantID, func(p *Participant) error {
				p.Status = StatusSubmitted
				return nil
			})
			if err != nil {
				return err
			}
			current = updated
		}
		participant = current
		return nil
	})
	if err != nil {
		return err
	}
	if terminal {
		s.logger.Debug("duplicate submission notification ignored", "participant_id", participantID)
		return nil
	}

	attended := s.checks.AttentionCheck(participant)
	usable := attended && s.checks.DataCheck(participant)

	end := now
	_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if usable {
			_, err := tx.UpdateParticipant(participantID, func(p *Participant) error {
				p.Status = StatusApproved
				p.EndTime = &end
				return nil
			})
			return err
		}
		if _, err := tx.UpdateParticipant(participantID, func(p *Participant) error {
			p.Status = StatusRejected
			p.BadData = attended // attended but produced unusable data
			p.EndTime = &end
			return nil
		}); err != nil {
			return err
		}
		return failParticipantNodes(tx, participantID, now)
	})
	if err != nil {
		return err
	}

	if usable {
		s.settleApproval(ctx, participant)
	} else {
		s.logger.Info("submission rejected", "participant_id", participantID, "attended", attended)
	}
	s.checkRecruitment(ctx)
	return nil
}

// settleApproval performs the external labor-market settlement for an
// approved participant. Failures are logged and deferred; the terminal status
// is already durable and the watchdog reconciles external state later.
func (s *Service) settleApproval(ctx context.Context, participant Participant) {
	if amount := s.bonus(participant); amount > 0 {
		if err := s.recruiter.GrantBonus(ctx, participant.AssignmentRef, amount, "experiment completion bonus"); err != nil {
			s.logger.Error("bonus grant failed", "assignment_ref", participant.AssignmentRef, "error", err)
		}
	}
	if err := s.recruiter.ApproveAssignment(ctx, participant.AssignmentRef); err != nil {
		s.logger.Error("assignment approval failed", "assignment_ref", participant.AssignmentRef, "error", err)
	}
}

// AssignmentAbandoned marks the participant abandoned, cascades node failure,
// and triggers the recruitment check. No-op for terminal participants.
func (s *Service) AssignmentAbandoned(ctx context.Context, participantID string) error {
	return s.endParticipant(ctx, participantID, StatusAbandoned, "assignment_abandoned")
}

// AssignmentReturned marks the participant returned, cascades node failure,
// and triggers the recruitment check. No-op for terminal participants.
func (s *Service) AssignmentReturned(ctx context.Context, participantID string) error {
	return s.endParticipant(ctx, participantID, StatusReturned, "assignment_returned")
}

func (s *Service) endParticipant(ctx context.Context, participantID string, status ParticipantStatus, op string) (err error) {
	defer s.observe(ctx, op, time.Now(), err)
	now := s.clock.Now()
	terminal := false
	_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		current, found := tx.FindParticipant(participantID)
		if !found {
			return fmt.Errorf("participant %q not found", participantID)
		}
		if current.Status.Terminal() {
			terminal = true
			return nil
		}
		end := now
		if _, err := tx.UpdateParticipant(participantID, func(p *Participant) error {
			p.Status = status
			p.EndTime = &end
			return nil
		}); err != nil {
			return err
		}
		return failParticipantNodes(tx, participantID, now)
	})
	if err != nil {
		return err
	}
	if terminal {
		return nil
	}
	s.logger.Info("participant ended", "participant_id", participantID, "status", status)
	s.checkRecruitment(ctx)
	return nil
}

// MarkBadData flags the participant's data as unusable and cascades node
// failure. The status is left to the caller (watchdog or rejection path); the
// end time is stamped only if the participant is still open.
func (s *Service) MarkBadData(ctx context.Context, participantID string) (err error) {
	defer s.observe(ctx, "mark_bad_data", time.Now(), err)
	now := s.clock.Now()
	_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		current, found := tx.FindParticipant(participantID)
		if !found {
			return fmt.Errorf("participant %q not found", participantID)
		}
		if _, err := tx.UpdateParticipant(participantID, func(p *Participant) error {
			p.BadData = true
			if current.Open() && p.EndTime == nil {
				end := now
				p.EndTime = &end
			}
			return nil
		}); err != nil {
			return err
		}
		return failParticipantNodes(tx, participantID, now)
	})
	return err
}

// RepairStatus writes a terminal status established by reconciliation against
// the labor market. Idempotent: participants already terminal are untouched.
func (s *Service) RepairStatus(ctx context.Context, participantID string, status ParticipantStatus) (err error) {
	defer s.observe(ctx, "repair_status", time.Now(), err)
	if !status.Terminal() {
		return fmt.Errorf("repair status %q is not terminal", status)
	}
	now := s.clock.Now()
	_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		current, found := tx.FindParticipant(participantID)
		if !found {
			return fmt.Errorf("participant %q not found", participantID)
		}
		if current.Status.Terminal() {
			return nil
		}
		end := now
		if _, err := tx.UpdateParticipant(participantID, func(p *Participant) error {
			p.Status = status
			p.EndTime = &end
			return nil
		}); err != nil {
			return err
		}
		if status == StatusApproved {
			return nil
		}
		return failParticipantNodes(tx, participantID, now)
	})
	if err != nil {
		return err
	}
	s.logger.Info("participant status repaired", "participant_id", participantID, "status", status)
	return nil
}
