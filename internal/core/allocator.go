package core

import (
	"context"
	"fmt"
	"time"

	"crowdcore/pkg/domain"
)

// AssignParticipant admits a participant into one network. Open networks are
// considered in creation order minus those the participant already joined;
// practice networks always fill first, then the configured choice policy
// picks among experiment networks. Returns ok=false with no error when no
// network is eligible. Admission and the participated-set read happen in one
// store transaction, serializing against concurrent failure cascades.
func (s *Service) AssignParticipant(ctx context.Context, participantID string) (node Node, ok bool, err error) {
	defer s.observe(ctx, "assign_participant", time.Now(), err)
	_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		participant, found := tx.FindParticipant(participantID)
		if !found {
			return fmt.Errorf("participant %q not found", participantID)
		}
		if !participant.Open() {
			return nil
		}
		view := tx.Snapshot()

		participated := map[string]struct{}{}
		for _, n := range view.NodesByParticipant(participantID) {
			participated[n.NetworkID] = struct{}{}
		}

		var practice, experiment []Network
		for _, network := range view.ListNetworks() {
			if network.Full {
				continue
			}
			if _, seen := participated[network.ID]; seen {
				continue
			}
			if network.Role == RolePractice {
				practice = append(practice, network)
			} else {
				experiment = append(experiment, network)
			}
		}

		var target Network
		switch {
		case len(practice) > 0:
			target = practice[0]
		case len(experiment) > 0:
			target = s.policy.ChooseNetwork(experiment, participant)
		default:
			return nil
		}

		created, err := tx.CreateNode(Node{ParticipantID: participantID, NetworkID: target.ID})
		if err != nil {
			return err
		}

		active := 0
		for _, n := range tx.Snapshot().NodesByNetwork(target.ID) {
			if !n.Failed {
				active++
			}
		}
		if active >= target.MaxSize {
			if _, err := tx.UpdateNetwork(target.ID, func(network *Network) error {
				network.Full = true
				return nil
			}); err != nil {
				return err
			}
			s.logger.Info("network filled", "network_id", target.ID, "role", target.Role)
		}

		node = created
		ok = true
		return nil
	})
	if err != nil {
		return Node{}, false, err
	}
	return node, ok, nil
}
