package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/guardian/pkg/domain"
	"github.com/aretw0/guardian/pkg/observability"
)

// Resume delivers a human decision to a session suspended in
// waiting_for_approval and continues the step loop from the appropriate point.
//
// Legal only for suspended sessions; any other status yields
// domain.ErrInvalidState with no state mutation. A save lost to a concurrent
// writer is retried once against freshly loaded state; if the fresh state is
// no longer suspended the race was lost for good and ErrInvalidState is
// surfaced, so two conflicting decisions commit exactly one transition.
func (e *Engine) Resume(ctx context.Context, sessionID string, decision domain.Decision) (*domain.Session, error) {
	if !decision.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown decision %q", domain.ErrMalformedDecision, decision.Kind)
	}

	return e.withLock(ctx, sessionID, func() (*domain.Session, error) {
		s, err := e.store.Load(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		updated, err := e.applyDecision(ctx, s, decision)
		if errors.Is(err, domain.ErrConflict) {
			fresh, lerr := e.store.Load(ctx, sessionID)
			if lerr != nil {
				return nil, lerr
			}
			if fresh.Status != domain.StatusWaitingForApproval {
				return nil, domain.ErrInvalidState
			}
			updated, err = e.applyDecision(ctx, fresh, decision)
		}
		return updated, err
	})
}

// applyDecision consumes the decision, transitions the session, persists it,
// and resumes the step loop.
func (e *Engine) applyDecision(ctx context.Context, s *domain.Session, decision domain.Decision) (*domain.Session, error) {
	if s.Status != domain.StatusWaitingForApproval {
		return nil, domain.ErrInvalidState
	}
	pending := s.PendingAction
	if pending == nil {
		return nil, fmt.Errorf("%w: suspended session %s has no pending action", domain.ErrInvalidState, s.ID)
	}

	if decision.Kind == domain.DecisionEdit {
		if !pending.IsAction() {
			// A pending final answer has no payload to edit.
			return nil, domain.ErrInvalidState
		}
		if strings.TrimSpace(decision.ModifiedQuery) == "" {
			return nil, fmt.Errorf("%w: edit requires a replacement payload", domain.ErrMalformedDecision)
		}
	}

	s.PendingDecision = &decision

	switch decision.Kind {
	case domain.DecisionReject:
		s.PendingAction = nil
		s.PendingCategory = ""
		s.Summary = "Operation cancelled: the proposed database mutation was rejected by the human reviewer."
		s.Append(domain.RoleHuman, "decision: reject")
		s.Status = domain.StatusCompleted

	case domain.DecisionEdit:
		// The edited action is executed without re-classification. This is an
		// intentional trust boundary: the human is the approver, and the
		// substitution is recorded in the action's rationale for audit.
		action := pending.Action
		action.Input = action.Input.WithQueryText(decision.ModifiedQuery)
		action.Rationale = appendAudit(action.Rationale, decision.ModifiedQuery)
		s.Append(domain.RoleHuman, fmt.Sprintf("decision: edit (query replaced with: %s)", decision.ModifiedQuery))
		s.Status = domain.StatusWaitingForTool
		s.PendingCategory = ""

	case domain.DecisionApprove:
		s.Append(domain.RoleHuman, "decision: approve")
		if pending.IsAnswer() {
			s.Summary = pending.Answer.Text
			s.PendingAction = nil
			s.PendingCategory = ""
			s.Status = domain.StatusCompleted
		} else {
			s.Status = domain.StatusWaitingForTool
			s.PendingCategory = ""
		}
	}

	// The decision is consumed by the transition it unblocked.
	s.PendingDecision = nil

	if err := e.persist(ctx, s); err != nil {
		return nil, err
	}

	observability.RecordApproval(string(decision.Kind))
	if s.Status.Terminal() {
		observability.RecordSessionCompleted(string(s.Status))
	}
	e.logger.Info("session resumed", "session_id", s.ID, "decision", decision.Kind, "status", s.Status)

	return e.run(ctx, s)
}

func appendAudit(rationale, modified string) string {
	note := fmt.Sprintf("[human edited query to: %s]", modified)
	if rationale == "" {
		return note
	}
	return rationale + "\n" + note
}
