package conversation

import (
	"context"

	"github.com/franmoretti/tiendabot-backend/pkg/llm"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

// repairResult is the outcome of the bounded repair loop.
type repairResult struct {
	Reply    string
	Order    types.OrderDraft
	Attempts int
	Repaired bool
}

// repair re-prompts the model with the authoritative figures until it
// restates them correctly or the attempts run out. The loop can
// only tighten the order: every candidate passes back through
// reconciliation, so the authoritative values survive regardless of what
// the model answers. On exhaustion the templated summary takes over and
// the model is cut out of the money path for this turn.
func (s *service) repair(ctx context.Context, tenantID string, base []llm.Message, authoritative types.OrderDraft) repairResult {
	result := repairResult{Order: authoritative}

	for attempt := 1; attempt <= s.repairMaxAttempts; attempt++ {
		result.Attempts = attempt
		s.metrics.IncRepairAttempt(tenantID)

		messages := make([]llm.Message, 0, len(base)+1)
		messages = append(messages, base...)
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: correctionPrompt(result.Order)})

		raw, err := s.complete(ctx, messages)
		if err != nil {
			s.logg.Error(ctx, "repair attempt failed against model", err)
			break
		}
		reply, err := ParseModelReply(raw)
		if err != nil {
			s.logg.Warn(ctx, "repair attempt returned unparsable reply")
			continue
		}

		merged := mergeProposal(result.Order, reply.Order)
		reconciled, err := s.reconciler.Reconcile(ctx, tenantID, merged)
		if err != nil {
			s.logg.Error(ctx, "reconciliation failed during repair", err)
			break
		}
		// A candidate that dropped the items is a failed attempt; adopting
		// it would hand the fallback an empty order.
		if !reconciled.HasItems {
			continue
		}
		result.Order = reconciled.Order
		if !reconciled.Mismatch {
			result.Reply = reply.Response
			result.Repaired = true
			return result
		}
	}

	s.metrics.IncRepairExhausted(tenantID)
	result.Reply = fallbackSummary(result.Order)
	return result
}
