package conversation

import (
	"strings"

	"github.com/franmoretti/tiendabot-backend/pkg/enums"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

// mergeProposal folds the model's proposed order into the current draft,
// field by field. A proposal field only overwrites when it actually says
// something; an absent field keeps what previous turns established.
// Items are the exception: when the proposal carries an item list it is
// taken as the complete current order, because the model restates the
// whole order each turn.
func mergeProposal(draft types.OrderDraft, proposal types.ProposedOrder) types.OrderDraft {
	merged := draft

	if mode, err := enums.ParseOrderMode(strings.ToLower(strings.TrimSpace(proposal.Mode))); err == nil && mode != enums.OrderModeUnset {
		if mode != merged.Mode {
			merged.Mode = mode
			merged.ClearLocation()
		}
	}

	if !proposal.Address.IsZero() {
		if proposal.Address.Text() != merged.Address.Text() {
			merged.Address = proposal.Address
			merged.ClearLocation()
		}
	}

	if proposal.Items != nil {
		items := make([]types.OrderItem, 0, len(proposal.Items))
		nextID := 1
		for _, candidate := range proposal.Items {
			description := strings.TrimSpace(candidate.Description)
			quantity := candidate.Quantity.Decimal()
			if description == "" || quantity.Sign() <= 0 {
				continue
			}
			items = append(items, types.OrderItem{
				ID:          nextID,
				Description: description,
				Quantity:    quantity,
				UnitPrice:   candidate.UnitPrice.Decimal(),
				LineTotal:   candidate.LineTotal.Decimal(),
			})
			nextID++
		}
		merged.Items = items
	}

	if strings.TrimSpace(string(proposal.GrandTotal)) != "" {
		merged.GrandTotal = proposal.GrandTotal.Decimal()
	}

	if date := strings.TrimSpace(proposal.ScheduledDate); date != "" {
		merged.ScheduledDate = date
	}
	if clock := strings.TrimSpace(proposal.ScheduledTime); clock != "" {
		merged.ScheduledTime = clock
	}

	return merged
}
