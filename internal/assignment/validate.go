package assignment

import (
	"fmt"

	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/google/uuid"
)

// Reasons reported for items that cannot be assigned.
const (
	ReasonNotFound         = "item not found"
	ReasonItemStatus       = "item status not assignable"
	ReasonInquiryStatus    = "inquiry status not assignable"
	ReasonDuplicateRequest = "item listed more than once"
	ReasonCostLocked       = "cost calculation locked by a sent quote"
)

// ItemState is the slice of an item and its inquiry that assignment validation reads.
type ItemState struct {
	ItemID        uuid.UUID
	InquiryID     uuid.UUID
	Status        enums.InquiryItemStatus
	InquiryStatus enums.InquiryStatus
}

// InvalidItem names one item that blocked a bulk assignment.
type InvalidItem struct {
	ItemID uuid.UUID `json:"itemId"`
	Reason string    `json:"reason"`
}

// ValidateItems checks every requested id against the loaded states and
// returns the items that cannot be assigned, in request order.
func ValidateItems(requested []uuid.UUID, found []ItemState) []InvalidItem {
	byID := make(map[uuid.UUID]ItemState, len(found))
	for _, s := range found {
		byID[s.ItemID] = s
	}

	var invalid []InvalidItem
	seen := make(map[uuid.UUID]struct{}, len(requested))
	for _, id := range requested {
		if _, dup := seen[id]; dup {
			invalid = append(invalid, InvalidItem{ItemID: id, Reason: ReasonDuplicateRequest})
			continue
		}
		seen[id] = struct{}{}

		state, ok := byID[id]
		if !ok {
			invalid = append(invalid, InvalidItem{ItemID: id, Reason: ReasonNotFound})
			continue
		}
		if !isAssignableItem(state.Status) {
			invalid = append(invalid, InvalidItem{ItemID: id, Reason: fmt.Sprintf("%s (%s)", ReasonItemStatus, state.Status)})
			continue
		}
		if !isAssignableInquiry(state.InquiryStatus) {
			invalid = append(invalid, InvalidItem{ItemID: id, Reason: fmt.Sprintf("%s (%s)", ReasonInquiryStatus, state.InquiryStatus)})
		}
	}
	return invalid
}

// InvalidIDs flattens the ids of invalid items.
func InvalidIDs(items []InvalidItem) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		out = append(out, it.ItemID)
	}
	return out
}

func isAssignableItem(s enums.InquiryItemStatus) bool {
	return s == enums.InquiryItemStatusPending || s == enums.InquiryItemStatusAssigned
}

func isAssignableInquiry(s enums.InquiryStatus) bool {
	return s == enums.InquiryStatusSubmitted || s == enums.InquiryStatusAssigned
}
