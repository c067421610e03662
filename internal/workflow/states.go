package workflow

import (
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/google/uuid"
)

var inquiryTransitions = map[enums.InquiryStatus][]enums.InquiryStatus{
	enums.InquiryStatusDraft:     {enums.InquiryStatusSubmitted, enums.InquiryStatusCancelled},
	enums.InquiryStatusSubmitted: {enums.InquiryStatusAssigned, enums.InquiryStatusCancelled},
	enums.InquiryStatusAssigned:  {enums.InquiryStatusQuoted, enums.InquiryStatusCancelled},
	enums.InquiryStatusQuoted:    {enums.InquiryStatusApproved, enums.InquiryStatusCancelled},
	enums.InquiryStatusApproved:  {enums.InquiryStatusClosed, enums.InquiryStatusCancelled},
}

var quoteTransitions = map[enums.QuoteStatus][]enums.QuoteStatus{
	enums.QuoteStatusDraft: {enums.QuoteStatusSent},
	enums.QuoteStatusSent:  {enums.QuoteStatusAccepted, enums.QuoteStatusRejected, enums.QuoteStatusExpired},
}

var itemTransitions = map[enums.InquiryItemStatus][]enums.InquiryItemStatus{
	enums.InquiryItemStatusPending:  {enums.InquiryItemStatusAssigned},
	enums.InquiryItemStatusAssigned: {enums.InquiryItemStatusAssigned, enums.InquiryItemStatusCosted, enums.InquiryItemStatusPending},
	enums.InquiryItemStatusCosted:   {enums.InquiryItemStatusCosted, enums.InquiryItemStatusAssigned, enums.InquiryItemStatusPending},
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	for _, candidate := range table[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func checkInquiry(id uuid.UUID, from, to enums.InquiryStatus) error {
	if allowed(inquiryTransitions, from, to) {
		return nil
	}
	return pkgerrors.InvalidTransition(EntityInquiry, id.String(), string(from), string(to))
}

func checkQuote(id uuid.UUID, from, to enums.QuoteStatus) error {
	if allowed(quoteTransitions, from, to) {
		return nil
	}
	return pkgerrors.InvalidTransition(EntityQuote, id.String(), string(from), string(to))
}

func checkItem(id uuid.UUID, from, to enums.InquiryItemStatus) error {
	if allowed(itemTransitions, from, to) {
		return nil
	}
	return pkgerrors.InvalidTransition(EntityItem, id.String(), string(from), string(to))
}

// checkProductionOrder accepts only the unique successor of from.
func checkProductionOrder(id uuid.UUID, from, to enums.ProductionOrderStatus) error {
	if next, ok := from.Next(); ok && next == to {
		return nil
	}
	return pkgerrors.InvalidTransition(EntityProductionOrder, id.String(), string(from), string(to))
}

// requireInquiryIn rejects an operation whose precondition is an inquiry status
// set rather than a single transition.
func requireInquiryIn(id uuid.UUID, current enums.InquiryStatus, requested string, allowedStates ...enums.InquiryStatus) error {
	for _, s := range allowedStates {
		if current == s {
			return nil
		}
	}
	return pkgerrors.InvalidTransition(EntityInquiry, id.String(), string(current), requested)
}
