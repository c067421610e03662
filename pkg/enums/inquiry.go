package enums

import "fmt"

// InquiryStatus tracks an inquiry through the quote lifecycle.
type InquiryStatus string

const (
	InquiryStatusDraft     InquiryStatus = "DRAFT"
	InquiryStatusSubmitted InquiryStatus = "SUBMITTED"
	InquiryStatusAssigned  InquiryStatus = "ASSIGNED"
	InquiryStatusQuoted    InquiryStatus = "QUOTED"
	InquiryStatusApproved  InquiryStatus = "APPROVED"
	InquiryStatusClosed    InquiryStatus = "CLOSED"
	InquiryStatusCancelled InquiryStatus = "CANCELLED"
)

var validInquiryStatuses = []InquiryStatus{
	InquiryStatusDraft,
	InquiryStatusSubmitted,
	InquiryStatusAssigned,
	InquiryStatusQuoted,
	InquiryStatusApproved,
	InquiryStatusClosed,
	InquiryStatusCancelled,
}

func (s InquiryStatus) IsValid() bool {
	for _, candidate := range validInquiryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s InquiryStatus) IsTerminal() bool {
	return s == InquiryStatusClosed || s == InquiryStatusCancelled
}

func ParseInquiryStatus(value string) (InquiryStatus, error) {
	for _, candidate := range validInquiryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inquiry status %q", value)
}

// InquiryPriority orders inquiries for the sales team.
type InquiryPriority string

const (
	InquiryPriorityLow    InquiryPriority = "LOW"
	InquiryPriorityNormal InquiryPriority = "NORMAL"
	InquiryPriorityHigh   InquiryPriority = "HIGH"
	InquiryPriorityUrgent InquiryPriority = "URGENT"
)

var validInquiryPriorities = []InquiryPriority{
	InquiryPriorityLow,
	InquiryPriorityNormal,
	InquiryPriorityHigh,
	InquiryPriorityUrgent,
}

func (p InquiryPriority) IsValid() bool {
	for _, candidate := range validInquiryPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

func ParseInquiryPriority(value string) (InquiryPriority, error) {
	for _, candidate := range validInquiryPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inquiry priority %q", value)
}

// InquiryItemStatus tracks cost work on a single line of an inquiry.
type InquiryItemStatus string

const (
	InquiryItemStatusPending  InquiryItemStatus = "PENDING"
	InquiryItemStatusAssigned InquiryItemStatus = "ASSIGNED"
	InquiryItemStatusCosted   InquiryItemStatus = "COSTED"
)

var validInquiryItemStatuses = []InquiryItemStatus{
	InquiryItemStatusPending,
	InquiryItemStatusAssigned,
	InquiryItemStatusCosted,
}

func (s InquiryItemStatus) IsValid() bool {
	for _, candidate := range validInquiryItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseInquiryItemStatus(value string) (InquiryItemStatus, error) {
	for _, candidate := range validInquiryItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inquiry item status %q", value)
}
