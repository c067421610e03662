package enums

import "fmt"

// AutomationTrigger names the workflow event a rule listens to.
type AutomationTrigger string

const (
	TriggerInquiryCreated         AutomationTrigger = "INQUIRY_CREATED"
	TriggerInquiryStatusChanged   AutomationTrigger = "INQUIRY_STATUS_CHANGED"
	TriggerItemAssigned           AutomationTrigger = "ITEM_ASSIGNED"
	TriggerCostCalculated         AutomationTrigger = "COST_CALCULATED"
	TriggerApprovalRequired       AutomationTrigger = "APPROVAL_REQUIRED"
	TriggerQuoteCreated           AutomationTrigger = "QUOTE_CREATED"
	TriggerDeadlineApproaching    AutomationTrigger = "DEADLINE_APPROACHING"
	TriggerWorkloadThreshold      AutomationTrigger = "WORKLOAD_THRESHOLD"
	TriggerProductionOrderCreated AutomationTrigger = "PRODUCTION_ORDER_CREATED"
)

var validAutomationTriggers = []AutomationTrigger{
	TriggerInquiryCreated,
	TriggerInquiryStatusChanged,
	TriggerItemAssigned,
	TriggerCostCalculated,
	TriggerApprovalRequired,
	TriggerQuoteCreated,
	TriggerDeadlineApproaching,
	TriggerWorkloadThreshold,
	TriggerProductionOrderCreated,
}

func (t AutomationTrigger) IsValid() bool {
	for _, candidate := range validAutomationTriggers {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseAutomationTrigger(value string) (AutomationTrigger, error) {
	for _, candidate := range validAutomationTriggers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid automation trigger %q", value)
}

// ConditionOperator compares a payload field to a rule value.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorIn          ConditionOperator = "in"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorContains    ConditionOperator = "contains"
)

var validConditionOperators = []ConditionOperator{
	OperatorEquals,
	OperatorIn,
	OperatorGreaterThan,
	OperatorLessThan,
	OperatorContains,
}

func (o ConditionOperator) IsValid() bool {
	for _, candidate := range validConditionOperators {
		if candidate == o {
			return true
		}
	}
	return false
}

func ParseConditionOperator(value string) (ConditionOperator, error) {
	for _, candidate := range validConditionOperators {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid condition operator %q", value)
}

// AutomationActionType tags the closed set of rule actions.
type AutomationActionType string

const (
	ActionChangeStatus     AutomationActionType = "change_status"
	ActionAssignUser       AutomationActionType = "assign_user"
	ActionSendNotification AutomationActionType = "send_notification"
	ActionCreateApproval   AutomationActionType = "create_approval"
)

var validAutomationActionTypes = []AutomationActionType{
	ActionChangeStatus,
	ActionAssignUser,
	ActionSendNotification,
	ActionCreateApproval,
}

func (a AutomationActionType) IsValid() bool {
	for _, candidate := range validAutomationActionTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

func ParseAutomationActionType(value string) (AutomationActionType, error) {
	for _, candidate := range validAutomationActionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid automation action type %q", value)
}

// NotificationRecipient resolves who a send_notification action targets.
type NotificationRecipient string

const (
	RecipientAssignee NotificationRecipient = "assignee"
	RecipientCreator  NotificationRecipient = "creator"
	RecipientManagers NotificationRecipient = "managers"
	RecipientUser     NotificationRecipient = "user"
)

var validNotificationRecipients = []NotificationRecipient{
	RecipientAssignee,
	RecipientCreator,
	RecipientManagers,
	RecipientUser,
}

func (r NotificationRecipient) IsValid() bool {
	for _, candidate := range validNotificationRecipients {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseNotificationRecipient(value string) (NotificationRecipient, error) {
	for _, candidate := range validNotificationRecipients {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification recipient %q", value)
}

// AutomationOutcome records whether a rule firing succeeded.
type AutomationOutcome string

const (
	AutomationOutcomeSuccess AutomationOutcome = "SUCCESS"
	AutomationOutcomeFailure AutomationOutcome = "FAILURE"
)

// AutomationSeverity separates routine log entries from recursion halts.
type AutomationSeverity string

const (
	AutomationSeverityInfo     AutomationSeverity = "INFO"
	AutomationSeverityCritical AutomationSeverity = "CRITICAL"
)
