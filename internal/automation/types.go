package automation

import (
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Condition compares one payload field to a constant.
type Condition struct {
	Field    string                  `json:"field"`
	Operator enums.ConditionOperator `json:"operator"`
	Value    any                     `json:"value"`
}

// Action is one step of a rule. Params holds the type-specific body, decoded
// by Decode into one of the *Params structs below.
type Action struct {
	Type   enums.AutomationActionType `json:"type"`
	Params json.RawMessage            `json:"params"`
}

// ChangeStatusParams moves the event's inquiry, quote or production order.
type ChangeStatusParams struct {
	Target string `json:"target"`
	Status string `json:"status"`
}

// AssignUserParams assigns the event's items to a user.
type AssignUserParams struct {
	UserID uuid.UUID `json:"userId"`
}

// SendNotificationParams sends an in-app notification. Title and Message may
// reference payload fields as {{field}}.
type SendNotificationParams struct {
	Recipient enums.NotificationRecipient `json:"recipient"`
	UserID    *uuid.UUID                  `json:"userId,omitempty"`
	Title     string                      `json:"title"`
	Message   string                      `json:"message"`
}

// CreateApprovalParams opens an approval for the event's cost calculation.
type CreateApprovalParams struct {
	Reason string `json:"reason"`
}

// Change-status targets.
const (
	TargetInquiry         = "inquiry"
	TargetQuote           = "quote"
	TargetProductionOrder = "production_order"
)

// Decode returns the typed params for the action.
func (a Action) Decode() (any, error) {
	var out any
	switch a.Type {
	case enums.ActionChangeStatus:
		out = &ChangeStatusParams{}
	case enums.ActionAssignUser:
		out = &AssignUserParams{}
	case enums.ActionSendNotification:
		out = &SendNotificationParams{}
	case enums.ActionCreateApproval:
		out = &CreateApprovalParams{}
	default:
		return nil, fmt.Errorf("unknown action type %q", a.Type)
	}
	if len(a.Params) == 0 {
		return nil, fmt.Errorf("action %s has no params", a.Type)
	}
	if err := json.Unmarshal(a.Params, out); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", a.Type, err)
	}
	return out, nil
}

// Rule is the decoded form of a stored automation rule.
type Rule struct {
	ID          uuid.UUID               `json:"id"`
	Name        string                  `json:"name"`
	Description *string                 `json:"description,omitempty"`
	Trigger     enums.AutomationTrigger `json:"trigger"`
	Conditions  []Condition             `json:"conditions"`
	Actions     []Action                `json:"actions"`
	Priority    int                     `json:"priority"`
	IsActive    bool                    `json:"isActive"`
	CreatedBy   uuid.UUID               `json:"createdBy"`
	Sequence    int64                   `json:"sequence"`
}

// RuleFromModel decodes the JSON columns of a stored rule.
func RuleFromModel(m models.AutomationRule) (Rule, error) {
	rule := Rule{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Trigger:     m.Trigger,
		Priority:    m.Priority,
		IsActive:    m.IsActive,
		CreatedBy:   m.CreatedBy,
		Sequence:    m.Sequence,
	}
	if len(m.Conditions) > 0 {
		if err := json.Unmarshal(m.Conditions, &rule.Conditions); err != nil {
			return Rule{}, fmt.Errorf("decode conditions of rule %s: %w", m.ID, err)
		}
	}
	if len(m.Actions) > 0 {
		if err := json.Unmarshal(m.Actions, &rule.Actions); err != nil {
			return Rule{}, fmt.Errorf("decode actions of rule %s: %w", m.ID, err)
		}
	}
	if rule.Conditions == nil {
		rule.Conditions = []Condition{}
	}
	return rule, nil
}

func encodeDefinition(conditions []Condition, actions []Action) (datatypes.JSON, datatypes.JSON, error) {
	if conditions == nil {
		conditions = []Condition{}
	}
	c, err := json.Marshal(conditions)
	if err != nil {
		return nil, nil, err
	}
	a, err := json.Marshal(actions)
	if err != nil {
		return nil, nil, err
	}
	return datatypes.JSON(c), datatypes.JSON(a), nil
}
