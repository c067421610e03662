package automation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the type of a payload field as conditions see it.
type Kind string

const (
	KindUUID   Kind = "uuid"
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindTime   Kind = "time"
	// KindList is a list of ids.
	KindList Kind = "list"
)

// Schema maps a dotted field path to its kind.
type Schema map[string]Kind

// envelope fields are present on every trigger.
var envelope = Schema{
	"entity.type":  KindString,
	"entity.id":    KindUUID,
	"actor.userId": KindUUID,
	"actor.role":   KindString,
}

var triggerSchemas = map[enums.AutomationTrigger]Schema{
	enums.TriggerInquiryCreated: {
		"inquiryId":  KindUUID,
		"customerId": KindUUID,
		"title":      KindString,
		"priority":   KindString,
		"status":     KindString,
		"createdBy":  KindUUID,
		"itemCount":  KindNumber,
	},
	enums.TriggerInquiryStatusChanged: {
		"inquiryId":      KindUUID,
		"customerId":     KindUUID,
		"previousStatus": KindString,
		"status":         KindString,
		"priority":       KindString,
		"changedBy":      KindUUID,
		"reason":         KindString,
	},
	enums.TriggerItemAssigned: {
		"inquiryId":    KindUUID,
		"assigneeId":   KindUUID,
		"assigneeRole": KindString,
		"itemIds":      KindList,
		"itemCount":    KindNumber,
		"priority":     KindString,
		"assignedBy":   KindUUID,
	},
	enums.TriggerCostCalculated: {
		"inquiryId":         KindUUID,
		"itemId":            KindUUID,
		"costCalculationId": KindUUID,
		"assigneeId":        KindUUID,
		"total":             KindNumber,
		"marginPercent":     KindNumber,
		"requiresApproval":  KindBool,
	},
	enums.TriggerApprovalRequired: {
		"approvalId":        KindUUID,
		"costCalculationId": KindUUID,
		"itemId":            KindUUID,
		"inquiryId":         KindUUID,
		"amount":            KindNumber,
		"threshold":         KindNumber,
		"reason":            KindString,
		"requestedBy":       KindUUID,
	},
	enums.TriggerQuoteCreated: {
		"quoteId":     KindUUID,
		"inquiryId":   KindUUID,
		"quoteNumber": KindString,
		"total":       KindNumber,
		"validUntil":  KindTime,
		"createdBy":   KindUUID,
	},
	enums.TriggerDeadlineApproaching: {
		"quoteId":       KindUUID,
		"inquiryId":     KindUUID,
		"quoteNumber":   KindString,
		"validUntil":    KindTime,
		"daysRemaining": KindNumber,
	},
	enums.TriggerWorkloadThreshold: {
		"assigneeId":     KindUUID,
		"assigneeName":   KindString,
		"assigneeRole":   KindString,
		"pendingCount":   KindNumber,
		"averagePending": KindNumber,
		"factor":         KindNumber,
	},
	enums.TriggerProductionOrderCreated: {
		"productionOrderId": KindUUID,
		"quoteId":           KindUUID,
		"inquiryId":         KindUUID,
		"orderNumber":       KindString,
		"total":             KindNumber,
	},
}

// SchemaFor returns the fields a rule on trigger may reference.
func SchemaFor(trigger enums.AutomationTrigger) (Schema, bool) {
	fields, ok := triggerSchemas[trigger]
	if !ok {
		return nil, false
	}
	out := make(Schema, len(fields)+len(envelope))
	for k, v := range envelope {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out, true
}

// Issue is one structural problem of a rule, addressed by path
// (e.g. "conditions[1].operator").
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

var changeStatusTargets = map[string]struct {
	field    string
	statuses []string
}{
	TargetInquiry: {
		field:    "inquiryId",
		statuses: []string{string(enums.InquiryStatusSubmitted), string(enums.InquiryStatusCancelled)},
	},
	TargetQuote: {
		field: "quoteId",
		statuses: []string{
			string(enums.QuoteStatusSent),
			string(enums.QuoteStatusAccepted),
			string(enums.QuoteStatusRejected),
			string(enums.QuoteStatusExpired),
		},
	},
	TargetProductionOrder: {
		field: "productionOrderId",
		statuses: []string{
			string(enums.ProductionOrderStatusInProduction),
			string(enums.ProductionOrderStatusCompleted),
			string(enums.ProductionOrderStatusShipped),
			string(enums.ProductionOrderStatusDelivered),
		},
	},
}

// Validate checks a rule definition against its trigger's schema and returns
// a VALIDATION_ERROR listing every issue.
func Validate(name string, trigger enums.AutomationTrigger, conditions []Condition, actions []Action) error {
	var issues []Issue
	add := func(path, format string, args ...any) {
		issues = append(issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(name) == "" {
		add("name", "name required")
	}
	schema, ok := SchemaFor(trigger)
	if !ok {
		add("trigger", "unknown trigger %q", trigger)
		return invalidRule(issues)
	}

	for i, c := range conditions {
		path := fmt.Sprintf("conditions[%d]", i)
		kind, known := schema[c.Field]
		if !known {
			add(path+".field", "field %q is not part of the %s payload", c.Field, trigger)
			continue
		}
		if !c.Operator.IsValid() {
			add(path+".operator", "unknown operator %q", c.Operator)
			continue
		}
		if msg := checkOperand(kind, c.Operator, c.Value); msg != "" {
			add(path+".value", "%s", msg)
		}
	}

	if len(actions) == 0 {
		add("actions", "at least one action required")
	}
	for i, a := range actions {
		path := fmt.Sprintf("actions[%d]", i)
		if !a.Type.IsValid() {
			add(path+".type", "unknown action type %q", a.Type)
			continue
		}
		params, err := a.Decode()
		if err != nil {
			add(path+".params", "%s", err.Error())
			continue
		}
		for _, issue := range checkAction(schema, trigger, params) {
			add(path+issue.Path, "%s", issue.Message)
		}
	}
	return invalidRule(issues)
}

func invalidRule(issues []Issue) error {
	if len(issues) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "automation rule is invalid").
		WithDetails(map[string]any{"issues": issues})
}

func checkAction(schema Schema, trigger enums.AutomationTrigger, params any) []Issue {
	var issues []Issue
	needs := func(field, path string) {
		if _, ok := schema[field]; !ok {
			issues = append(issues, Issue{Path: path, Message: fmt.Sprintf("%s payload has no %s", trigger, field)})
		}
	}

	switch p := params.(type) {
	case *ChangeStatusParams:
		target, ok := changeStatusTargets[p.Target]
		if !ok {
			issues = append(issues, Issue{Path: ".params.target", Message: fmt.Sprintf("unknown target %q", p.Target)})
			break
		}
		needs(target.field, ".params.target")
		if !containsString(target.statuses, p.Status) {
			issues = append(issues, Issue{Path: ".params.status", Message: fmt.Sprintf("%s cannot be moved to %q by a rule", p.Target, p.Status)})
		}
	case *AssignUserParams:
		if p.UserID == uuid.Nil {
			issues = append(issues, Issue{Path: ".params.userId", Message: "userId required"})
		}
		needs("inquiryId", ".type")
	case *SendNotificationParams:
		switch p.Recipient {
		case enums.RecipientUser:
			if p.UserID == nil || *p.UserID == uuid.Nil {
				issues = append(issues, Issue{Path: ".params.userId", Message: "userId required for recipient user"})
			}
		case enums.RecipientAssignee:
			needs("assigneeId", ".params.recipient")
		case enums.RecipientCreator:
			needs("inquiryId", ".params.recipient")
		case enums.RecipientManagers:
		default:
			issues = append(issues, Issue{Path: ".params.recipient", Message: fmt.Sprintf("unknown recipient %q", p.Recipient)})
		}
		if strings.TrimSpace(p.Title) == "" {
			issues = append(issues, Issue{Path: ".params.title", Message: "title required"})
		}
		if strings.TrimSpace(p.Message) == "" {
			issues = append(issues, Issue{Path: ".params.message", Message: "message required"})
		}
		for _, text := range []string{p.Title, p.Message} {
			for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
				if _, ok := schema[m[1]]; !ok {
					issues = append(issues, Issue{Path: ".params", Message: fmt.Sprintf("placeholder {{%s}} is not part of the %s payload", m[1], trigger)})
				}
			}
		}
	case *CreateApprovalParams:
		needs("costCalculationId", ".type")
	}
	return issues
}

// checkOperand returns a message when operator or value do not fit kind.
func checkOperand(kind Kind, op enums.ConditionOperator, value any) string {
	switch op {
	case enums.OperatorEquals:
		if kind == KindList {
			return "equals does not apply to list fields; use contains"
		}
		if !valueFits(kind, value) {
			return fmt.Sprintf("value must be a %s", kind)
		}
	case enums.OperatorIn:
		if kind == KindList {
			return "in does not apply to list fields; use contains"
		}
		list, ok := value.([]any)
		if !ok || len(list) == 0 {
			return "in needs a non-empty array value"
		}
		for _, v := range list {
			if !valueFits(kind, v) {
				return fmt.Sprintf("every in value must be a %s", kind)
			}
		}
	case enums.OperatorGreaterThan, enums.OperatorLessThan:
		if kind != KindNumber && kind != KindTime {
			return fmt.Sprintf("%s applies to number and time fields only", op)
		}
		if !valueFits(kind, value) {
			return fmt.Sprintf("value must be a %s", kind)
		}
	case enums.OperatorContains:
		switch kind {
		case KindString:
			if _, ok := value.(string); !ok {
				return "contains needs a string value"
			}
		case KindList:
			if !valueFits(KindUUID, value) {
				return "contains on a list needs an id value"
			}
		default:
			return "contains applies to string and list fields only"
		}
	}
	return ""
}

func valueFits(kind Kind, value any) bool {
	switch kind {
	case KindUUID:
		s, ok := value.(string)
		if !ok {
			return false
		}
		_, err := uuid.Parse(s)
		return err == nil
	case KindString:
		_, ok := value.(string)
		return ok
	case KindNumber:
		_, ok := toDecimal(value)
		return ok
	case KindBool:
		_, ok := value.(bool)
		return ok
	case KindTime:
		_, ok := toTime(value)
		return ok
	}
	return false
}

func toTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		return t, err == nil
	}
	return time.Time{}, false
}

func toDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

func containsString(list []string, v string) bool {
	for _, candidate := range list {
		if candidate == v {
			return true
		}
	}
	return false
}
