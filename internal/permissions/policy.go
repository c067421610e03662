package permissions

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
)

// Wildcard matches any resource or action.
const Wildcard = "*"

// Resources guarded by the policy.
const (
	ResourceInquiry         = "inquiry"
	ResourceItem            = "item"
	ResourceCost            = "cost"
	ResourceApproval        = "approval"
	ResourceQuote           = "quote"
	ResourceProductionOrder = "production_order"
	ResourceAutomationRule  = "automation_rule"
	ResourceAutomationLog   = "automation_log"
	ResourceWorkload        = "workload"
	ResourceCustomer        = "customer"
)

// Actions guarded by the policy.
const (
	ActionCreate   = "create"
	ActionRead     = "read"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionSubmit   = "submit"
	ActionCancel   = "cancel"
	ActionAssign   = "assign"
	ActionUnassign = "unassign"
	ActionDecide   = "decide"
	ActionSend     = "send"
	ActionAdvance  = "advance"
)

// Grant allows one (resource, action) pair; either side may be Wildcard.
type Grant struct {
	Resource string
	Action   string
}

// G is shorthand for building a Grant.
func G(resource, action string) Grant {
	return Grant{Resource: resource, Action: action}
}

// DefaultGrants is the role table the service boots with.
func DefaultGrants() map[enums.UserRole][]Grant {
	return map[enums.UserRole][]Grant{
		enums.UserRoleAdmin: {G(Wildcard, Wildcard)},
		enums.UserRoleManager: {
			G(ResourceInquiry, Wildcard),
			G(ResourceItem, Wildcard),
			G(ResourceCost, Wildcard),
			G(ResourceApproval, Wildcard),
			G(ResourceQuote, Wildcard),
			G(ResourceProductionOrder, Wildcard),
			G(ResourceAutomationRule, Wildcard),
			G(ResourceAutomationLog, ActionRead),
			G(ResourceWorkload, ActionRead),
			G(ResourceCustomer, Wildcard),
		},
		enums.UserRoleSales: {
			G(ResourceInquiry, ActionCreate),
			G(ResourceInquiry, ActionRead),
			G(ResourceInquiry, ActionSubmit),
			G(ResourceInquiry, ActionCancel),
			G(ResourceItem, ActionRead),
			G(ResourceCost, ActionRead),
			G(ResourceQuote, Wildcard),
			G(ResourceProductionOrder, ActionRead),
			G(ResourceCustomer, Wildcard),
		},
		enums.UserRoleVPP: {
			G(ResourceInquiry, ActionRead),
			G(ResourceItem, ActionRead),
			G(ResourceItem, ActionAssign),
			G(ResourceCost, ActionCreate),
			G(ResourceCost, ActionRead),
			G(ResourceWorkload, ActionRead),
		},
		enums.UserRoleVP: {
			G(ResourceInquiry, ActionRead),
			G(ResourceItem, ActionRead),
			G(ResourceCost, ActionCreate),
			G(ResourceCost, ActionRead),
		},
		enums.UserRoleProduction: {
			G(ResourceInquiry, ActionRead),
			G(ResourceQuote, ActionRead),
			G(ResourceProductionOrder, Wildcard),
		},
		enums.UserRoleViewer: {
			G(Wildcard, ActionRead),
		},
	}
}

// Policy is an immutable role → grant table. Build it once and share it.
type Policy struct {
	grants map[enums.UserRole]map[string]struct{}
}

// NewPolicy copies grants into a lookup table. Unknown roles and empty grant
// components are rejected.
func NewPolicy(grants map[enums.UserRole][]Grant) (*Policy, error) {
	table := make(map[enums.UserRole]map[string]struct{}, len(grants))
	for role, list := range grants {
		if !role.IsValid() {
			return nil, fmt.Errorf("unknown role %q in permission table", role)
		}
		set := make(map[string]struct{}, len(list))
		for _, g := range list {
			resource := strings.TrimSpace(g.Resource)
			action := strings.TrimSpace(g.Action)
			if resource == "" || action == "" {
				return nil, fmt.Errorf("role %s has an empty grant", role)
			}
			set[key(resource, action)] = struct{}{}
		}
		table[role] = set
	}
	return &Policy{grants: table}, nil
}

// MustDefault builds the default policy and panics if the table is malformed.
func MustDefault() *Policy {
	p, err := NewPolicy(DefaultGrants())
	if err != nil {
		panic(err)
	}
	return p
}

// HasPermission checks the exact grant, then wildcard resource, then wildcard
// action, then the full wildcard.
func (p *Policy) HasPermission(role enums.UserRole, resource, action string) bool {
	if p == nil {
		return false
	}
	set, ok := p.grants[role]
	if !ok {
		return false
	}
	for _, candidate := range []string{
		key(resource, action),
		key(Wildcard, action),
		key(resource, Wildcard),
		key(Wildcard, Wildcard),
	} {
		if _, ok := set[candidate]; ok {
			return true
		}
	}
	return false
}

// Authorize returns a FORBIDDEN error when role lacks the grant.
func (p *Policy) Authorize(role enums.UserRole, resource, action string) error {
	if p.HasPermission(role, resource, action) {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeForbidden, "role %s cannot %s %s", role, action, resource).
		WithDetails(map[string]any{"role": role, "resource": resource, "action": action})
}

// CanAssignItems reports whether role may assign inquiry items.
func (p *Policy) CanAssignItems(role enums.UserRole) bool {
	return p.HasPermission(role, ResourceItem, ActionAssign)
}

// CanCalculateCosts reports whether role may record cost calculations.
func (p *Policy) CanCalculateCosts(role enums.UserRole) bool {
	return p.HasPermission(role, ResourceCost, ActionCreate)
}

// IsElevated reports whether role is a manager-level role.
func IsElevated(role enums.UserRole) bool {
	return role == enums.UserRoleAdmin || role == enums.UserRoleManager
}

// IsEligibleAssignee reports whether a user with role may receive item assignments.
func IsEligibleAssignee(role enums.UserRole) bool {
	return role == enums.UserRoleVP || role == enums.UserRoleVPP
}

func key(resource, action string) string {
	return resource + ":" + action
}
