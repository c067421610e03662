package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/quoteflow-backend/api/responses"
	"github.com/angelmondragon/quoteflow-backend/api/validators"
	"github.com/angelmondragon/quoteflow-backend/internal/automation"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
)

type ruleRequest struct {
	Name        string                 `json:"name" validate:"required,max=200"`
	Description *string                `json:"description" validate:"omitempty,max=2000"`
	Trigger     string                 `json:"trigger" validate:"required"`
	Conditions  []automation.Condition `json:"conditions"`
	Actions     []automation.Action    `json:"actions" validate:"required,min=1"`
	Priority    int                    `json:"priority"`
	IsActive    *bool                  `json:"isActive"`
}

func (r ruleRequest) input() automation.RuleInput {
	return automation.RuleInput{
		Name:        validators.SanitizeString(r.Name, 200),
		Description: r.Description,
		Trigger:     enums.AutomationTrigger(strings.ToUpper(strings.TrimSpace(r.Trigger))),
		Conditions:  r.Conditions,
		Actions:     r.Actions,
		Priority:    r.Priority,
		IsActive:    r.IsActive,
	}
}

type ruleActivationRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// CreateAutomationRule validates and stores a new rule.
func CreateAutomationRule(svc automation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req ruleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.CreateRule(r.Context(), req.input(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rule)
	}
}

// UpdateAutomationRule replaces a rule definition.
func UpdateAutomationRule(svc automation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ruleID, err := parseIDParam(r, "ruleId", "rule")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req ruleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.UpdateRule(r.Context(), ruleID, req.input(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}

// SetAutomationRuleActive toggles a rule. Activation revalidates the stored definition.
func SetAutomationRuleActive(svc automation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ruleID, err := parseIDParam(r, "ruleId", "rule")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req ruleActivationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.SetActive(r.Context(), ruleID, *req.IsActive, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}

func DeleteAutomationRule(svc automation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ruleID, err := parseIDParam(r, "ruleId", "rule")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteRule(r.Context(), ruleID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func GetAutomationRule(svc automation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ruleID, err := parseIDParam(r, "ruleId", "rule")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.GetRule(r.Context(), ruleID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}

// ListAutomationRules pages rules, optionally by trigger and active flag.
func ListAutomationRules(svc automation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		trigger, err := parseTriggerQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := automation.ListRulesParams{Trigger: trigger, Limit: page.Limit, Cursor: page.Cursor}
		if params.Active, err = validators.ParseQueryBool(r, "active"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListRules(r.Context(), params, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListAutomationLogs pages rule firings and recursion halts.
func ListAutomationLogs(svc automation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		trigger, err := parseTriggerQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ruleID, err := parseOptionalIDQuery(r, "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entityID, err := parseOptionalIDQuery(r, "entityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListLogs(r.Context(), automation.ListLogsParams{
			RuleID:   ruleID,
			EntityID: entityID,
			Trigger:  trigger,
			Limit:    page.Limit,
			Cursor:   page.Cursor,
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, automation.LogPage(list))
	}
}

func parseTriggerQuery(r *http.Request) (enums.AutomationTrigger, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("trigger"))
	if raw == "" {
		return "", nil
	}
	trigger, err := enums.ParseAutomationTrigger(strings.ToUpper(raw))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid trigger").WithDetails(map[string]any{"field": "trigger"})
	}
	return trigger, nil
}
