package automation

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quoteflow-backend/pkg/db/models"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/angelmondragon/quoteflow-backend/pkg/pagination"
)

// LogDTO is the transport shape of an automation log entry.
type LogDTO struct {
	ID         uuid.UUID                `json:"id"`
	RuleID     *uuid.UUID               `json:"ruleId,omitempty"`
	Trigger    enums.AutomationTrigger  `json:"trigger"`
	EntityType string                   `json:"entityType"`
	EntityID   uuid.UUID                `json:"entityId"`
	Outcome    enums.AutomationOutcome  `json:"outcome"`
	Severity   enums.AutomationSeverity `json:"severity"`
	Message    string                   `json:"message"`
	FiredAt    time.Time                `json:"firedAt"`
}

func LogFromModel(l *models.AutomationLog) *LogDTO {
	if l == nil {
		return nil
	}
	return &LogDTO{
		ID:         l.ID,
		RuleID:     l.RuleID,
		Trigger:    l.Trigger,
		EntityType: l.EntityType,
		EntityID:   l.EntityID,
		Outcome:    l.Outcome,
		Severity:   l.Severity,
		Message:    l.Message,
		FiredAt:    l.FiredAt,
	}
}

func LogPage(page *pagination.Page[models.AutomationLog]) pagination.Page[LogDTO] {
	out := pagination.Page[LogDTO]{Items: []LogDTO{}}
	if page == nil {
		return out
	}
	out.NextCursor = page.NextCursor
	for i := range page.Items {
		out.Items = append(out.Items, *LogFromModel(&page.Items[i]))
	}
	return out
}
