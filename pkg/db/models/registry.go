package models

// All lists every persisted model in dependency order. SQLite mode and tests
// migrate with it; Postgres uses the goose migrations.
func All() []any {
	return []any{
		&User{},
		&Customer{},
		&Inquiry{},
		&InquiryItem{},
		&CostCalculation{},
		&Approval{},
		&Quote{},
		&ProductionOrder{},
		&AutomationRule{},
		&AutomationLog{},
		&Notification{},
		&AuditLog{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
