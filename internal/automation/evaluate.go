package automation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/quoteflow-backend/internal/workflow"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/google/uuid"
)

// Document is the JSON view of an event that conditions and placeholders read.
type Document map[string]any

// NewDocument flattens the event payload to its JSON form and adds the entity
// and actor envelope.
func NewDocument(event workflow.Event) (Document, error) {
	doc := Document{}
	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", event.Trigger, err)
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", event.Trigger, err)
		}
	}
	doc["entity"] = map[string]any{"type": event.EntityType, "id": event.EntityID.String()}
	doc["actor"] = map[string]any{"userId": event.Actor.UserID.String(), "role": string(event.Actor.Role)}
	return doc, nil
}

// Lookup resolves a dotted path such as "actor.role".
func (d Document) Lookup(path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String resolves path for message templates. Missing fields render empty.
func (d Document) String(path string) string {
	v, ok := d.Lookup(path)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, fmt.Sprint(e))
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}

// UUID resolves path as an id.
func (d Document) UUID(path string) (uuid.UUID, bool) {
	v, ok := d.Lookup(path)
	if !ok {
		return uuid.Nil, false
	}
	s, ok := v.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// UUIDs resolves path as a list of ids.
func (d Document) UUIDs(path string) []uuid.UUID {
	v, ok := d.Lookup(path)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]uuid.UUID, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			if id, err := uuid.Parse(s); err == nil {
				out = append(out, id)
			}
		}
	}
	return out
}

// Render replaces {{field}} placeholders with document values.
func (d Document) Render(text string) string {
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		sub := placeholder.FindStringSubmatch(m)
		return d.String(sub[1])
	})
}

// Matches reports whether every condition holds. Evaluation stops at the first
// false condition; an unknown or missing field is false.
func Matches(schema Schema, conditions []Condition, doc Document) bool {
	for _, c := range conditions {
		if !holds(schema, c, doc) {
			return false
		}
	}
	return true
}

func holds(schema Schema, c Condition, doc Document) bool {
	kind, ok := schema[c.Field]
	if !ok {
		return false
	}
	actual, ok := doc.Lookup(c.Field)
	if !ok || actual == nil {
		return false
	}
	switch c.Operator {
	case enums.OperatorEquals:
		return equal(kind, actual, c.Value)
	case enums.OperatorIn:
		list, ok := c.Value.([]any)
		if !ok {
			return false
		}
		for _, v := range list {
			if equal(kind, actual, v) {
				return true
			}
		}
		return false
	case enums.OperatorGreaterThan:
		cmp, ok := compare(kind, actual, c.Value)
		return ok && cmp > 0
	case enums.OperatorLessThan:
		cmp, ok := compare(kind, actual, c.Value)
		return ok && cmp < 0
	case enums.OperatorContains:
		switch kind {
		case KindString:
			s, ok1 := actual.(string)
			sub, ok2 := c.Value.(string)
			return ok1 && ok2 && strings.Contains(s, sub)
		case KindList:
			list, ok := actual.([]any)
			if !ok {
				return false
			}
			for _, e := range list {
				if equal(KindUUID, e, c.Value) {
					return true
				}
			}
		}
	}
	return false
}

func equal(kind Kind, actual, expected any) bool {
	switch kind {
	case KindNumber, KindTime:
		cmp, ok := compare(kind, actual, expected)
		return ok && cmp == 0
	case KindUUID:
		a, ok1 := actual.(string)
		b, ok2 := expected.(string)
		if !ok1 || !ok2 {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	case KindString:
		a, ok1 := actual.(string)
		b, ok2 := expected.(string)
		return ok1 && ok2 && a == b
	case KindBool:
		a, ok1 := actual.(bool)
		b, ok2 := expected.(bool)
		return ok1 && ok2 && a == b
	}
	return false
}

func compare(kind Kind, actual, expected any) (int, bool) {
	switch kind {
	case KindNumber:
		a, ok1 := toDecimal(actual)
		b, ok2 := toDecimal(expected)
		if !ok1 || !ok2 {
			return 0, false
		}
		return a.Cmp(b), true
	case KindTime:
		a, ok1 := toTime(actual)
		b, ok2 := toTime(expected)
		if !ok1 || !ok2 {
			return 0, false
		}
		return a.Compare(b), true
	}
	return 0, false
}
