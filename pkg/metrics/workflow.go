package metrics

import "github.com/prometheus/client_golang/prometheus"

// WorkflowMetrics counts state machine transitions and automation rule outcomes.
type WorkflowMetrics struct {
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	automation  *prometheus.CounterVec
	halts       prometheus.Counter
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quoteflow_workflow_transitions_total",
		Help: "Committed state machine transitions by entity and target status.",
	}, []string{"entity", "status"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quoteflow_workflow_rejections_total",
		Help: "Workflow commands rejected by error code.",
	}, []string{"operation", "code"})
	automation := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quoteflow_automation_rule_outcomes_total",
		Help: "Automation rule firings by trigger and outcome.",
	}, []string{"trigger", "outcome"})
	halts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quoteflow_automation_recursion_halts_total",
		Help: "Automation passes halted by the recursion guard.",
	})
	reg.MustRegister(transitions, rejections, automation, halts)
	return &WorkflowMetrics{
		transitions: transitions,
		rejections:  rejections,
		automation:  automation,
		halts:       halts,
	}
}

// IncTransition records a committed transition of entity into status.
func (w *WorkflowMetrics) IncTransition(entity, status string) {
	if w == nil || w.transitions == nil {
		return
	}
	w.transitions.WithLabelValues(normalizeLabel(entity), normalizeLabel(status)).Inc()
}

// IncRejection records a command that failed with the given error code.
func (w *WorkflowMetrics) IncRejection(operation, code string) {
	if w == nil || w.rejections == nil {
		return
	}
	w.rejections.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

// IncAutomationOutcome records one rule firing.
func (w *WorkflowMetrics) IncAutomationOutcome(trigger, outcome string) {
	if w == nil || w.automation == nil {
		return
	}
	w.automation.WithLabelValues(normalizeLabel(trigger), normalizeLabel(outcome)).Inc()
}

// IncRecursionHalt records a halted automation pass.
func (w *WorkflowMetrics) IncRecursionHalt() {
	if w == nil || w.halts == nil {
		return
	}
	w.halts.Inc()
}
