package upgrade

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Logger is the minimal logging interface used by workflow stages.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Observer receives structured events as the workflow progresses.
type Observer interface {
	Logger

	// Event emits a structured workflow event.
	Event(event Event)
}

// Event represents a structured upgrade workflow event.
type Event struct {
	Type      EventType
	Stage     string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// EventType classifies workflow events.
type EventType string

const (
	// EventStageStarted indicates a workflow stage has started.
	EventStageStarted EventType = "stage.started"
	// EventStageCompleted indicates a workflow stage completed successfully.
	EventStageCompleted EventType = "stage.completed"
	// EventStageFailed indicates a workflow stage failed.
	EventStageFailed EventType = "stage.failed"
	// EventStageSkipped indicates a workflow stage was skipped.
	EventStageSkipped EventType = "stage.skipped"

	// EventRolloutStarted indicates the image update has been issued.
	EventRolloutStarted EventType = "rollout.started"
	// EventRolloutConverged indicates all replicas are updated and available.
	EventRolloutConverged EventType = "rollout.converged"
	// EventRollbackIssued indicates an automatic rollback was triggered.
	EventRollbackIssued EventType = "rollback.issued"

	// EventWarning indicates an advisory condition such as a version downgrade.
	EventWarning EventType = "warning"
)

// ConsoleObserver implements Observer using the standard log package.
type ConsoleObserver struct{}

// NewConsoleObserver creates a console-based observer.
func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{}
}

// Printf implements Logger.
func (o *ConsoleObserver) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

// Event implements Observer.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	var fields string
	if len(event.Fields) > 0 {
		parts := make([]string, 0, len(event.Fields))
		for k, v := range event.Fields {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
		}
		fields = " " + strings.Join(parts, " ")
	}

	log.Printf("[%s] %s: %s%s", event.Stage, event.Type, event.Message, fields)
}

// NopObserver discards all output. Used in tests.
type NopObserver struct{}

// Printf implements Logger.
func (NopObserver) Printf(string, ...interface{}) {}

// Event implements Observer.
func (NopObserver) Event(Event) {}
