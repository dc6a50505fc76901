package events

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fystack/stacks-connector/pkg/common/constant"
	"github.com/fystack/stacks-connector/pkg/common/logger"
	"github.com/fystack/stacks-connector/pkg/infra"
)

const (
	TypeTrigger = "trigger"
	TypeError   = "error"
)

// TriggerEvent is one fired trigger item, or a poll failure.
type TriggerEvent struct {
	Type      string         `json:"type"`
	TriggerID string         `json:"triggerId"`
	Event     string         `json:"event"`
	Network   string         `json:"network"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// Key identifies the event for deduplication. Two polls that fire the
// same item produce the same key.
func (e TriggerEvent) Key() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|", e.TriggerID, e.Event, e.Type)
	_ = json.NewEncoder(h).Encode(e.Data)
	if e.Error != "" {
		fmt.Fprintf(h, "%d|%s", e.Timestamp, e.Error)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

type Emitter interface {
	Emit(event TriggerEvent) error
	Close()
}

func NewTriggerEvent(triggerID, event, network string, data map[string]any) TriggerEvent {
	return TriggerEvent{
		Type:      TypeTrigger,
		TriggerID: triggerID,
		Event:     event,
		Network:   network,
		Data:      data,
		Timestamp: time.Now().UTC().Unix(),
	}
}

func NewErrorEvent(triggerID, event, network string, err error) TriggerEvent {
	ev := TriggerEvent{
		Type:      TypeError,
		TriggerID: triggerID,
		Event:     event,
		Network:   network,
		Timestamp: time.Now().UTC().Unix(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// Subject is where events of one trigger type are published.
func Subject(prefix, event string) string {
	return fmt.Sprintf("%s.%s.%s", prefix, constant.TriggerEventSubject, event)
}

// SubjectWildcard matches every trigger subject under prefix.
func SubjectWildcard(prefix string) string {
	return fmt.Sprintf("%s.%s.>", prefix, constant.TriggerEventSubject)
}

type queueEmitter struct {
	queue         infra.MessageQueue
	subjectPrefix string
}

// NewEmitter publishes JSON events to queue, deduplicated by Key.
func NewEmitter(queue infra.MessageQueue, subjectPrefix string) Emitter {
	return &queueEmitter{
		queue:         queue,
		subjectPrefix: subjectPrefix,
	}
}

func (e *queueEmitter) Emit(event TriggerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.queue.Enqueue(Subject(e.subjectPrefix, event.Event), data, &infra.EnqueueOptions{
		IdempotententKey: event.Key(),
	})
}

func (e *queueEmitter) Close() {
	if e.queue != nil {
		e.queue.Close()
	}
}

type logEmitter struct{}

// NewLogEmitter writes events to the logger.
func NewLogEmitter() Emitter { return logEmitter{} }

func (logEmitter) Emit(event TriggerEvent) error {
	if event.Type == TypeError {
		logger.Warn("Trigger poll failed", "trigger", event.TriggerID, "event", event.Event, "error", event.Error)
		return nil
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	logger.Info("Trigger fired", "trigger", event.TriggerID, "event", event.Event, "network", event.Network, "data", string(data))
	return nil
}

func (logEmitter) Close() {}
