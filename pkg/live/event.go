// Package live 把领域事件实时推送给浏览器端的 websocket 订阅者
package live

import (
	"sync"
	"time"
)

type EventName string

const (
	EventMetricsUpdate  EventName = "metrics-update"
	EventPipelineUpdate EventName = "pipeline-update"
	EventBuildUpdate    EventName = "build-update"
	EventAlert          EventName = "alert"
)

// Event PipelineID 为 0 表示与具体流水线无关，只投递给看板订阅者
type Event struct {
	Name       EventName
	PipelineID int64
	Data       interface{}
}

// Publisher 尽力而为的广播，不返回错误也没有确认
type Publisher interface {
	Broadcast(event Event)
}

type NopPublisher struct{}

func (NopPublisher) Broadcast(Event) {}

// Recorder 记录收到的事件，供测试断言
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Broadcast(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Named(name EventName) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// envelope 客户端收到的消息格式
type envelope struct {
	Event EventName   `json:"event"`
	Data  interface{} `json:"data"`
}

// Timestamp 事件中统一使用的时间格式
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
