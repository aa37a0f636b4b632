package live

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pipelinehealth/pkg/core/logger"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(logger.GetLogger())
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(raw, &m))
	return m
}

// subscribe 发送订阅消息并等待回执
func subscribe(t *testing.T, conn *websocket.Conn, msg clientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	ack := read(t, conn)
	require.Equal(t, "subscribed", ack["event"])
}

// expectNext 下一条消息必须是 want，用于断言之前的事件没有投递到该连接
func expectNext(t *testing.T, conn *websocket.Conn, want Event) {
	t.Helper()
	m := read(t, conn)
	assert.Equal(t, want.Name, m["event"])
	assert.Equal(t, want.Data, m["data"])
}

func TestHub_Routing(t *testing.T) {
	hub, url := startHub(t)

	dashboard := dial(t, url)
	subscribe(t, dashboard, clientMessage{Type: msgSubscribeDashboard})

	watcher := dial(t, url)
	subscribe(t, watcher, clientMessage{Type: msgSubscribe, PipelineIDs: []int64{7}})

	require.Equal(t, 2, hub.Count())

	t.Run("流水线事件投递给看板与对应订阅者", func(t *testing.T) {
		hub.Broadcast(Event{Name: EventBuildUpdate, PipelineID: 7, Data: map[string]interface{}{"id": 1}})

		m := read(t, dashboard)
		assert.Equal(t, "build-update", m["event"])
		m = read(t, watcher)
		assert.Equal(t, "build-update", m["event"])
		assert.Equal(t, 1.0, m["data"].(map[string]interface{})["id"])
	})

	t.Run("其他流水线事件只到看板", func(t *testing.T) {
		hub.Broadcast(Event{Name: EventPipelineUpdate, PipelineID: 8, Data: map[string]interface{}{"id": 8}})

		m := read(t, dashboard)
		assert.Equal(t, "pipeline-update", m["event"])

		marker := Event{Name: EventBuildUpdate, PipelineID: 7, Data: "marker-8"}
		hub.Broadcast(marker)
		expectNext(t, dashboard, marker)
		expectNext(t, watcher, marker)
	})

	t.Run("全局告警只到看板", func(t *testing.T) {
		hub.Broadcast(Event{Name: EventAlert, Data: map[string]interface{}{"severity": "CRITICAL"}})

		m := read(t, dashboard)
		assert.Equal(t, "alert", m["event"])

		marker := Event{Name: EventBuildUpdate, PipelineID: 7, Data: "marker-alert"}
		hub.Broadcast(marker)
		expectNext(t, dashboard, marker)
		expectNext(t, watcher, marker)
	})
}

func TestHub_DashboardAndPipelineDeliveredOnce(t *testing.T) {
	hub, url := startHub(t)

	conn := dial(t, url)
	subscribe(t, conn, clientMessage{Type: msgSubscribeDashboard})
	subscribe(t, conn, clientMessage{Type: msgSubscribe, PipelineIDs: []int64{3}})

	hub.Broadcast(Event{Name: EventMetricsUpdate, PipelineID: 3, Data: map[string]interface{}{"pipelineId": 3}})

	m := read(t, conn)
	assert.Equal(t, "metrics-update", m["event"])

	marker := Event{Name: EventAlert, Data: "marker"}
	hub.Broadcast(marker)
	expectNext(t, conn, marker)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub, url := startHub(t)

	conn := dial(t, url)
	subscribe(t, conn, clientMessage{Type: msgSubscribe, PipelineIDs: []int64{1, 2}})
	subscribe(t, conn, clientMessage{Type: msgUnsubscribe, PipelineIDs: []int64{1}})

	hub.Broadcast(Event{Name: EventBuildUpdate, PipelineID: 1, Data: "x"})
	hub.Broadcast(Event{Name: EventBuildUpdate, PipelineID: 2, Data: "y"})
	expectNext(t, conn, Event{Name: EventBuildUpdate, Data: "y"})
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub, url := startHub(t)

	conn := dial(t, url)
	subscribe(t, conn, clientMessage{Type: msgSubscribeDashboard})

	hub.Close()
	assert.Equal(t, 0, hub.Count())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	r.Broadcast(Event{Name: EventAlert})
	r.Broadcast(Event{Name: EventBuildUpdate})
	r.Broadcast(Event{Name: EventAlert})

	assert.Len(t, r.Events(), 3)
	assert.Len(t, r.Named(EventAlert), 2)

	var p Publisher = NopPublisher{}
	p.Broadcast(Event{Name: EventAlert})
}
