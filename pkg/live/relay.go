package live

import (
	"context"

	"pipelinehealth/pkg/core/logger"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

type relayMessage struct {
	Event      EventName           `json:"event"`
	PipelineID int64               `json:"pipelineId"`
	Data       jsoniter.RawMessage `json:"data"`
}

// RedisRelay 多实例部署时经 Redis 频道转发事件，每个实例订阅后投递给本地 Hub
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
	log     *logger.Log
}

func NewRedisRelay(rdb *redis.Client, channel string, hub *Hub, log *logger.Log) *RedisRelay {
	return &RedisRelay{
		rdb:     rdb,
		channel: channel,
		hub:     hub,
		log:     log.WithEntryName("LiveRelay"),
	}
}

// Broadcast 发布失败时退化为本地投递
func (r *RedisRelay) Broadcast(event Event) {
	data, err := jsoniter.Marshal(event.Data)
	if err != nil {
		r.log.WithErr(err).WithField("event", event.Name).Warn("事件序列化失败")
		return
	}
	payload, _ := jsoniter.Marshal(relayMessage{Event: event.Name, PipelineID: event.PipelineID, Data: data})

	if err := r.rdb.Publish(context.Background(), r.channel, payload).Err(); err != nil {
		r.log.WithErr(err).Warn("事件发布到 Redis 失败，仅投递本实例")
		r.hub.Broadcast(event)
	}
}

// Run 订阅频道直到 ctx 结束
func (r *RedisRelay) Run(ctx context.Context) {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	r.log.WithField("channel", r.channel).Info("开始订阅实时事件频道")
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var m relayMessage
			if err := jsoniter.UnmarshalFromString(msg.Payload, &m); err != nil {
				r.log.WithErr(err).Warn("无法解析转发的事件")
				continue
			}
			r.hub.Broadcast(Event{Name: m.Event, PipelineID: m.PipelineID, Data: m.Data})
		}
	}
}
