package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ToursPubSub broadcasts tour changes (seat counters, activation) so other
// instances can drop their cached copies.
type ToursPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewToursPubSub(rdb *redis.Client) *ToursPubSub {
	return &ToursPubSub{
		rdb:     rdb,
		channel: ChannelToursChanged(),
	}
}

type tourChangedMsg struct {
	Type   string `json:"type"`
	TourID int64  `json:"tour_id"`
	TsUnix int64  `json:"ts_unix"`
}

func (p *ToursPubSub) PublishTourChanged(ctx context.Context, tourID int64) error {
	msg := tourChangedMsg{
		Type:   "tour_changed",
		TourID: tourID,
		TsUnix: time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *ToursPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, tourID int64)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev tourChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.TourID != 0 {
				handler(ctx, ev.TourID)
			}
		}
	}
}
