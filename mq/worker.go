package mq

import (
	"context"
	"encoding/json"
	"time"

	"storefront/rdx"

	"github.com/rs/zerolog/log"
)

// StartWorker consumes the event channel until ctx is cancelled. It returns
// immediately when Redis is not configured, since Emit then dispatches
// in-process.
func StartWorker(ctx context.Context) {
	if !rdx.Enabled() {
		return
	}
	sub := rdx.Conn.Subscribe(ctx, Channel)
	defer sub.Close()

	log.Info().Str("channel", Channel).Msg("[EventWorker] listening for events")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("[EventWorker] stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				log.Warn().Err(err).Msg("[EventWorker] failed to parse event")
				continue
			}
			hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			Dispatch(hctx, evt)
			cancel()
		}
	}
}
