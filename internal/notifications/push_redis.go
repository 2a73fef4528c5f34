package notifications

import (
	"context"

	platformredis "kindred/internal/platform/redis"
	id "kindred/pkg/domain"
)

// RedisPush publishes created notifications to a per-recipient channel for
// the inbox UI / push layer. Subscribers that miss a message pick it up from
// the store on next poll.
type RedisPush struct {
	client *platformredis.Client
}

func NewRedisPush(client *platformredis.Client) *RedisPush {
	return &RedisPush{client: client}
}

// Channel returns the pub/sub channel for a recipient.
func Channel(recipientID id.UserID) string {
	return "kindred:inbox:" + recipientID.String()
}

func (p *RedisPush) Publish(ctx context.Context, recipientID id.UserID, payload []byte) error {
	return p.client.Publish(ctx, Channel(recipientID), payload).Err()
}
