package notify

import (
	"context"
	"fmt"

	"quittance-workers/internal/common/logger"
)

// Chain tries providers in order until one accepts the message. Provider
// failures are logged and swallowed as long as a later provider succeeds;
// the chain errors only when every provider has failed.
type Chain struct {
	channel   string
	providers []Provider
	logger    logger.Logger
}

func NewChain(channel string, log logger.Logger, providers ...Provider) *Chain {
	return &Chain{
		channel:   channel,
		providers: providers,
		logger:    log.WithFields(map[string]interface{}{"channel": channel}),
	}
}

// Channel returns the delivery channel this chain serves.
func (c *Chain) Channel() string { return c.channel }

// Send delivers msg through the first provider that accepts it and returns
// that provider's name.
func (c *Chain) Send(ctx context.Context, msg *Message) (string, error) {
	if len(c.providers) == 0 {
		return "", fmt.Errorf("no providers configured for channel %s", c.channel)
	}

	var lastErr error
	for _, provider := range c.providers {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		err := provider.Send(ctx, msg)
		if err == nil {
			c.logger.Info("Notification sent", map[string]interface{}{
				"provider": provider.Name(),
				"to":       msg.To,
			})
			return provider.Name(), nil
		}

		lastErr = err
		c.logger.Warn("Provider failed, trying next", map[string]interface{}{
			"provider": provider.Name(),
			"to":       msg.To,
			"error":    err.Error(),
		})
	}

	return "", fmt.Errorf("all %d providers failed for channel %s: %w",
		len(c.providers), c.channel, lastErr)
}
