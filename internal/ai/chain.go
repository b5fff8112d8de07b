package ai

import (
	"context"

	"github.com/sirupsen/logrus"
)

type providerChain struct {
	primary  Provider
	fallback Provider
}

// WithFallback returns a provider that first tries the primary implementation and
// falls back to the provided one when the primary is unavailable or fails.
func WithFallback(primary, fallback Provider) Provider {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return &providerChain{primary: primary, fallback: fallback}
}

func (c *providerChain) Name() string {
	return c.primary.Name() + ">" + c.fallback.Name()
}

func (c *providerChain) Enabled() bool {
	if c == nil {
		return false
	}
	return c.primary.Enabled() || c.fallback.Enabled()
}

func (c *providerChain) Generate(ctx context.Context, prompt Prompt) (string, error) {
	if c == nil {
		return "", ErrDisabled
	}
	if c.primary.Enabled() {
		content, err := c.primary.Generate(ctx, prompt)
		if err == nil {
			return content, nil
		}
		if ctx.Err() != nil {
			return "", err
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"prompt":   prompt.Name,
			"primary":  c.primary.Name(),
			"fallback": c.fallback.Name(),
		}).Warn("primary ai provider failed, using fallback")
	}
	if c.fallback.Enabled() {
		return c.fallback.Generate(ctx, prompt)
	}
	return "", ErrDisabled
}
