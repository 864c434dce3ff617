// Package bootstrap establishes the process-wide debug session. It tries an
// ordered list of candidate hosts on a single debug port until one session
// is established; if every host fails, the bootstrap fails for good. It runs
// once at process start, not per realm.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/remoterealm/remoterealm/rpc"
)

// Option represents a functional option for configuring the bootstrap
type Option func(*options)

type options struct {
	logger     zerolog.Logger
	httpClient *http.Client
}

// WithLogger sets the logger used for per-host attempt diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used by the established channel.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// Establish tries cfg.Hosts in order until a session is created, returning
// the channel holding it. Per-host failures are logged with the raw
// transport error but not propagated; only after the last host fails does
// Establish return an error, wrapped in a user-facing message.
//
// When cfg.Auth is present the session is authenticated before the channel
// is handed back, reusing a stored token while it is still valid.
func Establish(ctx context.Context, cfg Config, registry *rpc.Registry, opts ...Option) (*rpc.Channel, error) {
	o := &options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	if len(cfg.Hosts) == 0 {
		return nil, rpc.NewUsageError("bootstrap requires at least one candidate host")
	}

	for _, host := range cfg.Hosts {
		endpoint := endpointFor(host, cfg.Port)

		channelOpts := []rpc.ChannelOption{rpc.WithLogger(o.logger)}
		if o.httpClient != nil {
			channelOpts = append(channelOpts, rpc.WithHTTPClient(o.httpClient))
		}
		channel, err := rpc.NewChannel(endpoint, registry, channelOpts...)
		if err != nil {
			return nil, err
		}

		if _, err := channel.CreateSession(ctx); err != nil {
			// The raw error stays in the log; callers only ever see the
			// wrapped message below.
			o.logger.Debug().
				Str("endpoint", endpoint).
				Err(err).
				Msg("debug host unreachable")
			continue
		}

		o.logger.Info().
			Str("endpoint", endpoint).
			Str("session_id", channel.SessionID()).
			Msg("debug session established")

		if cfg.Auth != nil {
			if err := authenticate(ctx, channel, cfg.Auth); err != nil {
				return nil, err
			}
		}
		return channel, nil
	}

	message := fmt.Sprintf("unable to reach a debug server on port %d (tried %d hosts)", cfg.Port, len(cfg.Hosts))
	return nil, rpc.NewTransportError(message, nil)
}
