package email

import (
	"context"

	"github.com/rs/zerolog"
)

// Dispatcher hands a message off for delivery. Implementations never fail
// the caller: notification problems are logged, not surfaced to clients.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message)
}

// Sender is the delivery half of Service.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DirectDispatcher sends inline. Used when background jobs are disabled.
type DirectDispatcher struct {
	Sender Sender
	Logger zerolog.Logger
}

func (d DirectDispatcher) Dispatch(ctx context.Context, msg Message) {
	if len(msg.To) == 0 {
		return
	}
	if err := d.Sender.Send(ctx, msg); err != nil {
		d.Logger.Warn().Err(err).Str("kind", string(msg.Kind)).Msg("notification email failed")
	}
}

// NopDispatcher drops every message.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(context.Context, Message) {}

// Recorder keeps dispatched messages in memory. Tests use it to assert on
// notifications without a mail provider.
type Recorder struct {
	Messages []Message
}

func (r *Recorder) Dispatch(_ context.Context, msg Message) {
	r.Messages = append(r.Messages, msg)
}

// Kinds lists the kinds recorded so far, in order.
func (r *Recorder) Kinds() []Kind {
	out := make([]Kind, 0, len(r.Messages))
	for _, m := range r.Messages {
		out = append(out, m.Kind)
	}
	return out
}
