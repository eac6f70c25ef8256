package acquisition

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/loykin/acqsim/internal/metrics"
)

// ErrSubscriberGone reports that a watch was abandoned before its item
// could be delivered. It is a normal unsubscribe, not a server fault.
var ErrSubscriberGone = errors.New("watch subscriber gone before delivery")

// Watch is one server-streaming subscription. Items arrive on C, which is
// closed once the producer is finished.
type Watch struct {
	ID string
	C  <-chan RunInfo

	done chan struct{}
	err  error
}

// Done is closed once the producer has exited.
func (w *Watch) Done() <-chan struct{} { return w.done }

// Wait blocks until the producer exits and reports whether delivery failed.
func (w *Watch) Wait() error {
	<-w.done
	return w.err
}

// WatchCurrentRun opens a stream that yields one placeholder RunInfo (no
// yield summary) and then ends. Cancelling ctx is how a consumer
// unsubscribes; a producer blocked on a full channel gives up when ctx is
// done and Wait returns ErrSubscriberGone.
func (s *Service) WatchCurrentRun(ctx context.Context, _ Selector) *Watch {
	start := time.Now()
	ch := make(chan RunInfo, s.streamBuffer)
	w := &Watch{ID: uuid.NewString(), C: ch, done: make(chan struct{})}
	item := RunInfo{RunID: s.placeholderRunID, State: RunStateStartup}

	go func() {
		defer observe(MethodWatchCurrentRun, start)
		defer close(w.done)
		defer close(ch)

		if ctx.Err() != nil {
			s.abandon(ctx, w)
			return
		}
		select {
		case ch <- item:
			metrics.IncStreamDelivery(metrics.OutcomeDelivered)
			s.log.Debug("watch item delivered", "watch", w.ID, "run", item.RunID)
		case <-ctx.Done():
			s.abandon(ctx, w)
		}
	}()
	return w
}

func (s *Service) abandon(ctx context.Context, w *Watch) {
	w.err = ErrSubscriberGone
	metrics.IncStreamDelivery(metrics.OutcomeAbandoned)
	s.log.Debug("watch abandoned before delivery", "watch", w.ID, "cause", context.Cause(ctx))
}
