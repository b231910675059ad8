package location

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrPermissionDenied is returned when the platform refuses access to the
// position feed. The feature stays disabled for the session.
var ErrPermissionDenied = errors.New("location: permission denied")

// ErrNoFix is returned by Current when no fix arrived in time.
var ErrNoFix = errors.New("location: no fix available")

// WatchOptions throttles a subscription. Zero values disable a limit.
type WatchOptions struct {
	TimeInterval     time.Duration // minimum time between delivered fixes
	DistanceInterval float64       // minimum displacement in meters
}

// Subscription is an active fix feed. Stop is idempotent and does not wait
// for an in-flight delivery.
type Subscription interface {
	Stop()
}

// Provider is a source of position fixes.
type Provider interface {
	// RequestPermission asks once for access to the feed.
	RequestPermission(ctx context.Context) error
	// Current returns a single snapshot fix.
	Current(ctx context.Context) (Fix, error)
	// Watch delivers fixes until stopped. onErr is called at most once and
	// the feed ends after it.
	Watch(ctx context.Context, opts WatchOptions, deliver func(Fix), onErr func(error)) (Subscription, error)
}

type cancelSubscription struct {
	once   sync.Once
	cancel func()
}

func (s *cancelSubscription) Stop() {
	s.once.Do(s.cancel)
}

// firstFix opens an unthrottled watch on p and returns its first fix.
func firstFix(ctx context.Context, p Provider) (Fix, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fixCh := make(chan Fix, 1)
	errCh := make(chan error, 1)
	sub, err := p.Watch(ctx, WatchOptions{}, func(f Fix) {
		select {
		case fixCh <- f:
		default:
		}
	}, func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})
	if err != nil {
		return Fix{}, err
	}
	defer sub.Stop()

	select {
	case f := <-fixCh:
		return f, nil
	case err := <-errCh:
		return Fix{}, err
	case <-ctx.Done():
		return Fix{}, ErrNoFix
	}
}
