// Package await implements single-shot, time bounded listeners for the next
// free text reply of a user in a channel.
package await

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrTimeout = errors.New("no reply before timeout")

type key struct {
	channelID string
	userID    string
}

type Replies struct {
	mu      sync.Mutex
	waiting map[key]*Pending
}

func New() *Replies {
	return &Replies{waiting: make(map[key]*Pending)}
}

// Pending resolves to the reply text, or ErrTimeout once its deadline passes.
type Pending struct {
	replies *Replies
	key     key
	ch      chan string
	timer   *time.Timer
	expired chan struct{}
}

// Expect registers a listener. A previous listener for the same user and
// channel is cancelled.
func (r *Replies) Expect(channelID, userID string, timeout time.Duration) *Pending {
	k := key{channelID: channelID, userID: userID}
	p := &Pending{
		replies: r,
		key:     k,
		ch:      make(chan string, 1),
		expired: make(chan struct{}),
	}

	r.mu.Lock()
	if prev, ok := r.waiting[k]; ok {
		prev.expire()
	}
	r.waiting[k] = p
	p.timer = time.AfterFunc(timeout, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		p.expire()
	})
	r.mu.Unlock()
	return p
}

// Offer hands a message to the matching listener and reports whether one
// consumed it.
func (r *Replies) Offer(channelID, userID, content string) bool {
	k := key{channelID: channelID, userID: userID}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.waiting[k]
	if !ok {
		return false
	}
	delete(r.waiting, k)
	p.timer.Stop()
	p.ch <- content
	return true
}

func (r *Replies) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiting)
}

// expire must be called with r.mu held.
func (p *Pending) expire() {
	select {
	case <-p.expired:
		return
	default:
	}
	close(p.expired)
	if cur, ok := p.replies.waiting[p.key]; ok && cur == p {
		delete(p.replies.waiting, p.key)
	}
}

// Cancel abandons the listener.
func (p *Pending) Cancel() {
	p.timer.Stop()
	p.replies.mu.Lock()
	defer p.replies.mu.Unlock()
	p.expire()
}

// Wait blocks until the reply arrives, the listener expires or ctx is done.
func (p *Pending) Wait(ctx context.Context) (string, error) {
	select {
	case text := <-p.ch:
		return text, nil
	case <-p.expired:
		// a reply may have landed just before expiry
		select {
		case text := <-p.ch:
			return text, nil
		default:
		}
		return "", ErrTimeout
	case <-ctx.Done():
		p.Cancel()
		return "", ctx.Err()
	}
}
