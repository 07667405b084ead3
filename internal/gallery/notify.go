package gallery

import (
	"sync"
	"time"
)

// DefaultNoticeTTL is how long a notice stays up unless dismissed.
const DefaultNoticeTTL = 4 * time.Second

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

type Notice struct {
	Kind    NoticeKind
	Message string
}

// Notifier holds at most one notice. Showing a new one replaces the
// current notice and restarts the dismiss timer.
type Notifier struct {
	mu      sync.Mutex
	ttl     time.Duration
	current *Notice
	timer   *time.Timer
	seq     uint64
	onShow  func(Notice)
}

// NewNotifier returns a Notifier that auto-dismisses after ttl. onShow,
// when non-nil, is called for every shown notice.
func NewNotifier(ttl time.Duration, onShow func(Notice)) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	return &Notifier{ttl: ttl, onShow: onShow}
}

func (n *Notifier) Success(msg string) { n.Show(Notice{Kind: NoticeSuccess, Message: msg}) }

func (n *Notifier) Error(msg string) { n.Show(Notice{Kind: NoticeError, Message: msg}) }

func (n *Notifier) Show(notice Notice) {
	n.mu.Lock()
	n.seq++
	seq := n.seq
	n.current = &notice
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.ttl, func() { n.expire(seq) })
	n.mu.Unlock()

	if n.onShow != nil {
		n.onShow(notice)
	}
}

func (n *Notifier) Current() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notice{}, false
	}
	return *n.current, true
}

func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = nil
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

// expire clears the notice only if no newer one replaced it.
func (n *Notifier) expire(seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.seq == seq {
		n.current = nil
		n.timer = nil
	}
}
