// Package notify delivers user-facing success and error messages.
package notify

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier is the sink a UI uses to show toasts. Implementations must be safe
// for concurrent use.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	log *logrus.Entry
}

func NewLogNotifier(log *logrus.Entry) *LogNotifier {
	return &LogNotifier{log: log.WithField("component", "notify")}
}

func (n *LogNotifier) Success(msg string) {
	n.log.WithField("level_ui", LevelSuccess).Info(msg)
}

func (n *LogNotifier) Error(msg string) {
	n.log.WithField("level_ui", LevelError).Warn(msg)
}

// ChanNotifier buffers notifications until they are drained. When the buffer is
// full the oldest entry is dropped.
type ChanNotifier struct {
	mu  sync.Mutex
	ch  chan Notification
	now func() time.Time
}

func NewChanNotifier(size int) *ChanNotifier {
	if size < 1 {
		size = 1
	}
	return &ChanNotifier{ch: make(chan Notification, size), now: time.Now}
}

func (n *ChanNotifier) Success(msg string) { n.push(LevelSuccess, msg) }

func (n *ChanNotifier) Error(msg string) { n.push(LevelError, msg) }

// C exposes the channel for consumers that want to block on new notifications.
func (n *ChanNotifier) C() <-chan Notification {
	return n.ch
}

// Drain returns every buffered notification in arrival order.
func (n *ChanNotifier) Drain() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Notification, 0, len(n.ch))
	for {
		select {
		case item := <-n.ch:
			out = append(out, item)
		default:
			return out
		}
	}
}

func (n *ChanNotifier) push(level Level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	item := Notification{Level: level, Message: msg, At: n.now()}
	for {
		select {
		case n.ch <- item:
			return
		default:
		}
		// a C() consumer may empty the channel concurrently, so the drop must not block
		select {
		case <-n.ch:
		default:
		}
	}
}

// Multi fans a notification out to several sinks.
type Multi []Notifier

func (m Multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}
