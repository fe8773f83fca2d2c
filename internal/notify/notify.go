// Package notify delivers short, transient user notifications (toasts).
package notify

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"
)

// Variant is the visual weight of a notification.
type Variant int

const (
	VariantDefault Variant = iota
	// Errors and forced disconnects
	VariantDestructive
)

type Notification struct {
	Title       string
	Description string
	Variant     Variant
}

func (n Notification) String() string {
	if n.Description == "" {
		return n.Title
	}
	return n.Title + ": " + n.Description
}

// Notifier shows a notification. Implementations must not block for long.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

// LogNotifier writes notifications to logrus, at warn level for destructive ones.
type LogNotifier struct {
	log *logrus.Entry
}

func NewLogNotifier(log *logrus.Entry) *LogNotifier {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(n Notification) {
	entry := l.log.WithField("title", n.Title)
	if n.Variant == VariantDestructive {
		entry.Warn(n.Description)
		return
	}
	entry.Info(n.Description)
}

// Desktop sends notifications through notify-send.
type Desktop struct {
	enabled bool
	appName string
	// Overridable in tests
	command func(name string, args ...string) *exec.Cmd
}

func NewDesktop(enabled bool) *Desktop {
	return &Desktop{enabled: enabled, appName: "crmcal", command: exec.Command}
}

func (d *Desktop) Notify(n Notification) {
	if !d.enabled {
		return
	}
	if err := d.send(n); err != nil {
		logrus.WithError(err).Debug("Desktop notification failed")
	}
}

func (d *Desktop) send(n Notification) error {
	urgency := "normal"
	if n.Variant == VariantDestructive {
		urgency = "critical"
	}
	args := []string{
		"--app-name=" + d.appName,
		"--urgency=" + urgency,
		n.Title,
	}
	if n.Description != "" {
		args = append(args, n.Description)
	}

	cmd := d.command("notify-send", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("notify-send failed: %w, output: %s", err, string(output))
	}
	return nil
}

// Multi fans a notification out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(n)
		}
	}
}

// Channel queues notifications for a consumer such as the TUI. When the
// buffer is full the oldest pending notification is dropped.
type Channel struct {
	mu sync.Mutex
	ch chan Notification
}

func NewChannel(size int) *Channel {
	if size < 1 {
		size = 1
	}
	return &Channel{ch: make(chan Notification, size)}
}

func (c *Channel) Notify(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		select {
		case c.ch <- n:
			return
		default:
		}
		select {
		case <-c.ch:
		default:
		}
	}
}

// C returns the receive side.
func (c *Channel) C() <-chan Notification {
	return c.ch
}
