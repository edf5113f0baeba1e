package ui

import "time"

// DefaultToastDuration is how long a toast stays up.
const DefaultToastDuration = 2 * time.Second

// Kind picks the toast color.
type Kind int

const (
	Info Kind = iota
	Error
)

// toast is the transient message shown at the bottom of the window. A newer
// message replaces the current one and restarts the timer.
type toast struct {
	message  string
	kind     Kind
	until    time.Time
	duration time.Duration
}

func (t *toast) show(msg string, kind Kind, now time.Time) {
	d := t.duration
	if d <= 0 {
		d = DefaultToastDuration
	}
	t.message = msg
	t.kind = kind
	t.until = now.Add(d)
}

func (t *toast) visible(now time.Time) bool {
	return t.message != "" && now.Before(t.until)
}

func (t *toast) expire(now time.Time) bool {
	if t.message != "" && !now.Before(t.until) {
		t.message = ""
		return true
	}
	return false
}
