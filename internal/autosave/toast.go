package autosave

import (
	"sync"
	"time"
)

// DefaultToastDuration is how long a toast stays visible.
const DefaultToastDuration = 3 * time.Second

// ToastKind is the toast style.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
)

// Toast is a transient user-facing message.
type Toast struct {
	ID      int
	Kind    ToastKind
	Message string
}

// Toaster keeps the visible toasts and drops each one after its duration.
type Toaster struct {
	mu       sync.Mutex
	duration time.Duration
	nextID   int
	active   []Toast
	onShow   []func(Toast)
}

// NewToaster creates a toaster. A non-positive duration uses DefaultToastDuration.
func NewToaster(duration time.Duration) *Toaster {
	if duration <= 0 {
		duration = DefaultToastDuration
	}
	return &Toaster{duration: duration}
}

// OnShow registers fn to be called for every new toast.
func (t *Toaster) OnShow(fn func(Toast)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onShow = append(t.onShow, fn)
}

// Show displays a toast and schedules its dismissal.
func (t *Toaster) Show(kind ToastKind, message string) Toast {
	t.mu.Lock()
	t.nextID++
	toast := Toast{ID: t.nextID, Kind: kind, Message: message}
	t.active = append(t.active, toast)
	listeners := append([]func(Toast){}, t.onShow...)
	t.mu.Unlock()

	time.AfterFunc(t.duration, func() { t.Dismiss(toast.ID) })

	for _, fn := range listeners {
		fn(toast)
	}
	return toast
}

// Dismiss removes a toast early.
func (t *Toaster) Dismiss(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, toast := range t.active {
		if toast.ID == id {
			t.active = append(t.active[:i], t.active[i+1:]...)
			return
		}
	}
}

// Active returns the toasts currently visible, oldest first.
func (t *Toaster) Active() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Toast(nil), t.active...)
}
