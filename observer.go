package isotask

import (
	"sync"

	"github.com/google/uuid"
)

// StatusChange describes one lifecycle transition of a task.
type StatusChange struct {
	TaskID uuid.UUID
	Old    Status
	New    Status
}

// ErrorChange describes a change of a task's recorded error, including the
// clearing transition back to nil after a successful run.
type ErrorChange struct {
	TaskID uuid.UUID
	Old    error
	New    error
}

// Observer receives task lifecycle notifications. Notifications are delivered
// synchronously on the goroutine driving the transition, which for run
// outcomes is the worker goroutine, so implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	StatusChanged(change StatusChange)
	ErrorChanged(change ErrorChange)
}

// ObserverFuncs adapts plain functions to the Observer interface. Nil fields
// are skipped.
type ObserverFuncs struct {
	OnStatus func(StatusChange)
	OnError  func(ErrorChange)
}

func (o *ObserverFuncs) StatusChanged(change StatusChange) {
	if o.OnStatus != nil {
		o.OnStatus(change)
	}
}

func (o *ObserverFuncs) ErrorChanged(change ErrorChange) {
	if o.OnError != nil {
		o.OnError(change)
	}
}

// observerList is the task's observer registry. The snapshot pattern keeps
// observer callbacks outside the lock so they may call back into the task.
type observerList struct {
	mu   sync.RWMutex
	list []Observer
}

func (o *observerList) add(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(o.list, obs)
}

func (o *observerList) remove(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, cur := range o.list {
		if cur == obs {
			o.list = append(o.list[:i], o.list[i+1:]...)
			return
		}
	}
}

func (o *observerList) snapshot() []Observer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Observer, len(o.list))
	copy(out, o.list)
	return out
}

// AddObserver registers an observer for status and error change
// notifications.
func (t *Task) AddObserver(obs Observer) {
	t.observers.add(obs)
}

// RemoveObserver unregisters a previously added observer. Observers are
// matched by identity.
func (t *Task) RemoveObserver(obs Observer) {
	t.observers.remove(obs)
}

func (t *Task) notifyStatus(old, cur Status) {
	for _, obs := range t.observers.snapshot() {
		obs.StatusChanged(StatusChange{TaskID: t.id, Old: old, New: cur})
	}
}

func (t *Task) notifyError(old, cur error) {
	for _, obs := range t.observers.snapshot() {
		obs.ErrorChanged(ErrorChange{TaskID: t.id, Old: old, New: cur})
	}
}
