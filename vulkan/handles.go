package vulkan

import (
	"sync"

	"github.com/kumaashi/gcmd"
)

// table maps gcmd handles to the Vulkan objects behind them. Vulkan handles
// are opaque pointers, so they are never converted to integers directly.
type table struct {
	mu   sync.Mutex
	next gcmd.Handle
	objs map[gcmd.Handle]any
}

func newTable() *table {
	return &table{objs: make(map[gcmd.Handle]any)}
}

func (t *table) put(obj any) gcmd.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.objs[t.next] = obj
	return t.next
}

func (t *table) get(h gcmd.Handle) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.objs[h]
}

func (t *table) take(h gcmd.Handle) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj, ok := t.objs[h]
	delete(t.objs, h)
	return obj, ok
}

func (t *table) keys() []gcmd.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]gcmd.Handle, 0, len(t.objs))
	for h := range t.objs {
		keys = append(keys, h)
	}
	return keys
}

func (t *table) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.objs)
}

// lookup returns the object behind h, or the zero T when h is unknown or
// names a different kind of object.
func lookup[T any](t *table, h gcmd.Handle) T {
	v, _ := t.get(h).(T)
	return v
}
