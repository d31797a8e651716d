// 包 event 提供进程内发布/订阅：发布即忘，不向后来的订阅者补发。
package event

import (
	"sync"

	"astro-homepage/internal/model"
)

// Kind 事件类型。
type Kind string

const (
	ConfigChanged   Kind = "config-changed"
	NewRequest      Kind = "new-astrology-request"
	RequestsChanged Kind = "astrology-requests-updated"
)

// Event 为一次变更通知；Request 仅在 NewRequest 时携带新条目。
// External 表示变更来自其他进程对持久化存储的写入。
type Event struct {
	Kind     Kind
	Request  *model.AstrologyRequest
	External bool
}

// Bus 为非阻塞的事件广播器，订阅者缓冲区满时丢弃该订阅者的本次事件。
type Bus struct {
	mu   sync.Mutex
	subs map[uint64]chan Event
	next uint64
}

// DefaultBuffer 为订阅通道默认缓冲大小。
const DefaultBuffer = 16

func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan Event)}
}

// Subscribe 注册订阅者，返回只读通道与取消函数（取消后通道关闭）。
func (b *Bus) Subscribe(buf int) (<-chan Event, func()) {
	if buf <= 0 {
		buf = DefaultBuffer
	}
	ch := make(chan Event, buf)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish 向当前全部订阅者投递事件，最多一次，不等待。返回实际投递数量。
func (b *Bus) Publish(e Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, ch := range b.subs {
		select {
		case ch <- e:
			n++
		default:
		}
	}
	return n
}
