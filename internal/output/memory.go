package output

import (
	"sync"

	"coffeecoin/pkg/models"
)

// MemorySink 固定容量的内存事件环，最新的事件在前
type MemorySink struct {
	mu     sync.RWMutex
	events []models.LedgerEvent
	next   int
	full   bool
}

// NewMemorySink 创建内存事件环
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemorySink{events: make([]models.LedgerEvent, capacity)}
}

// WriteEvent 写入事件，满时覆盖最旧的事件
func (m *MemorySink) WriteEvent(event *models.LedgerEvent) error {
	if event == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events[m.next] = *event
	m.next = (m.next + 1) % len(m.events)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Len 当前事件数
func (m *MemorySink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size()
}

func (m *MemorySink) size() int {
	if m.full {
		return len(m.events)
	}
	return m.next
}

// Recent 分页获取事件（新到旧），eventType为空时不过滤，返回过滤后的总数
func (m *MemorySink) Recent(eventType models.EventType, page, pageSize int) ([]models.LedgerEvent, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.size()
	ordered := make([]models.LedgerEvent, 0, n)
	for i := 1; i <= n; i++ {
		idx := (m.next - i + len(m.events)) % len(m.events)
		if eventType != "" && m.events[idx].Type != eventType {
			continue
		}
		ordered = append(ordered, m.events[idx])
	}

	total := len(ordered)
	if page < 1 || pageSize < 1 {
		return []models.LedgerEvent{}, total
	}

	// 计算分页
	start := (page - 1) * pageSize
	if start >= total {
		return []models.LedgerEvent{}, total
	}
	end := min(start+pageSize, total)
	return ordered[start:end], total
}

// Close 清空事件
func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.events)
	m.next = 0
	m.full = false
	return nil
}
