package api

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogEntry 管理端可见的日志条目
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"requestId,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`

	severity logrus.Level
}

// LogManager 最近日志的环形缓冲
type LogManager struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	size    int
}

// NewLogManager 创建日志管理器，capacity<=0时为1000
func NewLogManager(capacity int) *LogManager {
	if capacity <= 0 {
		capacity = 1000
	}
	return &LogManager{entries: make([]LogEntry, capacity)}
}

// Add 记录一条日志，缓冲满时覆盖最旧的
func (lm *LogManager) Add(entry *logrus.Entry) {
	e := LogEntry{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
		severity:  entry.Level,
	}
	if len(entry.Data) > 0 {
		e.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			switch val := v.(type) {
			case error:
				// error直接序列化为{}
				e.Fields[k] = val.Error()
			case string:
				if k == "request_id" {
					e.RequestID = val
					continue
				}
				e.Fields[k] = val
			default:
				e.Fields[k] = val
			}
		}
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.entries[lm.next] = e
	lm.next = (lm.next + 1) % len(lm.entries)
	if lm.size < len(lm.entries) {
		lm.size++
	}
}

// Page 分页获取日志（新到旧）。level为最低级别，例如warning会同时返回error，空值或无法识别时不过滤
func (lm *LogManager) Page(level string, page, pageSize int) ([]LogEntry, int) {
	threshold, filter := logrus.PanicLevel, false
	if parsed, err := logrus.ParseLevel(strings.TrimSpace(level)); err == nil {
		threshold, filter = parsed, true
	}

	lm.mu.RLock()
	matched := make([]LogEntry, 0, lm.size)
	for i := 1; i <= lm.size; i++ {
		e := lm.entries[(lm.next-i+len(lm.entries))%len(lm.entries)]
		if !filter || e.severity <= threshold {
			matched = append(matched, e)
		}
	}
	lm.mu.RUnlock()

	total := len(matched)
	start := (page - 1) * pageSize
	if page < 1 || pageSize < 1 || start >= total {
		return []LogEntry{}, total
	}
	return matched[start:min(start+pageSize, total)], total
}

// Len 当前缓冲的条数
func (lm *LogManager) Len() int {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.size
}

// Clear 清空日志
func (lm *LogManager) Clear() {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.entries = make([]LogEntry, len(lm.entries))
	lm.next, lm.size = 0, 0
}

// LogHook 把logrus日志同步进LogManager
type LogHook struct {
	manager *LogManager
	levels  []logrus.Level
}

// NewLogHook 创建日志钩子，只收集info及以上级别
func NewLogHook(manager *LogManager) *LogHook {
	return &LogHook{
		manager: manager,
		levels:  logrus.AllLevels[:logrus.InfoLevel+1],
	}
}

func (h *LogHook) Fire(entry *logrus.Entry) error {
	h.manager.Add(entry)
	return nil
}

func (h *LogHook) Levels() []logrus.Level {
	return h.levels
}
