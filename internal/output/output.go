package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"coffeecoin/internal/config"
	"coffeecoin/pkg/models"

	"github.com/sirupsen/logrus"
)

// Sink 账本事件输出接口
type Sink interface {
	WriteEvent(event *models.LedgerEvent) error
	Close() error
}

// FileSink 按天滚动的JSON Lines文件输出
type FileSink struct {
	outputDir string
	mu        sync.Mutex
	day       string
	file      *os.File
	now       func() time.Time
}

// NewFileSink 创建文件输出器
func NewFileSink(outputDir string) (*FileSink, error) {
	// 确保输出目录存在
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	return &FileSink{
		outputDir: outputDir,
		now:       time.Now,
	}, nil
}

// rotate 切换到当天的文件
func (o *FileSink) rotate() error {
	day := o.now().UTC().Format("20060102")
	if o.file != nil && o.day == day {
		return nil
	}
	if o.file != nil {
		if err := o.file.Close(); err != nil {
			return fmt.Errorf("关闭事件文件失败: %w", err)
		}
		o.file = nil
	}

	path := filepath.Join(o.outputDir, fmt.Sprintf("ledger_events_%s.jsonl", day))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("创建事件文件失败: %w", err)
	}
	o.file = file
	o.day = day
	return nil
}

// WriteEvent 写入一条事件
func (o *FileSink) WriteEvent(event *models.LedgerEvent) error {
	if event == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件数据失败: %w", err)
	}

	// 添加换行符
	data = append(data, '\n')

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.rotate(); err != nil {
		return err
	}
	if _, err := o.file.Write(data); err != nil {
		return fmt.Errorf("写入事件文件失败: %w", err)
	}

	// 强制刷新到磁盘
	if err := o.file.Sync(); err != nil {
		return fmt.Errorf("刷新事件文件失败: %w", err)
	}
	return nil
}

// Close 关闭当前文件
func (o *FileSink) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file = nil
	return err
}

// MultiSink 扇出到多个输出
type MultiSink struct {
	sinks  []Sink
	logger *logrus.Logger
}

// NewMultiSink 创建扇出输出
func NewMultiSink(logger *logrus.Logger, sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks, logger: logger}
}

// WriteEvent 写入所有输出，单个失败不影响其他输出
func (m *MultiSink) WriteEvent(event *models.LedgerEvent) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.WriteEvent(event); err != nil {
			m.logger.Warnf("事件输出失败 (%T): %v", sink, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close 关闭所有输出
func (m *MultiSink) Close() error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewSink 按配置创建输出，内存环始终在扇出中，供活动查询使用
func NewSink(cfg *config.OutputConfig, logger *logrus.Logger) (*MultiSink, *MemorySink, error) {
	memory := NewMemorySink(cfg.MemoryCapacity)
	sinks := []Sink{memory}

	switch cfg.Format {
	case "", "memory":
	case "file":
		file, err := NewFileSink(cfg.Directory)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, file)
		logger.Infof("事件文件输出目录: %s", cfg.Directory)
	case "kafka":
		if cfg.Kafka == nil || len(cfg.Kafka.Brokers) == 0 {
			return nil, nil, fmt.Errorf("kafka输出缺少brokers配置")
		}
		kafka, err := NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, kafka)
	default:
		return nil, nil, fmt.Errorf("不支持的输出格式: %s", cfg.Format)
	}

	return NewMultiSink(logger, sinks...), memory, nil
}
