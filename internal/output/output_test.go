package output

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coffeecoin/internal/config"
	"coffeecoin/pkg/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func event(id string, typ models.EventType) *models.LedgerEvent {
	return &models.LedgerEvent{
		ID:        id,
		Type:      typ,
		Address:   "0x00000000000000000000000000000000000000AA",
		Amount:    "100",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFileSink_WritesJSONLinesPerDay(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	require.NoError(t, err)

	day := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return day }
	require.NoError(t, sink.WriteEvent(event("a", models.EventMint)))
	require.NoError(t, sink.WriteEvent(event("b", models.EventDrip)))

	day = day.Add(2 * time.Hour)
	require.NoError(t, sink.WriteEvent(event("c", models.EventRedemption)))
	require.NoError(t, sink.WriteEvent(nil))
	require.NoError(t, sink.Close())

	first := readLines(t, filepath.Join(dir, "ledger_events_20260301.jsonl"))
	require.Len(t, first, 2)
	assert.Equal(t, "a", first[0].ID)
	assert.Equal(t, models.EventDrip, first[1].Type)

	second := readLines(t, filepath.Join(dir, "ledger_events_20260302.jsonl"))
	require.Len(t, second, 1)
	assert.Equal(t, "c", second[0].ID)
}

func readLines(t *testing.T, path string) []models.LedgerEvent {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []models.LedgerEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e models.LedgerEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestMemorySink_RingAndPaging(t *testing.T) {
	sink := NewMemorySink(3)
	require.NoError(t, sink.WriteEvent(event("1", models.EventMint)))
	require.NoError(t, sink.WriteEvent(event("2", models.EventDrip)))
	require.NoError(t, sink.WriteEvent(event("3", models.EventMint)))
	require.NoError(t, sink.WriteEvent(event("4", models.EventMint)))
	assert.Equal(t, 3, sink.Len())

	page, total := sink.Recent("", 1, 2)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "4", page[0].ID)
	assert.Equal(t, "3", page[1].ID)

	page, _ = sink.Recent("", 2, 2)
	require.Len(t, page, 1)
	assert.Equal(t, "2", page[0].ID)

	page, total = sink.Recent(models.EventMint, 1, 10)
	assert.Equal(t, 2, total)
	assert.Equal(t, "4", page[0].ID)
	assert.Equal(t, "3", page[1].ID)

	page, _ = sink.Recent("", 5, 10)
	assert.Empty(t, page)
	assert.NotNil(t, page)

	require.NoError(t, sink.Close())
	assert.Equal(t, 0, sink.Len())
}

type failingSink struct{ closed bool }

func (f *failingSink) WriteEvent(*models.LedgerEvent) error { return errors.New("disk full") }
func (f *failingSink) Close() error                         { f.closed = true; return nil }

func TestMultiSink_ContinuesPastFailure(t *testing.T) {
	bad := &failingSink{}
	memory := NewMemorySink(10)
	multi := NewMultiSink(testLogger(), bad, memory)

	err := multi.WriteEvent(event("x", models.EventMint))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, memory.Len())

	require.NoError(t, multi.Close())
	assert.True(t, bad.closed)
}

func TestKafkaSink_KeyedByAddress(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var e models.LedgerEvent
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if e.ID != "k1" {
			return errors.New("unexpected event id " + e.ID)
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sink := NewKafkaSinkWithProducer(producer, "", testLogger())
	assert.Equal(t, DefaultTopic, sink.topic)

	require.NoError(t, sink.WriteEvent(event("k1", models.EventMint)))
	err := sink.WriteEvent(event("k2", models.EventMint))
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)

	require.NoError(t, sink.Close())
}

func TestNewSink(t *testing.T) {
	multi, memory, err := NewSink(&config.OutputConfig{Format: "memory", MemoryCapacity: 5}, testLogger())
	require.NoError(t, err)
	require.NoError(t, multi.WriteEvent(event("m", models.EventDrip)))
	assert.Equal(t, 1, memory.Len())

	dir := filepath.Join(t.TempDir(), "events")
	multi, _, err = NewSink(&config.OutputConfig{Format: "file", Directory: dir}, testLogger())
	require.NoError(t, err)
	require.Len(t, multi.sinks, 2)
	require.NoError(t, multi.Close())
	_, err = os.Stat(dir)
	assert.NoError(t, err)

	_, _, err = NewSink(&config.OutputConfig{Format: "kafka", Kafka: &config.KafkaConfig{}}, testLogger())
	assert.Error(t, err)

	_, _, err = NewSink(&config.OutputConfig{Format: "xml"}, testLogger())
	assert.Error(t, err)
}
