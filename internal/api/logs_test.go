package api

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogManagerRing(t *testing.T) {
	lm := NewLogManager(3)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.AddHook(NewLogHook(lm))

	logger.Info("one")
	logger.Debug("ignored")
	logger.Warn("two")
	logger.WithField("request_id", "req-1").WithError(errors.New("boom")).Error("three")
	logger.Info("four")

	assert.Equal(t, 3, lm.Len())

	all, total := lm.Page("", 1, 10)
	require.Equal(t, 3, total)
	assert.Equal(t, "four", all[0].Message)
	assert.Equal(t, "two", all[2].Message)

	errs, total := lm.Page("error", 1, 10)
	require.Equal(t, 1, total)
	assert.Equal(t, "req-1", errs[0].RequestID)
	assert.Equal(t, "boom", errs[0].Fields["error"])

	_, total = lm.Page("warning", 1, 10)
	assert.Equal(t, 2, total)

	page, total := lm.Page("", 2, 2)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "two", page[0].Message)

	empty, _ := lm.Page("", 5, 2)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	lm.Clear()
	assert.Equal(t, 0, lm.Len())
}
