package logger

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGormAdapterLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewGormLoggerAdapter(NewSlogLogger(&buf, LogLevelTrace, time.UTC), time.Second)

	adapter.Trace(context.Background(), time.Now(), func() (string, int64) { return "DROP TABLE IF EXISTS products", 0 }, nil)
	adapter.Trace(context.Background(), time.Now().Add(-2*time.Second), func() (string, int64) { return "INSERT INTO products", 500 }, nil)
	adapter.Trace(context.Background(), time.Now(), func() (string, int64) { return "CREATE TABLE products", 0 }, fmt.Errorf("disk I/O error"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if assert.Len(t, lines, 3) {
		assert.Contains(t, lines[0], "level=TRACE")
		assert.Contains(t, lines[1], "slow statement")
		assert.Contains(t, lines[2], "statement failed")
		assert.Contains(t, lines[2], "disk I/O error")
	}
}

func TestTruncateSQLKeepsRunes(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("α", maxLoggedSQL)
	out := truncateSQL(long)

	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len(out), maxLoggedSQL+3)
	assert.True(t, strings.HasPrefix(long, strings.TrimSuffix(out, "...")))
	assert.Equal(t, "SELECT 1", truncateSQL("SELECT 1"))
}
