package testutil

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasurementContentPlacesMarker(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i)
	}

	lines := strings.Split(strings.TrimSuffix(MeasurementContent(values), "\n"), "\n")
	require.Len(t, lines, 3+20+1)
	assert.Equal(t, "--- second headstage ---", lines[20])
	assert.True(t, strings.HasPrefix(lines[21], "18\t17\t"))
}

func TestWriteMeasurementFile(t *testing.T) {
	path := WriteMeasurementFile(t, t.TempDir(), "sub/a.txt", []float64{1.5})
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1\t1.5\t-40.5")
}

func TestLogCaptureKeepsBoundAttrs(t *testing.T) {
	logger, capture := NewTestLogger(t)
	logger.With("component", "notify").Warn("not delivered", slog.String("week", "w"))
	logger.Info("plain")

	rec, ok := capture.Find("not delivered")
	require.True(t, ok)
	assert.Equal(t, "notify", rec.Attrs["component"])
	assert.Equal(t, "w", rec.Attrs["week"])
	assert.Len(t, capture.AtLevel(slog.LevelInfo), 1)
	AssertLogContains(t, capture, slog.LevelWarn, "delivered")
	AssertNoErrors(t, capture)
}
