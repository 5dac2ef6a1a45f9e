package domain

import "math"

const (
	// ExtremePM25Threshold is the concentration (µg/m³) at or above which an
	// hour is flagged as an extreme event.
	ExtremePM25Threshold = 150.0

	extremeYes = "Yes"
	extremeNo  = "No"
)

// HistoryBuffer is the append-only PM2.5 log a forecast run reads its lag,
// rolling and extreme-event features from. It is seeded with observations
// and grows by one prediction per step. Not safe for concurrent use; each
// run owns its own buffer.
type HistoryBuffer struct {
	values []float64
}

// NewHistoryBuffer copies seed (oldest first) into a new buffer.
func NewHistoryBuffer(seed []float64) *HistoryBuffer {
	return &HistoryBuffer{values: append([]float64(nil), seed...)}
}

// Len returns the number of entries.
func (h *HistoryBuffer) Len() int { return len(h.values) }

// Values returns a copy of the entries, oldest first.
func (h *HistoryBuffer) Values() []float64 {
	return append([]float64(nil), h.values...)
}

// Append adds a value to the end of the buffer.
func (h *HistoryBuffer) Append(v float64) {
	h.values = append(h.values, v)
}

// Lag returns the value k steps before the end of the buffer (Lag(1) is the
// latest entry). With fewer than k entries the oldest entry is returned; an
// empty buffer yields NaN.
func (h *HistoryBuffer) Lag(k int) float64 {
	n := len(h.values)
	if n == 0 {
		return math.NaN()
	}
	if n >= k && k > 0 {
		return h.values[n-k]
	}
	return h.values[0]
}

// RollingMean is the mean of the last min(window, Len()) entries, NaN when empty.
func (h *HistoryBuffer) RollingMean(window int) float64 {
	tail := h.tail(window)
	if len(tail) == 0 {
		return math.NaN()
	}
	return mean(tail)
}

// RollingStd is the population standard deviation of the last
// min(window, Len()) entries. A single entry has zero deviation; an empty
// buffer yields NaN.
func (h *HistoryBuffer) RollingStd(window int) float64 {
	tail := h.tail(window)
	switch len(tail) {
	case 0:
		return math.NaN()
	case 1:
		return 0
	}
	m := mean(tail)
	var ss float64
	for _, v := range tail {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(tail)))
}

// IsExtreme reports "Yes" if the entry offset positions from the end (0 is
// the latest) is at or above ExtremePM25Threshold, "No" otherwise or when
// the buffer is too short.
func (h *HistoryBuffer) IsExtreme(offset int) string {
	i := len(h.values) - 1 - offset
	if offset < 0 || i < 0 {
		return extremeNo
	}
	if h.values[i] >= ExtremePM25Threshold {
		return extremeYes
	}
	return extremeNo
}

func (h *HistoryBuffer) tail(window int) []float64 {
	if window <= 0 {
		return nil
	}
	if window < len(h.values) {
		return h.values[len(h.values)-window:]
	}
	return h.values
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
