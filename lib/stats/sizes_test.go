package stats

import "testing"

// TestEmptyHistogram tests estimator behavior with no samples
func TestEmptyHistogram(t *testing.T) {
	h := NewSizeHistogram()

	if h.Count() != 0 {
		t.Errorf("Expected 0 samples, got %d", h.Count())
	}
	if h.AverageSize() != 0 {
		t.Errorf("Expected average 0, got %d", h.AverageSize())
	}
	if h.MedianEstimate() != 0 {
		t.Errorf("Expected median 0, got %d", h.MedianEstimate())
	}
}

// TestAverageSize tests the exact average across samples
func TestAverageSize(t *testing.T) {
	h := NewSizeHistogram()

	for _, size := range []int{10, 20, 30} {
		h.AddSample(size)
	}

	if h.Count() != 3 {
		t.Errorf("Expected 3 samples, got %d", h.Count())
	}
	if h.AverageSize() != 20 {
		t.Errorf("Expected average 20, got %d", h.AverageSize())
	}
}

// TestMedianEstimate tests that the median estimate lands in the right bucket
func TestMedianEstimate(t *testing.T) {
	h := NewSizeHistogram()

	// All samples in the (64, 256] bucket
	for i := 0; i < 100; i++ {
		h.AddSample(100)
	}

	median := h.MedianEstimate()
	if median != (64+256)/2 {
		t.Errorf("Expected median estimate %d, got %d", (64+256)/2, median)
	}
}

// TestPercentileEstimate tests percentile estimates across buckets
func TestPercentileEstimate(t *testing.T) {
	h := NewSizeHistogram()

	// 90 small samples, 10 large ones
	for i := 0; i < 90; i++ {
		h.AddSample(8)
	}
	for i := 0; i < 10; i++ {
		h.AddSample(2000)
	}

	if p50 := h.PercentileEstimate(50); p50 != 8 {
		t.Errorf("Expected p50 estimate 8, got %d", p50)
	}
	if p95 := h.PercentileEstimate(95); p95 != (1024+4096)/2 {
		t.Errorf("Expected p95 estimate %d, got %d", (1024+4096)/2, p95)
	}
}

// TestPercentileBounds tests rejection of out-of-range percentiles
func TestPercentileBounds(t *testing.T) {
	h := NewSizeHistogram()
	h.AddSample(100)

	if v := h.PercentileEstimate(-1); v != 0 {
		t.Errorf("Expected 0 for negative percentile, got %d", v)
	}
	if v := h.PercentileEstimate(101); v != 0 {
		t.Errorf("Expected 0 for percentile above 100, got %d", v)
	}
}

// TestOverflowBucket tests samples above the last boundary
func TestOverflowBucket(t *testing.T) {
	h := NewSizeHistogram()

	for i := 0; i < 10; i++ {
		h.AddSample(1 << 20)
	}

	if median := h.MedianEstimate(); median != 65536*2 {
		t.Errorf("Expected overflow estimate %d, got %d", 65536*2, median)
	}
}

// TestReset tests that Reset clears all data
func TestReset(t *testing.T) {
	h := NewSizeHistogram()

	h.AddSample(128)
	h.Reset()

	if h.Count() != 0 {
		t.Errorf("Expected 0 samples after reset, got %d", h.Count())
	}
	if h.AverageSize() != 0 {
		t.Errorf("Expected average 0 after reset, got %d", h.AverageSize())
	}
}
