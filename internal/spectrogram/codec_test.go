package spectrogram

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestMatrixRoundTrip(t *testing.T) {
	in := [][]float32{{0, -1.5, -80}, {-3.25, -4, -5}}
	var buf bytes.Buffer
	if err := EncodeMatrix(&buf, in); err != nil {
		t.Fatalf("EncodeMatrix: %v", err)
	}
	out, err := DecodeMatrix(&buf)
	if err != nil {
		t.Fatalf("DecodeMatrix: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("rows = %d, want %d", len(out), len(in))
	}
	for i := range in {
		for j := range in[i] {
			if out[i][j] != in[i][j] {
				t.Errorf("cell[%d][%d] = %v, want %v", i, j, out[i][j], in[i][j])
			}
		}
	}
}

func TestDecodeMatrixRejectsDamage(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeMatrix(&buf, [][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}}); err != nil {
		t.Fatal(err)
	}
	full := buf.Bytes()

	tests := map[string][]byte{
		"empty":     nil,
		"truncated": full[:len(full)/2],
		"not gzip":  []byte("plain text"),
	}
	for name, data := range tests {
		if _, err := DecodeMatrix(bytes.NewReader(data)); err == nil {
			t.Errorf("%s: DecodeMatrix succeeded, want error", name)
		}
	}
}

func TestEncodeMatrixRejectsRaggedRows(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeMatrix(&buf, [][]float32{{1, 2}, {3}}); err == nil {
		t.Error("EncodeMatrix(ragged) succeeded, want error")
	}
}

func TestEncodeMatrixRejectsOversized(t *testing.T) {
	// Rows share one backing slice so the test stays small in memory.
	row := make([]float32, maxCells/4097+1)
	m := make([][]float32, 4097)
	for i := range m {
		m[i] = row
	}

	var buf bytes.Buffer
	err := EncodeMatrix(&buf, m)
	if !errors.Is(err, errMatrixTooLarge) {
		t.Fatalf("EncodeMatrix(oversized) err = %v, want errMatrixTooLarge", err)
	}
	if buf.Len() != 0 {
		t.Errorf("EncodeMatrix wrote %d bytes for a rejected matrix", buf.Len())
	}
}

func TestCheckShapeLimit(t *testing.T) {
	tests := []struct {
		rows, cols int
		ok         bool
	}{
		{4096, maxCells / 4096, true},
		{4096, maxCells/4096 + 1, false},
		{4097, maxCells / 4097, true},
		{4097, maxCells/4097 + 1, false},
		{0, 10, false},
		{10, 0, false},
	}
	for _, tt := range tests {
		err := checkShape(tt.rows, tt.cols)
		if (err == nil) != tt.ok {
			t.Errorf("checkShape(%d, %d) = %v, want ok=%v", tt.rows, tt.cols, err, tt.ok)
		}
	}
}

func TestLongTrackShapeFits(t *testing.T) {
	// 4097 bins at a 512 sample hop covers about 100 minutes of 22.05 kHz audio.
	frames := 100 * 60 * 22050 / 512
	if err := checkShape(4097, frames); err != nil {
		t.Errorf("checkShape(4097, %d) = %v, want nil", frames, err)
	}
}

func TestRatiosFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeRatios(&buf, Ratios{TimeIndexRatio: 43.07, FrequencyIndexRatio: 0.3716}); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, key := range []string{`"time_index_ratio":43.07`, `"frequencies_index_ratio":0.3716`} {
		if !strings.Contains(got, key) {
			t.Errorf("ratios JSON %s missing %s", got, key)
		}
	}

	if _, err := DecodeRatios(strings.NewReader(`{"time_index_ratio":0,"frequencies_index_ratio":1}`)); err == nil {
		t.Error("DecodeRatios accepted a zero ratio")
	}
	if _, err := DecodeRatios(strings.NewReader(`{"time_index_ratio":`)); err == nil {
		t.Error("DecodeRatios accepted truncated JSON")
	}
}
