package spectrogram

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Matrix stream layout, gzip compressed:
//
//	[magic "ASPG"][version u16][freq bins u32][time bins u32][f32 × bins…]
//
// little endian, one frequency row after the other.
const (
	matrixMagic   = "ASPG"
	matrixVersion = 1
	maxCells      = 1 << 30
)

var (
	errBadMatrix      = errors.New("malformed spectrogram stream")
	errMatrixTooLarge = errors.New("spectrogram matrix too large")
)

// checkShape reports whether a rows x cols matrix fits the stream format.
func checkShape(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("%w: empty %dx%d matrix", errBadMatrix, rows, cols)
	}
	if uint64(rows)*uint64(cols) > maxCells {
		return fmt.Errorf("%w: %dx%d exceeds %d cells", errMatrixTooLarge, rows, cols, maxCells)
	}
	return nil
}

// Ratios is the persisted form of the index ratios.
type Ratios struct {
	TimeIndexRatio      float64 `json:"time_index_ratio"`
	FrequencyIndexRatio float64 `json:"frequencies_index_ratio"`
}

func (r Ratios) valid() bool {
	return r.TimeIndexRatio > 0 && r.FrequencyIndexRatio > 0
}

// EncodeMatrix writes m compressed to w.
// Matrices DecodeMatrix would refuse are rejected before anything is written.
func EncodeMatrix(w io.Writer, m [][]float32) error {
	cols := 0
	if len(m) > 0 {
		cols = len(m[0])
	}
	if err := checkShape(len(m), cols); err != nil {
		return err
	}

	zw, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(zw)
	if _, err := bw.WriteString(matrixMagic); err != nil {
		return err
	}
	header := []any{uint16(matrixVersion), uint32(len(m)), uint32(cols)}
	for _, v := range header {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for i, row := range m {
		if len(row) != cols {
			return fmt.Errorf("%w: row %d has %d cells, want %d", errBadMatrix, i, len(row), cols)
		}
		if err := binary.Write(bw, binary.LittleEndian, row); err != nil {
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	return zw.Close()
}

// DecodeMatrix reads a matrix written by EncodeMatrix. Truncated or
// inconsistent streams fail.
func DecodeMatrix(r io.Reader) ([][]float32, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	br := bufio.NewReader(zr)

	magic := make([]byte, len(matrixMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, err
	}
	if string(magic) != matrixMagic {
		return nil, fmt.Errorf("%w: bad magic %q", errBadMatrix, magic)
	}

	var version uint16
	var rows, cols uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != matrixVersion {
		return nil, fmt.Errorf("%w: version %d", errBadMatrix, version)
	}
	if err := binary.Read(br, binary.LittleEndian, &rows); err != nil {
		return nil, err
	}
	if err := binary.Read(br, binary.LittleEndian, &cols); err != nil {
		return nil, err
	}
	if err := checkShape(int(rows), int(cols)); err != nil {
		return nil, err
	}

	m := make([][]float32, rows)
	for i := range m {
		m[i] = make([]float32, cols)
		if err := binary.Read(br, binary.LittleEndian, m[i]); err != nil {
			return nil, err
		}
	}

	// Drain to EOF so the gzip checksum is verified.
	if _, err := io.Copy(io.Discard, br); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeRatios writes the ratios record.
func EncodeRatios(w io.Writer, r Ratios) error {
	return json.NewEncoder(w).Encode(r)
}

// DecodeRatios reads and validates a ratios record.
func DecodeRatios(rd io.Reader) (Ratios, error) {
	var r Ratios
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return Ratios{}, err
	}
	if !r.valid() {
		return Ratios{}, fmt.Errorf("%w: non-positive ratios %+v", errBadMatrix, r)
	}
	return r, nil
}
