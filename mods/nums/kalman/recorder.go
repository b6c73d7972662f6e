package kalman

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Recorder writes a per-cycle diagnostics stream as CSV: one header line,
// then one line per estimation cycle with the predicted state (xp_*), the
// predicted observation per channel (zp_*), the actual reading per channel
// (za_*, blank when the channel did not report) and the estimated state
// after the update (xe_*).
//
// The stream is non-authoritative; a Recorder that failed to open, or was
// never opened, ignores all row calls so the estimation loop does not need
// to care.
type Recorder struct {
	writer *csv.Writer
	closer io.Closer

	nx        int
	nz        int
	precision int

	row []string

	closeOnce sync.Once
}

// NewRecorder creates a Recorder for the given filter dimensions. Numeric
// fields are written in fixed-point notation with the given number of
// decimals; a negative precision uses the shortest exact representation.
func NewRecorder(stateDims, channels, precision int) *Recorder {
	return &Recorder{
		nx:        stateDims,
		nz:        channels,
		precision: precision,
	}
}

// Open starts the stream on the given writer and emits the header line.
// The writer stays owned by the caller; Close only flushes it.
func (r *Recorder) Open(w io.Writer) error {
	r.writer = csv.NewWriter(w)

	header := make([]string, 0, 2*r.nx+2*r.nz)
	for i := 0; i < r.nx; i++ {
		header = append(header, fmt.Sprintf("xp_%d", i))
	}
	for i := 0; i < r.nz; i++ {
		header = append(header, fmt.Sprintf("zp_%d", i))
	}
	for i := 0; i < r.nz; i++ {
		header = append(header, fmt.Sprintf("za_%d", i))
	}
	for i := 0; i < r.nx; i++ {
		header = append(header, fmt.Sprintf("xe_%d", i))
	}
	if err := r.writer.Write(header); err != nil {
		r.writer = nil
		r.closer = nil
		return err
	}
	r.writer.Flush()
	return r.writer.Error()
}

// OpenFile starts the stream on a newly created file. On failure the
// Recorder stays closed and row calls remain no-ops.
func (r *Recorder) OpenFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Open(f); err != nil {
		f.Close()
		return err
	}
	r.closer = f
	return nil
}

// Close flushes and closes the stream. Safe to call more than once.
func (r *Recorder) Close() {
	if r == nil || r.writer == nil {
		return
	}
	r.closeOnce.Do(func() {
		r.writer.Flush()
		if r.closer != nil {
			r.closer.Close()
		}
		r.writer = nil
		r.closer = nil
	})
}

// Predicted begins a cycle row with the state as predicted before any
// reading is fused.
func (r *Recorder) Predicted(x mat.Vector) {
	if r == nil || r.writer == nil {
		return
	}
	r.row = r.row[:0]
	for i := 0; i < r.nx && i < x.Len(); i++ {
		r.row = append(r.row, r.format(x.AtVec(i)))
	}
}

// Observations appends the predicted observation vector and the actual
// readings to the cycle row. Channels without a reading are left blank;
// when no channel reported at all, every observation field of the row is
// blank with the column count preserved.
func (r *Recorder) Observations(z mat.Vector, readings map[int]float64) {
	if r == nil || r.writer == nil {
		return
	}
	if len(readings) == 0 {
		for i := 0; i < 2*r.nz; i++ {
			r.row = append(r.row, "")
		}
		return
	}
	for i := 0; i < r.nz; i++ {
		r.row = append(r.row, r.format(z.AtVec(i)))
	}
	for i := 0; i < r.nz; i++ {
		if v, ok := readings[i]; ok {
			r.row = append(r.row, r.format(v))
		} else {
			r.row = append(r.row, "")
		}
	}
}

// Estimated completes the cycle row with the state after the update and
// writes it out.
func (r *Recorder) Estimated(x mat.Vector) {
	if r == nil || r.writer == nil {
		return
	}
	for i := 0; i < r.nx && i < x.Len(); i++ {
		r.row = append(r.row, r.format(x.AtVec(i)))
	}
	r.writer.Write(r.row)
	r.writer.Flush()
	r.row = r.row[:0]
}

func (r *Recorder) format(v float64) string {
	return strconv.FormatFloat(v, 'f', r.precision, 64)
}
