package ipc

import (
	"bufio"
	"encoding/json"
	"io"
)

// maxLineSize bounds a single framed message; large MIME payloads (PNGs
// base64-encoded into a bundle) can legitimately be several megabytes.
const maxLineSize = 16 * 1024 * 1024

// Encoder writes one JSON value per line to the underlying writer,
// flushing after every write so a slow reader on the other end of a
// pipe observes each frame promptly.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder wraps w for line-delimited JSON writes.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode marshals v and writes it as a single newline-terminated line.
func (e *Encoder) Encode(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return err
	}
	return e.w.Flush()
}

// Decoder reads one JSON value per line from the underlying reader.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder wraps r for line-delimited JSON reads.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{scanner: scanner}
}

// Decode reads the next line and unmarshals it into v. It returns
// io.EOF when the underlying reader is exhausted.
func (d *Decoder) Decode(v interface{}) error {
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return err
		}
		return io.EOF
	}
	line := d.scanner.Bytes()
	if len(line) == 0 {
		return d.Decode(v)
	}
	return json.Unmarshal(line, v)
}
