package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
)

// DoneSentinel is the payload some producers send after the last event.
const DoneSentinel = "[DONE]"

// Writer writes events as SSE frames, flushing after each one. It is safe
// for concurrent use, so a keep-alive loop can share it with the producer.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

// NewWriter 创建 SSE 写入器。w 实现 http.Flusher 时每帧后 flush。
func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// WriteEvent 写入一个 data 帧
func (w *Writer) WriteEvent(e Event) error {
	data, err := Marshal(e)
	if err != nil {
		return err
	}
	return w.WriteData(data)
}

// WriteData writes an already encoded payload as one frame.
func (w *Writer) WriteData(data []byte) error {
	frame := make([]byte, 0, len(data)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, data...)
	frame = append(frame, '\n', '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(frame); err != nil {
		return err
	}
	w.flush()
	return nil
}

// WriteComment writes a comment line, used as keep-alive.
func (w *Writer) WriteComment(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.w, ": "+text+"\n\n"); err != nil {
		return err
	}
	w.flush()
	return nil
}

func (w *Writer) flush() {
	if w.flusher != nil {
		w.flusher.Flush()
	}
}

// Reader 从 SSE 字节流中解析事件
type Reader struct {
	r    *bufio.Reader
	done bool
}

// NewReader 创建 SSE 读取器
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 32*1024)}
}

// Next returns the next event, or io.EOF once the stream ended cleanly.
func (r *Reader) Next() (Event, error) {
	data, err := r.NextData()
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// NextData returns the payload of the next data frame without decoding it.
// Frames without data lines are skipped.
func (r *Reader) NextData() ([]byte, error) {
	if r.done {
		return nil, io.EOF
	}

	var data [][]byte
	for {
		line, err := r.r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		atEOF := errors.Is(err, io.EOF)

		line = bytes.TrimRight(line, "\r\n")
		switch {
		case len(line) == 0:
			// 空行结束一帧
			if len(data) > 0 {
				return r.dispatch(data)
			}
		case line[0] == ':':
			// comment
		default:
			field, value := splitField(line)
			if field == "data" {
				data = append(data, value)
			}
		}

		if atEOF {
			if len(data) > 0 {
				return r.dispatch(data)
			}
			r.done = true
			return nil, io.EOF
		}
	}
}

func (r *Reader) dispatch(lines [][]byte) ([]byte, error) {
	payload := bytes.Join(lines, []byte("\n"))
	if strings.TrimSpace(string(payload)) == DoneSentinel {
		r.done = true
		return nil, io.EOF
	}
	return payload, nil
}

func splitField(line []byte) (string, []byte) {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return string(line), nil
	}
	value := line[idx+1:]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return string(line[:idx]), value
}
