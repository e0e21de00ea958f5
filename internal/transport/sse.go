package transport

import (
	"bytes"
	"io"
	"net/http"
)

// eventWriter writes server-sent events to a flushable response
type eventWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func newEventWriter(w http.ResponseWriter) (*eventWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &eventWriter{w: w, flusher: flusher}, true
}

// writeEvent writes one event and flushes it to the client
func (ew *eventWriter) writeEvent(ev Event) error {
	if _, err := ew.w.Write(formatEvent(ev)); err != nil {
		return err
	}
	ew.flusher.Flush()
	return nil
}

// writeComment writes a comment line, which clients ignore. Used to keep idle
// streams open through proxies.
func (ew *eventWriter) writeComment(text string) error {
	if _, err := io.WriteString(ew.w, ": "+text+"\n\n"); err != nil {
		return err
	}
	ew.flusher.Flush()
	return nil
}

// formatEvent renders ev in the text/event-stream format. Multi-line data is
// split over several data fields.
func formatEvent(ev Event) []byte {
	var b bytes.Buffer
	if ev.Name != "" {
		b.WriteString("event: ")
		b.WriteString(ev.Name)
		b.WriteByte('\n')
	}
	for _, line := range bytes.Split(ev.Data, []byte("\n")) {
		b.WriteString("data: ")
		b.Write(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.Bytes()
}
