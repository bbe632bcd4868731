package logger

import (
	"io"
	"sync"
)

// lineWriter fans complete lines out to its sinks from one goroutine so a
// slow file never stalls a Telegram handler. When the queue is full Write
// blocks rather than dropping the line.
type lineWriter struct {
	out   io.Writer
	queue chan []byte
	done  chan struct{}

	mu     sync.Mutex // guards closed and the send on queue
	closed bool

	errMu sync.Mutex
	err   error
}

func newLineWriter(sinks ...io.Writer) *lineWriter {
	w := &lineWriter{
		out:   io.MultiWriter(sinks...),
		queue: make(chan []byte, 512),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *lineWriter) run() {
	defer close(w.done)
	for line := range w.queue {
		if _, err := w.out.Write(line); err != nil {
			w.errMu.Lock()
			if w.err == nil {
				w.err = err
			}
			w.errMu.Unlock()
		}
	}
}

// Write queues a copy of line. It reports the first sink error seen so far.
func (w *lineWriter) Write(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return io.ErrClosedPipe
	}
	if err := w.firstErr(); err != nil {
		return err
	}
	w.queue <- append([]byte(nil), line...)
	return nil
}

// Close drains pending lines and stops the writer.
func (w *lineWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return w.firstErr()
}

func (w *lineWriter) firstErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
