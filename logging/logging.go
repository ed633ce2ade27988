// Package logging routes the stdlib logger to stdout plus a size-capped file.
package logging

import (
	"io"
	"log"
	"os"
	"sync"
)

// rotateAt caps the daemon log between restarts.
const rotateAt = 2 << 20

// RotatingWriter appends to a log file and swaps it for a fresh one once it
// crosses rotateAt, keeping a single .1 backup.
type RotatingWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	size int64
}

// Setup points the stdlib logger at stdout and the rotating file. The caller
// closes the returned writer on shutdown.
func Setup(path string) (*RotatingWriter, error) {
	w := &RotatingWriter{path: path}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	if w.size > rotateAt {
		w.swap()
	}
	w.mu.Unlock()

	log.SetOutput(io.MultiWriter(os.Stdout, w))
	return w, nil
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	if info, err := f.Stat(); err == nil {
		w.size = info.Size()
	}
	return nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	w.size += int64(n)
	if w.size > rotateAt {
		w.swap()
	}
	return n, err
}

// swap moves the current file aside as the .1 backup and starts a new one.
// Callers hold w.mu. If reopening fails the old handle stays in place and
// subsequent writes surface its error.
func (w *RotatingWriter) swap() {
	w.file.Close()
	os.Rename(w.path, w.path+".1")
	w.open()
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
