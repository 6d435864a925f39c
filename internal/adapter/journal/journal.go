package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// Log is an append-only newline-delimited JSON file. Records are only ever
// appended; nothing rewrites or truncates the file. Appends take an advisory
// file lock so concurrent runs against the same corpus serialize on the
// single writer.
type Log struct {
	path string
	lock *flock.Flock
}

func Open(path string) *Log {
	return &Log{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the underlying file path.
func (l *Log) Path() string {
	return l.path
}

// Append marshals each record to one JSON line and appends it.
func (l *Log) Append(records ...any) error {
	if len(records) == 0 {
		return nil
	}

	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock %s: %w", l.path, err)
	}
	defer l.lock.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to append record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to append record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush log: %w", err)
	}
	return f.Sync()
}

// Scan invokes fn for every line in order. A missing file is an empty log.
func (l *Log) Scan(fn func(line []byte) error) error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}

// Len returns the number of non-empty lines.
func (l *Log) Len() (int, error) {
	n := 0
	err := l.Scan(func([]byte) error {
		n++
		return nil
	})
	return n, err
}
