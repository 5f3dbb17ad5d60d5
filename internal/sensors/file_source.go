package sensors

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
)

// tailFingerprintSize is how many bytes preceding the offset are kept to
// detect a rewrite that does not shrink the file.
const tailFingerprintSize = 64

// FileSource tails a JSONL readings file appended to by a sensor process
// (dht-exporter and friends). Each call to Read returns the newest valid
// reading appended since the previous call.
type FileSource struct {
	Path    string
	offset  int64
	pending []byte
	primed  bool
	tail    []byte
	fileID  os.FileInfo
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Prime skips everything already in the file so only readings appended after
// startup are uploaded.
func (s *FileSource) Prime() error {
	file, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if s.primed {
		return nil
	}
	s.offset = info.Size()
	s.fileID = info
	if n := min(int64(tailFingerprintSize), info.Size()); n > 0 {
		tail := make([]byte, n)
		if _, err := file.ReadAt(tail, info.Size()-n); err != nil {
			return err
		}
		s.tail = tail
	}
	s.primed = true
	return nil
}

func (s *FileSource) Read(_ context.Context) (Reading, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return Reading{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Reading{}, err
	}
	// Truncated, replaced, or rewritten-in-place file: start over from the
	// top. Shrinking is visible in the size; a rewrite of equal or larger
	// size is caught by comparing the bytes that used to precede the offset.
	replaced := s.fileID != nil && !os.SameFile(s.fileID, info)
	if replaced || info.Size() < s.offset || !s.tailMatches(file) {
		s.offset = 0
		s.pending = nil
		s.tail = nil
	}
	s.fileID = info

	if _, err := file.Seek(s.offset, io.SeekStart); err != nil {
		return Reading{}, err
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, file); err != nil {
		return Reading{}, err
	}
	s.offset += int64(buf.Len())
	s.rememberTail(buf.Bytes())
	s.primed = true

	raw := append(append([]byte{}, s.pending...), buf.Bytes()...)
	// Keep a trailing partial line for the next call.
	if idx := bytes.LastIndexByte(raw, '\n'); idx >= 0 {
		s.pending = append([]byte{}, raw[idx+1:]...)
		raw = raw[:idx+1]
	} else {
		s.pending = raw
		raw = nil
	}

	latest, found := latestReading(raw)
	if !found {
		return Reading{}, ErrNoNewReading
	}
	if err := latest.Validate(); err != nil {
		return Reading{}, err
	}
	return latest, nil
}

// tailMatches reports whether the bytes just before the stored offset still
// hold the content read last time.
func (s *FileSource) tailMatches(file *os.File) bool {
	if len(s.tail) == 0 {
		return true
	}
	got := make([]byte, len(s.tail))
	if _, err := file.ReadAt(got, s.offset-int64(len(s.tail))); err != nil {
		return false
	}
	return bytes.Equal(got, s.tail)
}

func (s *FileSource) rememberTail(chunk []byte) {
	combined := append(append([]byte{}, s.tail...), chunk...)
	if len(combined) > tailFingerprintSize {
		combined = combined[len(combined)-tailFingerprintSize:]
	}
	s.tail = combined
}

func latestReading(raw []byte) (Reading, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	latest := Reading{}
	found := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var reading Reading
		if err := json.Unmarshal([]byte(line), &reading); err != nil {
			continue
		}
		latest = reading
		found = true
	}
	return latest, found
}
