package sensors

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append %s: %v", path, err)
	}
}

func TestFileSource_ReturnsLatestAppendedReading(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.jsonl")
	writeFile(t, path, "")
	source := NewFileSource(path)

	appendFile(t, path, `{"temperature":21.4,"humidity":44.2}`+"\n"+`{"temperature":21.6,"humidity":44.0}`+"\n")
	reading, err := source.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if reading.Temperature != 21.6 || reading.Humidity != 44.0 {
		t.Fatalf("reading = %+v, want newest line", reading)
	}

	if _, err := source.Read(context.Background()); !errors.Is(err, ErrNoNewReading) {
		t.Fatalf("second Read() error = %v, want ErrNoNewReading", err)
	}
}

func TestFileSource_PrimeSkipsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.jsonl")
	writeFile(t, path, `{"temperature":19.0,"humidity":40.0}`+"\n")
	source := NewFileSource(path)
	if err := source.Prime(); err != nil {
		t.Fatalf("Prime() error = %v", err)
	}

	if _, err := source.Read(context.Background()); !errors.Is(err, ErrNoNewReading) {
		t.Fatalf("Read() error = %v, want ErrNoNewReading for pre-existing data", err)
	}

	appendFile(t, path, `{"temperature":22.0,"humidity":50.0}`+"\n")
	reading, err := source.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if reading.Temperature != 22.0 {
		t.Fatalf("reading = %+v", reading)
	}
}

func TestFileSource_PartialLineHeldUntilComplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.jsonl")
	writeFile(t, path, "")
	source := NewFileSource(path)

	appendFile(t, path, `{"temperature":21.0,`)
	if _, err := source.Read(context.Background()); !errors.Is(err, ErrNoNewReading) {
		t.Fatalf("Read() error = %v, want ErrNoNewReading for partial line", err)
	}

	appendFile(t, path, `"humidity":45.0}`+"\n")
	reading, err := source.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if reading.Temperature != 21.0 || reading.Humidity != 45.0 {
		t.Fatalf("reading = %+v", reading)
	}
}

func TestFileSource_TruncatedFileRestartsFromTop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.jsonl")
	writeFile(t, path, `{"temperature":20.0,"humidity":40.0}`+"\n")
	source := NewFileSource(path)
	if _, err := source.Read(context.Background()); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	writeFile(t, path, `{"temperature":25.0,"humidity":55.0}`+"\n")
	reading, err := source.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() after truncate error = %v", err)
	}
	if reading.Temperature != 25.0 {
		t.Fatalf("reading = %+v", reading)
	}
}

func TestFileSource_EqualSizeRewriteDetected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.jsonl")
	line1 := `{"temperature":20.0,"humidity":40.0}` + "\n"
	line2 := `{"temperature":25.0,"humidity":55.0}` + "\n"
	if len(line1) != len(line2) {
		t.Fatalf("fixture lines must be the same length: %d vs %d", len(line1), len(line2))
	}
	writeFile(t, path, line1)
	source := NewFileSource(path)
	if _, err := source.Read(context.Background()); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	writeFile(t, path, line2)
	reading, err := source.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() after same-size rewrite error = %v", err)
	}
	if reading.Temperature != 25.0 || reading.Humidity != 55.0 {
		t.Fatalf("reading = %+v, want rewritten content", reading)
	}
}

func TestFileSource_LargerRewriteRestartsFromTop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.jsonl")
	writeFile(t, path, `{"temperature":20.0,"humidity":40.0}`+"\n")
	source := NewFileSource(path)
	if _, err := source.Read(context.Background()); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	writeFile(t, path, `{"temperature":18.0,"humidity":38.0}`+"\n"+`{"temperature":26.5,"humidity":57.5}`+"\n")
	reading, err := source.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() after larger rewrite error = %v", err)
	}
	if reading.Temperature != 26.5 {
		t.Fatalf("reading = %+v, want newest line of the rewrite", reading)
	}
}

func TestFileSource_ReplacedFileRestartsFromTop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.jsonl")
	writeFile(t, path, `{"temperature":20.0,"humidity":40.0}`+"\n")
	source := NewFileSource(path)
	if _, err := source.Read(context.Background()); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove %s: %v", path, err)
	}
	writeFile(t, path, `{"temperature":23.0,"humidity":48.0}`+"\n")
	reading, err := source.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() after replace error = %v", err)
	}
	if reading.Temperature != 23.0 {
		t.Fatalf("reading = %+v, want content of the new file", reading)
	}
}

func TestFileSource_MalformedLinesSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.jsonl")
	writeFile(t, path, "")
	source := NewFileSource(path)

	appendFile(t, path, "garbage line\n"+`{"temperature":21.0,"humidity":45.0}`+"\nmore garbage\n")
	reading, err := source.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if reading.Temperature != 21.0 {
		t.Fatalf("reading = %+v", reading)
	}
}

func TestFileSource_OutOfRangeRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.jsonl")
	writeFile(t, path, "")
	source := NewFileSource(path)

	appendFile(t, path, `{"temperature":900.0,"humidity":45.0}`+"\n")
	if _, err := source.Read(context.Background()); err == nil || errors.Is(err, ErrNoNewReading) {
		t.Fatalf("Read() error = %v, want validation error", err)
	}
}
