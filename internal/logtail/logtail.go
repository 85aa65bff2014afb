package logtail

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-logfmt/logfmt"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns the whole file. A missing file is empty.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Field is one key/value pair beyond the standard time, level and msg keys.
type Field struct {
	Key   string
	Value string
}

// Entry is a parsed logfmt line.
type Entry struct {
	Time    time.Time
	Level   string
	Prefix  string
	Message string
	Fields  []Field
	Raw     string
}

var levelRank = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
	"fatal": 4,
}

// Rank orders levels from debug upward. Unknown levels rank as info.
func Rank(level string) int {
	if r, ok := levelRank[strings.ToLower(level)]; ok {
		return r
	}
	return levelRank["info"]
}

// Parse decodes a logfmt line. Lines that are not logfmt come back with
// only Raw and Message set.
func Parse(line string) Entry {
	e := Entry{Raw: line}
	dec := logfmt.NewDecoder(bytes.NewReader([]byte(line)))
	if !dec.ScanRecord() {
		e.Message = line
		return e
	}
	for dec.ScanKeyval() {
		key, val := string(dec.Key()), string(dec.Value())
		switch key {
		case "time", "ts":
			e.Time = parseTime(val)
		case "level", "lvl":
			e.Level = strings.ToLower(val)
		case "msg":
			e.Message = val
		case "prefix":
			e.Prefix = val
		default:
			e.Fields = append(e.Fields, Field{Key: key, Value: val})
		}
	}
	if dec.Err() != nil || (e.Level == "" && e.Message == "") {
		return Entry{Raw: line, Message: line}
	}
	return e
}

var timeLayouts = []string{time.RFC3339Nano, "2006/01/02 15:04:05"}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Filter keeps entries at or above minLevel. An empty minLevel keeps all.
func Filter(entries []Entry, minLevel string) []Entry {
	if minLevel == "" {
		return entries
	}
	floor := Rank(minLevel)
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if Rank(e.Level) >= floor {
			out = append(out, e)
		}
	}
	return out
}

// Tail reads the last maxLines of path, parses them and applies Filter.
func Tail(path string, maxLines int, minLevel string) ([]Entry, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, Parse(line))
	}
	return Filter(entries, minLevel), nil
}
