package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
)

// stdPrefix matches the date and time written by the standard log package
// with log.LstdFlags, optionally with microseconds.
var stdPrefix = regexp.MustCompile(`^\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}(\.\d+)? `)

// Read returns at most maxLines from the end of the file at path, with the
// standard log timestamp removed.
func Read(path string, maxLines int) ([]string, error) {
	lines, err := tail(path, maxLines)
	if err != nil {
		return nil, err
	}
	for i, line := range lines {
		lines[i] = Trim(line)
	}
	return lines, nil
}

// Trim removes the standard log timestamp from line, if present.
func Trim(line string) string {
	if loc := stdPrefix.FindStringIndex(line); loc != nil {
		return line[loc[1]:]
	}
	return line
}

func tail(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
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
