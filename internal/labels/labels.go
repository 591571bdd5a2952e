// Package labels maps model output indices to human readable class names.
package labels

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Labels is an ordered, read-only list of class names aligned with the
// model's output vector.
type Labels struct {
	names     []string
	prefix    string
	generated bool
	source    string
}

// New builds a label set from explicit names.
func New(names []string, prefix string) *Labels {
	copied := make([]string, len(names))
	copy(copied, names)

	return &Labels{names: copied, prefix: prefix}
}

// Generate builds count placeholder names of the form "<prefix> <i+1>".
func Generate(count int, prefix string) *Labels {
	names := make([]string, count)
	for i := range names {
		names[i] = placeholder(prefix, i)
	}

	return &Labels{names: names, prefix: prefix, generated: true}
}

// Load reads one class name per line from path, skipping blank lines.
func Load(path, prefix string) (*Labels, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}

	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))

	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse labels file: %w", err)
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("labels file %s contains no class names", path)
	}

	l := New(names, prefix)
	l.source = path
	return l, nil
}

// LoadOrGenerate loads path and falls back to count generated names. The
// returned error reports why the fallback was used and is never fatal.
func LoadOrGenerate(path string, count int, prefix string) (*Labels, error) {
	l, err := Load(path, prefix)
	if err != nil {
		return Generate(count, prefix), err
	}

	return l, nil
}

// Name returns the label for index, or a generated placeholder when index is
// outside the loaded set.
func (l *Labels) Name(index int) string {
	if index >= 0 && index < len(l.names) {
		return l.names[index]
	}

	return placeholder(l.prefix, index)
}

func (l *Labels) Len() int {
	return len(l.names)
}

// Names returns a copy of all class names.
func (l *Labels) Names() []string {
	names := make([]string, len(l.names))
	copy(names, l.names)
	return names
}

// Generated reports whether the names are placeholders.
func (l *Labels) Generated() bool {
	return l.generated
}

func (l *Labels) Source() string {
	return l.source
}

func placeholder(prefix string, index int) string {
	return fmt.Sprintf("%s %d", prefix, index+1)
}
