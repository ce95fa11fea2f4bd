// Package filterlist reads and writes Adblock-style filter list files.
package filterlist

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DefaultHeader is written at the top of exported lists.
const DefaultHeader = "[Adblock Plus 2.0]"

// disabledPrefix marks a rule that was exported while disabled.
const disabledPrefix = "! disabled: "

// Rule is one filter line of a list.
type Rule struct {
	Text     string
	Disabled bool
}

// List is a parsed filter list file.
type List struct {
	Header string
	Title  string
	Rules  []Rule
}

// Parse reads a list, skipping blank lines and plain comments.
func Parse(r io.Reader) (List, error) {
	var out List
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if first {
			first = false
			if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
				out.Header = line
				continue
			}
		}
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, disabledPrefix):
			text := strings.TrimSpace(strings.TrimPrefix(line, disabledPrefix))
			if text != "" {
				out.Rules = append(out.Rules, Rule{Text: text, Disabled: true})
			}
		case strings.HasPrefix(line, "!"):
			if title, ok := metaValue(line, "Title"); ok && out.Title == "" {
				out.Title = title
			}
		default:
			out.Rules = append(out.Rules, Rule{Text: line})
		}
	}
	if err := scanner.Err(); err != nil {
		return List{}, fmt.Errorf("read filter list: %w", err)
	}
	return out, nil
}

// Write emits a list with a header, an optional title, and one rule per line.
func Write(w io.Writer, list List) error {
	bw := bufio.NewWriter(w)
	header := strings.TrimSpace(list.Header)
	if header == "" {
		header = DefaultHeader
	}
	if _, err := fmt.Fprintln(bw, header); err != nil {
		return err
	}
	if title := strings.TrimSpace(list.Title); title != "" {
		if _, err := fmt.Fprintf(bw, "! Title: %s\n", title); err != nil {
			return err
		}
	}
	for _, rule := range list.Rules {
		line := rule.Text
		if rule.Disabled {
			line = disabledPrefix + rule.Text
		}
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// metaValue extracts "! Key: value" comment metadata.
func metaValue(line, key string) (string, bool) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "!"))
	name, value, ok := strings.Cut(body, ":")
	if !ok || !strings.EqualFold(strings.TrimSpace(name), key) {
		return "", false
	}
	return strings.TrimSpace(value), true
}
