// Package envpath recomputes the process's view of installation-dependent
// lookup state. It re-reads machine- and user-scoped environment definition
// files and merges them over the current environment so a newly-installed
// executable becomes discoverable without a session restart. Resolution is
// a pure query: nothing here mutates the ambient process environment.
package envpath

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/conn-castle/pkgboot/internal/messages"
)

// ParseDefinitions reads KEY=value environment definition content.
// Blank lines and # comments are skipped; an optional "export " prefix and
// single- or double-quoted values are accepted.
func ParseDefinitions(content string) (map[string]string, error) {
	defs := make(map[string]string)
	if content == "" {
		return defs, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		key, value, ok, err := parseDefinitionLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if ok {
			defs[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

// parseDefinitionLine parses one definition line, reporting presence via ok.
func parseDefinitionLine(line string) (key string, value string, ok bool, err error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false, nil
	}
	trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "export "))

	idx := strings.Index(trimmed, "=")
	if idx <= 0 {
		return "", "", false, errors.New(messages.EnvExpectedKeyValue)
	}
	key = strings.TrimSpace(trimmed[:idx])
	if key == "" {
		return "", "", false, errors.New(messages.EnvExpectedKeyValue)
	}
	value = strings.TrimSpace(trimmed[idx+1:])
	if len(value) > 0 && (value[0] == '"' || value[0] == '\'') {
		value, err = unquoteValue(value)
		if err != nil {
			return "", "", false, err
		}
	}
	return key, value, true, nil
}

// unquoteValue strips a quoted value, honoring backslash escapes inside
// double quotes. Trailing content after the closing quote must be blank or
// a comment.
func unquoteValue(raw string) (string, error) {
	quote := raw[0]
	var b strings.Builder
	i := 1
	for ; i < len(raw); i++ {
		c := raw[i]
		if quote == '"' && c == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(raw[i])
			}
			continue
		}
		if c == quote {
			rest := strings.TrimSpace(raw[i+1:])
			if rest != "" && !strings.HasPrefix(rest, "#") {
				return "", errors.New(messages.EnvInvalidQuoteSuffix)
			}
			return b.String(), nil
		}
		b.WriteByte(c)
	}
	return "", errors.New(messages.EnvUnterminatedQuote)
}
