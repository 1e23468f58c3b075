// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package base

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/cli"
	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"
)

// UI is a cli.Ui carrying the output format.
type UI struct {
	cli.Ui
	Format string
}

var TermWidth uint = 80

func init() {
	width, _, err := term.GetSize(int(os.Stdin.Fd()))
	if err == nil && width > 0 {
		TermWidth = uint(width)
	}
}

// Format returns the output format of ui, falling back on the
// GORMEXT_CLI_FORMAT variable and then on "table".
func Format(ui cli.Ui) string {
	if t, ok := ui.(*UI); ok && t.Format != "" {
		return t.Format
	}
	if format := os.Getenv(EnvCLIFormat); format != "" {
		return strings.ToLower(format)
	}
	return "table"
}

type JsonFormatter struct{}

func (j JsonFormatter) Format(data any) ([]byte, error) {
	return json.Marshal(data)
}

// WrapForHelpText wraps each line to the terminal width, keeping its
// indentation.
func WrapForHelpText(lines []string) string {
	var ret []string
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		trimmed := strings.TrimSpace(line)
		diff := uint(len(line) - len(trimmed))
		width := uint(20)
		if TermWidth > diff+width {
			width = TermWidth - diff
		}
		wrapped := wordwrap.WrapString(trimmed, width)
		splitWrapped := strings.Split(wrapped, "\n")
		for i := range splitWrapped {
			splitWrapped[i] = strings.Repeat(" ", int(diff)) + strings.TrimSpace(splitWrapped[i])
		}
		ret = append(ret, strings.Join(splitWrapped, "\n"))
	}
	return strings.Join(ret, "\n")
}

// WrapMap prints input as aligned "key: value" lines sorted by key.
func WrapMap(prefixSpaces int, input map[string]any) string {
	var maxKeyLength int
	sortedKeys := make([]string, 0, len(input))
	for k := range input {
		if len(k) > maxKeyLength {
			maxKeyLength = len(k)
		}
		sortedKeys = append(sortedKeys, k)
	}
	sort.Strings(sortedKeys)

	ret := make([]string, 0, len(sortedKeys))
	for _, k := range sortedKeys {
		ret = append(ret, fmt.Sprintf("%s%s: %s%v",
			strings.Repeat(" ", prefixSpaces),
			k,
			strings.Repeat(" ", maxKeyLength-len(k)),
			input[k],
		))
	}
	return strings.Join(ret, "\n")
}

// RedactUrl hides the password of a connection url.
func RedactUrl(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}
	if _, ok := u.User.Password(); !ok {
		return s
	}
	u.User = url.UserPassword(u.User.Username(), "redacted")
	return u.String()
}

// WarnWriter returns a writer printing each write as a warning of ui.
func WarnWriter(ui cli.Ui) io.Writer {
	return warnWriter{ui: ui}
}

type warnWriter struct {
	ui cli.Ui
}

func (w warnWriter) Write(p []byte) (int, error) {
	w.ui.Warn(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
