package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"reelvault/internal/catalog"
)

// statusKind tags a status line. Stale and unmirrored are warnings specific
// to vault records.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
	statusStale
	statusUnmirrored
)

const (
	statusLabelWidth = 17
	statusIndent     = "  "
)

var statusKindStyles = map[statusKind]struct {
	label  string
	colors text.Colors
}{
	statusInfo:       {"INFO", text.Colors{text.FgBlue}},
	statusOK:         {"OK", text.Colors{text.FgGreen}},
	statusWarn:       {"WARN", text.Colors{text.FgYellow}},
	statusError:      {"ERROR", text.Colors{text.FgRed}},
	statusStale:      {"STALE", text.Colors{text.FgMagenta}},
	statusUnmirrored: {"NO VAULT", text.Colors{text.FgYellow}},
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style, ok := statusKindStyles[kind]
	if !ok {
		style = statusKindStyles[statusInfo]
	}
	statusText := "[" + style.label + "]"
	if message != "" {
		statusText += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		return style.colors.Sprint(line)
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		header := text.Colors{text.FgBlue, text.Bold}
		line = header.Sprint(line)
		rule = header.Sprint(rule)
	}
	return []string{line, rule}
}

// handleKind reports whether a record's handle can be served.
func handleKind(rec *catalog.Record) statusKind {
	if rec.NeedsRefresh {
		return statusStale
	}
	return statusOK
}

// vaultKind reports whether a record has an archive anchor.
func vaultKind(rec *catalog.Record) statusKind {
	if rec.Mirrored() {
		return statusOK
	}
	return statusUnmirrored
}

// countKind is OK for a zero count and kind otherwise.
func countKind(count int, kind statusKind) statusKind {
	if count == 0 {
		return statusOK
	}
	return kind
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
