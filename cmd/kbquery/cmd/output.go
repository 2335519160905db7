package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/kbquery/internal/domain/search/result"
)

const previewChars = 500

var defaultShow = []string{"source_file", "priority_level"}

// fieldLabels are the header labels for well-known metadata keys.
var fieldLabels = map[string]string{
	"source_file":    "Source",
	"priority_level": "Priority",
	"topic":          "Topic",
	"employee_id":    "Employee ID",
	"role":           "Role",
	"doc_type":       "Type",
}

func label(key string) string {
	if l, ok := fieldLabels[key]; ok {
		return l
	}
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// preview returns the first previewChars runes of s.
func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewChars {
		return s
	}
	return string([]rune(s)[:previewChars])
}

// writeText prints records as numbered blocks:
//
//	Result 1 (Source: a.pdf, Priority: low)
//	<first 500 characters> ...
func writeText(w io.Writer, records []result.Record, show []string) error {
	if len(show) == 0 {
		show = defaultShow
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}
	for i := range records {
		r := &records[i]
		parts := make([]string, len(show))
		for j, key := range show {
			parts[j] = label(key) + ": " + r.Get(key)
		}
		if _, err := fmt.Fprintf(w, "\nResult %d (%s)\n%s ...\n",
			i+1, strings.Join(parts, ", "), preview(r.Content())); err != nil {
			return err
		}
	}
	return nil
}

type jsonRecord struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    *float64          `json:"score,omitempty"`
	ID       *string           `json:"id,omitempty"`
}

// writeJSON prints records as an indented JSON array.
func writeJSON(w io.Writer, records []result.Record, withScores bool) error {
	out := make([]jsonRecord, len(records))
	for i := range records {
		r := &records[i]
		out[i] = jsonRecord{Content: r.Content(), Metadata: r.Metadata()}
		if withScores {
			score, id := r.Score(), r.ID()
			out[i].Score, out[i].ID = &score, &id
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
