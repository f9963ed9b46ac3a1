package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sagarc03/privatemedia"
)

// ResolveResult is what the resolve command reports for one path.
type ResolveResult struct {
	Path         string            `json:"path"`
	RelativePath string            `json:"relative_path,omitempty"`
	AbsolutePath string            `json:"absolute_path,omitempty"`
	ContentType  string            `json:"content_type,omitempty"`
	Status       string            `json:"status"`
	Headers      map[string]string `json:"headers,omitempty"`
	headerOrder  []string
	Err          error `json:"-"`
}

// Formatter formats command results for output.
type Formatter interface {
	FormatResolve(w io.Writer, results []ResolveResult) error
	FormatGrants(w io.Writer, grants []privatemedia.Grant) error
	FormatGrantChange(w io.Writer, action string, grant privatemedia.Grant) error
	FormatPresign(w io.Writer, url string) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

func (f *HumanFormatter) FormatResolve(w io.Writer, results []ResolveResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "%s: %s (%v)\n", r.Path, r.Status, r.Err)
			continue
		}

		_, _ = fmt.Fprintf(w, "%s: %s\n", r.Path, r.Status)
		if f.Quiet {
			continue
		}
		_, _ = fmt.Fprintf(w, "  file: %s\n", r.AbsolutePath)
		for _, key := range r.headerOrder {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", key, r.Headers[key])
		}
	}
	return nil
}

func (f *HumanFormatter) FormatGrants(w io.Writer, grants []privatemedia.Grant) error {
	if len(grants) == 0 {
		_, _ = fmt.Fprintln(w, "No grants found")
		return nil
	}

	maxSubjectLen := len("SUBJECT")
	for i := range grants {
		maxSubjectLen = max(maxSubjectLen, len(grants[i].Subject))
	}
	maxSubjectLen = min(maxSubjectLen, 40)

	_, _ = fmt.Fprintf(w, "%-*s  %-19s  %s\n", maxSubjectLen, "SUBJECT", "CREATED", "PREFIX")
	_, _ = fmt.Fprintf(w, "%s  %s  %s\n", strings.Repeat("-", maxSubjectLen), strings.Repeat("-", 19), strings.Repeat("-", 6))

	for i := range grants {
		g := &grants[i]
		subject := g.Subject
		if len(subject) > maxSubjectLen {
			subject = subject[:maxSubjectLen-3] + "..."
		}
		_, _ = fmt.Fprintf(w, "%-*s  %s  %s\n",
			maxSubjectLen,
			subject,
			g.CreatedAt.Format("2006-01-02 15:04:05"),
			displayPrefix(g.PathPrefix),
		)
	}

	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "\n%d grant(s)\n", len(grants))
	}
	return nil
}

func (f *HumanFormatter) FormatGrantChange(w io.Writer, action string, grant privatemedia.Grant) error {
	if f.Quiet {
		return nil
	}
	_, _ = fmt.Fprintf(w, "%s: %s -> %s\n", action, grant.Subject, displayPrefix(grant.PathPrefix))
	return nil
}

func (f *HumanFormatter) FormatPresign(w io.Writer, url string) error {
	_, _ = fmt.Fprintln(w, url)
	return nil
}

// displayPrefix shows the empty prefix, which covers every file, as "/".
func displayPrefix(prefix string) string {
	if prefix == "" {
		return "/"
	}
	return prefix
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) FormatResolve(w io.Writer, results []ResolveResult) error {
	type jsonResult struct {
		ResolveResult
		Error string `json:"error,omitempty"`
	}

	output := make([]jsonResult, len(results))
	for i := range results {
		output[i] = jsonResult{ResolveResult: results[i]}
		if results[i].Err != nil {
			output[i].Error = results[i].Err.Error()
		}
	}
	return writeJSON(w, output)
}

func (f *JSONFormatter) FormatGrants(w io.Writer, grants []privatemedia.Grant) error {
	return writeJSON(w, struct {
		Grants []privatemedia.Grant `json:"grants"`
	}{Grants: grants})
}

func (f *JSONFormatter) FormatGrantChange(w io.Writer, action string, grant privatemedia.Grant) error {
	return writeJSON(w, struct {
		Action string             `json:"action"`
		Grant  privatemedia.Grant `json:"grant"`
	}{Action: strings.ToLower(action), Grant: grant})
}

func (f *JSONFormatter) FormatPresign(w io.Writer, url string) error {
	return writeJSON(w, map[string]string{"url": url})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
