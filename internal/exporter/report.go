package exporter

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"supplypulse/pkg/contracts/domain"
)

// maxReportRows bounds each table in the HTML report; the workbook carries
// the complete data.
const maxReportRows = 50

// HTMLReport renders a dashboard as a standalone HTML document. The body is
// assembled as GitHub-flavoured Markdown and converted with goldmark.
type HTMLReport struct {
	md goldmark.Markdown
}

// NewHTMLReport creates a report renderer
func NewHTMLReport() *HTMLReport {
	return &HTMLReport{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithXHTML()),
		),
	}
}

// Markdown builds the report source for a dashboard
func (r *HTMLReport) Markdown(d *domain.Dashboard) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s dashboard\n\n", titleCase(string(d.Kind)))
	fmt.Fprintf(&b, "Source: `%s`  \n", d.Source)
	fmt.Fprintf(&b, "Generated: %s  \n", d.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	if !d.Filter.IsEmpty() {
		fmt.Fprintf(&b, "Filter: `%s`  \n", d.Filter.Key())
	}
	b.WriteString("\n")

	if d.Summary.Records == 0 {
		b.WriteString("> No records match the current selection.\n\n")
	}
	if d.Warnings > 0 {
		fmt.Fprintf(&b, "> %d cells could not be parsed and were replaced with defaults.\n\n", d.Warnings)
	}

	for _, t := range DashboardTables(d) {
		if t.Name == "skipped" {
			continue
		}
		writeMarkdownTable(&b, t)
	}

	if len(d.Skipped) > 0 {
		b.WriteString("## Notes\n\n")
		for _, s := range d.Skipped {
			fmt.Fprintf(&b, "- %s skipped %s: %s\n", s.Stage, escapeMarkdown(s.Item), s.Reason)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Render writes the complete HTML document
func (r *HTMLReport) Render(out io.Writer, d *domain.Dashboard) error {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(r.Markdown(d)), &body); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	title := html.EscapeString(titleCase(string(d.Kind)) + " dashboard")
	_, err := fmt.Fprintf(out, reportPage, title, body.String())
	return err
}

const reportPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 70rem; color: #1f2933; }
table { border-collapse: collapse; margin-bottom: 1.5rem; }
th, td { border: 1px solid #cbd2d9; padding: .3rem .6rem; }
th { background: #ddebf7; }
td { text-align: right; }
td:first-child { text-align: left; }
blockquote { color: #7b8794; border-left: 3px solid #cbd2d9; margin-left: 0; padding-left: 1rem; }
</style>
</head>
<body>
%s
</body>
</html>
`

func writeMarkdownTable(b *strings.Builder, t Table) {
	fmt.Fprintf(b, "## %s\n\n", t.Title)

	b.WriteString("|")
	for _, h := range t.Headers {
		b.WriteString(" " + escapeMarkdown(h) + " |")
	}
	b.WriteString("\n|")
	for range t.Headers {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")

	rows := t.TextRows()
	shown := rows
	if len(shown) > maxReportRows {
		shown = shown[:maxReportRows]
	}
	for _, row := range shown {
		b.WriteString("|")
		for _, c := range row {
			b.WriteString(" " + escapeMarkdown(c) + " |")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if len(rows) > len(shown) {
		fmt.Fprintf(b, "_%d more rows in the workbook export._\n\n", len(rows)-len(shown))
	}
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"<", "&lt;",
	">", "&gt;",
	"\n", " ",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
