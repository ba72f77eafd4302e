package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/michaelssavage/spanish-worksheets/internal/worksheet"
)

// Subject is the subject line of every worksheet email.
const Subject = "Your Spanish Worksheet"

type renderSection struct {
	Number int
	Title  string
	Items  []string
}

var worksheetHTML = template.Must(template.New("worksheet").Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<h2 style="color: #2c3e50;">{{.Subject}}</h2>
{{range .Sections}}
<h3 style="color: #34495e; margin-top: 30px;">{{.Number}}. {{.Title}}</h3>
<ol style="margin-left: 20px;">
{{range .Items}}<li style="margin-bottom: 10px;">{{.}}</li>
{{end}}</ol>
{{end}}
</body>
</html>
`))

var fallbackHTML = template.Must(template.New("fallback").Parse(`<html><body><pre>{{.}}</pre></body></html>
`))

// RenderWorksheet builds the email for stored worksheet content. Sections
// follow v's order and titles; missing sections render empty. Content that
// does not parse is sent verbatim inside <pre>.
func RenderWorksheet(v worksheet.SchemaVersion, content string) (Message, error) {
	parsed, err := worksheet.ParseContent(content)
	if err != nil {
		return renderFallback(content)
	}

	sections := make([]renderSection, len(v.Sections))
	for i, s := range v.Sections {
		sections[i] = renderSection{Number: i + 1, Title: s.Title, Items: parsed.List(s.Key)}
	}

	var html bytes.Buffer
	if err := worksheetHTML.Execute(&html, struct {
		Subject  string
		Sections []renderSection
	}{Subject, sections}); err != nil {
		return Message{}, fmt.Errorf("render worksheet html: %w", err)
	}

	var text strings.Builder
	text.WriteString(Subject + "\n")
	for _, s := range sections {
		fmt.Fprintf(&text, "\n%d. %s:\n", s.Number, s.Title)
		for i, item := range s.Items {
			fmt.Fprintf(&text, "   %d. %s\n", i+1, item)
		}
	}

	return Message{Subject: Subject, Text: text.String(), HTML: html.String()}, nil
}

func renderFallback(content string) (Message, error) {
	var html bytes.Buffer
	if err := fallbackHTML.Execute(&html, content); err != nil {
		return Message{}, fmt.Errorf("render fallback html: %w", err)
	}
	return Message{Subject: Subject, Text: content, HTML: html.String()}, nil
}

// TestMessage is the smoke-test email sent by "hojas test-email".
func TestMessage(to []string) Message {
	return Message{
		To:      to,
		Subject: "Hello from Spanish Worksheets",
		Text:    "This is a test email from Spanish Worksheets. If you can read this, mail delivery works.",
	}
}
