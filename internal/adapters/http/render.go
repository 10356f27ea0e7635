package web

import (
	"html/template"
	"log/slog"
	"strings"

	"signup/internal/application/view"
)

// renderableTags is the closed set of elements the page renderer emits.
var renderableTags = map[string]bool{
	view.TagDiv:    true,
	view.TagH4:     true,
	view.TagH5:     true,
	view.TagP:      true,
	view.TagStrong: true,
	view.TagEm:     true,
	view.TagUL:     true,
	view.TagLI:     true,
	view.TagSpan:   true,
	view.TagButton: true,
}

// renderChildren renders the children of n. Every text and attribute value is escaped;
// removal controls become small forms posting their control ID to /unregister.
func renderChildren(n *view.Node, csrfField template.HTML) template.HTML {
	if n == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range n.Children {
		renderNode(&b, c, csrfField)
	}
	return template.HTML(b.String())
}

func renderNode(b *strings.Builder, n *view.Node, csrfField template.HTML) {
	if n.Tag == view.TagText {
		b.WriteString(template.HTMLEscapeString(n.Text))
		return
	}
	if !renderableTags[n.Tag] {
		slog.Warn("render_unknown_tag", "tag", n.Tag)
		return
	}

	if n.Tag == view.TagButton && n.Control != "" {
		b.WriteString(`<form method="post" action="/unregister" class="remove-form">`)
		b.WriteString(string(csrfField))
		b.WriteString(`<input type="hidden" name="control" value="`)
		b.WriteString(template.HTMLEscapeString(n.Control))
		b.WriteString(`">`)
		writeOpen(b, n, ` type="submit"`)
		b.WriteString(template.HTMLEscapeString(n.Text))
		b.WriteString("</button></form>")
		return
	}

	writeOpen(b, n, "")
	b.WriteString(template.HTMLEscapeString(n.Text))
	for _, c := range n.Children {
		renderNode(b, c, csrfField)
	}
	b.WriteString("</" + n.Tag + ">")
}

func writeOpen(b *strings.Builder, n *view.Node, extra string) {
	b.WriteString("<" + n.Tag)
	if n.Class != "" {
		b.WriteString(` class="` + template.HTMLEscapeString(n.Class) + `"`)
	}
	for _, a := range n.Data {
		b.WriteString(` data-` + template.HTMLEscapeString(a.Name) + `="` + template.HTMLEscapeString(a.Value) + `"`)
	}
	b.WriteString(extra)
	b.WriteString(">")
}
