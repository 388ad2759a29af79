// Package render turns message markdown into display output: sanitized HTML
// for the web API and styled text for the terminal client.
package render

import (
	"bytes"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/jwgpt/jwgpt/internal/model"
	"github.com/jwgpt/jwgpt/internal/searchlink"
)

// Theme class names applied to rendered elements.
const (
	ClassLink      = "chat-link"
	ClassHeading   = "chat-heading"
	ClassParagraph = "chat-paragraph"
	ClassList      = "chat-list"
)

var themeClass = regexp.MustCompile(`^chat-[a-z]+$`)

// HTML renders markdown to sanitized HTML.
type HTML struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewHTML creates an HTML renderer with GitHub flavoured markdown.
func NewHTML() *HTML {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(util.Prioritized(themeTransformer{}, 100)),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(themeClass).OnElements("a", "h1", "h2", "h3", "h4", "h5", "h6", "p", "ul", "ol")
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnFullyQualifiedLinks(true)

	return &HTML{md: md, policy: policy}
}

// Render converts markdown to HTML. Raw HTML in the source is escaped by the
// markdown renderer and anything unsafe left over is stripped.
func (h *HTML) Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return h.policy.Sanitize(buf.String()), nil
}

// View prepares a message for display. Search links are derived from the
// content on every call and never stored.
func (h *HTML) View(msg model.Message) model.MessageView {
	html, err := h.Render(msg.Content)
	if err != nil {
		html = h.policy.Sanitize(msg.Content)
	}
	return model.MessageView{
		Message:     msg,
		HTML:        html,
		SearchLinks: searchlink.ExtractSearchLinks(msg.Content),
	}
}

// Views renders every message in order.
func (h *HTML) Views(msgs []model.Message) []model.MessageView {
	views := make([]model.MessageView, len(msgs))
	for i, msg := range msgs {
		views[i] = h.View(msg)
	}
	return views
}

type themeTransformer struct{}

func (themeTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindLink, ast.KindAutoLink:
			n.SetAttributeString("class", []byte(ClassLink))
		case ast.KindHeading:
			n.SetAttributeString("class", []byte(ClassHeading))
		case ast.KindParagraph:
			n.SetAttributeString("class", []byte(ClassParagraph))
		case ast.KindList:
			n.SetAttributeString("class", []byte(ClassList))
		}
		return ast.WalkContinue, nil
	})
}
