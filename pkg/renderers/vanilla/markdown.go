package vanilla

import (
	"strings"
	"sync"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var (
	descriptionPolicyOnce sync.Once
	descriptionPolicy     *bluemonday.Policy
)

func sanitizer() *bluemonday.Policy {
	descriptionPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.RequireNoFollowOnLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
		descriptionPolicy = policy
	})
	return descriptionPolicy
}

// DescriptionHTML converts a Markdown field description into sanitised HTML.
// Single paragraphs are unwrapped so short hints stay inline.
func DescriptionHTML(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.SkipHTML})
	rendered := string(markdown.ToHTML([]byte(source), p, renderer))
	clean := strings.TrimSpace(sanitizer().Sanitize(rendered))

	if strings.HasPrefix(clean, "<p>") && strings.HasSuffix(clean, "</p>") && strings.Count(clean, "<p>") == 1 {
		clean = strings.TrimSuffix(strings.TrimPrefix(clean, "<p>"), "</p>")
	}
	return clean
}
