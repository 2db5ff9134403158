package shortcode

import (
	"fmt"
	"regexp"
	"strings"
)

// Context holds the named booleans conditional blocks are evaluated against.
type Context map[string]bool

// Conditional binds a template tag to the context key that controls it.
type Conditional struct {
	Tag string
	Key string
}

// Context keys.
const (
	KeyNewCompany      = "isNewCompany"
	KeyExistingCompany = "isExistingCompany"
	KeyPEP             = "isPep"
	KeyNotPEP          = "isNotPep"
	KeyForeignRep      = "isForeignRep"
	KeyLocalRep        = "isLocalRep"
	KeySingleOwner     = "hasSingleOwner"
	KeyMultipleOwners  = "hasMultipleOwners"
	KeyHasPhone        = "hasPhone"
	KeyHasMessage      = "hasMessage"
	KeyHasCompany      = "hasCompany"
)

var registry = []Conditional{
	{Tag: "NEW_COMPANY", Key: KeyNewCompany},
	{Tag: "EXISTING_COMPANY", Key: KeyExistingCompany},
	{Tag: "PEP", Key: KeyPEP},
	{Tag: "NOT_PEP", Key: KeyNotPEP},
	{Tag: "FOREIGN_REP", Key: KeyForeignRep},
	{Tag: "LOCAL_REP", Key: KeyLocalRep},
	{Tag: "SINGLE_OWNER", Key: KeySingleOwner},
	{Tag: "MULTIPLE_OWNERS", Key: KeyMultipleOwners},
	{Tag: "HAS_PHONE", Key: KeyHasPhone},
	{Tag: "HAS_MESSAGE", Key: KeyHasMessage},
	{Tag: "HAS_COMPANY", Key: KeyHasCompany},
}

type compiledConditional struct {
	Conditional
	pattern *regexp.Regexp
}

var compiledRegistry = compileRegistry(registry)

func compileRegistry(conditionals []Conditional) []compiledConditional {
	compiled := make([]compiledConditional, 0, len(conditionals))
	for _, c := range conditionals {
		expr := fmt.Sprintf(`(?s)\{\{#IF_%s\}\}(.*?)\{\{/IF_%s\}\}`, regexp.QuoteMeta(c.Tag), regexp.QuoteMeta(c.Tag))
		compiled = append(compiled, compiledConditional{
			Conditional: c,
			pattern:     regexp.MustCompile(expr),
		})
	}
	return compiled
}

// Registry returns the registered conditionals in processing order.
func Registry() []Conditional {
	out := make([]Conditional, len(registry))
	copy(out, registry)
	return out
}

// ApplyConditionals resolves every registered {{#IF_TAG}}...{{/IF_TAG}} block.
// Blocks whose flag is true are replaced by their content, all others are
// removed. Missing flags count as false. Unregistered tags are left untouched.
func ApplyConditionals(body string, ctx Context) string {
	if !strings.Contains(body, "{{#IF_") {
		return body
	}

	for _, c := range compiledRegistry {
		keep := ctx[c.Key]
		body = c.pattern.ReplaceAllStringFunc(body, func(match string) string {
			if !keep {
				return ""
			}
			return c.pattern.FindStringSubmatch(match)[1]
		})
	}
	return body
}
