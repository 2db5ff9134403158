package shortcode

import (
	"strings"
	"testing"
	"time"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
)

func TestSubstitute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		vars map[string]string
		want string
	}{
		{
			name: "subject scenario",
			body: "{{type}} – New inquiry",
			vars: map[string]string{"type": "Quote request"},
			want: "Quote request – New inquiry",
		},
		{
			name: "whitespace around key",
			body: "Hello {{  name }}!",
			vars: map[string]string{"name": "Ada"},
			want: "Hello Ada!",
		},
		{
			name: "unknown key becomes empty",
			body: "Phone: {{phone}}.",
			vars: map[string]string{},
			want: "Phone: .",
		},
		{
			name: "values are not escaped",
			body: "{{msg}}",
			vars: map[string]string{"msg": "<b>&</b>"},
			want: "<b>&</b>",
		},
		{
			name: "dollar signs are literal",
			body: "{{price}}",
			vars: map[string]string{"price": "$1 and ${2}"},
			want: "$1 and ${2}",
		},
		{
			name: "conditional markers are not tokens",
			body: "{{#IF_UNKNOWN}}x{{/IF_UNKNOWN}}",
			vars: map[string]string{"#IF_UNKNOWN": "nope"},
			want: "{{#IF_UNKNOWN}}x{{/IF_UNKNOWN}}",
		},
		{
			name: "no tokens",
			body: "plain",
			vars: map[string]string{"plain": "x"},
			want: "plain",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Substitute(tt.body, tt.vars); got != tt.want {
				t.Fatalf("Substitute() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubstituteIsNotReentrant(t *testing.T) {
	t.Parallel()

	vars := map[string]string{"a": "alpha", "b": "beta"}
	body := "{{a}} and {{ b }} and {{c}}"

	once := Substitute(body, vars)
	twice := Substitute(once, vars)
	if once != twice {
		t.Fatalf("Substitute() not stable: %q then %q", once, twice)
	}
}

func TestEscapeHTML(t *testing.T) {
	t.Parallel()

	got := EscapeHTML(`<a href="x">Tom & Jerry's</a>`)
	want := "&lt;a href=&quot;x&quot;&gt;Tom &amp; Jerry&#39;s&lt;/a&gt;"
	if got != want {
		t.Fatalf("EscapeHTML() = %q, want %q", got, want)
	}
}

func TestApplyConditionals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		ctx  Context
		want string
	}{
		{
			name: "company scenario",
			body: "{{#IF_NEW_COMPANY}}Welcome{{/IF_NEW_COMPANY}}{{#IF_EXISTING_COMPANY}}Hello again{{/IF_EXISTING_COMPANY}}",
			ctx:  Context{KeyNewCompany: true, KeyExistingCompany: false},
			want: "Welcome",
		},
		{
			name: "missing flag removes block",
			body: "a{{#IF_PEP}}pep{{/IF_PEP}}b",
			ctx:  Context{},
			want: "ab",
		},
		{
			name: "multi-line content",
			body: "{{#IF_HAS_PHONE}}\nPhone:\n{{phone}}\n{{/IF_HAS_PHONE}}",
			ctx:  Context{KeyHasPhone: true},
			want: "\nPhone:\n{{phone}}\n",
		},
		{
			name: "non-greedy global match",
			body: "{{#IF_PEP}}1{{/IF_PEP}}-{{#IF_PEP}}2{{/IF_PEP}}",
			ctx:  Context{KeyPEP: true},
			want: "1-2",
		},
		{
			name: "different tags nest",
			body: "{{#IF_NEW_COMPANY}}new{{#IF_PEP}} pep{{/IF_PEP}}{{/IF_NEW_COMPANY}}",
			ctx:  Context{KeyNewCompany: true, KeyPEP: false},
			want: "new",
		},
		{
			name: "unregistered tags untouched",
			body: "{{#IF_VIP}}vip{{/IF_VIP}}",
			ctx:  Context{"isVip": true},
			want: "{{#IF_VIP}}vip{{/IF_VIP}}",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ApplyConditionals(tt.body, tt.ctx); got != tt.want {
				t.Fatalf("ApplyConditionals() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyConditionalsIsIdempotent(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for _, c := range Registry() {
		b.WriteString("{{#IF_" + c.Tag + "}}" + c.Key + "{{/IF_" + c.Tag + "}}\n")
	}
	body := b.String()

	contexts := []Context{
		{},
		CompanyContext(CompanyProfile{NewCompany: true, PEP: true, OwnerCount: 3}),
		CompanyContext(CompanyProfile{ForeignRepresentative: true, OwnerCount: 1}),
	}

	for _, ctx := range contexts {
		once := ApplyConditionals(body, ctx)
		if twice := ApplyConditionals(once, ctx); twice != once {
			t.Fatalf("ApplyConditionals() not idempotent: %q then %q", once, twice)
		}
		if strings.Contains(once, "{{#IF_") || strings.Contains(once, "{{/IF_") {
			t.Fatalf("residual markers in %q", once)
		}
	}
}

func TestResolveRunsConditionalsBeforeTokens(t *testing.T) {
	t.Parallel()

	body := "{{#IF_HAS_PHONE}}Call {{phone}}{{/IF_HAS_PHONE}}{{injected}}"
	vars := map[string]string{
		"phone":    "123",
		"injected": "{{#IF_PEP}}leak{{/IF_PEP}}",
	}

	got := Resolve(body, Context{KeyHasPhone: true, KeyPEP: true}, vars)
	want := "Call 123{{#IF_PEP}}leak{{/IF_PEP}}"
	if got != want {
		t.Fatalf("Resolve() = %q, want %q", got, want)
	}
}

func TestCompanyContextKeepsPairsExclusive(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{KeyNewCompany, KeyExistingCompany},
		{KeyPEP, KeyNotPEP},
		{KeyForeignRep, KeyLocalRep},
		{KeySingleOwner, KeyMultipleOwners},
	}

	profiles := []CompanyProfile{
		{},
		{NewCompany: true, PEP: true, ForeignRepresentative: true, OwnerCount: 2},
		{OwnerCount: 1},
	}

	for _, p := range profiles {
		ctx := CompanyContext(p)
		for _, pair := range pairs {
			if ctx[pair[0]] == ctx[pair[1]] {
				t.Fatalf("profile %+v: %s and %s are both %v", p, pair[0], pair[1], ctx[pair[0]])
			}
		}
	}
}

func TestProfileFromFields(t *testing.T) {
	t.Parallel()

	got := ProfileFromFields(map[string]string{
		domain.FieldCompanyStatus:  " New ",
		domain.FieldPEP:            "yes",
		domain.FieldRepresentative: "foreign",
		domain.FieldOwnerCount:     "3",
	})
	want := CompanyProfile{NewCompany: true, PEP: true, ForeignRepresentative: true, OwnerCount: 3}
	if got != want {
		t.Fatalf("ProfileFromFields() = %+v, want %+v", got, want)
	}

	if got := ProfileFromFields(map[string]string{domain.FieldOwnerCount: "many"}); got.OwnerCount != 0 {
		t.Fatalf("OwnerCount = %d, want 0", got.OwnerCount)
	}
}

func TestInquiryContext(t *testing.T) {
	t.Parallel()

	ctx := InquiryContext(&domain.Inquiry{
		Fields: map[string]string{
			domain.FieldPhone:   "+49 30 1234",
			domain.FieldMessage: "  ",
		},
	})

	if !ctx[KeyHasPhone] {
		t.Fatal("hasPhone should be true")
	}
	if ctx[KeyHasMessage] {
		t.Fatal("hasMessage should be false for blank message")
	}
	if ctx[KeyHasCompany] {
		t.Fatal("hasCompany should be false")
	}
	if !ctx[KeyExistingCompany] {
		t.Fatal("isExistingCompany should default to true")
	}
}

func TestInquiryVars(t *testing.T) {
	t.Parallel()

	event := &domain.Inquiry{
		ID:   "evt-1",
		Type: "Quote request",
		Fields: map[string]string{
			domain.FieldName:    "Tom & Jerry",
			domain.FieldMessage: "line 1\nline <2>",
			"budget":            "5k",
		},
		CreatedAt: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}
	settings := domain.Settings{SiteName: "Acme"}

	raw := InquiryVars(event, settings, false)
	if raw[domain.FieldName] != "Tom & Jerry" {
		t.Fatalf("raw name = %q", raw[domain.FieldName])
	}
	if raw["budget"] != "5k" {
		t.Fatalf("free-form field missing: %q", raw["budget"])
	}
	if raw["date"] != "2026-03-01 10:30 UTC" {
		t.Fatalf("date = %q", raw["date"])
	}
	if raw["siteName"] != "Acme" || raw["id"] != "evt-1" || raw["type"] != "Quote request" {
		t.Fatalf("unexpected builtin vars: %+v", raw)
	}
	if _, ok := raw[domain.FieldPhone]; !ok {
		t.Fatal("well-known keys should always be present")
	}

	escaped := InquiryVars(event, settings, true)
	if escaped[domain.FieldName] != "Tom &amp; Jerry" {
		t.Fatalf("escaped name = %q", escaped[domain.FieldName])
	}
	if escaped[domain.FieldMessage] != "line 1<br>line &lt;2&gt;" {
		t.Fatalf("escaped message = %q", escaped[domain.FieldMessage])
	}
}
