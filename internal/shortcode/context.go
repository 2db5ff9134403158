package shortcode

import (
	"strconv"
	"strings"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
)

// CompanyProfile is the company state documents and notifications branch on.
type CompanyProfile struct {
	NewCompany            bool
	PEP                   bool
	ForeignRepresentative bool
	OwnerCount            int
}

// CompanyContext derives the company flags. Each mutually exclusive pair is
// derived from a single fact so the pair can never be true at the same time.
func CompanyContext(p CompanyProfile) Context {
	multipleOwners := p.OwnerCount > 1

	return Context{
		KeyNewCompany:      p.NewCompany,
		KeyExistingCompany: !p.NewCompany,
		KeyPEP:             p.PEP,
		KeyNotPEP:          !p.PEP,
		KeyForeignRep:      p.ForeignRepresentative,
		KeyLocalRep:        !p.ForeignRepresentative,
		KeySingleOwner:     !multipleOwners,
		KeyMultipleOwners:  multipleOwners,
	}
}

// ProfileFromFields reads a CompanyProfile from free-form event fields.
func ProfileFromFields(fields map[string]string) CompanyProfile {
	get := func(key string) string {
		return strings.ToLower(strings.TrimSpace(fields[key]))
	}

	owners, err := strconv.Atoi(get(domain.FieldOwnerCount))
	if err != nil || owners < 0 {
		owners = 0
	}

	return CompanyProfile{
		NewCompany:            get(domain.FieldCompanyStatus) == "new",
		PEP:                   isTruthy(get(domain.FieldPEP)),
		ForeignRepresentative: get(domain.FieldRepresentative) == "foreign",
		OwnerCount:            owners,
	}
}

// InquiryContext builds the conditional context of an inquiry.
func InquiryContext(event *domain.Inquiry) Context {
	if event == nil {
		return CompanyContext(CompanyProfile{})
	}

	ctx := CompanyContext(ProfileFromFields(event.Fields))
	ctx[KeyHasPhone] = event.Field(domain.FieldPhone) != ""
	ctx[KeyHasMessage] = event.Field(domain.FieldMessage) != ""
	ctx[KeyHasCompany] = event.Field(domain.FieldCompany) != ""
	return ctx
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
