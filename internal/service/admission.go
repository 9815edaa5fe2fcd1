package service

import (
	"strings"

	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
)

// AdmissionPolicy admits an email when the part after the last "@" is one of
// the configured domains. Subdomains are not admitted implicitly.
type AdmissionPolicy struct {
	domains map[string]struct{}
}

func NewAdmissionPolicy(domains []string) *AdmissionPolicy {
	p := &AdmissionPolicy{domains: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			p.domains[d] = struct{}{}
		}
	}
	return p
}

func (p *AdmissionPolicy) Allowed(email string) bool {
	email = normalizeEmail(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	_, ok := p.domains[email[at+1:]]
	return ok
}

func (p *AdmissionPolicy) Check(email string) error {
	if !p.Allowed(email) {
		return appErr.ErrDomainNotAllowed
	}
	return nil
}
