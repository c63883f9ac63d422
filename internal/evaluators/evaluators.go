// Package evaluators contains the scoring modules. Each evaluator is a
// stateless rule set over the parsed email record, constructed with an
// immutable config so thresholds can be overridden in tests without global
// state.
package evaluators

import (
	"net/mail"
	"strings"
)

// senderAddress extracts the bare address from a From-style header value,
// lowercased. Falls back to the trimmed raw value when the header does not
// parse as an address.
func senderAddress(from string) string {
	if from == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(from); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(strings.TrimSpace(from))
}

// addressDomain extracts the domain part of a header value that contains an
// address, stripping a trailing angle bracket.
func addressDomain(value string) string {
	if !strings.Contains(value, "@") {
		return ""
	}
	parts := strings.Split(value, "@")
	domain := parts[len(parts)-1]
	domain = strings.TrimSuffix(strings.TrimSpace(domain), ">")
	return strings.TrimSpace(domain)
}

// countKeywords returns how many of the keywords occur in text at least once.
// Text is expected to be lowercased already.
func countKeywords(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
