package domain

import (
	"net/mail"
	"strings"
)

// ParseAddress splits a raw From/To header into display name and
// lowercased address. Malformed headers degrade to a bare lowercased
// string so a bad sender never aborts a sync run.
func ParseAddress(raw string) (name, email string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", strings.ToLower(strings.Trim(raw, "<> "))
	}
	return addr.Name, strings.ToLower(addr.Address)
}
