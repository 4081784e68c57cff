package models

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// SubjectKind represents the type of entity under evaluation
type SubjectKind string

const (
	SubjectKindApp   SubjectKind = "app"
	SubjectKindURL   SubjectKind = "url"
	SubjectKindIP    SubjectKind = "ip"
	SubjectKindPhone SubjectKind = "phone"
)

// Subject is an entity under evaluation. The identifier is normalized at
// construction time: package name for apps, normalized URL, dotted IP, or a
// cleaned E.164-style phone number. Immutable once created.
type Subject struct {
	Kind       SubjectKind `json:"kind"`
	Identifier string      `json:"identifier"`

	// Static facts that ride along with the subject and feed local
	// heuristics. Only meaningful for app subjects.
	Permissions []string `json:"permissions,omitempty"`
}

// NewSubject validates and normalizes a subject. Unparseable input is
// rejected here, before any provider call is attempted.
func NewSubject(kind SubjectKind, identifier string) (Subject, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Subject{}, fmt.Errorf("%w: empty identifier", ErrInvalidSubject)
	}

	switch kind {
	case SubjectKindApp:
		return Subject{Kind: kind, Identifier: strings.ToLower(identifier)}, nil

	case SubjectKindURL:
		normalized, err := normalizeURL(identifier)
		if err != nil {
			return Subject{}, err
		}
		return Subject{Kind: kind, Identifier: normalized}, nil

	case SubjectKindIP:
		if net.ParseIP(identifier) == nil {
			return Subject{}, fmt.Errorf("%w: %q is not a valid IP address", ErrInvalidSubject, identifier)
		}
		return Subject{Kind: kind, Identifier: identifier}, nil

	case SubjectKindPhone:
		normalized, err := normalizePhone(identifier)
		if err != nil {
			return Subject{}, err
		}
		return Subject{Kind: kind, Identifier: normalized}, nil

	default:
		return Subject{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidSubject, kind)
	}
}

// NewAppSubject creates an app subject with its requested permissions
func NewAppSubject(packageName string, permissions []string) (Subject, error) {
	subject, err := NewSubject(SubjectKindApp, packageName)
	if err != nil {
		return Subject{}, err
	}
	subject.Permissions = permissions
	return subject, nil
}

// normalizeURL lowercases the host, defaults the scheme to https and strips
// the fragment
func normalizeURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not a valid URL", ErrInvalidSubject, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported URL scheme %q", ErrInvalidSubject, u.Scheme)
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	return u.String(), nil
}

// normalizePhone strips everything except digits and a leading +, then
// sanity-checks the length (E.164 allows up to 15 digits)
func normalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, c := range raw {
		if c == '+' && i == 0 {
			b.WriteRune(c)
		} else if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}

	normalized := b.String()
	digits := strings.TrimPrefix(normalized, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return "", fmt.Errorf("%w: %q is not a valid phone number", ErrInvalidSubject, raw)
	}
	if !strings.HasPrefix(normalized, "+") {
		normalized = "+" + normalized
	}

	return normalized, nil
}
