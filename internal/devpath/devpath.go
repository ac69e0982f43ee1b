// Package devpath implements the canonical physical-path string grammar used
// throughout the topology engine: validation, splitting into (path, ns,
// text), and canonical joining.
//
// Grammar: `/phys(/SEG)*[:NS:TEXT]` where SEG matches `[0-9a-zA-Z-_@]+`,
// NS is one of "connector" or "device", and TEXT matches a namespace-specific
// pattern.
package devpath

import (
	"fmt"
	"regexp"
	"strings"
)

// Namespace is the optional suffix kind on a devpath.
type Namespace string

const (
	// NamespaceNone marks a devpath with no suffix -- a plugin path.
	NamespaceNone Namespace = ""
	// NamespaceConnector marks a `:connector:NAME` suffix.
	NamespaceConnector Namespace = "connector"
	// NamespaceDevice marks a `:device:NAME` suffix.
	NamespaceDevice Namespace = "device"
)

var (
	segmentRe  = regexp.MustCompile(`^[0-9a-zA-Z\-_@]+$`)
	pathRe     = regexp.MustCompile(`^/phys(/[0-9a-zA-Z\-_@]+)*$`)
	connTextRe = regexp.MustCompile(`^[0-9a-zA-Z\-_@]+$`)
	devTextRe  = regexp.MustCompile(`^[0-9a-zA-Z\-_@.]+(:[0-9a-zA-Z\-_@.]+)*$`)
)

// ErrInvalidFormat is returned, unwrapped, whenever a devpath string fails to
// parse. It is never returned for inputs that IsValid reports true for.
type ErrInvalidFormat struct {
	Input string
}

func (e *ErrInvalidFormat) Error() string {
	return fmt.Sprintf("devpath: invalid format: %q", e.Input)
}

// IsValid reports whether s is a well-formed devpath string.
func IsValid(s string) bool {
	_, _, _, err := Components(s)
	return err == nil
}

// Components splits s into its path, namespace, and text parts. It returns
// an *ErrInvalidFormat error (never panics) when s is malformed.
func Components(s string) (path string, ns Namespace, text string, err error) {
	parts := strings.SplitN(s, ":", 3)

	for _, p := range parts {
		if p == "" {
			return "", "", "", &ErrInvalidFormat{Input: s}
		}
	}

	switch len(parts) {
	case 1:
		if !pathRe.MatchString(parts[0]) {
			return "", "", "", &ErrInvalidFormat{Input: s}
		}
		return parts[0], NamespaceNone, "", nil

	case 3:
		if !pathRe.MatchString(parts[0]) {
			return "", "", "", &ErrInvalidFormat{Input: s}
		}

		switch Namespace(parts[1]) {
		case NamespaceConnector:
			if !connTextRe.MatchString(parts[2]) {
				return "", "", "", &ErrInvalidFormat{Input: s}
			}
		case NamespaceDevice:
			if !devTextRe.MatchString(parts[2]) {
				return "", "", "", &ErrInvalidFormat{Input: s}
			}
		default:
			return "", "", "", &ErrInvalidFormat{Input: s}
		}

		return parts[0], Namespace(parts[1]), parts[2], nil

	default:
		// Exactly one colon (len == 2): neither a bare plugin path nor a
		// complete ns:text suffix. Always malformed.
		return "", "", "", &ErrInvalidFormat{Input: s}
	}
}

// Join assembles a canonical devpath string from its parts. ns == "" yields
// the bare plugin path.
func Join(path string, ns Namespace, text string) string {
	if ns == NamespaceNone {
		return path
	}
	return path + ":" + string(ns) + ":" + text
}

// Plugin returns the path component of s, discarding any ns:text suffix. It
// does not validate s; callers that need validation should call IsValid or
// Components first.
func Plugin(s string) string {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}

// Segments splits a plugin path into its slash-separated segments,
// excluding the leading "phys" root segment. "/phys" returns an empty
// slice; "/phys/A/B" returns ["A", "B"].
func Segments(path string) []string {
	trimmed := strings.TrimPrefix(path, "/phys")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Depth returns the number of segments below "/phys" in path.
func Depth(path string) int {
	return len(Segments(path))
}

// Less implements the total order: lexicographic on path,
// tie-broken by (ns, text).
func Less(a, b string) bool {
	ap, ans, atext, aerr := Components(a)
	bp, bns, btext, berr := Components(b)
	if aerr != nil || berr != nil {
		return a < b
	}
	if ap != bp {
		return ap < bp
	}
	if ans != bns {
		return ans < bns
	}
	return atext < btext
}
