package images

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Resolver turns stored image paths into public URLs. It holds no state
// beyond its configuration and does no I/O.
type Resolver struct {
	baseURL  string
	prefix   string
	collapse *regexp.Regexp
}

// NewResolver builds a resolver for images served under urlPrefix (for
// example "/images/products/") at baseURL.
func NewResolver(baseURL, urlPrefix string) (*Resolver, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid image base url: %w", err)
	}
	segment := strings.Trim(urlPrefix, "/")
	if segment == "" {
		return nil, fmt.Errorf("image url prefix required")
	}
	return &Resolver{
		baseURL:  strings.TrimRight(baseURL, "/"),
		prefix:   "/" + segment + "/",
		collapse: regexp.MustCompile(`/+` + regexp.QuoteMeta(segment) + `/`),
	}, nil
}

// Resolve returns nil for an empty stored path.
func (r *Resolver) Resolve(storedPath string) *string {
	if strings.TrimSpace(storedPath) == "" {
		return nil
	}
	resolved := r.baseURL + r.normalize(storedPath)
	return &resolved
}

// Prefix is the normalized URL prefix images are served under.
func (r *Resolver) Prefix() string {
	return r.prefix
}

// normalize collapses duplicated slashes in front of the first images
// segment and makes sure the result has a single leading slash. Anything
// else passes through untouched.
func (r *Resolver) normalize(p string) string {
	if loc := r.collapse.FindStringIndex(p); loc != nil {
		p = p[:loc[0]] + r.prefix + p[loc[1]:]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for strings.HasPrefix(p, "//") {
		p = p[1:]
	}
	return p
}
