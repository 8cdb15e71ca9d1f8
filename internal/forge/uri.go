package forge

import (
	"net/url"
	"strings"
)

// BuildURI composes an absolute URL from a host, a path and query
// parameters. The host gets https:// when it carries no scheme, the path
// is joined with exactly one slash, query keys are emitted in sorted
// order with spaces encoded as '+', and no '?' is written when the query
// is empty.
func BuildURI(host, path string, query url.Values) string {
	base := strings.TrimRight(host, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteByte('/')
	b.WriteString(strings.TrimLeft(path, "/"))

	// url.Values.Encode sorts by key and uses QueryEscape, which encodes
	// spaces as '+'.
	if encoded := query.Encode(); encoded != "" {
		b.WriteByte('?')
		b.WriteString(encoded)
	}
	return b.String()
}

// WithQuery adds a query parameter to an existing absolute URL, keeping
// any fragment after the query.
func WithQuery(raw, key, value string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
