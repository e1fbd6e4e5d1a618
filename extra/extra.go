// Package extra carries provider-specific request additions that a typed chat request
// cannot express: HTTP headers, URL query parameters and top-level JSON body fields.
//
// Parameters is a plain value. Apply decorates an *http.Request in memory; sending it
// is the caller's business.
package extra

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/bytedance/sonic"
)

// ErrInvalidParameter is returned for an empty key or a nil body value.
var ErrInvalidParameter = errors.New("invalid extra parameter")

var bodyCodec = sonic.Config{
	EscapeHTML:  true,
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

// Parameters holds extra headers, query parameters and body fields. The zero value is
// empty and ready to use. Not safe for concurrent mutation.
type Parameters struct {
	headers map[string]string
	query   map[string]string
	body    map[string]any
}

// New returns empty Parameters.
func New() *Parameters { return &Parameters{} }

// SetHeader sets header key to value. Empty values are allowed; an empty key is not.
func (p *Parameters) SetHeader(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: header key must not be empty", ErrInvalidParameter)
	}
	if p.headers == nil {
		p.headers = make(map[string]string)
	}
	p.headers[key] = value
	return nil
}

// SetQuery sets query parameter key to value.
func (p *Parameters) SetQuery(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: query parameter key must not be empty", ErrInvalidParameter)
	}
	if p.query == nil {
		p.query = make(map[string]string)
	}
	p.query[key] = value
	return nil
}

// SetBody sets top-level body field key to value. value must be JSON-encodable and non-nil.
func (p *Parameters) SetBody(key string, value any) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: body field key must not be empty", ErrInvalidParameter)
	}
	if value == nil {
		return fmt.Errorf("%w: body field %q must not be nil", ErrInvalidParameter, key)
	}
	if p.body == nil {
		p.body = make(map[string]any)
	}
	p.body[key] = value
	return nil
}

// Headers returns a copy of the headers.
func (p *Parameters) Headers() map[string]string { return cloneOrEmpty(p.headers) }

// Query returns a copy of the query parameters.
func (p *Parameters) Query() map[string]string { return cloneOrEmpty(p.query) }

// Body returns a copy of the body fields. Values are shared.
func (p *Parameters) Body() map[string]any { return cloneOrEmpty(p.body) }

// Copy returns an independent copy; later changes to either side do not affect the other.
func (p *Parameters) Copy() *Parameters {
	if p == nil {
		return New()
	}
	return &Parameters{
		headers: maps.Clone(p.headers),
		query:   maps.Clone(p.query),
		body:    maps.Clone(p.body),
	}
}

// IsEmpty reports whether no header, query parameter or body field is set. Nil is empty.
func (p *Parameters) IsEmpty() bool {
	return p == nil || len(p.headers) == 0 && len(p.query) == 0 && len(p.body) == 0
}

func (p *Parameters) String() string {
	return fmt.Sprintf("Parameters{headers=%s, query=%s, body=%s}",
		formatSorted(p.headers), formatSorted(p.query), formatSorted(p.body))
}

// Apply sets the headers on req, adds the query parameters to its URL and merges the
// body fields into its JSON object body. Body fields win over fields already present.
// A request without a body gets one holding only the extra fields.
func (p *Parameters) Apply(req *http.Request) error {
	if req == nil {
		return fmt.Errorf("%w: request must not be nil", ErrInvalidParameter)
	}
	if p.IsEmpty() {
		return nil
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	if len(p.query) > 0 && req.URL != nil {
		q := req.URL.Query()
		for k, v := range p.query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	if len(p.body) == 0 {
		return nil
	}
	var payload []byte
	if req.Body != nil && req.Body != http.NoBody {
		data, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return fmt.Errorf("read request body: %w", err)
		}
		payload = data
	}
	merged, err := p.MergeBody(payload)
	if err != nil {
		return err
	}
	req.Body = io.NopCloser(bytes.NewReader(merged))
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(merged)), nil }
	req.ContentLength = int64(len(merged))
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return nil
}

// MergeBody merges the body fields into payload, which must be empty or a JSON object.
func (p *Parameters) MergeBody(payload []byte) ([]byte, error) {
	obj := map[string]any{}
	if len(bytes.TrimSpace(payload)) > 0 {
		if err := bodyCodec.Unmarshal(payload, &obj); err != nil {
			return nil, fmt.Errorf("request body is not a JSON object: %w", err)
		}
		if obj == nil {
			obj = map[string]any{}
		}
	}
	if p != nil {
		maps.Copy(obj, p.body)
	}
	out, err := bodyCodec.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return out, nil
}

func cloneOrEmpty[V any](m map[string]V) map[string]V {
	if m == nil {
		return map[string]V{}
	}
	return maps.Clone(m)
}

func formatSorted[V any](m map[string]V) string {
	keys := slices.Sorted(maps.Keys(m))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, m[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
