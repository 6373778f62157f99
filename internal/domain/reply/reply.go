// Package reply interprets the opaque bodies returned by the SMS gateway for
// display purposes. The gateway adapter never calls it: callers that want
// structure parse the body they were handed.
package reply

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Format names the shape a reply body was recognised as.
type Format string

const (
	FormatEmpty Format = "empty"
	FormatJSON  Format = "json"
	FormatForm  Format = "form"
	FormatCode  Format = "code"
	FormatText  Format = "text"
)

// Reply is a best-effort reading of a gateway body. Raw always holds the body
// exactly as received.
type Reply struct {
	Raw     string            `json:"-"`
	Format  Format            `json:"format"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Balance string            `json:"balance,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Field names tried, in order, when lifting well-known values out of JSON and
// form bodies.
var (
	codeKeys    = []string{"code", "status", "result", "error_code", "ErrorCode"}
	messageKeys = []string{"message", "msg", "description", "error", "Message"}
	balanceKeys = []string{"balance", "credit", "points", "data.balance", "data.credit"}
)

// codeLine matches "<code>", "<code>: text", "<code> - text", "<code>|text"
// and "<code> text". The code must end at a separator, whitespace or the end
// of the body, so dates and tokens such as "123abc" stay text.
var codeLine = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)(?:$|\s*[:|]\s*|\s+-\s*|\s+)(.*)$`)

// Parse reads body. It never fails; unrecognised bodies become FormatText.
func Parse(body string) Reply {
	r := Reply{Raw: body}
	trimmed := strings.TrimSpace(body)

	switch {
	case trimmed == "":
		r.Format = FormatEmpty
	case strings.HasPrefix(trimmed, "{") && gjson.Valid(trimmed):
		parseJSON(&r, trimmed)
	case looksLikeForm(trimmed):
		parseForm(&r, trimmed)
	case codeLine.MatchString(trimmed):
		m := codeLine.FindStringSubmatch(trimmed)
		r.Format = FormatCode
		r.Code = m[1]
		r.Message = strings.TrimSpace(m[2])
	default:
		r.Format = FormatText
		r.Message = trimmed
	}

	return r
}

func parseJSON(r *Reply, body string) {
	r.Format = FormatJSON
	r.Fields = map[string]string{}

	doc := gjson.Parse(body)
	doc.ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() || value.IsArray() {
			return true
		}
		r.Fields[key.String()] = value.String()
		return true
	})

	r.Code = firstJSON(doc, codeKeys)
	r.Message = firstJSON(doc, messageKeys)
	r.Balance = firstJSON(doc, balanceKeys)
}

func firstJSON(doc gjson.Result, paths []string) string {
	for _, p := range paths {
		if v := doc.Get(p); v.Exists() && !v.IsObject() && !v.IsArray() {
			return v.String()
		}
	}
	return ""
}

// looksLikeForm reports whether body is a k=v&k2=v2 sequence with plain keys.
func looksLikeForm(body string) bool {
	if !strings.Contains(body, "=") || strings.ContainsAny(body, "\n ") {
		return false
	}
	for _, pair := range strings.Split(body, "&") {
		k, _, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return false
		}
	}
	return true
}

func parseForm(r *Reply, body string) {
	values, err := url.ParseQuery(body)
	if err != nil {
		r.Format = FormatText
		r.Message = body
		return
	}

	r.Format = FormatForm
	r.Fields = make(map[string]string, len(values))
	for k := range values {
		r.Fields[k] = values.Get(k)
	}

	r.Code = firstField(r.Fields, codeKeys)
	r.Message = firstField(r.Fields, messageKeys)
	r.Balance = firstField(r.Fields, balanceKeys)
}

func firstField(fields map[string]string, keys []string) string {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v
		}
	}
	return ""
}
