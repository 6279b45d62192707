// Package signature implements the MD5 parameter signing used by the payment
// gateway for both outbound submit requests and inbound notifications.
//
// The gateway documentation is ambiguous about how the secret is appended, so
// two schemes exist. Outbound requests are signed with the configured scheme;
// inbound notifications are accepted when they match either one. Keep both
// until the gateway's real scheme is confirmed out of band.
package signature

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Reserved keys carry the signature itself and are never signed.
const (
	KeySign     = "sign"
	KeySignType = "sign_type"

	// SignTypeMD5 is the only sign_type value the gateway accepts.
	SignTypeMD5 = "MD5"
)

type Scheme int

const (
	// SchemeAppend signs md5(canonical + key).
	SchemeAppend Scheme = iota
	// SchemeAmpersandKey signs md5(canonical + "&key=" + key).
	SchemeAmpersandKey
)

var allSchemes = []Scheme{SchemeAppend, SchemeAmpersandKey}

func (s Scheme) String() string {
	switch s {
	case SchemeAppend:
		return "append"
	case SchemeAmpersandKey:
		return "ampersand_key"
	default:
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
}

// ParseScheme maps a SIGN_MODE value to a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", "append":
		return SchemeAppend, nil
	case "ampersand_key":
		return SchemeAmpersandKey, nil
	default:
		return SchemeAppend, fmt.Errorf("unknown signature scheme %q", s)
	}
}

// Params is a flat parameter set as sent to or received from the gateway.
type Params map[string]string

// Canonicalize drops empty values and reserved keys, sorts the remaining keys
// byte-wise and joins them as key=value pairs with '&'. Values are not escaped.
func Canonicalize(p Params) string {
	keys := make([]string, 0, len(p))
	for k, v := range p {
		if v == "" || k == KeySign || k == KeySignType {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p[k])
	}
	return b.String()
}

// Compute hashes an already canonical string under the given scheme and
// returns lowercase hex.
func Compute(canonical, key string, scheme Scheme) string {
	var input string
	switch scheme {
	case SchemeAmpersandKey:
		input = canonical + "&key=" + key
	default:
		input = canonical + key
	}
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}

// Normalize trims whitespace and lowercases a received signature.
func Normalize(sign string) string {
	return strings.ToLower(strings.TrimSpace(sign))
}

// Engine binds the shared secret and the outbound scheme.
type Engine struct {
	key    string
	scheme Scheme
}

func NewEngine(key string, scheme Scheme) *Engine {
	return &Engine{key: key, scheme: scheme}
}

func (e *Engine) Scheme() Scheme {
	return e.scheme
}

// Sign returns the outbound signature for p under the configured scheme.
func (e *Engine) Sign(p Params) string {
	return Compute(Canonicalize(p), e.key, e.scheme)
}

// Candidates returns the signature of p under every known scheme.
func (e *Engine) Candidates(p Params) map[Scheme]string {
	canonical := Canonicalize(p)
	out := make(map[Scheme]string, len(allSchemes))
	for _, s := range allSchemes {
		out[s] = Compute(canonical, e.key, s)
	}
	return out
}

// Match reports, per scheme, whether received equals that scheme's signature
// of p. received is normalized first.
func (e *Engine) Match(p Params, received string) map[Scheme]bool {
	got := Normalize(received)
	out := make(map[Scheme]bool, len(allSchemes))
	for s, want := range e.Candidates(p) {
		out[s] = got != "" && got == want
	}
	return out
}

// Verify accepts received if it matches any scheme. The matching scheme is
// returned for logging.
func (e *Engine) Verify(p Params, received string) (Scheme, bool) {
	matches := e.Match(p, received)
	for _, s := range allSchemes {
		if matches[s] {
			return s, true
		}
	}
	return e.scheme, false
}
