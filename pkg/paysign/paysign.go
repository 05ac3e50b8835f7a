package paysign

import (
	"crypto/md5"
	"crypto/subtle"
	"fmt"
	"sort"
	"strings"
)

// SignField is the parameter name that carries the signature itself and is
// always excluded from the signing base string.
const SignField = "sign"

// Sign computes the gateway signature over params using the shared secret.
// Empty values and the signature field are dropped, the remaining pairs are
// sorted lexicographically by key and joined as k1=v1&k2=v2, the secret is
// appended as &key={secret}, and the MD5 digest is upper-cased. The gateway
// expects this byte-for-byte, so none of the steps are negotiable.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == SignField || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}
	sb.WriteString("&key=")
	sb.WriteString(secret)

	digest := md5.Sum([]byte(sb.String()))
	return strings.ToUpper(fmt.Sprintf("%x", digest))
}

// Verify recomputes the signature and compares it to the provided value in
// constant time.
func Verify(params map[string]string, secret, signature string) bool {
	if signature == "" {
		return false
	}
	expected := Sign(params, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToUpper(signature))) == 1
}
