package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// sign computes the hex-encoded HMAC-SHA256 of the query string with the
// secret key. Every authenticated endpoint requires it.
func sign(secretKey, queryString string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(queryString))
	return hex.EncodeToString(mac.Sum(nil))
}

// param is an ordered query parameter. Order matters: the signature covers
// the exact byte sequence sent on the wire, so url.Values map iteration
// cannot be used here.
type param struct {
	key   string
	value string
}

// buildSignedQuery appends the timestamp and signature to the ordered
// params and returns the final query string.
func buildSignedQuery(params []param, secretKey string, now time.Time) string {
	query := ""
	for i, p := range params {
		if i > 0 {
			query += "&"
		}
		query += fmt.Sprintf("%s=%s", p.key, url.QueryEscape(p.value))
	}
	if query != "" {
		query += "&"
	}
	query += "timestamp=" + strconv.FormatInt(now.UnixMilli(), 10)

	return query + "&signature=" + sign(secretKey, query)
}
