package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	// PrettyLayout is the label layout shown on keyboards: 05.09.2020 17:30.
	PrettyLayout = "02.01.2006 15:04"
	// StoreLayout is the fixed-width text layout of games.date_time.
	StoreLayout = "2006-01-02 15:04:05"
	DayLayout   = "2006-01-02"
)

func MakeDateTimePretty(t time.Time) string {
	return t.Format(PrettyLayout)
}

// ParsePretty reads a PrettyLayout label in loc.
func ParsePretty(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(PrettyLayout, strings.TrimSpace(s), loc)
}

func FormatStore(t time.Time) string {
	return t.Format(StoreLayout)
}

func ParseStore(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(StoreLayout, s, loc)
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func HMACSHA256Hex(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// HMACEqual compares two hex digests in constant time.
func HMACEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
