package common

import (
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

const (
	EMPTY    = ""
	NA       = "N/A"
	DateFmt  = "2006-01-02"
	TimeFmt  = "2006-01-02 15:04:05"
	Date8Fmt = "20060102"
)

var (
	snowNode *snowflake.Node
	snowOnce sync.Once
)

// UUID returns a random uuid string.
func UUID() string {
	return uuid.New().String()
}

// UUIDint64 returns a snowflake id, unique within the process node.
func UUIDint64() int64 {
	snowOnce.Do(func() {
		node, err := snowflake.NewNode(time.Now().UnixNano() % 1024)
		if err != nil {
			panic(err)
		}
		snowNode = node
	})
	return snowNode.Generate().Int64()
}

// Digits keeps only 0-9 from s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LastDigits returns the trailing n digits of s, or all digits when fewer.
func LastDigits(s string, n int) string {
	d := Digits(s)
	if len(d) <= n {
		return d
	}
	return d[len(d)-n:]
}

func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

func IfEmptyStr(s string, def string) string {
	if IsEmpty(s) {
		return def
	}
	return s
}

// StartOfDay returns local midnight of t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IntlDigits returns phone as international digits. Numbers without a
// leading '+' get countryCode prepended.
func IntlDigits(phone, countryCode string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "+") {
		return Digits(phone)
	}
	return Digits(countryCode) + Digits(phone)
}
