// Package legacy talks to PRMS, the legacy ERP, over a row-oriented SQL
// connection (ODBC in production). It reads POs waiting for approval, claims
// them, and writes approval outcomes back.
//
// PRMS stores dates as YYMMDD integers and times as HHMMSS integers, always
// in UTC.
//
// Import Path: github.com/ppockey/po-approvals/internal/legacy
package legacy

import (
	"strings"
	"time"
	"unicode"
)

// Field widths of the PRMS columns written here.
const (
	maxAuditPO       = 10 // INPVP500.P5PURCH
	maxAuditApprover = 10 // INPVP500.P5APRV
	maxTriggerPO     = 20 // INPTP500.P6PURCH
	bracketScale     = 4  // INPVP500.P5BRK DEC(19,4)
)

// SystemApprover is the approver id written when no user can be derived.
const SystemApprover = "SYSTEM"

// EncodeDate returns t in UTC as a YYMMDD integer.
func EncodeDate(t time.Time) int {
	t = t.UTC()
	return (t.Year()%100)*10000 + int(t.Month())*100 + t.Day()
}

// EncodeTime returns t in UTC as an HHMMSS integer.
func EncodeTime(t time.Time) int {
	t = t.UTC()
	return t.Hour()*10000 + t.Minute()*100 + t.Second()
}

// DecodeYMD turns PRMS split date columns into a UTC date. Two-digit years
// 0-69 are 20xx, everything else 19xx. Month and day are clamped into range.
// A clamped day that does not exist in its month (Feb 30) reports false.
func DecodeYMD(yy, mm, dd int) (time.Time, bool) {
	year := 1900 + yy
	if yy >= 0 && yy <= 69 {
		year = 2000 + yy
	}
	month := time.Month(clamp(mm, 1, 12))
	day := clamp(dd, 1, 31)
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ApproverID derives the PRMS approver id from a user identity: the part
// before '@', letters and digits only, uppercased, at most 10 characters.
func ApproverID(user string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(user), "@")

	var b strings.Builder
	for _, r := range local {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	id := truncate(b.String(), maxAuditApprover)
	if id == "" {
		return SystemApprover
	}
	return id
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
