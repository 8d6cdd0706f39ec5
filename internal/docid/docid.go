// Package docid derives document identifiers from the current set of active
// documents. Everything here is a pure function of its arguments.
//
// Root documents get <YYYYMMDD><NNN>, where NNN counts the roots already filed
// on that date. Replies get <MM><parent id>, where MM counts the parent's
// existing replies plus two; "01" is reserved for the parent itself.
package docid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"doc-tracker/internal/domain"
)

const (
	dateCodeLen = 8
	serialLen   = 3
	// RootIDLen is the length of every root identifier.
	RootIDLen = dateCodeLen + serialLen

	replyOffset = 2
)

var (
	ErrCannotGenerate = errors.New("cannot generate document id")
	ErrInvalidDate    = errors.New("invalid document date")
)

// Generate returns the identifier the next document would receive.
// Calling it twice against an unchanged set yields the same identifier.
func Generate(docs []domain.Document, date string, isReply bool, parentID string) (string, error) {
	if isReply {
		if parentID == "" || len(docs) == 0 {
			return "", ErrCannotGenerate
		}
		return ReplyID(parentID, CountReplies(docs, parentID)), nil
	}

	dateCode, err := CompactDate(date)
	if err != nil {
		return "", err
	}
	return RootID(dateCode, CountRoots(docs, dateCode)), nil
}

// CompactDate turns 2024-01-15 into 20240115.
func CompactDate(date string) (string, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return strings.ReplaceAll(date, "-", ""), nil
}

// RootID formats a root identifier for the given compact date.
func RootID(dateCode string, existing int) string {
	return fmt.Sprintf("%s%03d", dateCode, existing+1)
}

// ReplyID formats a reply identifier under parentID.
func ReplyID(parentID string, existing int) string {
	return fmt.Sprintf("%02d%s", existing+replyOffset, parentID)
}

// CountRoots counts identifiers that are exactly dateCode plus a 3-digit serial.
// Reply ids are always longer than RootIDLen.
func CountRoots(docs []domain.Document, dateCode string) int {
	n := 0
	for _, d := range docs {
		if len(d.ID) == RootIDLen && strings.HasPrefix(d.ID, dateCode) {
			n++
		}
	}
	return n
}

// CountReplies counts documents whose parent is parentID.
func CountReplies(docs []domain.Document, parentID string) int {
	n := 0
	for _, d := range docs {
		if d.ParentID == parentID {
			n++
		}
	}
	return n
}

// LockKey names the counter a new identifier draws from: the compact date for
// roots, the parent id for replies. Two creations with the same key race for
// the same identifier.
func LockKey(date string, isReply bool, parentID string) string {
	if isReply {
		return "reply:" + parentID
	}
	return "root:" + strings.ReplaceAll(date, "-", "")
}

// ParseRootID splits a root identifier into its date and serial.
func ParseRootID(id string) (date string, serial int, ok bool) {
	if len(id) != RootIDLen {
		return "", 0, false
	}
	t, err := time.Parse("20060102", id[:dateCodeLen])
	if err != nil {
		return "", 0, false
	}
	serial, err = strconv.Atoi(id[dateCodeLen:])
	if err != nil || serial < 1 {
		return "", 0, false
	}
	return t.Format(domain.DateLayout), serial, true
}
