package thread

import (
	"sort"
	"time"

	"doc-tracker/internal/domain"
)

// TrackingThreshold is how many days an outbound document may wait for an
// incoming reply before it is urgent.
const TrackingThreshold = 7

type Entry struct {
	Document        domain.Document `json:"document"`
	DaysWaited      int             `json:"days_waited"`
	ReplyCount      int             `json:"reply_count"`
	LatestReplyDate string          `json:"latest_reply_date,omitempty"`
}

type Report struct {
	Urgent []Entry `json:"urgent"`
	Normal []Entry `json:"normal"`
}

// DaysWaited counts whole UTC calendar days from the document date to now.
func DaysWaited(doc domain.Document, now time.Time) (int, error) {
	d, err := doc.ParsedDate()
	if err != nil {
		return 0, err
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(today.Sub(d).Hours() / 24), nil
}

// HasIncomingReply reports whether any direct reply to id is incoming mail.
func (g *Graph) HasIncomingReply(id string) bool {
	for _, i := range g.children[id] {
		if g.docs[i].Type == domain.TypeIncoming {
			return true
		}
	}
	return false
}

// NeedsTracking reports whether doc is outbound, older than the threshold and
// still has no incoming reply. Unparseable dates are never tracked.
func (g *Graph) NeedsTracking(doc domain.Document, now time.Time) bool {
	if !doc.Type.Outbound() {
		return false
	}
	days, err := DaysWaited(doc, now)
	if err != nil || days <= TrackingThreshold {
		return false
	}
	return !g.HasIncomingReply(doc.ID)
}

// Track buckets every outbound document still waiting for a reply. Both
// buckets are ordered by days waited, longest first.
func (g *Graph) Track(now time.Time) Report {
	report := Report{Urgent: []Entry{}, Normal: []Entry{}}

	for _, doc := range g.docs {
		if !doc.Type.Outbound() || g.HasIncomingReply(doc.ID) {
			continue
		}
		days, err := DaysWaited(doc, now)
		if err != nil {
			continue
		}

		entry := Entry{Document: doc, DaysWaited: days}
		for _, reply := range g.Children(doc.ID) {
			entry.ReplyCount++
			if reply.Date > entry.LatestReplyDate {
				entry.LatestReplyDate = reply.Date
			}
		}

		if days > TrackingThreshold {
			report.Urgent = append(report.Urgent, entry)
		} else {
			report.Normal = append(report.Normal, entry)
		}
	}

	byDays := func(entries []Entry) func(i, j int) bool {
		return func(i, j int) bool { return entries[i].DaysWaited > entries[j].DaysWaited }
	}
	sort.SliceStable(report.Urgent, byDays(report.Urgent))
	sort.SliceStable(report.Normal, byDays(report.Normal))

	return report
}
