package jira

import (
	"worklog/models"
	"worklog/timeutil"
)

// Group is one issue key's worth of entries combined for a single outbound
// worklog creation. It exists only for the duration of a bulk submission.
type Group struct {
	IssueKey    string
	EntryIDs    []uint
	Minutes     int
	Description string
}

// Duration renders the group's summed minutes as "2h 30m".
func (g Group) Duration() string {
	return timeutil.FormatMinutes(g.Minutes)
}

// Aggregate groups entries by issue key in first-seen order. Within a group,
// minutes are summed, member ids keep input order, and non-empty descriptions
// are joined with a single space in input order. Empty input yields nil.
func Aggregate(entries []models.WorklogEntry) []Group {
	byKey := make(map[string]int)
	var groups []Group

	for i := range entries {
		e := &entries[i]
		idx, seen := byKey[e.IssueKey]
		if !seen {
			idx = len(groups)
			byKey[e.IssueKey] = idx
			groups = append(groups, Group{IssueKey: e.IssueKey})
		}
		g := &groups[idx]
		g.EntryIDs = append(g.EntryIDs, e.ID)
		g.Minutes += e.DurationMinutes()
		if e.Description != "" {
			if g.Description != "" {
				g.Description += " "
			}
			g.Description += e.Description
		}
	}

	return groups
}
