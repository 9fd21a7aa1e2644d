// Package aggregate finds contacts that appear in more than one broadcast list.
package aggregate

import (
	"sort"
	"strings"

	"github.com/matheus3301/groupweaver/internal/model"
)

const (
	// phoneKeyDigits is how many trailing digits identify a phone number, so
	// differing country-code prefixes fold together.
	phoneKeyDigits = 10

	insufficientListsMessage = "Need at least 2 lists to find common members"
	unknownListName          = "Unknown"
)

// CommonMember is a contact found in two or more list positions.
type CommonMember struct {
	model.Contact
	AppearsIn int      `json:"appears_in"`
	ListNames []string `json:"list_names"`
}

// Result is the outcome of FindCommonMembers.
type Result struct {
	CommonMembers    []CommonMember `json:"common_members"`
	SourceListsCount int            `json:"source_lists_count"`
	TotalCommon      int            `json:"total_common"`
	Message          string         `json:"message,omitempty"`
}

// IdentityKey returns the key two contacts must share to count as the same
// person: the last ten digits of the phone, or the lower-cased trimmed name
// when the phone has no digits. It is empty when neither is usable.
func IdentityKey(c model.Contact) string {
	if digits := onlyDigits(c.Phone); digits != "" {
		if len(digits) > phoneKeyDigits {
			digits = digits[len(digits)-phoneKeyDigits:]
		}
		return "tel:" + digits
	}
	if name := strings.ToLower(strings.TrimSpace(c.Name)); name != "" {
		return "name:" + name
	}
	return ""
}

type tally struct {
	member CommonMember
	seen   map[string]struct{}
	order  int
}

// FindCommonMembers reports every identity that occurs at least twice across
// the non-auto-generated lists. Results are ordered by occurrence count,
// highest first; equal counts keep first-seen order.
func FindCommonMembers(lists []model.BroadcastList) Result {
	sources := make([]model.BroadcastList, 0, len(lists))
	for _, l := range lists {
		if !l.IsAutoGenerated {
			sources = append(sources, l)
		}
	}

	if len(sources) < 2 {
		return Result{
			CommonMembers:    []CommonMember{},
			SourceListsCount: len(sources),
			Message:          insufficientListsMessage,
		}
	}

	tallies := make(map[string]*tally)
	for _, l := range sources {
		listName := l.Name
		if listName == "" {
			listName = unknownListName
		}
		for _, c := range l.Members {
			key := IdentityKey(c)
			if key == "" {
				continue
			}
			t, ok := tallies[key]
			if !ok {
				t = &tally{
					member: CommonMember{Contact: c, ListNames: []string{}},
					seen:   make(map[string]struct{}),
					order:  len(tallies),
				}
				tallies[key] = t
			}
			t.member.AppearsIn++
			if _, dup := t.seen[listName]; !dup {
				t.seen[listName] = struct{}{}
				t.member.ListNames = append(t.member.ListNames, listName)
			}
		}
	}

	common := make([]*tally, 0)
	for _, t := range tallies {
		if t.member.AppearsIn >= 2 {
			common = append(common, t)
		}
	}
	sort.Slice(common, func(i, j int) bool {
		if common[i].member.AppearsIn != common[j].member.AppearsIn {
			return common[i].member.AppearsIn > common[j].member.AppearsIn
		}
		return common[i].order < common[j].order
	})

	members := make([]CommonMember, len(common))
	for i, t := range common {
		members[i] = t.member
	}
	return Result{
		CommonMembers:    members,
		SourceListsCount: len(sources),
		TotalCommon:      len(members),
	}
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
