package aggregate

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/matheus3301/groupweaver/internal/model"
)

func contact(id, name, phone string) model.Contact {
	return model.Contact{ID: id, Name: name, Phone: phone}
}

func list(id, name string, members ...model.Contact) model.BroadcastList {
	return model.BroadcastList{ID: id, Name: name, Members: members}
}

func TestIdentityKey(t *testing.T) {
	tests := []struct {
		name string
		c    model.Contact
		want string
	}{
		{"plain phone", contact("1", "Bob", "5551234567"), "tel:5551234567"},
		{"country code and dashes", contact("1", "Bob", "+1-555-123-4567"), "tel:5551234567"},
		{"short phone", contact("1", "Bob", "12345"), "tel:12345"},
		{"no phone uses name", contact("1", " Alice ", ""), "name:alice"},
		{"phone without digits uses name", contact("1", "Alice", "n/a"), "name:alice"},
		{"nothing usable", contact("1", "  ", ""), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IdentityKey(tt.c); got != tt.want {
				t.Errorf("IdentityKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPhoneFolding(t *testing.T) {
	res := FindCommonMembers([]model.BroadcastList{
		list("L1", "Team", contact("1", "Bob", "+1-555-123-4567")),
		list("L2", "Friends", contact("2", "Robert", "5551234567")),
	})

	if res.TotalCommon != 1 {
		t.Fatalf("TotalCommon = %d, want 1", res.TotalCommon)
	}
	m := res.CommonMembers[0]
	if m.AppearsIn != 2 {
		t.Errorf("AppearsIn = %d, want 2", m.AppearsIn)
	}
	// First-seen record is the representative.
	if m.Name != "Bob" || m.ID != "1" {
		t.Errorf("representative = %+v, want Bob", m.Contact)
	}
}

func TestNameFolding(t *testing.T) {
	res := FindCommonMembers([]model.BroadcastList{
		list("L1", "Team", contact("1", "Alice", "")),
		list("L2", "Friends", contact("2", " alice ", "")),
	})
	if res.TotalCommon != 1 || res.CommonMembers[0].AppearsIn != 2 {
		t.Fatalf("result = %+v, want Alice folded once with appears_in=2", res)
	}
}

func TestFewerThanTwoSourceLists(t *testing.T) {
	tests := []struct {
		name  string
		lists []model.BroadcastList
		want  int
	}{
		{"none", nil, 0},
		{"one", []model.BroadcastList{list("L1", "Team", contact("1", "Bob", "1"))}, 1},
		{"one plus auto generated", []model.BroadcastList{
			list("L1", "Team", contact("1", "Bob", "1")),
			{ID: "auto", Name: "Common", IsAutoGenerated: true, Members: []model.Contact{contact("1", "Bob", "1")}},
		}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := FindCommonMembers(tt.lists)
			if res.SourceListsCount != tt.want {
				t.Errorf("SourceListsCount = %d, want %d", res.SourceListsCount, tt.want)
			}
			if res.CommonMembers == nil || len(res.CommonMembers) != 0 {
				t.Errorf("CommonMembers = %v, want empty non-nil", res.CommonMembers)
			}
			if res.Message == "" {
				t.Error("expected explanatory message")
			}
		})
	}
}

func TestAutoGeneratedListsAreNotSources(t *testing.T) {
	var auto model.BroadcastList
	if err := json.Unmarshal([]byte(`{"id":"c","name":"Common","isAutoGenerated":true,"members":[{"id":"9","name":"Bob","phone":"5551234567"}]}`), &auto); err != nil {
		t.Fatal(err)
	}
	res := FindCommonMembers([]model.BroadcastList{
		list("L1", "Team", contact("1", "Bob", "5551234567")),
		list("L2", "Friends", contact("2", "Carol", "5559999999")),
		auto,
	})
	if res.SourceListsCount != 2 {
		t.Errorf("SourceListsCount = %d, want 2", res.SourceListsCount)
	}
	if res.TotalCommon != 0 {
		t.Errorf("TotalCommon = %d, want 0 (auto-generated list must not count)", res.TotalCommon)
	}
}

func TestSortAndTieBreak(t *testing.T) {
	res := FindCommonMembers([]model.BroadcastList{
		list("L1", "A", contact("1", "Zoe", ""), contact("2", "Yan", ""), contact("3", "Xia", "")),
		list("L2", "B", contact("1", "Zoe", ""), contact("2", "Yan", ""), contact("3", "Xia", "")),
		list("L3", "C", contact("3", "Xia", "")),
	})
	var names []string
	for _, m := range res.CommonMembers {
		names = append(names, m.Name)
	}
	want := []string{"Xia", "Zoe", "Yan"}
	if !slices.Equal(names, want) {
		t.Errorf("order = %v, want %v", names, want)
	}
	if res.CommonMembers[0].AppearsIn != 3 {
		t.Errorf("Xia appears_in = %d, want 3", res.CommonMembers[0].AppearsIn)
	}
}

func TestListNamesDeduplicated(t *testing.T) {
	res := FindCommonMembers([]model.BroadcastList{
		list("L1", "Team", contact("1", "Bob", "1"), contact("1", "Bob", "1")),
		list("L2", "Team", contact("1", "Bob", "1")),
		list("L3", "", contact("1", "Bob", "1")),
	})
	if res.TotalCommon != 1 {
		t.Fatalf("TotalCommon = %d, want 1", res.TotalCommon)
	}
	m := res.CommonMembers[0]
	if m.AppearsIn != 4 {
		t.Errorf("AppearsIn = %d, want 4 (every occurrence counts)", m.AppearsIn)
	}
	if !slices.Equal(m.ListNames, []string{"Team", "Unknown"}) {
		t.Errorf("ListNames = %v, want [Team Unknown]", m.ListNames)
	}
}

func TestMembersWithoutIdentityAreSkipped(t *testing.T) {
	res := FindCommonMembers([]model.BroadcastList{
		list("L1", "Team", contact("1", "", ""), contact("2", " ", "")),
		list("L2", "Friends", contact("3", "", ""), contact("4", "", "")),
	})
	if res.TotalCommon != 0 {
		t.Errorf("TotalCommon = %d, want 0", res.TotalCommon)
	}
}

func TestResultEncoding(t *testing.T) {
	res := FindCommonMembers([]model.BroadcastList{
		list("L1", "Team", contact("1", "Bob", "5551234567")),
		list("L2", "Friends", contact("2", "Bob", "+15551234567")),
	})
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"common_members"`, `"appears_in":2`, `"list_names"`, `"source_lists_count":2`, `"total_common":1`, `"name":"Bob"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("encoded result missing %s: %s", key, data)
		}
	}
}
