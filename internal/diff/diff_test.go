package diff_test

import (
	"testing"

	"github.com/bokbank/server/internal/diff"
)

// element is a minimal identity-bearing value for exercising the differ.
type element struct {
	id    string
	value int
}

func (e element) Identity() string         { return e.id }
func (e element) Equal(other element) bool { return e == other }

func TestChanges(t *testing.T) {
	tests := []struct {
		name     string
		current  []element
		previous []element
		want     []diff.Change[element]
	}{
		{
			name:     "both empty",
			current:  nil,
			previous: nil,
			want:     nil,
		},
		{
			name:     "identical collections yield no events",
			current:  []element{{"a", 1}, {"b", 2}},
			previous: []element{{"a", 1}, {"b", 2}},
			want:     nil,
		},
		{
			name:     "everything inserted from empty previous",
			current:  []element{{"a", 1}, {"b", 2}, {"c", 3}},
			previous: nil,
			want: []diff.Change[element]{
				{Op: diff.Inserted, Element: element{"a", 1}},
				{Op: diff.Inserted, Element: element{"b", 2}},
				{Op: diff.Inserted, Element: element{"c", 3}},
			},
		},
		{
			name:     "everything removed from empty current",
			current:  nil,
			previous: []element{{"a", 1}, {"b", 2}, {"c", 3}},
			want: []diff.Change[element]{
				{Op: diff.Removed, Element: element{"a", 1}},
				{Op: diff.Removed, Element: element{"b", 2}},
				{Op: diff.Removed, Element: element{"c", 3}},
			},
		},
		{
			name:     "value change is reported with the current value",
			current:  []element{{"a", 10}},
			previous: []element{{"a", 1}},
			want: []diff.Change[element]{
				{Op: diff.Changed, Element: element{"a", 10}},
			},
		},
		{
			name:     "mixed changes keep inserted and changed before removed",
			current:  []element{{"new", 9}, {"same", 5}, {"edited", 2}},
			previous: []element{{"gone", 1}, {"same", 5}, {"edited", 1}, {"also-gone", 4}},
			want: []diff.Change[element]{
				{Op: diff.Inserted, Element: element{"new", 9}},
				{Op: diff.Changed, Element: element{"edited", 2}},
				{Op: diff.Removed, Element: element{"gone", 1}},
				{Op: diff.Removed, Element: element{"also-gone", 4}},
			},
		},
		{
			name:     "reordering without value changes yields no events",
			current:  []element{{"b", 2}, {"a", 1}},
			previous: []element{{"a", 1}, {"b", 2}},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diff.Changes(tt.current, tt.previous)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d changes, got %d: %v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i].Op != tt.want[i].Op || got[i].Element != tt.want[i].Element {
					t.Errorf("change %d: expected %v %v, got %v %v",
						i, tt.want[i].Op, tt.want[i].Element, got[i].Op, got[i].Element)
				}
			}
		})
	}
}

func TestChangesSelfComparison(t *testing.T) {
	collection := []element{{"x", 1}, {"y", 2}, {"z", 3}}
	if got := diff.Changes(collection, collection); len(got) != 0 {
		t.Errorf("expected no changes comparing a collection to itself, got %v", got)
	}
}
