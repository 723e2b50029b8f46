package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/classbook/classbook/core"
)

func entry(id string, wd Weekday, start, end, room string) Entry {
	s, _ := ParseClock(start)
	e, _ := ParseClock(end)
	return Entry{ID: id, ClassID: "9a", SubjectID: "math", Weekday: wd, StartTime: s, EndTime: e, Room: room}
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestBuildTimetable(t *testing.T) {
	entries := []Entry{
		entry("fri-1", Friday, "08:00", "08:45", ""),
		entry("mon-3", Monday, "10:00", "10:45", "B2"),
		entry("mon-1", Monday, "08:00", "08:45", "A1"),
		entry("mon-2b", Monday, "09:00", "10:00", "A1"),
		entry("mon-2a", Monday, "09:00", "09:45", "B1"),
		entry("mon-2c", Monday, "09:00", "10:00", "B1"),
		entry("sun-1", Sunday, "11:00", "12:00", ""),
	}
	orig := ids(entries)

	tt := BuildTimetable(entries)
	require.Len(t, tt, 3)

	assert.Equal(t, Monday, tt[0].Weekday)
	assert.Equal(t, "Monday", tt[0].Name)
	assert.Equal(t, []string{"mon-1", "mon-2a", "mon-2b", "mon-2c", "mon-3"}, ids(tt[0].Entries))

	assert.Equal(t, Friday, tt[1].Weekday)
	assert.Equal(t, []string{"fri-1"}, ids(tt[1].Entries))

	assert.Equal(t, Sunday, tt[2].Weekday)

	assert.Equal(t, orig, ids(entries), "input must not be reordered")
}

func TestBuildTimetable_stable(t *testing.T) {
	entries := []Entry{
		entry("first", Tuesday, "08:00", "08:45", "A1"),
		entry("second", Tuesday, "08:00", "08:45", "A1"),
	}
	tt := BuildTimetable(entries)
	require.Len(t, tt, 1)
	assert.Equal(t, []string{"first", "second"}, ids(tt[0].Entries))
}

func TestBuildTimetable_empty(t *testing.T) {
	tt := BuildTimetable(nil)
	assert.NotNil(t, tt)
	assert.Empty(t, tt)
}

func TestEntry_AttendedBy(t *testing.T) {
	whole := entry("whole", Monday, "08:00", "08:45", "")
	split := entry("split", Monday, "09:00", "09:45", "")
	split.SubgroupID = null.StringFrom("group-a")

	assert.True(t, whole.AttendedBy(nil))
	assert.False(t, split.AttendedBy(nil))
	assert.False(t, split.AttendedBy([]string{"group-b"}))
	assert.True(t, split.AttendedBy([]string{"group-b", "group-a"}))
}

func TestFindConflicts(t *testing.T) {
	withSubgroup := func(e Entry, sg string) Entry {
		e.SubgroupID = null.StringFrom(sg)
		return e
	}
	withTeacher := func(e Entry, teacher string) Entry {
		e.TeacherID = null.StringFrom(teacher)
		return e
	}
	withClass := func(e Entry, cls string) Entry {
		e.ClassID = cls
		return e
	}

	tests := []struct {
		name      string
		candidate Entry
		existing  []Entry
		want      []string
	}{
		{
			name:      "different weekday",
			candidate: entry("", Monday, "08:00", "08:45", "A1"),
			existing:  []Entry{entry("x", Tuesday, "08:00", "08:45", "A1")},
		},
		{
			name:      "back to back",
			candidate: entry("", Monday, "08:45", "09:30", "A1"),
			existing:  []Entry{entry("x", Monday, "08:00", "08:45", "A1")},
		},
		{
			name:      "same class overlapping",
			candidate: entry("", Monday, "08:30", "09:15", ""),
			existing:  []Entry{entry("x", Monday, "08:00", "08:45", "")},
			want:      []string{"class_id"},
		},
		{
			name:      "whole class vs subgroup",
			candidate: entry("", Monday, "08:00", "08:45", ""),
			existing:  []Entry{withSubgroup(entry("x", Monday, "08:00", "08:45", ""), "a")},
			want:      []string{"class_id"},
		},
		{
			name:      "different subgroups in parallel",
			candidate: withSubgroup(entry("", Monday, "08:00", "08:45", "B1"), "b"),
			existing:  []Entry{withSubgroup(entry("x", Monday, "08:00", "08:45", "A1"), "a")},
		},
		{
			name:      "same subgroup",
			candidate: withSubgroup(entry("", Monday, "08:00", "08:45", ""), "a"),
			existing:  []Entry{withSubgroup(entry("x", Monday, "08:10", "08:20", ""), "a")},
			want:      []string{"class_id"},
		},
		{
			name:      "same teacher in another class",
			candidate: withTeacher(entry("", Monday, "08:00", "08:45", ""), "t1"),
			existing:  []Entry{withTeacher(withClass(entry("x", Monday, "08:00", "08:45", ""), "9b"), "t1")},
			want:      []string{"teacher_id"},
		},
		{
			name:      "unassigned teachers never clash",
			candidate: entry("", Monday, "08:00", "08:45", ""),
			existing:  []Entry{withClass(entry("x", Monday, "08:00", "08:45", ""), "9b")},
		},
		{
			name:      "same room ignoring case",
			candidate: entry("", Monday, "08:00", "08:45", "lab"),
			existing:  []Entry{withClass(entry("x", Monday, "08:00", "08:45", "LAB"), "9b")},
			want:      []string{"room"},
		},
		{
			name:      "entry does not clash with itself",
			candidate: entry("x", Monday, "08:00", "08:45", "A1"),
			existing:  []Entry{entry("x", Monday, "08:00", "08:45", "A1")},
		},
		{
			name:      "every field reported once",
			candidate: withTeacher(entry("", Monday, "08:00", "10:00", "A1"), "t1"),
			existing: []Entry{
				withTeacher(entry("x", Monday, "08:00", "08:45", "A1"), "t1"),
				withTeacher(entry("y", Monday, "09:00", "09:45", "A1"), "t1"),
			},
			want: []string{"class_id", "teacher_id", "room"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := FindConflicts(tc.candidate, tc.existing)
			var fields []string
			for _, fe := range errs {
				fields = append(fields, fe.Field)
				assert.NotEmpty(t, fe.Error)
			}
			assert.Equal(t, tc.want, fields)
		})
	}
}

func TestFindConflicts_message(t *testing.T) {
	errs := FindConflicts(entry("", Monday, "08:00", "08:45", ""), []Entry{entry("x", Monday, "08:30", "09:15", "")})
	assert.Equal(t, []core.FieldError{{Field: "class_id", Error: "the class already has a lesson on Monday 08:30-09:15"}}, errs)
}
