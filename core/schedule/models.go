package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/classbook/classbook/core"
)

// Entry is a recurring weekly lesson slot.
type Entry struct {
	ID         string      `json:"id" db:"id"`
	ClassID    string      `json:"class_id" db:"class_id"`
	SubgroupID null.String `json:"subgroup_id" db:"subgroup_id"`
	SubjectID  string      `json:"subject_id" db:"subject_id"`
	TeacherID  null.String `json:"teacher_id" db:"teacher_id"`
	Weekday    Weekday     `json:"weekday" db:"weekday"`
	StartTime  Clock       `json:"start_time" db:"start_time"`
	EndTime    Clock       `json:"end_time" db:"end_time"`
	Room       string      `json:"room" db:"room"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// Overlaps reports whether both entries fall on the same weekday with intersecting [start, end) ranges.
func (e Entry) Overlaps(other Entry) bool {
	return e.Weekday == other.Weekday && e.StartTime < other.EndTime && other.StartTime < e.EndTime
}

// SharesAudience reports whether some student attends both entries.
func (e Entry) SharesAudience(other Entry) bool {
	if e.ClassID != other.ClassID {
		return false
	}
	if !e.SubgroupID.Valid || !other.SubgroupID.Valid {
		return true
	}
	return e.SubgroupID.String == other.SubgroupID.String
}

// AttendedBy reports whether a member of the entry's class with the given subgroups attends the entry.
func (e Entry) AttendedBy(subgroupIDs []string) bool {
	return !e.SubgroupID.Valid || core.ContainsString(subgroupIDs, e.SubgroupID.String)
}

// TaughtBy reports whether the teacher is assigned to the entry.
func (e Entry) TaughtBy(teacherID string) bool {
	return e.TeacherID.Valid && e.TeacherID.String == teacherID
}

func (e Entry) sameRoom(other Entry) bool {
	return e.Room != "" && strings.EqualFold(e.Room, other.Room)
}

func (e Entry) span() string {
	return fmt.Sprintf("%s %s-%s", e.Weekday, e.StartTime, e.EndTime)
}

// NewEntry contains the information needed to create or fully replace an Entry.
type NewEntry struct {
	ClassID    string      `json:"class_id" validate:"required,uuid"`
	SubgroupID null.String `json:"subgroup_id"`
	SubjectID  string      `json:"subject_id" validate:"required,uuid"`
	TeacherID  null.String `json:"teacher_id"`
	Weekday    Weekday     `json:"weekday" validate:"gte=1,lte=7"`
	StartTime  Clock       `json:"start_time"`
	EndTime    Clock       `json:"end_time"`
	Room       string      `json:"room" validate:"max=50"`
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.Room = core.CleanString(ne.Room)
	ne.SubgroupID = cleanID(ne.SubgroupID)
	ne.TeacherID = cleanID(ne.TeacherID)
	return validate.Struct(ne)
}

func (ne NewEntry) entry() Entry {
	return Entry{
		ClassID:    ne.ClassID,
		SubgroupID: ne.SubgroupID,
		SubjectID:  ne.SubjectID,
		TeacherID:  ne.TeacherID,
		Weekday:    ne.Weekday,
		StartTime:  ne.StartTime,
		EndTime:    ne.EndTime,
		Room:       ne.Room,
	}
}

func cleanID(id null.String) null.String {
	s := core.CleanString(id.String)
	return null.NewString(s, id.Valid && s != "")
}

// Filter applies AND on its non-empty fields.
type Filter struct {
	ClassID    string
	SubgroupID string
	TeacherID  string
	SubjectID  string
	Weekday    Weekday
	Room       string
}

func (f *Filter) Clean() {
	f.Room = core.CleanString(f.Room)
}

func (f Filter) cacheKey(version string) string {
	return fmt.Sprintf("%sv=%s;c=%s;g=%s;t=%s;s=%s;w=%d;r=%s",
		cachePrefix, version, f.ClassID, f.SubgroupID, f.TeacherID, f.SubjectID, f.Weekday, strings.ToLower(f.Room))
}

// Day holds the entries of one weekday, in chronological order.
type Day struct {
	Weekday Weekday `json:"weekday"`
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

// Timetable lists the days that have lessons, Monday first.
type Timetable []Day

// SortEntries orders entries by weekday, start time, end time and room. Equal entries keep their order.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.EndTime != b.EndTime {
			return a.EndTime < b.EndTime
		}
		return a.Room < b.Room
	})
}

// BuildTimetable groups entries by weekday. The input slice is not modified.
func BuildTimetable(entries []Entry) Timetable {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	SortEntries(sorted)

	tt := Timetable{}
	for _, e := range sorted {
		if n := len(tt); n == 0 || tt[n-1].Weekday != e.Weekday {
			tt = append(tt, Day{Weekday: e.Weekday, Name: e.Weekday.String()})
		}
		day := &tt[len(tt)-1]
		day.Entries = append(day.Entries, e)
	}
	return tt
}

// FindConflicts checks the candidate against the existing entries and reports one error per clashing field.
// An existing entry with the candidate's ID is ignored.
func FindConflicts(candidate Entry, existing []Entry) []core.FieldError {
	var errs []core.FieldError
	reported := make(map[string]bool)
	report := func(field, msg string) {
		if !reported[field] {
			reported[field] = true
			errs = append(errs, core.FieldError{Field: field, Error: msg})
		}
	}

	for _, other := range existing {
		if (candidate.ID != "" && other.ID == candidate.ID) || !candidate.Overlaps(other) {
			continue
		}
		if candidate.SharesAudience(other) {
			report("class_id", fmt.Sprintf("the class already has a lesson on %s", other.span()))
		}
		if other.TeacherID.Valid && candidate.TaughtBy(other.TeacherID.String) {
			report("teacher_id", fmt.Sprintf("the teacher already has a lesson on %s", other.span()))
		}
		if candidate.sameRoom(other) {
			report("room", fmt.Sprintf("the room is already booked on %s", other.span()))
		}
	}
	return errs
}
