package homework

import (
	"strings"
	"time"
)

const calendarFilename = "homework.ics"

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

// calendarEvent renders hw as an all-day iCalendar event on its due date.
func calendarEvent(hw Homework, subjectName string, stamp time.Time) []byte {
	due := hw.DueDate.Time()
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Classbook//Homework//EN",
		"BEGIN:VEVENT",
		"UID:" + hw.ID + "@classbook",
		"DTSTAMP:" + stamp.UTC().Format("20060102T150405Z"),
		"DTSTART;VALUE=DATE:" + due.Format("20060102"),
		"DTEND;VALUE=DATE:" + due.AddDate(0, 0, 1).Format("20060102"),
		"SUMMARY:" + icsEscaper.Replace(subjectName+": "+hw.Title),
	}
	if hw.Description.Valid {
		lines = append(lines, "DESCRIPTION:"+icsEscaper.Replace(hw.Description.String))
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR", "")
	return []byte(strings.Join(lines, "\r\n"))
}
