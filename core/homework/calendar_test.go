package homework

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/classbook/classbook/core"
)

func Test_calendarEvent(t *testing.T) {
	due, err := core.ParseDate("2026-03-10")
	assert.NoError(t, err)
	hw := Homework{ID: "hw1", Title: "Essay, part 1", Description: null.StringFrom("read ch. 2;\nsummarize"), DueDate: due}

	ics := string(calendarEvent(hw, "History", time.Date(2026, time.March, 2, 8, 30, 0, 0, time.UTC)))
	assert.True(t, strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(ics, "END:VEVENT\r\nEND:VCALENDAR\r\n"))
	for _, line := range []string{
		"UID:hw1@classbook",
		"DTSTAMP:20260302T083000Z",
		"DTSTART;VALUE=DATE:20260310",
		"DTEND;VALUE=DATE:20260311",
		`SUMMARY:History: Essay\, part 1`,
		`DESCRIPTION:read ch. 2\;\nsummarize`,
	} {
		assert.Contains(t, ics, line+"\r\n")
	}

	hw.Description = null.String{}
	assert.NotContains(t, string(calendarEvent(hw, "History", time.Now())), "DESCRIPTION")
}
