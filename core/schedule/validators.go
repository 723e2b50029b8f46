package schedule

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/classbook/classbook/core"
)

var (
	timeRangeTag  = "timerange"
	timeRangeText = "end time must be after start time"

	clockTag  = "clock"
	clockText = "time must be between 00:00 and 24:00"
)

// InitValidators registers the schedule validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(entryStructValidation, NewEntry{})
	core.RegisterCustomTranslation(validate, translator, timeRangeTag, timeRangeText)
	core.RegisterCustomTranslation(validate, translator, clockTag, clockText)
}

func entryStructValidation(sl validator.StructLevel) {
	ne := sl.Current().Interface().(NewEntry)

	switch {
	case !ne.StartTime.Valid() || ne.StartTime == minutesPerDay:
		sl.ReportError(ne.StartTime, "start_time", "StartTime", clockTag, "")
	case !ne.EndTime.Valid():
		sl.ReportError(ne.EndTime, "end_time", "EndTime", clockTag, "")
	case ne.EndTime <= ne.StartTime:
		sl.ReportError(ne.EndTime, "end_time", "EndTime", timeRangeTag, "")
	}
}
