package constants

const (
	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// ShortDateFormat is used for compact display of a date (e.g. "Jan 15")
	ShortDateFormat = "Jan 2"

	// RetroactiveDays is how far back a completion may be edited, inclusive
	RetroactiveDays = 7

	// DaysPerWeek is the number of days in a Monday-aligned week
	DaysPerWeek = 7
)
