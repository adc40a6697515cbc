package validator

import "time"

const dateLayout = "2006-01-02"

// IsValidDate valida que la fecha tenga formato YYYY-MM-DD
func IsValidDate(date string) bool {
	if len(date) != 10 {
		return false
	}
	_, err := time.Parse(dateLayout, date)
	return err == nil
}

// Yesterday devuelve la fecha de ayer (YYYY-MM-DD) en loc.
func Yesterday(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).AddDate(0, 0, -1).Format(dateLayout)
}
