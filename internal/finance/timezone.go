package finance

import "time"

// getEasternTime returns America/New_York location, falling back to fixed EST if tzdata is missing.
func getEasternTime() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// exchangeLocation resolves the timezone a bar's calendar date is taken in: the named
// exchange zone, else the reported UTC offset, else US Eastern.
func exchangeLocation(name string, gmtOffset int64) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if gmtOffset != 0 {
		return time.FixedZone("exchange", int(gmtOffset))
	}
	return getEasternTime()
}
