package persistence

// EncodeWeekdays encodes ISO weekdays (Monday == 1 .. Sunday == 7) as a
// bitmask for storage. Out-of-range values are dropped.
func EncodeWeekdays(weekdays []int) int64 {
	var mask int64
	for _, day := range weekdays {
		if day >= 1 && day <= 7 {
			mask |= 1 << uint(day)
		}
	}
	return mask
}

// DecodeWeekdays decodes ISO weekdays from a bitmask.
func DecodeWeekdays(mask int64) []int {
	var weekdays []int
	for day := 1; day <= 7; day++ {
		if mask&(1<<uint(day)) != 0 {
			weekdays = append(weekdays, day)
		}
	}
	return weekdays
}
