package conversation

import (
	"fmt"
	"time"
)

// TimeSlot is a candidate appointment offered to the customer.
type TimeSlot struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

var (
	urgentSlotHours   = []int{9, 11, 13, 15}
	standardSlotHours = []int{9, 11, 13, 15, 17}
)

// CandidateSlots lists appointment slots for the emergency level. High and
// critical emergencies are offered same-day slots only.
func CandidateSlots(now time.Time, level int) []TimeSlot {
	days := []time.Time{now, now.AddDate(0, 0, 1)}
	hours := standardSlotHours
	if level >= LevelHigh {
		days = days[:1]
		hours = urgentSlotHours
	}

	slots := make([]TimeSlot, 0, len(days)*len(hours))
	for _, day := range days {
		date := day.Format(time.DateOnly)
		for _, h := range hours {
			slots = append(slots, TimeSlot{Date: date, Time: fmt.Sprintf("%d:00", h), Available: true})
		}
	}
	return slots
}
