package leads

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{
	"ID", "Name", "Phone", "Email", "Address", "City", "State", "Zip Code",
	"Property Type", "Problem", "Emergency Level", "Status", "Preferred Contact",
	"Preferred Time", "Availability", "Scheduled Time", "Created At",
}

// WriteCSV renders leads as a spreadsheet-friendly CSV document.
func WriteCSV(w io.Writer, leads []*Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range leads {
		record := []string{
			l.ID,
			l.Name,
			l.Phone,
			l.Email,
			l.Address,
			l.City,
			l.State,
			l.ZipCode,
			l.PropertyType,
			l.Problem,
			strconv.Itoa(l.EmergencyLevel),
			string(l.Status),
			string(l.PreferredContact),
			l.PreferredTime,
			l.Availability,
			l.ScheduledTime,
			l.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
