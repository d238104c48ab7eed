package export

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

// CalendarEntry is one confirmed interval to publish.
type CalendarEntry struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// ICSExporter renders confirmed selections as an iCalendar document, one
// VEVENT per interval.
type ICSExporter struct{}

// NewICSExporter builds an ICS exporter.
func NewICSExporter() *ICSExporter {
	return &ICSExporter{}
}

// Render produces the serialized VCALENDAR bytes.
func (e *ICSExporter) Render(entries []CalendarEntry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("ics requires at least one entry")
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//Pulse Map//EN")
	cal.SetCalscale("GREGORIAN")

	for _, entry := range entries {
		ev := cal.AddEvent(uuid.NewString())
		ev.SetDtStampTime(time.Now().UTC())
		ev.SetStartAt(entry.Start.UTC())
		ev.SetEndAt(entry.End.UTC())
		ev.SetSummary(entry.Summary)
		if entry.Description != "" {
			ev.SetDescription(entry.Description)
		}
		ev.SetStatus(ical.ObjectStatusConfirmed)
	}

	return []byte(cal.Serialize()), nil
}
