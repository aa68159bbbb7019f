// Package ics writes upcoming classes as an iCalendar feed and reads
// iCalendar documents back into a timetable.
package ics

import (
	"fmt"
	"io"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"classcal/internal/model"
)

// ContentType is the MIME type of exported feeds.
const ContentType = "text/calendar; charset=utf-8"

const productID = "-//classcal//timetable//EN"

// uidSpace namespaces event UIDs so the same occurrence always gets the
// same UID across exports.
var uidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("classcal"))

// EventUID derives the UID of an exported occurrence from its key, index
// and start instant.
func EventUID(o model.Occurrence) string {
	name := o.Key + "/" + strconv.Itoa(o.Index) + "/" + o.At.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uidSpace, []byte(name)).String() + "@classcal"
}

// Export writes occurrences as VEVENTs lasting classMinutes each. stamp is
// used for DTSTAMP.
func Export(w io.Writer, occ []model.Occurrence, classMinutes int, stamp time.Time) error {
	if classMinutes <= 0 {
		classMinutes = 60
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, o := range occ {
		ev := cal.AddEvent(EventUID(o))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(o.At)
		ev.SetEndAt(o.At.Add(time.Duration(classMinutes) * time.Minute))
		ev.SetSummary(o.Class.Subject)
		ev.SetDescription(teacherPrefix + " " + o.Class.Teacher)
		ev.AddProperty(PropertyTeacher, o.Class.Teacher)
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return nil
}
