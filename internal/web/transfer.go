package web

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"classcal/internal/ics"
	appLog "classcal/internal/log"
	"classcal/internal/model"
	"classcal/internal/schedule"
	"classcal/internal/tabular"
)

type upcomingResponse struct {
	Occurrences     []model.Occurrence `json:"occurrences"`
	RangeStart      time.Time          `json:"range_start"`
	Days            int                `json:"days"`
	DisplayTimeZone string             `json:"display_timezone"`
}

type importResponse struct {
	Keys    int `json:"keys"`
	Classes int `json:"classes"`
}

// upcoming computes the window starting at the server's current instant.
func (s *Server) upcoming(days int) (upcomingResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	occ, err := s.store.Upcoming(now, days)
	if err != nil {
		return upcomingResponse{}, err
	}
	return upcomingResponse{
		Occurrences:     occ,
		RangeStart:      now.In(s.store.Location()),
		Days:            days,
		DisplayTimeZone: s.store.Location().String(),
	}, nil
}

// GET /api/upcoming?days=N
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	resp, err := s.upcoming(s.windowDays(r))
	if err != nil {
		writeStoreError(w, "upcoming", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/upcoming.ics?days=N
func (s *Server) handleUpcomingICS(w http.ResponseWriter, r *http.Request) {
	resp, err := s.upcoming(s.windowDays(r))
	if err != nil {
		writeStoreError(w, "upcoming", err)
		return
	}
	minutes := 60
	if s.cfg != nil {
		minutes = s.cfg.ClassMinutes
	}

	var buf bytes.Buffer
	if err := ics.Export(&buf, resp.Occurrences, minutes, s.now()); err != nil {
		writeStoreError(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", ics.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="upcoming.ics"`)
	_, _ = w.Write(buf.Bytes())
}

// GET /api/export.csv
func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	scheme, entries, err := s.filtered(r)
	if err != nil {
		writeStoreError(w, "export", err)
		return
	}
	var buf bytes.Buffer
	if err := tabular.WriteCSV(&buf, scheme, entries); err != nil {
		writeStoreError(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="timetable.csv"`)
	_, _ = w.Write(buf.Bytes())
}

// GET /api/export.xlsx
func (s *Server) exportXLSX(w http.ResponseWriter, r *http.Request) {
	scheme, entries, err := s.filtered(r)
	if err != nil {
		writeStoreError(w, "export", err)
		return
	}
	var buf bytes.Buffer
	if err := tabular.WriteXLSX(&buf, scheme, entries); err != nil {
		writeStoreError(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", tabular.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="timetable.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

// POST /api/import
//
// The body is CSV unless Content-Type names the XLSX or iCalendar MIME
// type. The store is replaced only if the whole document is valid.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "import body too large")
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var resp importResponse
	err = s.withStore(func(st *schedule.Store) error {
		days, err := s.decodeImport(mediaType, body, st)
		if err != nil {
			return err
		}
		if err := st.Import(days); err != nil {
			return err
		}
		for _, d := range days {
			resp.Classes += len(d.Classes)
		}
		resp.Keys = len(st.Keys())
		return nil
	})
	if err != nil {
		writeStoreError(w, "import", err)
		return
	}
	appLog.Info("api import applied", "format", mediaType, "keys", resp.Keys, "classes", resp.Classes)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decodeImport(mediaType string, body []byte, st *schedule.Store) ([]model.DayClasses, error) {
	switch mediaType {
	case tabular.ContentTypeXLSX:
		return tabular.ReadXLSX(bytes.NewReader(body))
	case "text/calendar":
		days := 7
		if s.cfg != nil {
			days = s.cfg.WindowDays
		}
		return ics.Read(bytes.NewReader(body), ics.ImportOptions{
			Scheme:   st.Scheme(),
			Location: st.Location(),
			From:     s.now(),
			Days:     days,
		})
	case "", "text/csv", "text/plain", "application/csv":
		return tabular.ReadCSV(bytes.NewReader(body))
	default:
		return nil, &schedule.ImportError{Reason: fmt.Sprintf("unsupported content type %q", mediaType)}
	}
}
