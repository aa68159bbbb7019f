package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	appLog "classcal/internal/log"
	"classcal/internal/model"
	"classcal/internal/schedule"
)

type entriesResponse struct {
	Entries []model.Entry `json:"entries"`
}

type addClassRequest struct {
	Key     string `json:"key"`
	Subject string `json:"subject"`
	Teacher string `json:"teacher"`
	Time    string `json:"time"`
}

type dayResponse struct {
	Key     string              `json:"key"`
	Classes []model.ClassRecord `json:"classes"`
}

// GET /api/classes?day=&subject=&teacher=&where=
func (s *Server) listClasses(w http.ResponseWriter, r *http.Request) {
	_, entries, err := s.filtered(r)
	if err != nil {
		writeStoreError(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, entriesResponse{Entries: entries})
}

// POST /api/classes
func (s *Server) addClass(w http.ResponseWriter, r *http.Request) {
	var req addClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var created model.Entry
	err := s.withStore(func(st *schedule.Store) error {
		if err := st.Add(req.Key, req.Subject, req.Teacher, req.Time); err != nil {
			return err
		}
		key := schedule.NormalizeKey(req.Key)
		list := st.On(key)
		created = model.Entry{Key: key, Day: schedule.DayName(key), Index: len(list) - 1, Class: list[len(list)-1]}
		return nil
	})
	if err != nil {
		writeStoreError(w, "add", err)
		return
	}
	appLog.Info("api class added", "key", created.Key, "index", created.Index)
	writeJSON(w, http.StatusCreated, created)
}

// GET /api/classes/{key}
func (s *Server) getClasses(w http.ResponseWriter, r *http.Request) {
	key := schedule.NormalizeKey(pathParam(r, "key"))

	var classes []model.ClassRecord
	_ = s.withStore(func(st *schedule.Store) error {
		classes = st.On(key)
		return nil
	})
	writeJSON(w, http.StatusOK, dayResponse{Key: key, Classes: classes})
}

// DELETE /api/classes/{key}/{index}
func (s *Server) removeClass(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	err = s.withStore(func(st *schedule.Store) error {
		return st.Remove(key, index)
	})
	if err != nil {
		writeStoreError(w, "remove", err)
		return
	}
	appLog.Info("api class removed", "key", key, "index", index)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/options
func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	var opts schedule.FilterOptions
	_ = s.withStore(func(st *schedule.Store) error {
		opts = st.Options()
		return nil
	})
	writeJSON(w, http.StatusOK, opts)
}

func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}
