package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/teranos/floorcheck/catalog"
	"github.com/teranos/floorcheck/errors"
	"github.com/teranos/floorcheck/maint"
	"github.com/teranos/floorcheck/session"
)

// taskListResponse wraps the due-task list.
type taskListResponse struct {
	Tasks []maint.DueTask `json:"tasks"`
	Count int             `json:"count"`
}

// handleListTasks resolves due tasks. With an active session the session's
// role and sector apply; otherwise the role comes from a query param and the
// optional sector param narrows the list (admin and debugging surface).
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var roleID int64
	var sectorID *int64

	if sess := s.currentSession(); sess != nil && r.URL.Query().Get("role") == "" {
		roleID = sess.RoleID
		sec := sess.SectorID
		sectorID = &sec
	} else {
		var err error
		roleID, err = queryInt64(r, "role")
		if err != nil {
			s.writeError(w, errors.NewInvalidRequestError("role is required"))
			return
		}
		if v := r.URL.Query().Get("sector"); v != "" {
			sec, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				s.writeError(w, errors.NewInvalidRequestError("invalid sector"))
				return
			}
			sectorID = &sec
		}
	}

	tasks, err := s.resolver.ResolveDue(r.Context(), roleID, sectorID, time.Now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []maint.DueTask{}
	}
	s.writeJSON(w, http.StatusOK, taskListResponse{Tasks: tasks, Count: len(tasks)})
}

type recordRequest struct {
	Comment    string `json:"comment"`
	Reason     string `json:"reason"`
	OperatorID *int64 `json:"operator_id"` // overrides the session operator
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	s.recordTask(w, r, maint.ActionComplete)
}

func (s *Server) handleFailTask(w http.ResponseWriter, r *http.Request) {
	s.recordTask(w, r, maint.ActionFail)
}

func (s *Server) recordTask(w http.ResponseWriter, r *http.Request, action string) {
	assignmentID, err := pathInt64(r, "id")
	if err != nil {
		s.writeError(w, errors.NewInvalidRequestError("invalid assignment id"))
		return
	}

	var req recordRequest
	if r.Body != nil {
		// An empty body is a legal complete request; malformed JSON is not
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			s.writeError(w, errors.NewInvalidRequestError("invalid request body"))
			return
		}
	}

	operatorID, err := s.operatorFor(&req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	comment := req.Comment
	if action == maint.ActionFail && comment == "" {
		comment = req.Reason
	}

	exec, err := s.recorder.RecordExecution(r.Context(), assignmentID, operatorID, action, comment, time.Now())
	if err != nil {
		s.writeError(w, err)
		return
	}

	// The pinned list changed; let the session re-resolve and push
	if s.sessions != nil {
		s.sessions.Refresh()
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"execution_id": exec.ID,
		"status":       exec.Status,
		"due_at":       exec.DueAt.Format(time.RFC3339),
	})
}

// operatorFor decides who an execution is attributed to: the explicit
// operator_id in the request, else the active session's operator.
func (s *Server) operatorFor(req *recordRequest) (int64, error) {
	if req.OperatorID != nil {
		return *req.OperatorID, nil
	}
	if sess := s.currentSession(); sess != nil {
		return sess.OperatorID, nil
	}
	return 0, errors.WithStack(errors.ErrUnauthenticated)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	created, err := s.generator.GenerateAssignments(r.Context(), time.Now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"created": created})
}

type createWorkRequest struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateWork(w http.ResponseWriter, r *http.Request) {
	var req createWorkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Name == "" {
		s.writeError(w, errors.NewInvalidRequestError("work name is required"))
		return
	}

	id, err := s.catalog.CreateWork(&catalog.Work{ID: req.ID, Name: req.Name, Description: req.Description})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleDeleteWork(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		s.writeError(w, errors.NewInvalidRequestError("invalid work id"))
		return
	}
	if err := s.catalog.DeleteWorkCascade(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListWorks(w http.ResponseWriter, r *http.Request) {
	works, err := s.catalog.ListWorks()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, works)
}

type createAssignmentRequest struct {
	WorkID     int64 `json:"work_id"`
	FreqID     int64 `json:"freq_id"`
	RoleID     int64 `json:"role_id"`
	WorkTypeID int64 `json:"work_type_id"`
	SectorID   int64 `json:"sector_id"`
}

func (s *Server) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.NewInvalidRequestError("invalid request body"))
		return
	}

	id, err := s.assignments.Create(&maint.Assignment{
		WorkID:     req.WorkID,
		FreqID:     req.FreqID,
		RoleID:     req.RoleID,
		WorkTypeID: req.WorkTypeID,
		SectorID:   req.SectorID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleCancelAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		s.writeError(w, errors.NewInvalidRequestError("invalid assignment id"))
		return
	}
	if err := s.assignments.Cancel(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := s.assignments.ListAll()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, assignments)
}

// handleGetEmployee looks a card id up in the employee directory. Used by
// admin tooling to verify reader and directory wiring.
func (s *Server) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	if s.directory == nil {
		s.writeError(w, errors.NewNotFoundError("employee directory not configured"))
		return
	}

	emp, err := s.directory.ResolveEmployee(r.Context(), r.PathValue("card"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, emp)
}

// handleReports returns the execution log, filtered by sector, status and a
// date (interpreted as that day's two shift windows).
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	var filter maint.ReportFilter

	if v := r.URL.Query().Get("sector"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, errors.NewInvalidRequestError("invalid sector"))
			return
		}
		filter.SectorID = id
	}
	filter.Status = r.URL.Query().Get("status")
	if v := r.URL.Query().Get("date"); v != "" {
		day, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			s.writeError(w, errors.NewInvalidRequestError("invalid date, want YYYY-MM-DD"))
			return
		}
		// The day's shift windows both start on that calendar day
		filter.From = day.Add(8 * time.Hour)
		filter.To = day.AddDate(0, 0, 1).Add(8 * time.Hour)
	}

	report, err := s.executions.ListReport(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if report == nil {
		report = []maint.ReportRow{}
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListSectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := s.catalog.ListSectors()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sectors)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession()
	if sess == nil {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"session":       sess,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	up := s.dbUp()
	status := http.StatusOK
	if !up {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, map[string]interface{}{
		"database": up,
		"kiosk":    s.cfg.Kiosk.Name,
	})
}

func (s *Server) currentSession() *session.Session {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.Current()
}

func pathInt64(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(r.PathValue(key), 10, 64)
}

func queryInt64(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
}
