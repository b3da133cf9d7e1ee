package httptransport

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"streetwatch/internal/incident/models"
	incidentsvc "streetwatch/internal/incident/service"
	"streetwatch/internal/photo"
	"streetwatch/internal/report"
	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/platform/httputil"
)

type createIncidentRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	Priority    string              `json:"priority"`
	Region      string              `json:"region"`
	SubRegion   string              `json:"sub_region"`
	Coordinates *models.Coordinates `json:"coordinates"`
}

func (h *Handler) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	var req createIncidentRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	inc, err := h.incidents.Create(r.Context(), incidentsvc.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Region:      req.Region,
		SubRegion:   req.SubRegion,
		Coordinates: req.Coordinates,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, inc)
}

func (h *Handler) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	page, err := h.incidents.Query(r.Context(), queryParams(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.incidents.GetOverview(r.Context(), queryParams(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, overview)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.incidents.Stats(r.Context(), queryParams(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	incidentID, err := incidentIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	inc, err := h.incidents.Get(r.Context(), incidentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inc)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	incidentID, err := incidentIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	inc, err := h.incidents.Transition(r.Context(), incidentID, req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inc)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	incidentID, err := incidentIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req struct {
		AgentID string `json:"agent_id"`
		Notify  bool   `json:"notify"`
	}
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	agentID, err := id.ParseUserID(req.AgentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	inc, err := h.incidents.Assign(r.Context(), incidentID, agentID, req.Notify)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inc)
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	incidentID, err := incidentIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req struct {
		Feedback string `json:"feedback"`
	}
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	inc, err := h.incidents.AddFeedback(r.Context(), incidentID, req.Feedback)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inc)
}

func (h *Handler) handleRenderReport(w http.ResponseWriter, r *http.Request) {
	incidentID, err := incidentIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	format := report.FormatPDF
	if raw := r.URL.Query().Get("format"); raw != "" {
		if format, err = report.ParseFormat(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	out, err := h.reports.Render(r.Context(), incidentID, format)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="incident-`+incidentID.String()+`.`+string(format)+`"`)
	_, _ = w.Write(out)
}

func (h *Handler) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	incidentID, err := incidentIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := r.ParseMultipartForm(photo.MaxFileSize); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid multipart body"))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "photo field missing"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, photo.MaxFileSize+1))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read upload"))
		return
	}

	ref, err := h.incidents.AttachPhoto(r.Context(), incidentID, func(existing int) (string, error) {
		return h.photos.Save(data, header.Header.Get("Content-Type"), header.Filename, existing)
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"ref": ref})
}

func (h *Handler) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	data, err := h.photos.Open(chi.URLParam(r, "ref"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}

func (h *Handler) handleRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.locations.Regions(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]string{"regions": regions})
}

func (h *Handler) handleSubRegions(w http.ResponseWriter, r *http.Request) {
	subRegions, err := h.locations.SubRegions(r.Context(), chi.URLParam(r, "region"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]string{"sub_regions": subRegions})
}

func incidentIDParam(r *http.Request) (id.IncidentID, error) {
	return id.ParseIncidentID(chi.URLParam(r, "incidentID"))
}

// queryParams maps the query string onto the service's filter params. Dates
// use the 2006-01-02 form; an unparsable date is dropped like any other
// invalid filter.
func queryParams(r *http.Request) incidentsvc.QueryParams {
	q := r.URL.Query()
	params := incidentsvc.QueryParams{
		Status:    q.Get("status"),
		Category:  q.Get("category"),
		Region:    q.Get("region"),
		SubRegion: q.Get("sub_region"),
		AgentID:   q.Get("agent_id"),
		SortBy:    q.Get("sort_by"),
		SortDir:   q.Get("sort_dir"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		params.Page = page
	}
	if size, err := strconv.Atoi(q.Get("page_size")); err == nil {
		params.PageSize = size
	}
	if from, err := time.Parse("2006-01-02", q.Get("from")); err == nil {
		params.From = &from
	}
	if to, err := time.Parse("2006-01-02", q.Get("to")); err == nil {
		params.To = &to
	}
	return params
}
