package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"student-console/internal/console"
	"student-console/internal/httputil"
	"student-console/internal/query"
	"student-console/internal/student"
	"student-console/internal/studentclient"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	console  *console.Console
	renderer *renderer
	logger   *slog.Logger
}

func NewHandler(c *console.Console, logger *slog.Logger) (*Handler, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &Handler{console: c, renderer: r, logger: logger}, nil
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/students", http.StatusFound)
	})
	router.Get("/students", h.ListStudents)
	router.Post("/students/refetch", h.RefetchStudents)
	router.Post("/students/cancel", h.CancelStudents)
	router.Get("/students/add", h.ShowForm)
	router.Post("/students/add", h.SubmitForm)
	router.Get("/students/{id}", h.ShowForm)
	router.Post("/students/{id}", h.SubmitForm)
	router.Post("/students/{id}/delete", h.DeleteStudent)
	router.Post("/students/{id}/prefetch", h.PrefetchStudent)
}

type listPage struct {
	State  console.ListState
	Notice string
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	page := console.ListRoute(r.URL.Query())
	view := h.console.NewListView()

	state, err := view.Load(r.Context(), page)
	data := listPage{State: state}
	if err != nil {
		data.Notice = listNotice(err)
		h.logger.WarnContext(r.Context(), "failed to load students", "page", page, "error", err)
	}
	h.render(w, r, http.StatusOK, "list.html", data)
}

func (h *Handler) RefetchStudents(w http.ResponseWriter, r *http.Request) {
	page := console.ListRoute(r.URL.Query())
	view := h.console.NewListView()
	view.SetPage(page)
	if _, err := view.Refetch(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "refetch failed", "page", page, "error", err)
	}
	redirectToList(w, r, page)
}

func (h *Handler) CancelStudents(w http.ResponseWriter, r *http.Request) {
	page := console.ListRoute(r.URL.Query())
	view := h.console.NewListView()
	view.SetPage(page)
	if view.Cancel() {
		h.logger.InfoContext(r.Context(), "students request canceled", "page", page)
	}
	redirectToList(w, r, page)
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		h.renderError(w, r, http.StatusBadRequest, "Invalid student ID")
		return
	}
	page := console.ListRoute(r.URL.Query())
	view := h.console.NewListView()
	view.SetPage(page)

	if err := view.Delete(r.Context(), id); err != nil {
		if errors.Is(err, studentclient.ErrNotFound) {
			h.renderError(w, r, http.StatusNotFound, "Student not found")
			return
		}
		h.renderError(w, r, http.StatusBadGateway, "Failed to delete student")
		return
	}
	redirectToList(w, r, page)
}

func (h *Handler) PrefetchStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(r, "id")
	if !ok {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid student ID")
		return
	}
	h.console.NewListView().Hover(id)
	w.WriteHeader(http.StatusNoContent)
}

type formPage struct {
	Add         bool
	ID          int
	Action      string
	Draft       student.Draft
	Genders     []student.Gender
	FieldErrors map[string]string
	Notice      string
	Success     string
}

func (h *Handler) ShowForm(w http.ResponseWriter, r *http.Request) {
	form, ok := h.mountForm(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, form, formPage{})
}

func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	form, ok := h.mountForm(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid form")
		return
	}

	fieldErrors := make(map[string]string)
	for _, field := range student.Fields {
		if err := form.Change(field, r.PostForm.Get(field)); err != nil {
			fieldErrors[field] = "Invalid value"
		}
	}
	if len(fieldErrors) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, form, formPage{FieldErrors: fieldErrors})
		return
	}

	saved, err := form.Submit(r.Context())
	if err == nil {
		msg := fmt.Sprintf("Student %d updated", saved.ID)
		if form.Mode() == console.ModeAdd {
			msg = fmt.Sprintf("Student %d created", saved.ID)
		}
		h.renderForm(w, r, http.StatusOK, form, formPage{Success: msg})
		return
	}

	var incomplete *console.IncompleteDraftError
	switch {
	case errors.As(err, &incomplete):
		for _, field := range incomplete.Fields {
			fieldErrors[field] = "Required"
		}
		h.renderForm(w, r, http.StatusUnprocessableEntity, form, formPage{FieldErrors: fieldErrors})
	case len(form.FieldErrors()) > 0:
		h.renderForm(w, r, http.StatusUnprocessableEntity, form, formPage{})
	case errors.Is(err, studentclient.ErrNotFound):
		h.renderError(w, r, http.StatusNotFound, "Student not found")
	default:
		h.logger.ErrorContext(r.Context(), "failed to save student", "mode", form.Mode().String(), "error", err)
		h.renderForm(w, r, http.StatusBadGateway, form, formPage{Notice: "Failed to save student, please try again"})
	}
}

// mountForm builds the form view for the route and loads the edited record.
// It writes the error response itself and returns false when it cannot.
func (h *Handler) mountForm(w http.ResponseWriter, r *http.Request) (*console.FormView, bool) {
	mode, id, err := console.RouteMode(r.URL.Path, chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid student ID")
		return nil, false
	}

	form := h.console.NewFormView(mode, id)
	if err := form.Mount(r.Context()); err != nil {
		if errors.Is(err, studentclient.ErrNotFound) {
			h.renderError(w, r, http.StatusNotFound, "Student not found")
			return nil, false
		}
		h.logger.ErrorContext(r.Context(), "failed to load student", "student_id", id, "error", err)
		h.renderError(w, r, http.StatusBadGateway, "Failed to load student")
		return nil, false
	}
	return form, true
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, code int, form *console.FormView, data formPage) {
	data.Add = form.Mode() == console.ModeAdd
	data.ID = form.ID()
	data.Action = console.AddPath
	if !data.Add {
		data.Action = fmt.Sprintf("/students/%d", form.ID())
	}
	data.Draft = form.Draft()
	data.Genders = student.Genders
	if data.FieldErrors == nil {
		data.FieldErrors = form.FieldErrors()
	}
	h.render(w, r, code, "form.html", data)
}

type errorPage struct {
	Title   string
	Message string
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, code int, message string) {
	h.render(w, r, code, "error.html", errorPage{Title: http.StatusText(code), Message: message})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, code int, page string, data any) {
	if err := h.renderer.render(w, code, page, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page", "page", page, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func redirectToList(w http.ResponseWriter, r *http.Request, page int) {
	http.Redirect(w, r, fmt.Sprintf("/students?page=%d", page), http.StatusSeeOther)
}

func listNotice(err error) string {
	switch {
	case errors.Is(err, query.ErrTimeout):
		return "The students request timed out. Use Refetch to try again."
	case errors.Is(err, query.ErrCanceled):
		return "The students request was canceled."
	default:
		return "Failed to load students."
	}
}
