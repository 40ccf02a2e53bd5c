package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/alextreichler/estatehub/internal/apperr"
	"github.com/alextreichler/estatehub/internal/auth"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
)

const genericError = "Something went wrong. Please try again."

// Base carries what every handler needs to render pages and answer JSON calls.
type Base struct {
	Sessions  *auth.Sessions
	Templates *TemplateCache
}

// render executes a page template with the common page data added: identity,
// CSRF field and pending flashes.
func (b *Base) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	tmpl := b.Templates.Get(name)
	if tmpl == nil {
		slog.Error("Template not found", "name", name)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	session := b.Sessions.Session(r)
	data["Identity"] = auth.FromContext(r.Context())
	data["CsrfField"] = csrf.TemplateField(r)
	data["CsrfToken"] = csrf.Token(r)
	data["Flashes"] = GetFlash(session)
	data["Path"] = r.URL.Path
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		slog.Error("Failed to render template", "name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (b *Base) flash(w http.ResponseWriter, r *http.Request, kind string, messages ...string) {
	session := b.Sessions.Session(r)
	for _, m := range messages {
		session.AddFlash(FlashMessage{Type: kind, Message: m})
	}
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
	}
}

// redirectWithFlash adds a flash and sends the browser to target.
func (b *Base) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	b.flash(w, r, kind, message)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// notFound renders the 404 page.
func (b *Base) notFound(w http.ResponseWriter, r *http.Request) {
	b.render(w, r, http.StatusNotFound, "error.html", map[string]any{
		"Status":  http.StatusNotFound,
		"Message": "The page you are looking for does not exist.",
	})
}

// pageError answers a failed page load.
func (b *Base) pageError(w http.ResponseWriter, r *http.Request, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		b.notFound(w, r)
	case apperr.KindAuthorization:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	default:
		slog.Error("Request failed", "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
		b.render(w, r, http.StatusInternalServerError, "error.html", map[string]any{
			"Status":  http.StatusInternalServerError,
			"Message": genericError,
		})
	}
}

// formError answers a failed form submission: user errors are flashed and
// the browser is sent back to the form.
func (b *Base) formError(w http.ResponseWriter, r *http.Request, err error, back string) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindConflict:
		msgs := sortedMessages(apperr.FieldsOf(err))
		if len(msgs) == 0 {
			msgs = []string{apperr.Message(err, genericError)}
		}
		b.flash(w, r, "error", msgs...)
		http.Redirect(w, r, back, http.StatusSeeOther)
	case apperr.KindAuthorization:
		b.redirectWithFlash(w, r, "/login", "error", apperr.Message(err, "Please sign in."))
	case apperr.KindNotFound:
		b.notFound(w, r)
	default:
		slog.Error("Form submission failed", "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
		b.redirectWithFlash(w, r, back, "error", genericError)
	}
}

// Envelope is the JSON reply of AJAX endpoints: {"success": ..., "message": ..., extra...}.
type Envelope struct {
	Success bool
	Message string
	Extra   map[string]any
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Extra)+2)
	for k, v := range e.Extra {
		m[k] = v
	}
	m["success"] = e.Success
	if e.Message != "" {
		m["message"] = e.Message
	}
	return json.Marshal(m)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func jsonOK(w http.ResponseWriter, message string, extra map[string]any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: message, Extra: extra})
}

// jsonError maps err onto a failure envelope. Storage failures keep their
// message; unexpected errors are logged and reported generically.
func jsonError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status = http.StatusInternalServerError
		msg    = genericError
		extra  map[string]any
	)
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status, msg = http.StatusBadRequest, apperr.Message(err, "Invalid input")
	case apperr.KindNotFound:
		status, msg = http.StatusNotFound, apperr.Message(err, "Not found")
	case apperr.KindAuthorization:
		status, msg = http.StatusForbidden, "Unauthorized"
	case apperr.KindConflict:
		status, msg = http.StatusConflict, apperr.Message(err, "Conflict")
	case apperr.KindStorage:
		msg = apperr.Detail(err, genericError)
		slog.Error("Storage failure", "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
	default:
		slog.Error("Request failed", "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
	}
	if fields := apperr.FieldsOf(err); len(fields) > 0 {
		extra = map[string]any{"errors": fields}
		if apperr.KindOf(err) == apperr.KindValidation {
			msg = strings.Join(sortedMessages(fields), " ")
		}
	}
	writeJSON(w, status, Envelope{Success: false, Message: msg, Extra: extra})
}

// pathID reads the numeric {id} route variable.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func sortedMessages(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fields[k])
	}
	return msgs
}
