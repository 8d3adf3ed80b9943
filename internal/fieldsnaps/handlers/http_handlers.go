package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/auth"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/controller"
	e "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/geofence"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

const (
	// multipartMemory is held in memory before parts spill to disk.
	multipartMemory = 8 << 20
	maxWebhookBody  = 1 << 20
)

// Services are the controllers behind the REST routes.
type Services struct {
	Users         *controller.UserService
	Companies     *controller.CompanyService
	Projects      *controller.ProjectService
	Photos        *controller.PhotoService
	Tasks         *controller.TaskService
	Clock         *controller.ClockService
	Notifications *controller.NotificationService
	Activity      *controller.ActivityService
	Billing       *controller.BillingService
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// API serves the REST routes.
type API struct {
	svc    Services
	health Pinger
	logger *zap.Logger
}

func NewAPI(services Services, health Pinger, logger *zap.Logger) *API {
	return &API{
		svc:    services,
		health: health,
		logger: logger.Named("http_handler"),
	}
}

// actorHandler handles an authenticated request. Returned errors are written
// as JSON error envelopes.
type actorHandler func(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error

type route struct {
	method  string
	pattern string
	handler actorHandler
}

func (a *API) routes() []route {
	return []route{
		{http.MethodGet, "/api/auth/me", a.me},
		{http.MethodPatch, "/api/auth/me", a.updateMe},

		{http.MethodPost, "/api/companies", a.createCompany},
		{http.MethodGet, "/api/companies/current", a.getCompany},
		{http.MethodPatch, "/api/companies/current", a.updateCompany},
		{http.MethodPost, "/api/companies/join", a.joinCompany},
		{http.MethodPost, "/api/companies/invite-code", a.rotateInviteCode},
		{http.MethodGet, "/api/companies/members", a.listMembers},
		{http.MethodPatch, "/api/companies/members/{id}", a.updateMember},
		{http.MethodDelete, "/api/companies/members/{id}", a.removeMember},

		{http.MethodGet, "/api/contractors", a.listContractors},
		{http.MethodPost, "/api/contractors", a.createContractor},
		{http.MethodDelete, "/api/contractors/{id}", a.deleteContractor},

		{http.MethodGet, "/api/projects", a.listProjects},
		{http.MethodPost, "/api/projects", a.createProject},
		{http.MethodGet, "/api/projects/{id}", a.getProject},
		{http.MethodPatch, "/api/projects/{id}", a.updateProject},
		{http.MethodDelete, "/api/projects/{id}", a.deleteProject},
		{http.MethodGet, "/api/projects/{id}/photos", a.listPhotos},
		{http.MethodPost, "/api/projects/{id}/photos", a.uploadPhoto},

		{http.MethodGet, "/api/photos/{id}", a.getPhoto},
		{http.MethodPatch, "/api/photos/{id}", a.updatePhoto},
		{http.MethodDelete, "/api/photos/{id}", a.deletePhoto},
		{http.MethodGet, "/api/photos/{id}/content", a.photoContent(false)},
		{http.MethodGet, "/api/photos/{id}/thumbnail", a.photoContent(true)},

		{http.MethodGet, "/api/tasks", a.listTasks},
		{http.MethodPost, "/api/tasks", a.createTask},
		{http.MethodGet, "/api/tasks/{id}", a.getTask},
		{http.MethodPatch, "/api/tasks/{id}", a.updateTask},
		{http.MethodDelete, "/api/tasks/{id}", a.deleteTask},
		{http.MethodPost, "/api/tasks/{id}/complete", a.completeTask},
		{http.MethodPost, "/api/tasks/{id}/reopen", a.reopenTask},

		{http.MethodPost, "/api/clock/in", a.punch(models.PunchClockIn)},
		{http.MethodPost, "/api/clock/out", a.punch(models.PunchClockOut)},
		{http.MethodPost, "/api/clock/break/start", a.punch(models.PunchBreakStart)},
		{http.MethodPost, "/api/clock/break/end", a.punch(models.PunchBreakEnd)},
		{http.MethodGet, "/api/clock/status", a.clockStatus},
		{http.MethodGet, "/api/clock/entries", a.timesheet},
		{http.MethodPost, "/api/clock/geofence", a.geofenceEvent},
		{http.MethodGet, "/api/clock/geofences", a.geofences},
		{http.MethodGet, "/api/clock/geofence-config", a.geofenceConfig},

		{http.MethodGet, "/api/notifications", a.listNotifications},
		{http.MethodGet, "/api/notifications/unread-count", a.unreadCount},
		{http.MethodPost, "/api/notifications/{id}/read", a.markRead},
		{http.MethodPost, "/api/notifications/read-all", a.markAllRead},

		{http.MethodGet, "/api/activity", a.activity},

		{http.MethodGet, "/api/billing/subscription", a.subscription},
		{http.MethodPost, "/api/billing/checkout", a.checkout},
		{http.MethodPost, "/api/billing/portal", a.portal},
	}
}

// Register adds every route to mux.
func (a *API) Register(mux *runtime.ServeMux) error {
	if err := mux.HandlePath(http.MethodGet, "/healthz", a.healthz); err != nil {
		return err
	}
	if err := mux.HandlePath(http.MethodPost, "/api/billing/webhook", a.webhook); err != nil {
		return err
	}
	for _, rt := range a.routes() {
		if err := mux.HandlePath(rt.method, rt.pattern, a.authed(rt.handler)); err != nil {
			return fmt.Errorf("register %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return nil
}

// NewHTTPHandler builds the REST mux and wraps it in the middleware stack.
func NewHTTPHandler(api *API, cfg HTTPConfig, logger *zap.Logger) (http.Handler, error) {
	mux := runtime.NewServeMux(runtime.WithRoutingErrorHandler(
		func(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler, w http.ResponseWriter, _ *http.Request, status int) {
			code := "not_found"
			if status == http.StatusMethodNotAllowed {
				code = "method_not_allowed"
			}
			writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: http.StatusText(status)}})
		},
	))
	if err := api.Register(mux); err != nil {
		return nil, err
	}
	return withMiddleware(mux, cfg, logger), nil
}

// authed resolves the signed-in user before calling h.
func (a *API) authed(h actorHandler) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, a.logger, fmt.Errorf("%w: missing credentials", e.ErrUnauthenticated))
			return
		}
		actor, err := a.svc.Users.Resolve(r.Context(), claims)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		if err := h(w, r, actor, params); err != nil {
			writeError(w, a.logger, err)
		}
	}
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if a.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.health.Ping(ctx); err != nil {
			a.logger.Warn("Health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// created picks 201 for new records and 200 for replays.
func created(isNew bool) int {
	if isNew {
		return http.StatusCreated
	}
	return http.StatusOK
}

// auth

func (a *API) me(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	profile, err := a.svc.Users.Me(r.Context(), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toProfile(profile, actor))
	return nil
}

func (a *API) updateMe(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	var req struct {
		FullName string `json:"fullName"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	user, err := a.svc.Users.UpdateProfile(r.Context(), actor, req.FullName)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toUser(user))
	return nil
}

// companies

type nameRequest struct {
	Name string `json:"name"`
}

func (a *API) createCompany(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	company, err := a.svc.Companies.CreateCompany(r.Context(), actor, req.Name)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toCompany(company, actor))
	return nil
}

func (a *API) getCompany(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	company, err := a.svc.Companies.GetCompany(r.Context(), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toCompany(company, actor))
	return nil
}

func (a *API) updateCompany(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	company, err := a.svc.Companies.UpdateCompany(r.Context(), actor, req.Name)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toCompany(company, actor))
	return nil
}

func (a *API) joinCompany(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	var req struct {
		InviteCode string `json:"inviteCode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	company, err := a.svc.Companies.JoinCompany(r.Context(), actor, req.InviteCode)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toCompany(company, actor))
	return nil
}

func (a *API) rotateInviteCode(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	company, err := a.svc.Companies.RotateInviteCode(r.Context(), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toCompany(company, actor))
	return nil
}

func (a *API) listMembers(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	members, err := a.svc.Companies.ListMembers(r.Context(), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toUsers(members))
	return nil
}

func (a *API) updateMember(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	user, err := a.svc.Companies.UpdateMemberRole(r.Context(), actor, id, req.Role)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toUser(user))
	return nil
}

func (a *API) removeMember(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	if err := a.svc.Companies.RemoveMember(r.Context(), actor, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// contractors

func (a *API) listContractors(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	contractors, err := a.svc.Companies.ListContractors(r.Context(), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toContractors(contractors))
	return nil
}

func (a *API) createContractor(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	var req struct {
		Name  string `json:"name"`
		Trade string `json:"trade"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	contractor, err := a.svc.Companies.CreateContractor(r.Context(), actor, controller.ContractorInput{
		Name:  req.Name,
		Trade: req.Trade,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toContractor(contractor))
	return nil
}

func (a *API) deleteContractor(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	if err := a.svc.Companies.DeleteContractor(r.Context(), actor, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// projects

func (a *API) listProjects(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	projects, err := a.svc.Projects.ListProjects(r.Context(), actor, queryBool(r, "includeCompleted"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toProjects(projects))
	return nil
}

func (a *API) createProject(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	project, err := a.svc.Projects.CreateProject(r.Context(), actor, req.toModel())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toProject(project))
	return nil
}

func (a *API) getProject(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	project, err := a.svc.Projects.GetProject(r.Context(), actor, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toProject(project))
	return nil
}

func (a *API) updateProject(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	project, err := a.svc.Projects.UpdateProject(r.Context(), actor, req.toUpdate(id))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toProject(project))
	return nil
}

func (a *API) deleteProject(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	if err := a.svc.Projects.DeleteProject(r.Context(), actor, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// photos

func (a *API) listPhotos(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	projectID, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return err
	}
	photos, err := a.svc.Photos.ListPhotos(r.Context(), actor, projectID, models.Page{Limit: limit, Offset: offset})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toPhotos(photos))
	return nil
}

// uploadPhoto takes a multipart form with the image in the "photo" part and
// optional caption, takenAt, latitude, longitude and clientId fields.
func (a *API) uploadPhoto(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	projectID, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	r.Body = http.MaxBytesReader(w, r.Body, controller.MaxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return fmt.Errorf("%w: invalid multipart upload: %v", e.ErrInvalidInput, err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, _, err := r.FormFile("photo")
	if err != nil {
		return fmt.Errorf("%w: photo file is required", e.ErrInvalidInput)
	}
	defer file.Close()

	upload := models.PhotoUpload{
		ProjectID: projectID,
		Caption:   r.FormValue("caption"),
		ClientID:  r.FormValue("clientId"),
	}
	if raw := r.FormValue("takenAt"); raw != "" {
		takenAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return fmt.Errorf("%w: takenAt must be an RFC 3339 time", e.ErrInvalidInput)
		}
		upload.TakenAt = &takenAt
	}
	if upload.Latitude, err = formFloat(r, "latitude"); err != nil {
		return err
	}
	if upload.Longitude, err = formFloat(r, "longitude"); err != nil {
		return err
	}

	photo, isNew, err := a.svc.Photos.UploadPhoto(r.Context(), actor, upload, file)
	if err != nil {
		return err
	}
	writeJSON(w, created(isNew), toPhoto(photo))
	return nil
}

func formFloat(r *http.Request, name string) (*float64, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", e.ErrInvalidInput, name)
	}
	return &f, nil
}

func (a *API) getPhoto(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	photo, err := a.svc.Photos.GetPhoto(r.Context(), actor, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toPhoto(photo))
	return nil
}

func (a *API) updatePhoto(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	var req struct {
		Caption string `json:"caption"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	photo, err := a.svc.Photos.UpdateCaption(r.Context(), actor, id, req.Caption)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toPhoto(photo))
	return nil
}

func (a *API) deletePhoto(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	if err := a.svc.Photos.DeletePhoto(r.Context(), actor, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *API) photoContent(thumbnail bool) actorHandler {
	return func(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
		id, err := pathUUID(params, "id")
		if err != nil {
			return err
		}
		rc, photo, err := a.svc.Photos.OpenContent(r.Context(), actor, id, thumbnail)
		if err != nil {
			return err
		}
		defer rc.Close()

		w.Header().Set("Content-Type", photo.ContentType)
		w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, rc); err != nil {
			a.logger.Warn("Photo stream interrupted", zap.String("photo_id", id.String()), zap.Error(err))
		}
		return nil
	}
}

// tasks

func (a *API) listTasks(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	var (
		filter models.TaskFilter
		err    error
	)
	if filter.ProjectID, err = queryUUID(r, "projectId"); err != nil {
		return err
	}
	if filter.AssignedTo, err = queryUUID(r, "assignedTo"); err != nil {
		return err
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.TaskStatus(raw)
		filter.Status = &status
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		return err
	}
	tasks, err := a.svc.Tasks.ListTasks(r.Context(), actor, filter)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toTasks(tasks))
	return nil
}

func (a *API) createTask(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	task, isNew, err := a.svc.Tasks.CreateTask(r.Context(), actor, req.toInput())
	if err != nil {
		return err
	}
	writeJSON(w, created(isNew), toTask(task))
	return nil
}

func (a *API) getTask(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	task, err := a.svc.Tasks.GetTask(r.Context(), actor, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toTask(task))
	return nil
}

func (a *API) updateTask(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	task, err := a.svc.Tasks.UpdateTask(r.Context(), actor, req.toUpdate(id))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toTask(task))
	return nil
}

func (a *API) deleteTask(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	if err := a.svc.Tasks.DeleteTask(r.Context(), actor, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *API) completeTask(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	task, err := a.svc.Tasks.CompleteTask(r.Context(), actor, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toTask(task))
	return nil
}

func (a *API) reopenTask(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	task, err := a.svc.Tasks.ReopenTask(r.Context(), actor, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toTask(task))
	return nil
}

// clock

func (a *API) punch(t models.PunchType) actorHandler {
	return func(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
		var req punchRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		entry, err := a.svc.Clock.Punch(r.Context(), actor, t, req.toModel())
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, toTimeEntry(entry))
		return nil
	}
}

func (a *API) clockStatus(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	status, err := a.svc.Clock.Status(r.Context(), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toClockStatus(status))
	return nil
}

// timesheet defaults to the last seven days.
func (a *API) timesheet(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	from, err := queryTime(r, "from")
	if err != nil {
		return err
	}
	to, err := queryTime(r, "to")
	if err != nil {
		return err
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -7)
	}
	sheet, err := a.svc.Clock.Timesheet(r.Context(), actor, from, to)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toTimesheet(sheet))
	return nil
}

func (a *API) geofenceEvent(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	var req geofenceEventRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	projectID, err := uuid.Parse(req.Identifier)
	if err != nil {
		return fmt.Errorf("%w: unknown geofence identifier", e.ErrInvalidInput)
	}
	entry, err := a.svc.Clock.HandleGeofenceEvent(r.Context(), actor, projectID, controller.GeofenceAction(req.Action), req.toModel())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applied": entry != nil,
		"entry":   toTimeEntry(entry),
	})
	return nil
}

func (a *API) geofences(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	lat, err := queryFloat(r, "latitude")
	if err != nil {
		return err
	}
	lng, err := queryFloat(r, "longitude")
	if err != nil {
		return err
	}
	var origin *geofence.Point
	if lat != nil && lng != nil {
		origin = &geofence.Point{Latitude: *lat, Longitude: *lng}
	}
	fences, err := a.svc.Clock.Geofences(r.Context(), actor, origin)
	if err != nil {
		return err
	}
	if fences == nil {
		fences = []geofence.Fence{}
	}
	writeJSON(w, http.StatusOK, fences)
	return nil
}

func (a *API) geofenceConfig(w http.ResponseWriter, r *http.Request, _ *controller.Actor, _ map[string]string) error {
	cfg, err := a.svc.Clock.GeofenceConfig(r.URL.Query().Get("mode"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, cfg)
	return nil
}

// notifications and activity

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return err
	}
	notifications, err := a.svc.Notifications.List(r.Context(), actor, queryBool(r, "unread"), limit)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toNotifications(notifications))
	return nil
}

func (a *API) unreadCount(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	n, err := a.svc.Notifications.UnreadCount(r.Context(), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
	return nil
}

func (a *API) markRead(w http.ResponseWriter, r *http.Request, actor *controller.Actor, params map[string]string) error {
	id, err := pathUUID(params, "id")
	if err != nil {
		return err
	}
	if err := a.svc.Notifications.MarkRead(r.Context(), actor, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *API) markAllRead(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	n, err := a.svc.Notifications.MarkAllRead(r.Context(), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
	return nil
}

func (a *API) activity(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	projectID, err := queryUUID(r, "projectId")
	if err != nil {
		return err
	}
	cursor, err := feedCursor(r)
	if err != nil {
		return err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return err
	}
	entries, err := a.svc.Activity.Feed(r.Context(), actor, projectID, cursor, limit)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toActivity(entries))
	return nil
}

// billing

func (a *API) subscription(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	company, canWrite, err := a.svc.Billing.Subscription(r.Context(), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           company.SubscriptionStatus,
		"trialEndsAt":      company.TrialEndsAt,
		"currentPeriodEnd": company.CurrentPeriodEnd,
		"canWrite":         canWrite,
		"hasBilling":       company.StripeCustomerID != "",
	})
	return nil
}

func (a *API) checkout(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	var req struct {
		SuccessURL string `json:"successUrl"`
		CancelURL  string `json:"cancelUrl"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	url, err := a.svc.Billing.CreateCheckoutSession(r.Context(), actor, req.SuccessURL, req.CancelURL)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
	return nil
}

func (a *API) portal(w http.ResponseWriter, r *http.Request, actor *controller.Actor, _ map[string]string) error {
	var req struct {
		ReturnURL string `json:"returnUrl"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	url, err := a.svc.Billing.CreatePortalSession(r.Context(), actor, req.ReturnURL)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
	return nil
}

// webhook is public; the Stripe signature authenticates it.
func (a *API) webhook(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, a.logger, fmt.Errorf("%w: unreadable body", e.ErrInvalidInput))
		return
	}
	if err := a.svc.Billing.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
