// Package handlers exposes the read side of the CRM over HTTP. Every handler
// forwards the caller's bearer token to the service layer, which re-runs the
// authorization gate.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/epicevents/crm/app"
	"github.com/epicevents/crm/internal/observability"
	"github.com/epicevents/crm/middleware"
	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/services/audit"
	"github.com/epicevents/crm/services/contracts"
	"github.com/epicevents/crm/services/events"
	"github.com/epicevents/crm/utils"
	"github.com/go-chi/chi/v5"
)

// parseID reads the {id} route parameter, writing 400 when it is not a positive integer.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		_ = utils.WriteBadRequest(w, "invalid id", map[string]interface{}{"id": raw})
		return 0, false
	}
	return id, true
}

// queryBool reads an optional boolean query parameter, writing 400 when malformed.
func queryBool(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		_ = utils.WriteBadRequest(w, "invalid query parameter", map[string]interface{}{name: raw})
		return false, false
	}
	return v, true
}

// queryID reads an optional positive integer query parameter, writing 400 when malformed.
func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		_ = utils.WriteBadRequest(w, "invalid query parameter", map[string]interface{}{name: raw})
		return 0, false
	}
	return v, true
}

// MeHandler returns the authenticated collaborator
func MeHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user, err := deps.Users.Me(ctx, middleware.GetTokenFromContext(ctx))
		if err != nil {
			HandleServiceError(w, err, observability.WithRequest(ctx, deps.Logger))
			return
		}
		_ = utils.WriteOK(w, user)
	}
}

// ListUsersHandler lists every collaborator
func ListUsersHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		users, err := deps.Users.List(ctx, middleware.GetTokenFromContext(ctx))
		if err != nil {
			HandleServiceError(w, err, observability.WithRequest(ctx, deps.Logger))
			return
		}
		_ = utils.WriteList(w, users, len(users))
	}
}

// ListClientsHandler lists clients; ?mine=true narrows to the caller's own
func ListClientsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		mine, ok := queryBool(w, r, "mine")
		if !ok {
			return
		}

		token := middleware.GetTokenFromContext(ctx)
		list := deps.Clients.List
		if mine {
			list = deps.Clients.ListMine
		}
		clients, err := list(ctx, token)
		if err != nil {
			HandleServiceError(w, err, observability.WithRequest(ctx, deps.Logger))
			return
		}
		_ = utils.WriteList(w, clients, len(clients))
	}
}

// GetClientHandler returns one client
func GetClientHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		client, err := deps.Clients.Get(ctx, middleware.GetTokenFromContext(ctx), id)
		if err != nil {
			HandleServiceError(w, err, observability.WithRequest(ctx, deps.Logger))
			return
		}
		_ = utils.WriteOK(w, client)
	}
}

// ListContractsHandler lists contracts, optionally those of ?client_id=
func ListContractsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token := middleware.GetTokenFromContext(ctx)

		clientID, ok := queryID(w, r, "client_id")
		if !ok {
			return
		}

		var err error
		var list []*models.Contract
		if clientID > 0 {
			list, err = deps.Contracts.ListByClient(ctx, token, clientID)
		} else {
			list, err = deps.Contracts.List(ctx, token)
		}
		if err != nil {
			HandleServiceError(w, err, observability.WithRequest(ctx, deps.Logger))
			return
		}
		_ = utils.WriteList(w, list, len(list))
	}
}

// GetContractHandler returns one contract
func GetContractHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		contract, err := deps.Contracts.Get(ctx, middleware.GetTokenFromContext(ctx), id)
		if err != nil {
			HandleServiceError(w, err, observability.WithRequest(ctx, deps.Logger))
			return
		}
		_ = utils.WriteOK(w, contract)
	}
}

// FilterContractsHandler filters contracts by ?unsigned, ?unpaid and ?mine
func FilterContractsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var opts contracts.FilterOptions
		var ok bool
		if opts.Unsigned, ok = queryBool(w, r, "unsigned"); !ok {
			return
		}
		if opts.Unpaid, ok = queryBool(w, r, "unpaid"); !ok {
			return
		}
		if opts.Mine, ok = queryBool(w, r, "mine"); !ok {
			return
		}

		list, err := deps.Contracts.Filter(ctx, middleware.GetTokenFromContext(ctx), opts)
		if err != nil {
			HandleServiceError(w, err, observability.WithRequest(ctx, deps.Logger))
			return
		}
		_ = utils.WriteList(w, list, len(list))
	}
}

// ListEventsHandler lists every event
func ListEventsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		list, err := deps.Events.List(ctx, middleware.GetTokenFromContext(ctx))
		if err != nil {
			HandleServiceError(w, err, observability.WithRequest(ctx, deps.Logger))
			return
		}
		_ = utils.WriteList(w, list, len(list))
	}
}

// GetEventHandler returns one event
func GetEventHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		event, err := deps.Events.Get(ctx, middleware.GetTokenFromContext(ctx), id)
		if err != nil {
			HandleServiceError(w, err, observability.WithRequest(ctx, deps.Logger))
			return
		}
		_ = utils.WriteOK(w, event)
	}
}

// FilterEventsHandler filters events by ?no_support and ?mine
func FilterEventsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var opts events.FilterOptions
		var ok bool
		if opts.WithoutSupport, ok = queryBool(w, r, "no_support"); !ok {
			return
		}
		if opts.Mine, ok = queryBool(w, r, "mine"); !ok {
			return
		}

		list, err := deps.Events.Filter(ctx, middleware.GetTokenFromContext(ctx), opts)
		if err != nil {
			HandleServiceError(w, err, observability.WithRequest(ctx, deps.Logger))
			return
		}
		_ = utils.WriteList(w, list, len(list))
	}
}

// AuditTrailHandler returns audit entries for ?resource=&id= or ?actor=,
// newest first; ?limit= caps the count.
func AuditTrailHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := audit.TrailQuery{ResourceType: r.URL.Query().Get("resource")}
		var ok bool
		if q.ResourceID, ok = queryID(w, r, "id"); !ok {
			return
		}
		if q.ActorID, ok = queryID(w, r, "actor"); !ok {
			return
		}
		limit, ok := queryID(w, r, "limit")
		if !ok {
			return
		}
		q.Limit = int(min(limit, audit.MaxTrailLimit+1))

		logs, err := deps.AuditTrail.History(ctx, middleware.GetTokenFromContext(ctx), q)
		if err != nil {
			HandleServiceError(w, err, observability.WithRequest(ctx, deps.Logger))
			return
		}
		_ = utils.WriteList(w, logs, len(logs))
	}
}
