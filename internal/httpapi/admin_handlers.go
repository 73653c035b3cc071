package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"sourzka.org/internal/apperr"
	"sourzka.org/internal/audit"
	"sourzka.org/internal/ids"
	"sourzka.org/internal/marketplace"
)

const msgManufacturerNotFound = "Manufacturer not found"

func manufacturerID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if !ids.Valid(id) {
		return "", apperr.NotFound(msgManufacturerNotFound)
	}
	return id, nil
}

func (a *API) listManufacturers(w http.ResponseWriter, r *http.Request) {
	f, err := manufacturerFilter(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	page, err := a.svc.ListManufacturers(r.Context(), f)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, page)
}

func manufacturerFilter(r *http.Request) (marketplace.ManufacturerFilter, error) {
	var (
		f   marketplace.ManufacturerFilter
		err error
	)
	if f.Verified, err = queryBool(r, "verified"); err != nil {
		return f, err
	}
	if f.IsViewedByStaff, err = queryBool(r, "isViewedByStaff"); err != nil {
		return f, err
	}
	if f.Page, err = queryInt(r, "page", 1); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit", 10); err != nil {
		return f, err
	}
	f.Search = strings.TrimSpace(r.URL.Query().Get("search"))
	return f, nil
}

func (a *API) manufacturerDetails(w http.ResponseWriter, r *http.Request) {
	id, err := manufacturerID(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	profile, err := a.svc.ManufacturerDetails(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, profile)
}

func (a *API) setVerification(w http.ResponseWriter, r *http.Request) {
	id, err := manufacturerID(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	var in marketplace.VerificationInput
	if err := decodeJSON(r, &in); err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := marketplace.CheckInput(in); err != nil {
		writeAppError(w, r, err)
		return
	}
	m, err := a.svc.SetVerification(r.Context(), id, *in.IsVerified)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

func (a *API) toggleReview(w http.ResponseWriter, r *http.Request) {
	id, err := manufacturerID(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	m, err := a.svc.ToggleStaffReview(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

func (a *API) auditLog(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	q := r.URL.Query()
	entries, err := a.svc.AuditLog(r.Context(), audit.Query{
		Resource:   strings.TrimSpace(q.Get("resource")),
		ResourceID: strings.TrimSpace(q.Get("resourceId")),
		Action:     audit.Action(strings.ToUpper(strings.TrimSpace(q.Get("action")))),
		Limit:      limit,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, entries)
}
