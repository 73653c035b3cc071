package httpapi

import (
	"context"
	"net/http"

	"sourzka.org/internal/marketplace"
)

type signinFunc func(context.Context, marketplace.SigninInput) (marketplace.Session, error)

func (a *API) signupManufacturer(w http.ResponseWriter, r *http.Request) {
	var in marketplace.SignupInput
	if err := decodeJSON(r, &in); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := a.svc.SignupManufacturer(r.Context(), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, res)
}

func (a *API) signinManufacturer(w http.ResponseWriter, r *http.Request) {
	a.signin(w, r, a.svc.SigninManufacturer)
}

func (a *API) signupBuyer(w http.ResponseWriter, r *http.Request) {
	var in marketplace.SignupInput
	if err := decodeJSON(r, &in); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := a.svc.SignupBuyer(r.Context(), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, res)
}

func (a *API) signinBuyer(w http.ResponseWriter, r *http.Request) {
	a.signin(w, r, a.svc.SigninBuyer)
}

func (a *API) adminLogin(w http.ResponseWriter, r *http.Request) {
	a.signin(w, r, a.svc.AdminLogin)
}

func (a *API) signin(w http.ResponseWriter, r *http.Request, fn signinFunc) {
	var in marketplace.SigninInput
	if err := decodeJSON(r, &in); err != nil {
		writeAppError(w, r, err)
		return
	}
	session, err := fn(r.Context(), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, session)
}
