package httpapi

import (
	"net/http"

	"sourzka.org/internal/marketplace"
)

func (a *API) onboard(w http.ResponseWriter, r *http.Request) {
	var in marketplace.OnboardingInput
	if err := decodeJSON(r, &in); err != nil {
		writeAppError(w, r, err)
		return
	}
	m, err := a.svc.Onboard(r.Context(), principal(r), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

func (a *API) profile(w http.ResponseWriter, r *http.Request) {
	p, err := a.svc.Profile(r.Context(), principal(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in marketplace.ProfileUpdate
	if err := decodeJSON(r, &in); err != nil {
		writeAppError(w, r, err)
		return
	}
	m, err := a.svc.UpdateProfile(r.Context(), principal(r), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

func (a *API) addLegalDocument(w http.ResponseWriter, r *http.Request) {
	var in marketplace.LegalDocumentInput
	if err := decodeJSON(r, &in); err != nil {
		writeAppError(w, r, err)
		return
	}
	doc, err := a.svc.AddLegalDocument(r.Context(), principal(r), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, doc)
}

// toggleOwnReview is the self-service variant: the manufacturer flips its
// own viewed-by-staff flag.
func (a *API) toggleOwnReview(w http.ResponseWriter, r *http.Request) {
	m, err := a.svc.ToggleStaffReview(r.Context(), principal(r).ManufacturerID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

func (a *API) verifyGSTIN(w http.ResponseWriter, r *http.Request) {
	var in marketplace.GSTINInput
	if err := decodeJSON(r, &in); err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := marketplace.CheckInput(in); err != nil {
		writeAppError(w, r, err)
		return
	}
	res := a.svc.VerifyAndStoreGSTIN(r.Context(), principal(r).UserID, in.GSTIN)
	if err := res.Err(); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}
