package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sourzka.org/internal/apperr"
	"sourzka.org/internal/ids"
	"sourzka.org/internal/marketplace"
)

const msgProductNotFound = "Product not found"

// productID returns the {id} path parameter, rejecting malformed ids before
// they reach the store.
func productID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if !ids.Valid(id) {
		return "", apperr.NotFound(msgProductNotFound)
	}
	return id, nil
}

func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	view, err := a.svc.Product(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (a *API) myProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.svc.MyProducts(r.Context(), principal(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, products)
}

func (a *API) createProduct(w http.ResponseWriter, r *http.Request) {
	var in marketplace.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeAppError(w, r, err)
		return
	}
	p, err := a.svc.CreateProduct(r.Context(), principal(r), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (a *API) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	var in marketplace.ProductUpdate
	if err := decodeJSON(r, &in); err != nil {
		writeAppError(w, r, err)
		return
	}
	p, err := a.svc.UpdateProduct(r.Context(), principal(r), id, in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (a *API) toggleProductStatus(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	p, err := a.svc.ToggleProductStatus(r.Context(), principal(r), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (a *API) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := a.svc.DeleteProduct(r.Context(), principal(r), id); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{
		"id":      id,
		"message": "Product deleted",
	})
}
