package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go-storefront/errs"
	"go-storefront/services"

	"go.mongodb.org/mongo-driver/bson"
)

var errEmptyPatch = errors.New("nothing to update")

var kindStatus = map[errs.Kind]int{
	errs.KindInvalid:      http.StatusBadRequest,
	errs.KindUnauthorized: http.StatusUnauthorized,
	errs.KindForbidden:    http.StatusForbidden,
	errs.KindNotFound:     http.StatusNotFound,
	errs.KindConflict:     http.StatusConflict,
	errs.KindUnavailable:  http.StatusServiceUnavailable,
	errs.KindInternal:     http.StatusInternalServerError,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to its HTTP status. Checkout field errors are returned as
// a JSON body so the wizard can show them inline.
func writeError(w http.ResponseWriter, err error, fallback string) {
	status := kindStatus[errs.KindOf(err)]
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, status, map[string]any{
			"error":  errs.Message(err, fallback),
			"fields": verr.Fields,
		})
		return
	}
	http.Error(w, errs.Message(err, fallback), status)
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// decodeStrict also rejects fields v does not declare.
func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// patchFields turns a patch struct of omitempty pointer fields into the document fields to merge.
func patchFields(patch any) (bson.M, error) {
	raw, err := bson.Marshal(patch)
	if err != nil {
		return nil, err
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errEmptyPatch
	}
	return fields, nil
}
