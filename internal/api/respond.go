// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package api

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/logging"
)

// detailBody is the uniform error envelope.
type detailBody struct {
	Detail string `json:"detail"`
}

// respondJSON writes a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warn().Err(err).Msg("failed to encode response body")
	}
}

// respondDetail writes a {"detail": msg} body.
func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, detailBody{Detail: detail})
}

// respondError maps an error to its HTTP status. 4xx kinds expose their
// message; 5xx kinds are sanitized to a generic detail and logged in
// full.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.KindOf(err)
	status := kind.HTTPStatus()

	if status >= 500 {
		logging.CtxErr(r.Context(), err).
			Str("kind", kind.String()).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondDetail(w, status, "Internal server error")
		return
	}
	respondDetail(w, status, apperrors.Message(err))
}
