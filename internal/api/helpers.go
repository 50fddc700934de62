package api

import (
	"encoding/json/v2"
	"net/http"
	"strconv"

	"github.com/lecternapp/lectern-server/internal/errors"
	"github.com/lecternapp/lectern-server/internal/store"
)

// decodeAndValidate reads a JSON request body into dst and runs struct
// validation. Returns a domain error suitable for response.HandleError.
func (s *Server) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.UnmarshalRead(r.Body, dst); err != nil {
		return errors.Validation("invalid JSON body: " + err.Error())
	}
	return s.validator.Validate(dst)
}

// parsePaginationParams parses pagination parameters from query string.
func parsePaginationParams(r *http.Request) store.PaginationParams {
	params := store.DefaultPaginationParams()

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			params.Limit = limit
		}
	}

	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		params.Cursor = cursor
	}

	params.Validate()
	return params
}
