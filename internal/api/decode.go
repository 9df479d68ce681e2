// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ManuGH/animator/internal/animator"
)

const maxBodyBytes = 64 << 10

// decodeBody strictly decodes a JSON body into v. An empty body leaves v
// untouched when allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			if allowEmpty {
				return nil
			}
			return fmt.Errorf("%w: request body required", animator.ErrInvalidArgument)
		}
		return fmt.Errorf("%w: %v", animator.ErrInvalidArgument, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", animator.ErrInvalidArgument)
	}
	return nil
}
