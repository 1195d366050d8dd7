// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"net/http"

	"github.com/gorilla/schema"
	"github.com/samber/oops"
)

type credentialsForm struct {
	Email    string `schema:"email"`
	Password string `schema:"password"`
}

type resetRequestForm struct {
	Email string `schema:"email"`
}

type passwordUpdateForm struct {
	Email       string `schema:"email"`
	ResetToken  string `schema:"reset_token"`
	NewPassword string `schema:"new_password"`
}

var formDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// formError is a client-facing form problem. Message is either a
// "<field> missing" string or an expected_fields object for an empty body.
type formError struct {
	Message any
}

func (e *formError) Error() string {
	if s, ok := e.Message.(string); ok {
		return s
	}
	return "request body is empty"
}

// decodeForm decodes the url-encoded body into dst and checks that every
// required field is present and non-empty, in the order given.
func decodeForm(r *http.Request, dst any, required ...string) error {
	if err := r.ParseForm(); err != nil {
		return oops.Code("HTTP_BAD_FORM").Wrap(err)
	}
	if len(r.PostForm) == 0 {
		return &formError{Message: map[string][]string{"expected_fields": required}}
	}
	for _, field := range required {
		if r.PostForm.Get(field) == "" {
			return &formError{Message: field + " missing"}
		}
	}
	if err := formDecoder.Decode(dst, r.PostForm); err != nil {
		return oops.Code("HTTP_BAD_FORM").Wrap(err)
	}
	return nil
}
