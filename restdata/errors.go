// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"

	"github.com/diffeo/go-travelhistory/directory"
	"github.com/diffeo/go-travelhistory/travel"
)

// ErrorStatus describes errors that correspond to specific HTTP status
// codes.
type ErrorStatus interface {
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// ErrUnsupportedMediaType is returned from Decode() if the provided
// Content-Type: is unrecognized.  This translates directly into the
// equivalent HTTP 415 error.
type ErrUnsupportedMediaType struct {
	Type string
}

func (e ErrUnsupportedMediaType) Error() string {
	return fmt.Sprintf("Unsupported media type %q", e.Type)
}

// HTTPStatus returns a fixed 415 Unsupported Media Type error code.
func (e ErrUnsupportedMediaType) HTTPStatus() int {
	return http.StatusUnsupportedMediaType
}

// ErrNotFound is a wrapper error that indicates that, due to the
// embedded error, a REST service should return a 404 Not Found error.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 404 Not Found error code.
func (e ErrNotFound) HTTPStatus() int {
	return http.StatusNotFound
}

// Unwrap returns the embedded error.
func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrBadRequest is returned as an error when there is an error decoding
// HTTP headers or the request body, or the request is invalid.
type ErrBadRequest struct {
	Err error
}

func (e ErrBadRequest) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 400 Bad Request HTTP status code.
func (e ErrBadRequest) HTTPStatus() int {
	return http.StatusBadRequest
}

// Unwrap returns the embedded error.
func (e ErrBadRequest) Unwrap() error {
	return e.Err
}

// ErrBadGateway indicates that a service this one depends on failed.
type ErrBadGateway struct {
	Err error
}

func (e ErrBadGateway) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 502 Bad Gateway HTTP status code.
func (e ErrBadGateway) HTTPStatus() int {
	return http.StatusBadGateway
}

// Unwrap returns the embedded error.
func (e ErrBadGateway) Unwrap() error {
	return e.Err
}

// ErrGatewayTimeout indicates that a service this one depends on did
// not answer in time.
type ErrGatewayTimeout struct {
	Err error
}

func (e ErrGatewayTimeout) Error() string {
	return e.Err.Error()
}

// HTTPStatus returns a fixed 504 Gateway Timeout HTTP status code.
func (e ErrGatewayTimeout) HTTPStatus() int {
	return http.StatusGatewayTimeout
}

// Unwrap returns the embedded error.
func (e ErrGatewayTimeout) Unwrap() error {
	return e.Err
}

// FromError populates an ErrorResponse to fill in its fields based
// on an error value.  This remaps the well-known travel and directory
// errors to specific e.Error codes.
func (e *ErrorResponse) FromError(err error) {
	switch err {
	case travel.ErrNoData:
		e.Error = "ErrNoData"
	case directory.ErrNotFound:
		e.Error = "ErrDirectoryNotFound"
	case directory.ErrTimeout:
		e.Error = "ErrDirectoryTimeout"
	}
	switch et := err.(type) {
	case travel.ErrNoSuchCountry:
		e.Error = "ErrNoSuchCountry"
		e.Value = et.Code
	case travel.ErrInvalidCode:
		e.Error = "ErrInvalidCode"
		e.Value = et.Code
	case travel.ErrInvalidYear:
		e.Error = "ErrInvalidYear"
		e.Value = strconv.Itoa(et.Year)
	case *directory.UpstreamError:
		e.Error = "ErrUpstream"
		if et.StatusCode != 0 {
			e.Value = strconv.Itoa(et.StatusCode)
		}
	case ErrNotFound:
		// Discard this wrapper and return the embedded error
		e.FromError(et.Err)
	case ErrBadRequest:
		e.FromError(et.Err)
	case ErrBadGateway:
		e.FromError(et.Err)
	case ErrGatewayTimeout:
		e.FromError(et.Err)
	}
}

// ToError converts e back to a travel or directory error, if that is
// possible.  If not, returns a plain error with e.Message text.
func (e *ErrorResponse) ToError() error {
	switch e.Error {
	case "ErrNoData":
		return travel.ErrNoData
	case "ErrDirectoryNotFound":
		return directory.ErrNotFound
	case "ErrDirectoryTimeout":
		return directory.ErrTimeout
	case "ErrNoSuchCountry":
		return travel.ErrNoSuchCountry{Code: e.Value}
	case "ErrInvalidCode":
		return travel.ErrInvalidCode{Code: e.Value}
	case "ErrInvalidYear":
		year, err := strconv.Atoi(e.Value)
		if err != nil {
			return errors.New(e.Message)
		}
		return travel.ErrInvalidYear{Year: year}
	case "ErrUpstream":
		status, _ := strconv.Atoi(e.Value)
		return &directory.UpstreamError{StatusCode: status, Err: errors.New(e.Message)}
	default:
		return errors.New(e.Message)
	}
}

// FromPanic populates an error response based on a panic.  Typical use
// is:
//
//     defer func() {
//         if obj := recovered(); obj != nil {
//             resp := restdata.ErrorResponse{}
//             resp.FromPanic(obj)
//             // write resp out as makes sense
//         }
//    }
func (e *ErrorResponse) FromPanic(obj interface{}) {
	e.Error = "panic"
	if recoveredError, isError := obj.(error); isError {
		e.Message = recoveredError.Error()
	} else {
		e.Message = fmt.Sprintf("%+v", obj)
	}
	var stack [4096]byte
	len := runtime.Stack(stack[:], false)
	e.Stack = string(stack[:len])
}
