// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

// This file contains a REST skeleton framework.
//
// The bulk of this is dealing with HTTP content type negotiation, and
// providing a standard way to deal with input and output values.
// The major variables are the type canonicalization map, the context
// builder, and the codecs in restdata.
//
// Another more generic solution out there is
// https://github.com/jchannon/negotiator.  This only deals with
// output type negotiation, forces all JSON-ish output to report
// itself as "application/json", and doesn't deal well with other HTTP
// status codes.

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/diffeo/go-travelhistory/restdata"
	"github.com/sirupsen/logrus"
)

var typeMap = map[string]string{
	"text/json":              restdata.V1JSONMediaType,
	"application/json":       restdata.V1JSONMediaType,
	restdata.JSONMediaType:   restdata.V1JSONMediaType,
	restdata.V1JSONMediaType: restdata.V1JSONMediaType,
	restdata.CBORMediaType:   restdata.CBORMediaType,
}

// errBadAccept is returned from negotiateResponse() if the Accept:
// header is malformed (and no more specific error applies).
var errBadAccept = errors.New("Invalid Accept: header")

// errNotAcceptable is returned from negotiateResponse() if the Accept:
// header does not mention any media types we can actually return.
type errNotAcceptable struct{}

func (e errNotAcceptable) Error() string {
	return "No acceptable representation for response"
}

func (e errNotAcceptable) HTTPStatus() int {
	return http.StatusNotAcceptable
}

// errMethodNotAllowed is used within the resourceHandler implementation
// to flag an error if a particular HTTP method is not allowed.  This
// corresponds exactly to the 405 Method Not Allowed HTTP status code.
type errMethodNotAllowed struct {
	Method string
}

func (e errMethodNotAllowed) Error() string {
	return fmt.Sprintf("Method %v not allowed", e.Method)
}

func (e errMethodNotAllowed) HTTPStatus() int {
	return http.StatusMethodNotAllowed
}

// responseCreated is returned as a value response from handler
// functions that want to indicate that a new resource was created.
type responseCreated struct {
	// Location holds the canonical URL to the newly created resource.
	Location string

	// Body contains the object sent in the body of the response.
	Body interface{}
}

// responseRaw is returned from handler functions that produce a
// pre-encoded body, such as an image.  It bypasses content
// negotiation.
type responseRaw struct {
	ContentType string
	Body        []byte
}

type resourceHandler struct {
	// Representation is an object representing this resource.
	// A copy of this object will be passed to handler functions.
	Representation interface{}

	// Context reads an HTTP request and produces a context object.
	Context func(req *http.Request) (*requestContext, error)

	// Logger receives a message for every server-side failure.
	Logger logrus.FieldLogger

	// Get, if non-nil, returns a representation of the object.
	Get func(*requestContext) (interface{}, error)

	// Put, if non-nil, creates or replaces the object.  The
	// interface parameter is guaranteed to be the same type as
	// Representation.  The return can be any useful return
	// value, including responseCreated.
	Put func(*requestContext, interface{}) (interface{}, error)

	// Patch, if non-nil, partially updates the object.  The
	// interface parameter is guaranteed to be the same type as
	// Representation.
	Patch func(*requestContext, interface{}) (interface{}, error)

	// Delete, if non-nil, deletes the object.  The return can be
	// any useful return value.
	Delete func(*requestContext) (interface{}, error)
}

func (h *resourceHandler) logger(req *http.Request) logrus.FieldLogger {
	logger := h.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
	})
}

// readBody decodes the request body into a new object of the same
// type as h.Representation.  An empty body decodes as the zero value.
func (h *resourceHandler) readBody(req *http.Request) (interface{}, error) {
	ptr := reflect.New(reflect.TypeOf(h.Representation))
	if req.Body == nil {
		return ptr.Elem().Interface(), nil
	}
	body, err := ioutil.ReadAll(req.Body)
	if err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ptr.Elem().Interface(), nil
	}
	contentType := req.Header.Get("Content-Type")
	err = restdata.Decode(contentType, bytes.NewReader(body), ptr.Interface())
	if err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

func (h *resourceHandler) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	var (
		ctx          *requestContext
		in, out      interface{}
		err          error
		status       int
		responseType string
	)

	// Recover from panics by sending an HTTP error.
	defer func() {
		if recovered := recover(); recovered != nil {
			response := restdata.ErrorResponse{}
			response.FromPanic(recovered)
			h.logger(req).WithField("stack", response.Stack).Error(response.Message)
			resp.Header().Set("Content-Type", restdata.V1JSONMediaType)
			resp.WriteHeader(http.StatusInternalServerError)
			_ = restdata.Encode(restdata.V1JSONMediaType, resp, response)
		}
	}()

	// Start by trying to come up with a response type, even before
	// trying to parse the input.  This determines what format an
	// error message could be sent back as.
	// A GET with nothing acceptable may still produce a raw body,
	// so that failure is deferred until the output is known.
	status = http.StatusBadRequest
	responseType, err = negotiateResponse(req)
	var notAcceptable error
	if err != nil {
		// Gotta pick something
		responseType = restdata.V1JSONMediaType
		if _, isStatus := err.(restdata.ErrorStatus); !isStatus {
			err = restdata.ErrBadRequest{Err: err}
		}
		if _, isNA := err.(errNotAcceptable); isNA && (req.Method == http.MethodGet || req.Method == http.MethodHead) {
			notAcceptable = err
			err = nil
		}
	}

	// Get bits from URL parameters
	if err == nil {
		ctx, err = h.Context(req)
	}

	// Read the body, if it's there
	if err == nil && (req.Method == http.MethodPut || req.Method == http.MethodPatch) {
		in, err = h.readBody(req)
	}

	// Actually call the handler method
	if err == nil {
		// We will return this if the method is unexpected or
		// we don't have a handler for it
		err = errMethodNotAllowed{Method: req.Method}
		// If anything else goes wrong here, it's an error in
		// client code
		status = http.StatusInternalServerError
		switch req.Method {
		case http.MethodGet, http.MethodHead:
			if h.Get != nil {
				out, err = h.Get(ctx)
			}
		case http.MethodPut:
			if h.Put != nil {
				out, err = h.Put(ctx, in)
			}
		case http.MethodPatch:
			if h.Patch != nil {
				out, err = h.Patch(ctx, in)
			}
		case http.MethodDelete:
			if h.Delete != nil {
				out, err = h.Delete(ctx)
			}
		}
	}

	if _, isRaw := out.(responseRaw); err == nil && notAcceptable != nil && !isRaw {
		status = http.StatusNotAcceptable
		err = notAcceptable
	}

	// Fix up the final result based on what we know.
	if err != nil {
		// Pick a better status code if we know of one
		if errS, hasStatus := err.(restdata.ErrorStatus); hasStatus {
			status = errS.HTTPStatus()
		}
		if status >= http.StatusInternalServerError {
			h.logger(req).WithError(err).Error("request failed")
		}
		errResp := restdata.ErrorResponse{Error: "error", Message: err.Error()}
		errResp.FromError(err)
		out = errResp
	} else if out == nil {
		status = http.StatusNoContent
	} else if created, isCreated := out.(responseCreated); isCreated {
		status = http.StatusCreated
		if created.Location != "" {
			resp.Header().Set("Location", created.Location)
		}
		out = created.Body
	} else {
		status = http.StatusOK
	}

	if raw, isRaw := out.(responseRaw); isRaw {
		resp.Header().Set("Content-Type", raw.ContentType)
		resp.Header().Set("Content-Length", strconv.Itoa(len(raw.Body)))
		resp.WriteHeader(status)
		if req.Method != http.MethodHead {
			_, err = resp.Write(raw.Body)
			if err != nil {
				h.logger(req).WithError(err).Warn("failed to write response")
			}
		}
		return
	}

	canonicalType, understood := typeMap[responseType]
	if !understood {
		// We shouldn't get here, because it implies response
		// type negotiation failed...but here we are
		out = restdata.ErrorResponse{Error: "error", Message: "Invalid response type " + responseType}
		canonicalType = restdata.V1JSONMediaType
		responseType = restdata.V1JSONMediaType
		status = http.StatusInternalServerError
	}
	if req.Method == http.MethodHead && status < http.StatusBadRequest {
		out = nil
	}

	// Actually send the response.  By the time the encoder fails
	// the status line is already out, so all we can do is log it.
	if out != nil {
		resp.Header().Set("Content-Type", responseType)
	}
	resp.WriteHeader(status)
	if out != nil {
		err = restdata.Encode(canonicalType, resp, out)
		if err != nil {
			h.logger(req).WithError(err).Warn("failed to write response")
		}
	}
}

// negotiateResponse returns a supported MIME type for the response
// body, following the path laid out in RFC 7231 section 5.3.
func negotiateResponse(req *http.Request) (string, error) {
	accept := req.Header.Get("Accept")
	if accept == "" {
		accept = "*/*"
	}
	bestType := ""
	bestQ := 0.0
	mediaRanges := strings.Split(accept, ",")
	for _, mediaRange := range mediaRanges {
		mediaRange = strings.TrimSpace(mediaRange)
		mediaType, params, err := mime.ParseMediaType(mediaRange)
		if err != nil {
			return "", err
		}

		// What is the "q" ("quality") parameter for this type?
		// If it is less than the best known so far, skip it
		q := 1.0
		if qStr, haveQ := params["q"]; haveQ {
			q, err = strconv.ParseFloat(qStr, 64)
			if err != nil {
				return "", err
			}
			if q < 0.0 || q > 1.0 {
				return "", errBadAccept
			}
		}
		if q < bestQ {
			continue
		}

		// This is acceptable if it's listed in the type
		// map; or it's one of a couple of specific wildcards.
		// Also need to handle wildcard precedence.  So:
		if mediaType == "*/*" {
			// Doesn't override anything.
			if q > bestQ {
				bestType = mediaType
				bestQ = q
			}
		} else if mediaType == "text/*" || mediaType == "application/*" {
			// Only overrides "*/*".
			if q > bestQ || bestType == "*/*" {
				bestType = mediaType
				bestQ = q
			}
		} else if _, knownType := typeMap[mediaType]; knownType {
			// Overrides any wildcard.  We want the first one
			// at a given q to win.
			if q > bestQ || bestType == "*/*" || bestType == "text/*" || bestType == "application/*" {
				bestType = mediaType
				bestQ = q
			}
		}
		// Otherwise we don't recognize this type at all, so
		// just drop it.
	}
	// If this failed to win, return an error
	if bestQ == 0.0 {
		return "", errNotAcceptable{}
	}
	switch bestType {
	case "*/*", "application/*":
		return restdata.V1JSONMediaType, nil
	case "text/*":
		return "text/json", nil
	default:
		return bestType, nil
	}
}
