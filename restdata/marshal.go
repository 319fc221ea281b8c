// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"io"
	"mime"

	"github.com/ugorji/go/codec"
)

// CanonicalMediaType maps an acceptable request or response media
// type to the specific type it is handled as.  It returns the empty
// string for types this package cannot handle.
func CanonicalMediaType(mediaType string) string {
	switch mediaType {
	case "text/json", "application/json", JSONMediaType, V1JSONMediaType:
		return V1JSONMediaType
	case CBORMediaType:
		return CBORMediaType
	default:
		return ""
	}
}

// Handle returns the codec handle for a canonical media type, or nil
// if there is none.
func Handle(mediaType string) codec.Handle {
	switch mediaType {
	case V1JSONMediaType:
		return &codec.JsonHandle{}
	case CBORMediaType:
		return &codec.CborHandle{}
	default:
		return nil
	}
}

// Encode writes an object to a writer in a canonical media type.
func Encode(mediaType string, w io.Writer, in interface{}) error {
	h := Handle(mediaType)
	if h == nil {
		return ErrUnsupportedMediaType{Type: mediaType}
	}
	return codec.NewEncoder(w, h).Encode(in)
}

// Decode tries to decode a restdata object from a reader, such as an
// HTTP request or response.  out must be a pointer type.
func Decode(contentType string, r io.Reader, out interface{}) error {
	if contentType == "" {
		// RFC 7231 section 3.1.1.5
		contentType = "application/octet-stream"
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ErrBadRequest{Err: err}
	}

	h := Handle(CanonicalMediaType(mediaType))
	if h == nil {
		return ErrUnsupportedMediaType{Type: mediaType}
	}
	err = codec.NewDecoder(r, h).Decode(out)
	if err != nil {
		return ErrBadRequest{Err: err}
	}
	return nil
}
