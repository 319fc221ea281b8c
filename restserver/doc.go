// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restserver publishes a travel history store as a REST
// service.  The restclient package is a matching client.
//
// The complete REST API is defined in the restdata package.  In
// particular, note that the URLs described here are not actually part
// of the API.
//
// HTTP Considerations
//
// Clients should use the standard HTTP Accept: header to request a
// specific format.  See "MIME Types" below.
//
// This interface does not (currently) support HTTP caching or
// authentication headers.
//
// MIME Types
//
// This interface understands MIME types as follows:
//
//     application/vnd.diffeo.travel.v1+json
//
// JSON representation of version 1 of this interface.
//
//     application/vnd.diffeo.travel+json
//     application/json
//     text/json
//
// JSON representation of latest version of this interface.
//
//     application/cbor
//
// CBOR encoding of the same structures.
//
// The visited summary is returned in whatever format the configured
// Renderer produces, regardless of the Accept: header.
//
// URL Scheme
//
// Countries are addressed by two-letter code, in either case; the
// canonical URLs use uppercase.  The following URLs are defined:
//
//     /
//     /countries
//     /countries/visited
//     /countries/{code}
package restserver
