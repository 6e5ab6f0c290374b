package ssdp

import "errors"

// Errors returned by HandleSSDPRequest. Rejected requests never produce a
// response on the wire.
var (
	ErrInvalidRequest         = errors.New("invalid M-SEARCH request")
	ErrInvalidMX              = errors.New("invalid MX header")
	ErrMissingSearchTarget    = errors.New("missing ST header")
	ErrUnsupportedUPnPVersion = errors.New("unsupported UPnP version")

	ErrAddressInUse   = errors.New("address already in use")
	ErrAlreadyStarted = errors.New("controller already started")
)
