package pipeline

import "errors"

var (
	errNoClient      = errors.New("no connected client for session")
	relayDisabledErr = errors.New("forwarding relay not configured")
)
