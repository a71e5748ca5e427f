package rpc

import "fmt"

// RemoteError - сервис ответил success=false.
type RemoteError struct {
	Route   string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: remote call failed", e.Route)
	}
	return fmt.Sprintf("%s: remote error: %s", e.Route, e.Message)
}

// HTTPError - ответ с кодом 4xx/5xx.
type HTTPError struct {
	Route  string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Route, e.Status, e.Body)
}
