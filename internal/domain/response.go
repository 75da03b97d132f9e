package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
)

// ProtocolVersion is the envelope version understood by the hosting runtime.
const ProtocolVersion = "v2"

// Response is the invocation result envelope. It is immutable once built;
// use NewResponse to construct one.
type Response struct {
	code     int
	body     any
	headers  map[string]string
	location string
}

// NewResponse builds a Response. A location may only be set on 301 and 302.
func NewResponse(code int, body any, headers map[string]string, location string) (Response, error) {
	if location != "" && code != http.StatusMovedPermanently && code != http.StatusFound {
		return Response{}, fmt.Errorf("domain: location can only be set for redirect responses (301 or 302), got %d", code)
	}
	h := make(map[string]string, len(headers))
	maps.Copy(h, headers)
	return Response{code: code, body: body, headers: h, location: location}, nil
}

func (r Response) StatusCode() int { return r.code }

func (r Response) Body() any { return r.body }

// Headers returns a copy of the response headers.
func (r Response) Headers() map[string]string {
	return maps.Clone(r.headers)
}

func (r Response) Location() string { return r.location }

type responseWire struct {
	Protocol string            `json:"_shsf"`
	Code     int               `json:"_code"`
	Body     any               `json:"_res"`
	Headers  map[string]string `json:"_headers"`
	Location string            `json:"_location"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	headers := r.headers
	if headers == nil {
		headers = map[string]string{}
	}
	return json.Marshal(responseWire{
		Protocol: ProtocolVersion,
		Code:     r.code,
		Body:     r.body,
		Headers:  headers,
		Location: r.location,
	})
}
