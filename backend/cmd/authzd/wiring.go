package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hodei-project/hodei-authz/backend/internal/authz"
	"github.com/hodei-project/hodei-authz/backend/internal/authzhttp"
	"github.com/hodei-project/hodei-authz/backend/internal/demo"
	"github.com/hodei-project/hodei-authz/backend/internal/schema"
)

// buildDemoAuthorizeRequest decodes the wire body into the DocApp::User /
// DocApp::Document types this binary registers, for the worked example
// exposed on /v1/authorize. A deployment covering a different domain
// would supply its own AuthorizeFunc and its own entity/action packages.
func buildDemoAuthorizeRequest(r *http.Request, body authzhttp.AuthorizeRequestBody) (authz.Request, error) {
	if body.ActionName == "" {
		return authz.Request{}, fmt.Errorf("authzd: action is required")
	}

	var principal demo.User
	if len(body.Principal) == 0 {
		return authz.Request{}, fmt.Errorf("authzd: principal is required")
	}
	if err := json.Unmarshal(body.Principal, &principal); err != nil {
		return authz.Request{}, fmt.Errorf("authzd: decoding principal: %w", err)
	}

	req := authz.Request{
		ActionName: body.ActionName,
		Principal:  principal,
	}

	if len(body.Resource) > 0 {
		var resource demo.Document
		if err := json.Unmarshal(body.Resource, &resource); err != nil {
			return authz.Request{}, fmt.Errorf("authzd: decoding resource: %w", err)
		}
		req.Resource = resource
	}

	if len(body.Payload) > 0 {
		var payload demo.NewDocumentPayload
		if err := json.Unmarshal(body.Payload, &payload); err != nil {
			return authz.Request{}, fmt.Errorf("authzd: decoding payload: %w", err)
		}
		req.Payload = demo.DocumentCreate{Payload: payload}
	}

	req.Context = schema.RequestContext{TenantID: body.TenantID}
	return req, nil
}
