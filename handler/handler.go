package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"deal-checker/internal/domain"
	"deal-checker/internal/usecase"
)

// Routes understood by the router.
const (
	RouteDefault      = "default"
	RouteManifest     = "manifest.json"
	RouteShare        = "share"
	RouteCheckItem    = "check_item"
	RouteItemProxy    = "item_proxy"
	RouteItemQuestion = "item_question"
)

const (
	msgRouteNotFound    = "Route not found."
	msgUnhandledRoute   = "Unhandled route."
	msgURLRequired      = "URL is required."
	msgURLInvalid       = "Invalid URL. Must be a Kleinanzeigen URL."
	msgQuestionRequired = "Question is required."
	msgInvalidAI        = "Invalid response from AI."
)

var uiAssets = map[string]string{
	RouteDefault:  "index.html",
	RouteManifest: "manifest.json",
}

var uiHeaders = map[string]string{"Content-Type": "text/html"}

// ItemService is the use-case surface the router dispatches to.
type ItemService interface {
	Proxy(ctx context.Context, in usecase.ProxyInput) (domain.Item, error)
	Ask(ctx context.Context, in usecase.QuestionInput) (usecase.QuestionOutput, error)
	Check(ctx context.Context, in usecase.CheckInput) (usecase.CheckOutput, error)
}

type AssetReader interface {
	Read(name string) (string, error)
}

// Invocation is the raw Lambda event. Body is either a JSON string or an
// already decoded object. An absent route means the UI root; a null or
// non-string route matches nothing.
type Invocation struct {
	Body  json.RawMessage `json:"body"`
	Route json.RawMessage `json:"route"`
}

type Router struct {
	svc    ItemService
	assets AssetReader
	log    *zap.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type questionResponse struct {
	Item        domain.Item                  `json:"item"`
	Question    string                       `json:"question"`
	Answer      string                       `json:"answer"`
	Annotations map[string]domain.Annotation `json:"annotations"`
}

type checkResponse struct {
	Item     domain.Item     `json:"item"`
	Decision domain.Decision `json:"decision"`
}

func NewRouter(svc ItemService, assets AssetReader, log *zap.Logger) (*Router, error) {
	if svc == nil {
		return nil, errors.New("handler: item service must not be nil")
	}
	if assets == nil {
		return nil, errors.New("handler: asset reader must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{svc: svc, assets: assets, log: log}, nil
}

// Handle dispatches one invocation. Client mistakes and invalid model output
// become error envelopes; everything else is returned as an error.
func (r *Router) Handle(ctx context.Context, inv Invocation) (domain.Response, error) {
	route := routeName(inv.Route)
	log := r.log.With(zap.String("route", route), zap.String("request_id", requestID(ctx)))

	resp, err := r.dispatch(ctx, log, route, inv.Body)
	if err != nil {
		log.Error("invocation failed", zap.Error(err))
		return domain.Response{}, err
	}
	log.Info("invocation handled", zap.Int("status", resp.StatusCode()))
	return resp, nil
}

func (r *Router) dispatch(ctx context.Context, log *zap.Logger, route string, raw json.RawMessage) (domain.Response, error) {
	if route == RouteShare {
		return r.share(log, raw)
	}
	if asset, ok := uiAssets[route]; ok {
		page, err := r.assets.Read(asset)
		if err != nil {
			return domain.Response{}, fmt.Errorf("handler: serve %s: %w", route, err)
		}
		return domain.NewResponse(http.StatusOK, page, uiHeaders, "")
	}
	switch route {
	case RouteCheckItem, RouteItemProxy, RouteItemQuestion:
	default:
		return errorEnvelope(http.StatusNotFound, msgRouteNotFound)
	}

	body := parseBody(raw)
	itemURL, err := stringField(body, "url")
	if err != nil {
		return domain.Response{}, err
	}

	switch route {
	case RouteItemProxy:
		item, err := r.svc.Proxy(ctx, usecase.ProxyInput{URL: itemURL})
		if err != nil {
			return mapError(err)
		}
		return domain.NewResponse(http.StatusOK, item, nil, "")

	case RouteItemQuestion:
		question, err := stringField(body, "question")
		if err != nil {
			// A bad URL is still reported as such.
			if urlErr := usecase.ValidateListingURL(itemURL); urlErr != nil {
				return mapError(urlErr)
			}
			return domain.Response{}, err
		}
		out, err := r.svc.Ask(ctx, usecase.QuestionInput{URL: itemURL, Question: question})
		if err != nil {
			return mapError(err)
		}
		return domain.NewResponse(http.StatusOK, questionResponse{
			Item:        out.Item,
			Question:    out.Question,
			Answer:      out.Answer,
			Annotations: out.Annotations,
		}, nil, "")

	case RouteCheckItem:
		out, err := r.svc.Check(ctx, usecase.CheckInput{URL: itemURL})
		if err != nil {
			return mapError(err)
		}
		return domain.NewResponse(http.StatusOK, checkResponse{Item: out.Item, Decision: out.Decision}, nil, "")
	}

	return errorEnvelope(http.StatusInternalServerError, msgUnhandledRoute)
}

func (r *Router) share(log *zap.Logger, raw json.RawMessage) (domain.Response, error) {
	var form string
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage(`""`)
	}
	if err := json.Unmarshal(raw, &form); err != nil {
		return domain.Response{}, fmt.Errorf("handler: share body must be a form-encoded string: %w", err)
	}
	log.Debug("share body received", zap.String("body", form))
	return domain.NewResponse(http.StatusFound, map[string]any{}, nil, usecase.ShareRedirect(form))
}

// mapError converts use-case errors into envelopes. Other errors pass
// through unchanged.
func mapError(err error) (domain.Response, error) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return domain.Response{}, err
	}
	switch ucErr.Reason {
	case usecase.ReasonURLRequired:
		return errorEnvelope(http.StatusBadRequest, msgURLRequired)
	case usecase.ReasonURLInvalid:
		return errorEnvelope(http.StatusBadRequest, msgURLInvalid)
	case usecase.ReasonQuestionRequired:
		return errorEnvelope(http.StatusBadRequest, msgQuestionRequired)
	}
	if ucErr.Code == usecase.ErrorInvalidAIResponse {
		return errorEnvelope(http.StatusInternalServerError, msgInvalidAI)
	}
	return domain.Response{}, err
}

func errorEnvelope(code int, msg string) (domain.Response, error) {
	return domain.NewResponse(code, errorResponse{Error: msg}, nil, "")
}

// parseBody accepts a JSON object or a string holding one. Anything else,
// including unparsable text, yields an empty body.
func parseBody(raw json.RawMessage) map[string]any {
	body := map[string]any{}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		raw = json.RawMessage(text)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		body = obj
	}
	return body
}

// stringField returns "" for a missing or null field and fails on any
// non-string value.
func stringField(body map[string]any, key string) (string, error) {
	v, ok := body[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("handler: field %q must be a string, got %T", key, v)
	}
	return s, nil
}

// routeName returns the route string. Non-string values are returned as
// their raw JSON text, which never names a route.
func routeName(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return RouteDefault
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil || raw[0] != '"' {
		return string(raw)
	}
	return name
}

func requestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}
