package apierr_test

import (
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/adsgraph/adsgraph/apierr"
)

func TestParse_NativeShape(t *testing.T) {
	body := []byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190,"error_subcode":463,"fbtrace_id":"AbCdEf123"}}`)
	st := http.StatusBadRequest

	e := apierr.Parse(body, st)
	if e.Shape != apierr.ShapeNative {
		t.Fatalf("Shape=%v want native", e.Shape)
	}
	if e.HTTPStatus != st {
		t.Fatalf("HTTPStatus=%d want %d", e.HTTPStatus, st)
	}
	if e.Type != "OAuthException" {
		t.Fatalf("Type=%q want OAuthException", e.Type)
	}
	if e.Code != "190" {
		t.Fatalf("Code=%q want 190", e.Code)
	}
	if n, ok := e.Code.Int(); !ok || n != 190 {
		t.Fatalf("Code.Int()=%d,%v want 190,true", n, ok)
	}
	if e.Message != "Invalid OAuth access token." {
		t.Fatalf("Message=%q", e.Message)
	}
	if e.Subcode == nil || *e.Subcode != 463 {
		t.Fatalf("Subcode=%v want 463", e.Subcode)
	}
	if e.TraceID != "AbCdEf123" {
		t.Fatalf("TraceID=%q want AbCdEf123", e.TraceID)
	}
}

func TestParse_NativeShape_OptionalFieldsAbsent(t *testing.T) {
	body := []byte(`{"error":{"message":"(#100) Invalid parameter","type":"OAuthException","code":100}}`)

	e := apierr.Parse(body, http.StatusBadRequest)
	if e.Shape != apierr.ShapeNative {
		t.Fatalf("Shape=%v want native", e.Shape)
	}
	if e.Subcode != nil {
		t.Fatalf("Subcode=%v want nil", *e.Subcode)
	}
	if e.TraceID != "" {
		t.Fatalf("TraceID=%q want empty", e.TraceID)
	}
}

func TestParse_NativeShape_UserFacingFields(t *testing.T) {
	body := []byte(`{"error":{"message":"Please reduce the amount of data","type":"OAuthException","code":1,"is_transient":true,"error_user_title":"Too much data","error_user_msg":"Ask for fewer fields"}}`)

	e := apierr.Parse(body, http.StatusInternalServerError)
	if !e.IsTransient {
		t.Fatalf("IsTransient=false want true")
	}
	if e.UserTitle != "Too much data" || e.UserMessage != "Ask for fewer fields" {
		t.Fatalf("user fields = %q / %q", e.UserTitle, e.UserMessage)
	}
}

func TestParse_NativeShape_StringCode(t *testing.T) {
	body := []byte(`{"error":{"message":"m","type":"GraphMethodException","code":"803"}}`)

	e := apierr.Parse(body, http.StatusBadRequest)
	if e.Code != "803" {
		t.Fatalf("Code=%q want 803", e.Code)
	}
}

func TestParse_GatewayShape(t *testing.T) {
	body := []byte(`{"fault":{"faultstring":"Invalid ApiKey","detail":{"errorcode":"oauth.v2.InvalidApiKey"}}}`)
	st := http.StatusUnauthorized

	e := apierr.Parse(body, st)
	if e.Shape != apierr.ShapeGateway {
		t.Fatalf("Shape=%v want gateway", e.Shape)
	}
	if e.Type != "ApigeeError" {
		t.Fatalf("Type=%q want ApigeeError", e.Type)
	}
	if e.Code != "oauth.v2.InvalidApiKey" {
		t.Fatalf("Code=%q want oauth.v2.InvalidApiKey", e.Code)
	}
	if e.Message != "Invalid ApiKey" {
		t.Fatalf("Message=%q want Invalid ApiKey", e.Message)
	}
	if e.HTTPStatus != st {
		t.Fatalf("HTTPStatus=%d want %d", e.HTTPStatus, st)
	}
	if _, ok := e.Code.Int(); ok {
		t.Fatalf("gateway code should not be numeric")
	}
}

func TestParse_GatewayShape_FaultStringOnly(t *testing.T) {
	body := []byte(`{"fault":{"faultstring":"Rate limit quota violation"}}`)

	e := apierr.Parse(body, http.StatusTooManyRequests)
	if e.Type != apierr.TypeGateway {
		t.Fatalf("Type=%q want %q", e.Type, apierr.TypeGateway)
	}
	if e.Code != "" {
		t.Fatalf("Code=%q want empty", e.Code)
	}
}

func TestParse_NativeWinsOverGateway(t *testing.T) {
	body := []byte(`{"error":{"message":"native","type":"OAuthException","code":2},"fault":{"faultstring":"gw"}}`)

	e := apierr.Parse(body, http.StatusBadRequest)
	if e.Shape != apierr.ShapeNative || e.Message != "native" {
		t.Fatalf("got %#v, want native shape", e)
	}
}

func TestParse_ErrorStringIsNotNative(t *testing.T) {
	body := []byte(`{"error":"something broke","fault":{"faultstring":"upstream down","detail":{"errorcode":"messaging.adaptors.http.flow.ServiceUnavailable"}}}`)

	e := apierr.Parse(body, http.StatusServiceUnavailable)
	if e.Shape != apierr.ShapeGateway {
		t.Fatalf("Shape=%v want gateway", e.Shape)
	}
	if e.Code != "messaging.adaptors.http.flow.ServiceUnavailable" {
		t.Fatalf("Code=%q", e.Code)
	}
}

func TestParse_NonJSON(t *testing.T) {
	body := []byte("gateway exploded lol")
	st := http.StatusInternalServerError

	e := apierr.Parse(body, st)
	if e.Type != apierr.TypeFallback {
		t.Fatalf("Type=%q want %q", e.Type, apierr.TypeFallback)
	}
	if e.Code != "" {
		t.Fatalf("Code=%q want empty", e.Code)
	}
	if e.Message != "HTTP 500: gateway exploded lol" {
		t.Fatalf("Message=%q", e.Message)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	e := apierr.Parse([]byte("{oops"), http.StatusBadGateway)
	if e.Shape != apierr.ShapeFallback || e.Type != apierr.TypeFallback {
		t.Fatalf("got %#v, want fallback", e)
	}
	if e.Message != "HTTP 502: {oops" {
		t.Fatalf("Message=%q", e.Message)
	}
}

func TestParse_EmptyBody_UsesStatusText(t *testing.T) {
	e := apierr.Parse(nil, http.StatusServiceUnavailable)
	want := "HTTP 503: " + http.StatusText(http.StatusServiceUnavailable)
	if e.Message != want {
		t.Fatalf("Message=%q want %q", e.Message, want)
	}
}

func TestParse_UnrecognizedJSON(t *testing.T) {
	cases := map[string]string{
		"unrelated object": `{"foo":"bar"}`,
		"array":            `[{"error":{"message":"x"}}]`,
		"empty error":      `{"error":{}}`,
		"empty fault":      `{"fault":{"detail":{}}}`,
		"null error":       `{"error":null}`,
		"scalar":           `42`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			e := apierr.Parse([]byte(body), 418)
			if e.Type != apierr.TypeFallback {
				t.Fatalf("Type=%q want %q", e.Type, apierr.TypeFallback)
			}
			if e.HTTPStatus != 418 {
				t.Fatalf("HTTPStatus=%d want 418", e.HTTPStatus)
			}
		})
	}
}

func TestParse_TruncatesLongBodies(t *testing.T) {
	body := []byte(strings.Repeat("x", 4096))

	e := apierr.Parse(body, http.StatusInternalServerError)
	if len(e.Message) > 600 {
		t.Fatalf("Message not truncated: %d bytes", len(e.Message))
	}
	if !strings.HasSuffix(e.Message, "...") {
		t.Fatalf("Message=%q should end with ellipsis", e.Message[len(e.Message)-10:])
	}
}

func TestParse_TruncationKeepsValidUTF8(t *testing.T) {
	// "é" is two bytes starting at offset 511, straddling the cut
	body := []byte(strings.Repeat("a", 511) + "é" + "tail")

	e := apierr.Parse(body, http.StatusInternalServerError)
	if !utf8.ValidString(e.Message) {
		t.Fatalf("message is not valid UTF-8: %q", e.Message[len(e.Message)-8:])
	}
	if !strings.HasSuffix(e.Message, "a...") {
		t.Fatalf("message should end at the last whole rune, got suffix %q", e.Message[len(e.Message)-8:])
	}
}

func TestParse_TolerantOfWrongFieldTypes(t *testing.T) {
	body := []byte(`{"error":{"message":"bad subcode","type":"OAuthException","code":100,"error_subcode":"n/a","fbtrace_id":12}}`)

	e := apierr.Parse(body, http.StatusBadRequest)
	if e.Shape != apierr.ShapeNative {
		t.Fatalf("Shape=%v want native", e.Shape)
	}
	if e.Subcode != nil {
		t.Fatalf("Subcode=%v want nil", *e.Subcode)
	}
	if e.Code != "100" {
		t.Fatalf("Code=%q want 100", e.Code)
	}
}

func TestDetect_SuccessBody(t *testing.T) {
	if _, ok := apierr.Detect([]byte(`{"data":[{"id":"1"}],"paging":{}}`)); ok {
		t.Fatalf("Detect matched a success body")
	}
	if _, ok := apierr.Detect([]byte(`not json`)); ok {
		t.Fatalf("Detect matched non-JSON")
	}
}

func TestClassify_StatusAndShape(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		wantErr   bool
		wantType  string
		wantShape apierr.Shape
	}{
		{"200 success", 200, `{"id":"123"}`, false, "", 0},
		{"204 empty", 204, ``, false, "", 0},
		{"302 non-json", 302, `moved`, false, "", 0},
		{"200 with fault", 200, `{"fault":{"faultstring":"Spike arrest violation","detail":{"errorcode":"policies.ratelimit.SpikeArrestViolation"}}}`, true, apierr.TypeGateway, apierr.ShapeGateway},
		{"200 with native error", 200, `{"error":{"message":"m","type":"OAuthException","code":1}}`, true, "OAuthException", apierr.ShapeNative},
		{"400 native", 400, `{"error":{"message":"m","type":"OAuthException","code":100}}`, true, "OAuthException", apierr.ShapeNative},
		{"401 gateway", 401, `{"fault":{"faultstring":"Invalid ApiKey","detail":{"errorcode":"oauth.v2.InvalidApiKey"}}}`, true, apierr.TypeGateway, apierr.ShapeGateway},
		{"500 html", 500, `<html>oops</html>`, true, apierr.TypeFallback, apierr.ShapeFallback},
		{"404 unrecognized json", 404, `{"detail":"not here"}`, true, apierr.TypeFallback, apierr.ShapeFallback},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := &apierr.Response{Status: tc.status, Header: http.Header{}, Body: []byte(tc.body)}
			e, ok := apierr.Classify(resp)
			if ok != tc.wantErr {
				t.Fatalf("Classify ok=%v want %v", ok, tc.wantErr)
			}
			if !ok {
				if e != nil {
					t.Fatalf("expected nil error, got %v", e)
				}
				return
			}
			if e.ErrorType() != tc.wantType {
				t.Fatalf("ErrorType=%q want %q", e.ErrorType(), tc.wantType)
			}
			if e.Shape() != tc.wantShape {
				t.Fatalf("Shape=%v want %v", e.Shape(), tc.wantShape)
			}
			if e.HTTPStatus() != tc.status {
				t.Fatalf("HTTPStatus=%d want %d", e.HTTPStatus(), tc.status)
			}
			if string(e.Body()) != tc.body {
				t.Fatalf("Body=%q want %q", e.Body(), tc.body)
			}
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	if e, ok := apierr.Classify(nil); ok || e != nil {
		t.Fatalf("Classify(nil) = %v, %v", e, ok)
	}
}
