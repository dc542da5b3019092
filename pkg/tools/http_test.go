package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agenthub/agenthub/pkg/config"
)

func httpGetSpec(endpoint string) config.ToolSpec {
	return config.ToolSpec{
		ID:   "t1",
		Name: "track_shipment",
		Kind: config.ToolHTTPGet,
		Config: map[string]any{
			"endpoint": endpoint,
		},
	}
}

func TestHTTPAdapter_GetTemplatesEndpoint(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("carrier")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"in_transit"}`))
	}))
	defer server.Close()

	adapter, err := NewHTTPAdapter(httpGetSpec(server.URL + "/shipments/{shipment_code}"))
	if err != nil {
		t.Fatalf("NewHTTPAdapter() error: %v", err)
	}

	result, err := adapter.Execute(context.Background(),
		map[string]any{"shipment_code": "SH-123", "carrier": "dhl"},
		AuthContext{TenantID: "acme", BearerToken: "secret"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if gotPath != "/shipments/SH-123" {
		t.Errorf("request path = %q, want templated shipment code", gotPath)
	}
	if gotQuery != "dhl" {
		t.Errorf("carrier query param = %q, want dhl", gotQuery)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("authorization header = %q", gotAuth)
	}

	data, ok := result.Data.(map[string]any)
	if !ok || data["status"] != "in_transit" {
		t.Errorf("parsed body = %v", result.Data)
	}
	if result.Metadata["status_code"] != http.StatusOK {
		t.Errorf("status_code metadata = %v", result.Metadata["status_code"])
	}
}

func TestHTTPAdapter_PostSendsJSONBody(t *testing.T) {
	var gotBody map[string]any
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	spec := httpGetSpec(server.URL + "/invoices/{invoice_id}/dispute")
	spec.Kind = config.ToolHTTPPost
	adapter, err := NewHTTPAdapter(spec)
	if err != nil {
		t.Fatalf("NewHTTPAdapter() error: %v", err)
	}

	_, err = adapter.Execute(context.Background(),
		map[string]any{"invoice_id": "INV-9", "reason": "duplicate charge"},
		AuthContext{TenantID: "acme"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotBody["reason"] != "duplicate charge" {
		t.Errorf("body = %v, want unconsumed args only", gotBody)
	}
	if _, ok := gotBody["invoice_id"]; ok {
		t.Error("invoice_id was consumed by the template and must not repeat in the body")
	}
}

func TestHTTPAdapter_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	adapter, err := NewHTTPAdapter(httpGetSpec(server.URL + "/things"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = adapter.Execute(context.Background(), nil, AuthContext{TenantID: "acme"})
	if err == nil {
		t.Fatal("Execute() should error on 404")
	}
	var toolErr *ToolExecutionError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error type = %T, want *ToolExecutionError", err)
	}
	if toolErr.Tool != "track_shipment" {
		t.Errorf("error tool = %q", toolErr.Tool)
	}
}

func TestHTTPAdapter_MissingTemplateArg(t *testing.T) {
	adapter, err := NewHTTPAdapter(httpGetSpec("http://example.invalid/shipments/{shipment_code}"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = adapter.Execute(context.Background(), map[string]any{"other": "x"}, AuthContext{TenantID: "acme"})
	if err == nil {
		t.Fatal("Execute() should error when a template parameter is unbound")
	}
	var toolErr *ToolExecutionError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error type = %T", err)
	}
}

func TestNewHTTPAdapter_Validation(t *testing.T) {
	if _, err := NewHTTPAdapter(config.ToolSpec{Name: "x", Kind: config.ToolDBQuery}); err == nil {
		t.Error("non-HTTP kind should be rejected")
	}
	if _, err := NewHTTPAdapter(config.ToolSpec{Name: "x", Kind: config.ToolHTTPGet}); err == nil {
		t.Error("missing endpoint should be rejected")
	}
}
