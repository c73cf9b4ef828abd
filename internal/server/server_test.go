package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/hanpama/graphqlerr/internal/errfmt"
	"github.com/hanpama/graphqlerr/internal/eventbus"
	"github.com/hanpama/graphqlerr/internal/events"
	"github.com/hanpama/graphqlerr/internal/executor"
	"github.com/hanpama/graphqlerr/internal/reqid"
	"github.com/hanpama/graphqlerr/internal/schema"
	"github.com/hanpama/graphqlerr/internal/traceback"
)

func newTestHandler(t *testing.T, rt executor.Runtime, opts ...Option) *Handler {
	t.Helper()
	sdl := `type Query { hello: String age(x: Int): Int }`
	sch, err := schema.BuildFromSDL(sdl)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	h, err := New(rt, sch, opts...)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return h
}

func TestForwardedHeaders(t *testing.T) {
	rt := executor.NewMockRuntime(nil)
	var captured metadata.MD
	rt.SetResolver("Query", "hello", func(ctx context.Context, src any, args map[string]any) (any, error) {
		captured, _ = metadata.FromOutgoingContext(ctx)
		return "world", nil
	})
	h := newTestHandler(t, rt, WithMetadataHeaders("X-Test"))

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test", "abc")
	req.Header.Set("X-Other", "nope")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if captured == nil || captured.Get("x-test")[0] != "abc" || len(captured.Get("x-other")) > 0 {
		t.Fatalf("metadata not propagated correctly: %v", captured)
	}
}

func TestForwardedHeadersDefaultEmpty(t *testing.T) {
	rt := executor.NewMockRuntime(nil)
	var captured metadata.MD
	rt.SetResolver("Query", "hello", func(ctx context.Context, src any, args map[string]any) (any, error) {
		captured, _ = metadata.FromOutgoingContext(ctx)
		return "world", nil
	})
	h := newTestHandler(t, rt)

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test", "abc")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if captured != nil && len(captured.Get("x-test")) > 0 {
		t.Fatalf("header should not be forwarded by default: %v", captured)
	}
}

func TestCORSAndPreflight(t *testing.T) {
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello": executor.NewMockValueResolver("world"),
	})
	h := newTestHandler(t, rt, WithCORS("*"))

	// simple request
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}

	// preflight
	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	if pw.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", pw.Code)
	}
	if pw.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight missing CORS header")
	}
	if pw.Header().Get("Access-Control-Allow-Headers") != "X-Test" {
		t.Fatalf("preflight missing allow headers")
	}
}

func TestMaxBodyBytes(t *testing.T) {
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello": executor.NewMockValueResolver("world"),
	})
	h := newTestHandler(t, rt, WithMaxBodyBytes(10))

	body := bytes.NewBufferString(`{"query":"1234567890"}`)
	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	rt := executor.NewMockRuntime(nil)
	var capturedMD metadata.MD
	var capturedID string
	rt.SetResolver("Query", "hello", func(ctx context.Context, src any, args map[string]any) (any, error) {
		capturedMD, _ = metadata.FromOutgoingContext(ctx)
		capturedID, _ = reqid.FromContext(ctx)
		return "world", nil
	})
	h := newTestHandler(t, rt)

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if capturedID == "" {
		t.Fatalf("missing request id in context")
	}
	if got := capturedMD.Get("graphql-request-id"); len(got) == 0 || got[0] != capturedID {
		t.Fatalf("metadata mismatch: %v id %s", capturedMD, capturedID)
	}
	if got := w.Header().Get(reqid.Header); got != capturedID {
		t.Fatalf("response header %q, want %q", got, capturedID)
	}
}

func TestRequestIDFromHeader(t *testing.T) {
	rt := executor.NewMockRuntime(nil)
	var ids, clientIDs []string
	rt.SetResolver("Query", "hello", func(ctx context.Context, src any, args map[string]any) (any, error) {
		id, _ := reqid.FromContext(ctx)
		client, _ := reqid.ClientID(ctx)
		md, _ := metadata.FromOutgoingContext(ctx)
		require.Equal(t, []string{"upstream-1"}, md.Get("graphql-request-id"))
		ids = append(ids, id)
		clientIDs = append(clientIDs, client)
		return "world", nil
	})
	h := newTestHandler(t, rt)

	for range 2 {
		req := httptest.NewRequest("GET", "/?query=%7B+hello+%7D", nil)
		req.Header.Set(reqid.Header, "upstream-1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "upstream-1", w.Header().Get(reqid.Header))
	}

	require.Equal(t, []string{"upstream-1", "upstream-1"}, clientIDs)
	require.Len(t, ids, 2)
	require.NotEqual(t, "upstream-1", ids[0])
	require.NotEqual(t, ids[0], ids[1], "requests sharing a client id need their own request id")
}

// divide fails the way a resolver with an arithmetic bug would.
func divide(ctx context.Context, src any, args map[string]any) (any, error) {
	x, _ := args["x"].(int)
	if x == 0 {
		return nil, traceback.Wrap(errors.New("division by zero"), traceback.Locals{"x": x})
	}
	return 100 / x, nil
}

func post(t *testing.T, h http.Handler, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func TestErrorsWithoutDebug(t *testing.T) {
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{"Query.age": divide})
	h := newTestHandler(t, rt)

	code, got := post(t, h, `{"query":"{\n  age(x: 0)\n}"}`)

	require.Equal(t, http.StatusOK, code)
	want := map[string]any{
		"data": map[string]any{"age": nil},
		"errors": []any{map[string]any{
			"message":   "division by zero",
			"locations": []any{map[string]any{"line": float64(2), "column": float64(3)}},
			"path":      []any{"age"},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorsWithDebug(t *testing.T) {
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{"Query.age": divide})
	h := newTestHandler(t, rt, WithDebug(true))

	_, got := post(t, h, `{"query":"{ age(x: 0) }"}`)

	errs := got["errors"].([]any)
	require.Len(t, errs, 1)
	ext := errs[0].(map[string]any)["extensions"].(map[string]any)
	exc := ext["exception"].(map[string]any)
	require.Equal(t, map[string]any{"x": "0"}, exc["context"])

	lines := exc["stacktrace"].([]any)
	require.Equal(t, traceback.Header, lines[0])
	require.Contains(t, lines[len(lines)-2], "server.divide")
	require.Equal(t, "*errors.errorString: division by zero", lines[len(lines)-1])
}

func TestDebugLeavesDiagnosticsAlone(t *testing.T) {
	rt := executor.NewMockRuntime(nil)
	h := newTestHandler(t, rt, WithDebug(true))

	_, got := post(t, h, `{"query":"{ hello nope }"}`)

	errs := got["errors"].([]any)
	require.Len(t, errs, 1)
	require.Equal(t, "Cannot query field 'nope' on type 'Query'", errs[0].(map[string]any)["message"])
	require.NotContains(t, errs[0], "extensions")
}

func TestNoErrorsKeyOnSuccess(t *testing.T) {
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{"Query.hello": executor.NewMockValueResolver("world")})
	h := newTestHandler(t, rt, WithDebug(true))

	_, got := post(t, h, `{"query":"{ hello }"}`)

	require.Equal(t, map[string]any{"data": map[string]any{"hello": "world"}}, got)
}

func TestSyntaxErrorsAreLocated(t *testing.T) {
	h := newTestHandler(t, executor.NewMockRuntime(nil))

	code, got := post(t, h, `{"query":"{ hello "}`)

	require.Equal(t, http.StatusOK, code)
	require.NotContains(t, got, "data")
	errs := got["errors"].([]any)
	require.Len(t, errs, 1)
	e := errs[0].(map[string]any)
	require.True(t, strings.HasPrefix(e["message"].(string), "Expected Name"), e["message"])
	require.Equal(t, []any{map[string]any{"line": float64(1), "column": float64(9)}}, e["locations"])
}

func TestCustomErrorFormatter(t *testing.T) {
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{"Query.age": divide})
	masked := errfmt.FormatterFunc(func(err executor.GraphQLError, debug bool) errfmt.FormattedError {
		out := errfmt.FormatError(err, debug)
		if err.OriginalError != nil {
			out.Message = "Internal server error"
		}
		return out
	})
	h := newTestHandler(t, rt, WithErrorFormatter(masked))

	_, got := post(t, h, `{"query":"{ age(x: 0) }"}`)

	errs := got["errors"].([]any)
	require.Equal(t, "Internal server error", errs[0].(map[string]any)["message"])
}

func TestBatchedErrorsStayPerOperation(t *testing.T) {
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.age":   divide,
		"Query.hello": executor.NewMockValueResolver("world"),
	})
	h := newTestHandler(t, rt)

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`[{"query":"{ hello }"},{"query":"{ age(x: 0) }"}]`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	require.NotContains(t, got[0], "errors")
	require.Len(t, got[1]["errors"], 1)
}

func TestFinishEventCarriesFormattedErrors(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var finished []events.GraphQLFinish
	unsubscribe := eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
		finished = append(finished, e)
	})
	defer unsubscribe()

	rt := executor.NewMockRuntime(map[string]executor.MockResolver{"Query.age": divide})
	h := newTestHandler(t, rt, WithDebug(true))
	post(t, h, `{"query":"{ age(x: 0) }"}`)

	require.Len(t, finished, 1)
	e := finished[0]
	require.True(t, e.Debug)
	require.Len(t, e.Errors, 1)
	require.Len(t, e.Formatted, 1)
	require.Equal(t, "division by zero", e.Formatted[0].Message)
	require.Contains(t, e.Formatted[0].Extensions, errfmt.ExceptionKey)
}

func TestFinishEventCountsResponseErrors(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var finished []events.HTTPFinish
	defer eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		finished = append(finished, e)
	})()

	rt := executor.NewMockRuntime(map[string]executor.MockResolver{"Query.age": divide})
	h := newTestHandler(t, rt)
	batch := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(
		`[{"query":"{ age(x: 0) }"},{"query":"{ age(x: 0) }"},{"query":"{ age(x: 2) }"}]`))
	batch.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), batch)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/", nil))

	require.Len(t, finished, 2)
	require.Equal(t, http.StatusOK, finished[0].Status)
	require.Equal(t, 2, finished[0].Errors)
	require.Equal(t, http.StatusMethodNotAllowed, finished[1].Status)
	require.Equal(t, 1, finished[1].Errors)
}
