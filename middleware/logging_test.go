package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/twirl-rpc/twirl"
)

func TestLoggingInterceptorSuccess(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ic := LoggingInterceptor(logger)
	info := &twirl.RPCInfo{Service: "twirl.example.Haberdasher", Method: "MakeHat"}

	res, err := ic(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		return "res", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "res" {
		t.Errorf("expected handler result to pass through, got %v", res)
	}

	out := buf.String()
	if !strings.Contains(out, "rpc started") || !strings.Contains(out, "rpc completed") {
		t.Errorf("expected start and completion logs, got:\n%s", out)
	}
	if !strings.Contains(out, "method=MakeHat") {
		t.Errorf("expected method in logs, got:\n%s", out)
	}
}

func TestLoggingInterceptorFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ic := LoggingInterceptor(logger)
	info := &twirl.RPCInfo{Service: "twirl.example.Haberdasher", Method: "MakeHat"}

	boom := errors.New("boom")
	_, err := ic(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected error to pass through, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "rpc failed") {
		t.Errorf("expected failure log, got:\n%s", out)
	}
	if !strings.Contains(out, "boom") {
		t.Errorf("expected error in logs, got:\n%s", out)
	}
}

func TestLoggingInterceptorNilLogger(t *testing.T) {
	ic := LoggingInterceptor(nil)
	info := &twirl.RPCInfo{Service: "Svc", Method: "Method"}

	if _, err := ic(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
