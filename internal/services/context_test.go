package services_test

import (
	"context"
	"testing"

	"gameshelf/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRequestID(ctx, "req-123")
	ctx = services.WithUserID(ctx, "user-7")
	ctx = services.WithOperation(ctx, "search")

	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
	if uid, ok := services.UserIDFromContext(ctx); !ok || uid != "user-7" {
		t.Fatalf("unexpected user id: %v %v", uid, ok)
	}
	if op, ok := services.OperationFromContext(ctx); !ok || op != "search" {
		t.Fatalf("unexpected operation: %v %v", op, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithOperation(ctx, "")
	ctx = services.WithUserID(ctx, "")
	if _, ok := services.OperationFromContext(ctx); ok {
		t.Fatal("expected no operation value")
	}
	if _, ok := services.UserIDFromContext(ctx); ok {
		t.Fatal("expected no user value")
	}
}
