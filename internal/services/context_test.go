package services

import (
	"context"
	"testing"
)

func TestContextAnnotations(t *testing.T) {
	ctx := context.Background()

	if _, ok := RecordIDFromContext(ctx); ok {
		t.Fatal("unexpected record id on empty context")
	}

	ctx = WithRecordID(ctx, "rec-1")
	ctx = WithOperation(ctx, "fetch-window")
	ctx = WithRunID(ctx, "run-42")

	if id, ok := RecordIDFromContext(ctx); !ok || id != "rec-1" {
		t.Fatalf("record id = %q, %t", id, ok)
	}
	if op, ok := OperationFromContext(ctx); !ok || op != "fetch-window" {
		t.Fatalf("operation = %q, %t", op, ok)
	}
	if run, ok := RunIDFromContext(ctx); !ok || run != "run-42" {
		t.Fatalf("run id = %q, %t", run, ok)
	}
}

func TestEmptyValuesAreNotStored(t *testing.T) {
	ctx := WithRecordID(context.Background(), "")
	if _, ok := RecordIDFromContext(ctx); ok {
		t.Fatal("empty record id should not be stored")
	}
}
