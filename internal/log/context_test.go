package log

import (
	"context"
	"testing"
)

func TestFromContext_EmptyIsNop(t *testing.T) {
	if _, ok := FromContext(context.Background()).(nopLogger); !ok {
		t.Fatal("expected nop logger")
	}
}

func TestWithContext_RoundTrip(t *testing.T) {
	l, _ := newTestLogger(t, Options{App: "folio"})
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != Logger(l) {
		t.Fatal("logger not returned from context")
	}
}

func TestNop_SafeToUse(t *testing.T) {
	n := Nop().With("k", "v")
	n.Info(context.Background(), "ignored")
	n.Error(context.Background(), nil, "ignored")
	if err := n.Sync(); err != nil {
		t.Fatal(err)
	}
}
