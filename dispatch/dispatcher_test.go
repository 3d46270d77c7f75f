package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goGate/permission"
)

type allowList map[string]map[permission.Key]bool

func (a allowList) IsAllowed(profile, area, object, method string) bool {
	return a[profile][permission.Key{Area: area, Object: object, Method: method}]
}

func newTestDispatcher(t testing.TB, auth Authorizer, calls *int) *Dispatcher {
	t.Helper()

	reg := NewRegistry()
	reg.MustRegister(Operation{
		Area: "sales", Object: "order", Method: "create",
		Params: []string{"customer", "amount"},
		Handler: func(_ context.Context, params []any) (any, error) {
			*calls++
			return params, nil
		},
	})
	reg.MustRegister(Operation{
		Area: "sales", Object: "order", Method: "fail",
		Handler: func(context.Context, []any) (any, error) {
			*calls++
			return nil, errors.New("db down")
		},
	})
	reg.MustRegister(Operation{
		Area: "sales", Object: "order", Method: "panic",
		Handler: func(context.Context, []any) (any, error) {
			*calls++
			panic("boom")
		},
	})
	reg.Freeze()
	return New(auth, reg)
}

func sellerAuth() allowList {
	return allowList{
		"seller": {
			{Area: "sales", Object: "order", Method: "create"}:  true,
			{Area: "sales", Object: "order", Method: "fail"}:    true,
			{Area: "sales", Object: "order", Method: "panic"}:   true,
			{Area: "sales", Object: "order", Method: "missing"}: true,
		},
	}
}

func TestInvokePassesParamsPositionally(t *testing.T) {
	calls := 0
	d := newTestDispatcher(t, sellerAuth(), &calls)

	out, err := d.Invoke(context.Background(), "seller", Request{
		Area: "sales", Object: "order", Method: "create",
		Params: []any{"c-9", 42},
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	params := out.([]any)
	if params[0] != "c-9" || params[1] != 42 {
		t.Fatalf("params reordered: %v", params)
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestInvokeRejectsMalformedBeforeAnything(t *testing.T) {
	calls := 0
	d := newTestDispatcher(t, sellerAuth(), &calls)

	for _, req := range []Request{
		{Object: "order", Method: "create"},
		{Area: "sales", Method: "create"},
		{Area: "sales", Object: "order"},
	} {
		if _, err := d.Invoke(context.Background(), "seller", req); !errors.Is(err, ErrMalformedRequest) {
			t.Fatalf("expected ErrMalformedRequest for %+v, got %v", req, err)
		}
	}
	if calls != 0 {
		t.Fatalf("no handler should run, got %d calls", calls)
	}
}

func TestInvokeDeniesWithoutRevealingExistence(t *testing.T) {
	calls := 0
	d := newTestDispatcher(t, sellerAuth(), &calls)
	ctx := context.Background()

	_, errExisting := d.Invoke(ctx, "guest", Request{Area: "sales", Object: "order", Method: "create"})
	_, errMissing := d.Invoke(ctx, "guest", Request{Area: "sales", Object: "order", Method: "nope"})
	_, errGrantedMissing := d.Invoke(ctx, "seller", Request{Area: "sales", Object: "order", Method: "missing"})

	for _, err := range []error{errExisting, errMissing, errGrantedMissing} {
		if !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("expected ErrPermissionDenied, got %v", err)
		}
	}
	if errExisting.Error() != errMissing.Error() {
		t.Fatalf("denials differ: %q vs %q", errExisting, errMissing)
	}
	if calls != 0 {
		t.Fatalf("denied requests must not invoke handlers, got %d", calls)
	}
}

func TestInvokeArityMismatch(t *testing.T) {
	calls := 0
	d := newTestDispatcher(t, sellerAuth(), &calls)

	_, err := d.Invoke(context.Background(), "seller", Request{
		Area: "sales", Object: "order", Method: "create", Params: []any{"only-one"},
	})
	if !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest, got %v", err)
	}
}

func TestInvokeWrapsHandlerFailures(t *testing.T) {
	calls := 0
	d := newTestDispatcher(t, sellerAuth(), &calls)
	ctx := context.Background()

	_, err := d.Invoke(ctx, "seller", Request{Area: "sales", Object: "order", Method: "fail"})
	var opErr *OperationError
	if !errors.As(err, &opErr) || !errors.Is(err, ErrOperationFailed) {
		t.Fatalf("expected OperationError, got %v", err)
	}
	if opErr.Key.Method != "fail" {
		t.Fatalf("unexpected key %v", opErr.Key)
	}

	_, err = d.Invoke(ctx, "seller", Request{Area: "sales", Object: "order", Method: "panic"})
	if !errors.Is(err, ErrOperationFailed) {
		t.Fatalf("expected panic converted to ErrOperationFailed, got %v", err)
	}
}

func TestRegistryRejectsBadOperations(t *testing.T) {
	reg := NewRegistry()
	h := func(context.Context, []any) (any, error) { return nil, nil }

	if err := reg.Register(Operation{Area: "a", Object: "o", Method: "m"}); err == nil {
		t.Fatal("expected nil handler to be rejected")
	}
	if err := reg.Register(Operation{Area: "a", Object: "", Method: "m", Handler: h}); err == nil {
		t.Fatal("expected empty object to be rejected")
	}
	if err := reg.Register(Operation{Area: "a", Object: "o", Method: "m", Handler: h}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(Operation{Area: "a", Object: "o", Method: "m", Handler: h}); err == nil {
		t.Fatal("expected duplicate to be rejected")
	}
	reg.Freeze()
	if err := reg.Register(Operation{Area: "a", Object: "o", Method: "n", Handler: h}); err == nil {
		t.Fatal("expected frozen registry to reject")
	}
}

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(`
operations:
  - area: sales
    object: order
    method: list
    params: [customer_id]
    sql: SELECT id FROM orders WHERE customer_id = $1
  - area: sales
    object: order
    method: cancel
    params: [order_id]
    exec: true
    sql: UPDATE orders SET status = 'cancelled' WHERE id = $1
`))
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if len(c.Operations) != 2 || !c.Operations[1].Exec {
		t.Fatalf("unexpected catalog %+v", c.Operations)
	}

	if _, err := ParseCatalog([]byte("operations:\n  - area: a\n    object: o\n    method: m\n")); err == nil {
		t.Fatal("expected empty sql to be rejected")
	}
}

func BenchmarkDispatchInvoke(b *testing.B) {
	calls := 0
	d := newTestDispatcher(b, sellerAuth(), &calls)
	ctx := context.Background()
	req := Request{Area: "sales", Object: "order", Method: "create", Params: []any{"c-1", 10}}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.Invoke(ctx, "seller", req); err != nil {
			b.Fatalf("Invoke: %v", err)
		}
	}
}
