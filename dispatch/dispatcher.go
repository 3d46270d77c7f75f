package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goGate/permission"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrEthical07/goGate/dispatch"

var (
	// ErrMalformedRequest is returned when area, object, or method is empty, or the
	// parameter count does not match the operation.
	ErrMalformedRequest = errors.New("malformed operation request")
	// ErrPermissionDenied is returned when the profile may not invoke the operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrOperationFailed is wrapped by every [OperationError].
	ErrOperationFailed = errors.New("operation failed")
)

// Request is a caller's invocation of one operation.
type Request struct {
	Area   string `json:"area"`
	Object string `json:"object"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// Key returns the request's operation key.
func (r Request) Key() permission.Key {
	return permission.Key{Area: r.Area, Object: r.Object, Method: r.Method}
}

// OperationError reports a failure raised by an operation handler.
type OperationError struct {
	Key   permission.Key
	Cause error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %s failed: %v", e.Key, e.Cause)
}

// Unwrap exposes both [ErrOperationFailed] and the handler's cause.
func (e *OperationError) Unwrap() []error {
	return []error{ErrOperationFailed, e.Cause}
}

// Authorizer decides whether a profile may invoke an operation.
type Authorizer interface {
	IsAllowed(profile, area, object, method string) bool
}

// Dispatcher gates and invokes registered operations.
type Dispatcher struct {
	auth     Authorizer
	registry *Registry
	tracer   trace.Tracer
}

// New creates a dispatcher. The global OpenTelemetry tracer provider is used.
func New(auth Authorizer, registry *Registry) *Dispatcher {
	return &Dispatcher{
		auth:     auth,
		registry: registry,
		tracer:   otel.Tracer(tracerName),
	}
}

// Invoke runs req on behalf of profile.
func (d *Dispatcher) Invoke(ctx context.Context, profile string, req Request) (result any, err error) {
	if req.Area == "" || req.Object == "" || req.Method == "" {
		return nil, ErrMalformedRequest
	}

	ctx, span := d.tracer.Start(ctx, "dispatch.invoke", trace.WithAttributes(
		attribute.String("gogate.operation", req.Key().String()),
		attribute.String("gogate.profile", profile),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if !d.auth.IsAllowed(profile, req.Area, req.Object, req.Method) {
		return nil, ErrPermissionDenied
	}

	op, ok := d.registry.Lookup(req.Key())
	if !ok {
		return nil, ErrPermissionDenied
	}

	if op.Params != nil && len(req.Params) != len(op.Params) {
		return nil, fmt.Errorf("%w: %s expects %d params, got %d", ErrMalformedRequest, req.Key(), len(op.Params), len(req.Params))
	}

	return d.call(ctx, op, req.Params)
}

func (d *Dispatcher) call(ctx context.Context, op Operation, params []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &OperationError{Key: op.Key(), Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	result, err = op.Handler(ctx, params)
	if err != nil {
		return nil, &OperationError{Key: op.Key(), Cause: err}
	}
	return result, nil
}
