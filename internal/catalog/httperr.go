package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gameshelf/internal/services"
)

// StatusError classifies an upstream HTTP status into the error taxonomy.
// 404 is a confirmed absence; everything else is transient.
func StatusError(component, operation string, status int, detail string) error {
	msg := fmt.Sprintf("status %d", status)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	if status == http.StatusNotFound {
		return services.Wrap(services.ErrNotFound, component, operation, msg, nil)
	}
	return services.Wrap(services.ErrTransient, component, operation, msg, nil)
}

// TransportError classifies a request or decode failure. Caller cancellation
// passes through untouched.
func TransportError(component, operation string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return services.Wrap(services.ErrTransient, component, operation, "request failed", err)
}
