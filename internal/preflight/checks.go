package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"gameshelf/internal/catalog"
	"gameshelf/internal/services"
)

// probeQuery is a term every catalog is expected to know.
const probeQuery = "zelda"

// CheckCatalog runs a one-result search against c. A catalog that answers
// with zero results still passes; only transport and HTTP failures fail.
func CheckCatalog(ctx context.Context, name string, c catalog.Catalog, timeout time.Duration) Result {
	if c == nil {
		return Result{Name: name, Detail: "not configured"}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	page, err := c.Search(checkCtx, probeQuery, 1, 1)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("reachable in %s (%d results for %q)", time.Since(start).Round(time.Millisecond), page.Total, probeQuery),
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFileParent verifies that the directory holding path is writable so
// the file can be created on first use.
func CheckFileParent(name, path string) Result {
	if path == "" {
		return Result{Name: name, Passed: true, Detail: "disabled"}
	}
	res := CheckDirectoryAccess(name, filepath.Dir(path))
	if res.Passed {
		res.Detail = fmt.Sprintf("%s (parent writable)", path)
	}
	return res
}

// summarizeError produces a human-readable summary for catalog failures.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (catalog unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (catalog unreachable)"
	}
	if errors.Is(err, services.ErrRejected) {
		return "rejected locally (circuit open or rate limited)"
	}
	return err.Error()
}
