// Package checks holds health checkers for the registry's dependencies.
package checks

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/resourcex/resourcex/health"
	storagedriver "github.com/resourcex/resourcex/registry/storage/driver"
)

// StorageDriverChecker probes the storage driver with a Stat of the
// manifest root. An absent path is healthy; only a failing probe takes
// the backend out of rotation.
func StorageDriverChecker(driver storagedriver.StorageDriver, timeout time.Duration) health.Checker {
	return health.CheckFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if _, err := driver.Stat(ctx, "/manifests"); err != nil {
			return fmt.Errorf("storage driver %s unavailable: %w", driver.Name(), err)
		}
		return nil
	})
}

// HTTPChecker does a HEAD request against r and reports failure unless
// the response status is 200, taking the application out of rotation when
// a downstream dependency degrades.
func HTTPChecker(r string, timeout time.Duration) health.Checker {
	client := &http.Client{Timeout: timeout}
	return health.CheckFunc(func() error {
		response, err := client.Head(r)
		if err != nil {
			return fmt.Errorf("checking %s: %w", r, err)
		}
		defer response.Body.Close()
		if response.StatusCode != http.StatusOK {
			return fmt.Errorf("downstream service %s returned status %d", r, response.StatusCode)
		}
		return nil
	})
}
