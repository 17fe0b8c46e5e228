// Package factory creates storage drivers by name, decoupling the
// configuration layer from concrete driver packages. Driver packages call
// Register from an init function to make themselves available.
package factory

import (
	"fmt"

	storagedriver "github.com/resourcex/resourcex/registry/storage/driver"
)

// driverFactories stores an internal mapping between storage driver names
// and their respective factories.
var driverFactories = make(map[string]StorageDriverFactory)

// StorageDriverFactory is a factory interface for creating
// storagedriver.StorageDriver interfaces.
type StorageDriverFactory interface {
	// Create returns a new storagedriver.StorageDriver with the given
	// parameters. Parameters vary by driver and may be ignored.
	Create(parameters map[string]interface{}) (storagedriver.StorageDriver, error)
}

// Register makes a storage driver available by the provided name. It
// panics when called twice with the same name or with a nil factory.
func Register(name string, factory StorageDriverFactory) {
	if factory == nil {
		panic("must not provide nil StorageDriverFactory")
	}
	if _, registered := driverFactories[name]; registered {
		panic(fmt.Sprintf("StorageDriverFactory named %s already registered", name))
	}

	driverFactories[name] = factory
}

// Create constructs a new storagedriver.StorageDriver with the given name
// and parameters. The named factory must have been registered first.
func Create(name string, parameters map[string]interface{}) (storagedriver.StorageDriver, error) {
	driverFactory, ok := driverFactories[name]
	if !ok {
		return nil, InvalidStorageDriverError{name}
	}
	return driverFactory.Create(parameters)
}

// InvalidStorageDriverError records an attempt to construct an unregistered
// storage driver.
type InvalidStorageDriverError struct {
	DriverName string
}

func (err InvalidStorageDriverError) Error() string {
	return fmt.Sprintf("storage driver not registered: %s", err.DriverName)
}
