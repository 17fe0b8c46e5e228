// resourcexd is the registry server binary: it stores, serves and garbage
// collects resources according to a YAML configuration.
package main

import (
	"github.com/resourcex/resourcex/registry"
	_ "github.com/resourcex/resourcex/registry/storage/driver/filesystem"
	_ "github.com/resourcex/resourcex/registry/storage/driver/inmemory"
)

func main() {
	// nolint:errcheck
	registry.RootCmd.Execute()
}
