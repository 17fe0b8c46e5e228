package registry

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/resourcex/resourcex/configuration"
	"github.com/resourcex/resourcex/registry/storage"
	"github.com/resourcex/resourcex/registry/storage/driver/factory"
	"github.com/resourcex/resourcex/version"
)

var showVersion bool

func init() {
	RootCmd.AddCommand(ServeCmd)
	RootCmd.AddCommand(GCCmd)
	GCCmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "do everything except remove the blobs")
	RootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show the version and exit")
}

// RootCmd is the main command for the 'resourcexd' binary.
var RootCmd = &cobra.Command{
	Use:   "resourcexd",
	Short: "`resourcexd`",
	Long:  "`resourcexd`",
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			version.PrintVersion()
			return
		}
		// nolint:errcheck
		cmd.Usage()
	},
}

// ServeCmd is the cobra command that runs the registry HTTP server.
var ServeCmd = &cobra.Command{
	Use:   "serve <config>",
	Short: "`serve` stores and distributes resources",
	Long:  "`serve` stores and distributes resources",
	Run: func(cmd *cobra.Command, args []string) {
		config, err := resolveConfiguration(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
			// nolint:errcheck
			cmd.Usage()
			os.Exit(1)
		}

		registry, err := NewRegistry(context.Background(), config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		if err = registry.ListenAndServe(); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	},
}

var dryRun bool

// GCCmd is the cobra command that corresponds to the garbage-collect
// subcommand.
var GCCmd = &cobra.Command{
	Use:     "garbage-collect <config>",
	Aliases: []string{"gc"},
	Short:   "`garbage-collect` deletes blobs not referenced by any manifests",
	Long:    "`garbage-collect` deletes blobs not referenced by any manifests",
	Run: func(cmd *cobra.Command, args []string) {
		config, err := resolveConfiguration(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
			// nolint:errcheck
			cmd.Usage()
			os.Exit(1)
		}

		ctx, err := configureLogging(context.Background(), config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unable to configure logging with config: %v\n", err)
			os.Exit(1)
		}

		driver, err := factory.Create(config.Storage.Type(), config.Storage.Parameters())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to construct %s driver: %v\n", config.Storage.Type(), err)
			os.Exit(1)
		}

		deleted, err := storage.MarkAndSweep(ctx, storage.NewRegistry(driver), storage.GCOpts{
			DryRun: dryRun,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to garbage collect: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d blobs eligible for deletion\n", deleted)
	},
}

// resolveConfiguration loads the configuration from the first argument or
// the RESOURCEX_CONFIGURATION_PATH environment variable.
func resolveConfiguration(args []string) (*configuration.Configuration, error) {
	var configurationPath string

	if len(args) > 0 {
		configurationPath = args[0]
	} else if os.Getenv("RESOURCEX_CONFIGURATION_PATH") != "" {
		configurationPath = os.Getenv("RESOURCEX_CONFIGURATION_PATH")
	}

	if configurationPath == "" {
		return nil, fmt.Errorf("configuration path unspecified")
	}

	fp, err := os.Open(configurationPath)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	config, err := configuration.Parse(fp)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configurationPath, err)
	}
	return config, nil
}
