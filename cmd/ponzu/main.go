// Command ponzu serves the anime and manga catalog API.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ponzu-dev/ponzu-back/internal/app"
	"github.com/ponzu-dev/ponzu-back/pkg/cli"
	"github.com/ponzu-dev/ponzu-back/pkg/config"
	"github.com/ponzu-dev/ponzu-back/pkg/server/openapi"
)

func main() {
	cli.Execute(cli.NewServiceCommand(cli.ServiceCommandOptions{
		Name:              "ponzu",
		Description:       "Anime and manga catalog API",
		EnvPrefix:         config.DefaultEnvPrefix,
		RunServer:         app.Serve,
		CheckDependencies: app.CheckDependencies,
		CustomCommands:    []*cobra.Command{openAPICommand()},
	}))
}

func openAPICommand() *cobra.Command {
	var output, format string
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Print or write the OpenAPI document of the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config-file")
			cfg, err := config.NewViperLoader(cfgPath, config.DefaultEnvPrefix).WithFlags(cmd.Flags()).LoadUnvalidated()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Service.Name == "" {
				cfg.Service.Name = "ponzu"
			}
			spec, err := app.APISpec(cfg)
			if err != nil {
				return err
			}
			if err := openapi.Validate(cmd.Context(), spec); err != nil {
				return err
			}
			if output != "" {
				return openapi.WriteSpec(output, spec)
			}
			data, err := openapi.Marshal(spec, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file; the extension picks json or yaml")
	cmd.Flags().StringVar(&format, "format", "yaml", "stdout format: json or yaml")
	return cmd
}
