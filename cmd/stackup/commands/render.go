package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aistack/stackup/pkg/config"
)

func newRenderCommand() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Resolve secrets and render configuration artifacts only",
		Long: `Resolve the secret set and write the service configuration artifacts
without mutating the host or launching services. With --offline every secret
uses its fallback default, which makes the output reproducible.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), offline)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false,
		"skip the parameter store and metadata service, use fallback defaults")
	return cmd
}

func runRender(ctx context.Context, offline bool) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := log.With().Str("component", "render").Logger()
	ctx = logger.WithContext(ctx)

	resolved, addr, warnings, err := resolveAndRender(ctx, settings, offline)
	if err != nil {
		return err
	}

	fmt.Printf("rendered %d artifacts in %s (public address %s)\n", 4, settings.ProjectDir, addr)
	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-22s %s\n", name, resolved[name].Origin)
	}
	for _, w := range warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	return nil
}
