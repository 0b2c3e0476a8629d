package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aistack/stackup/pkg/blockdev"
	"github.com/aistack/stackup/pkg/compose"
	"github.com/aistack/stackup/pkg/config"
	"github.com/aistack/stackup/pkg/envfile"
	"github.com/aistack/stackup/pkg/host"
	"github.com/aistack/stackup/pkg/hostprep"
	"github.com/aistack/stackup/pkg/launcher"
	"github.com/aistack/stackup/pkg/metadata"
	"github.com/aistack/stackup/pkg/pipeline"
	"github.com/aistack/stackup/pkg/secrets"
	"github.com/aistack/stackup/pkg/stores"
	"github.com/aistack/stackup/pkg/tuning"
)

func newProvisionCommand() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Run the full provisioning pipeline",
		Long: `Run the full provisioning pipeline against this host: prepare the OS,
configure storage and swap, resolve secrets, render service configuration,
and launch the stack in dependency order.

The run exits non-zero only when a fatal step fails; best-effort failures
are recorded in the run report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd.Context(), offline)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false,
		"skip the parameter store and metadata service, use fallback defaults")
	return cmd
}

func runProvision(ctx context.Context, offline bool) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := log.With().Str("component", "provision").Logger()
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}
	ctx = logger.WithContext(ctx)

	lock := pipeline.NewLock(settings.StateDir)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn().Err(err).Msg("failed to release run lock")
		}
	}()

	runner := host.NewExecRunner()

	// State shared between the render and launch steps; populated when the
	// render step resolves the secret set.
	var (
		resolved secrets.Set
		addr     string
		warnings []string
	)

	renderStep := &pipeline.Func{
		StepName:   "render-config",
		StepPolicy: pipeline.PolicyFatal,
		Run: func(ctx context.Context) error {
			var rerr error
			resolved, addr, warnings, rerr = resolveAndRender(ctx, settings, offline)
			return rerr
		},
	}

	launchStep := &pipeline.Func{
		StepName:   "launch-services",
		StepPolicy: pipeline.PolicyBestEffort,
		Run: func(ctx context.Context) error {
			client := compose.NewClient(runner, settings.ProjectDir, settings.Compose.File)
			l := launcher.New(client, settings.Launch,
				resolved.Value("postgres_password"), addr, os.Stdout)
			return l.Launch(ctx)
		},
	}

	runnerSteps := []pipeline.Step{
		&hostprep.GrowRootFS{Runner: runner},
		&hostprep.BaselinePackages{Runner: runner},
		&hostprep.ContainerEngine{Runner: runner, User: settings.ProvisionUser},
		&hostprep.ComposePlugin{Runner: runner, PinnedVersion: settings.Compose.PinnedVersion},
		&hostprep.CloudCLI{Runner: runner},
		&blockdev.DataVolume{Runner: runner, Cfg: settings.Storage},
		&blockdev.RestartEngine{Runner: runner},
		&tuning.Swapfile{Runner: runner, Cfg: settings.Swap},
		&tuning.Sysctl{Runner: runner, Cfg: settings.Swap},
		renderStep,
		launchStep,
	}

	report, runErr := pipeline.NewRunner(runnerSteps...).Run(ctx)
	report.Warnings = append(report.Warnings, warnings...)

	saveReport(ctx, settings, report)
	printReport(report)

	return runErr
}

// resolveAndRender resolves the secret set, looks up the public address, and
// writes the four configuration artifacts. offline forces every secret to
// its fallback default and skips the metadata service.
func resolveAndRender(ctx context.Context, settings config.Settings, offline bool) (secrets.Set, string, []string, error) {
	refs := secrets.DefaultRefs(settings.SecretFallbacks)
	if err := secrets.Validate(refs); err != nil {
		return nil, "", nil, err
	}

	var source secrets.Source = secrets.Offline()
	addr := metadata.LoopbackPlaceholder

	if !offline {
		ssmSource, err := secrets.NewSSMSource(ctx)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("parameter store unavailable, using fallback defaults")
		} else {
			source = ssmSource
		}

		if meta, err := metadata.New(ctx); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("metadata service unavailable, using loopback placeholder")
		} else {
			addr = meta.PublicAddress(ctx)
		}
	}

	resolved := secrets.NewResolver(source, settings.SecretPrefix).ResolveAll(ctx, refs)

	var warnings []string
	if settings.RequireSecretOverride {
		for _, name := range resolved.DefaultedSensitive(refs) {
			warnings = append(warnings,
				fmt.Sprintf("secret %s is using its built-in default; set %s in the parameter store",
					name, settings.SecretPrefix+"/"+name))
		}
	}

	artifacts := envfile.Build(envfile.Inputs{
		ProjectDir:    settings.ProjectDir,
		PublicAddress: addr,
		Secrets:       resolved,
	})
	if err := envfile.WriteAll(artifacts); err != nil {
		return nil, "", nil, err
	}

	return resolved, addr, warnings, nil
}

// saveReport records the run in the local history database. History is an
// operator convenience, so storage failures only warn.
func saveReport(ctx context.Context, settings config.Settings, report *pipeline.Report) {
	store, err := stores.NewRunStore(filepath.Join(settings.StateDir, "history.db"))
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to open run history store")
		return
	}
	if err := store.Init(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to initialize run history store")
		return
	}
	defer store.Close()

	if err := store.SaveReport(ctx, report); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to record run history")
	}
}

func printReport(report *pipeline.Report) {
	if jsonOutput {
		if out, err := report.JSON(); err == nil {
			fmt.Println(out)
			return
		}
	}
	fmt.Print(report.String())
}
