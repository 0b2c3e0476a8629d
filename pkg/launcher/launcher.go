// Package launcher brings the application stack up in dependency order:
// data tier first, readiness-gated schema bootstrap, the messaging platform
// and its migration, then everything else.
package launcher

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aistack/stackup/pkg/compose"
	"github.com/aistack/stackup/pkg/config"
	"github.com/aistack/stackup/pkg/pipeline"
)

// Phase names the launch state machine's states, in order. Transitions only
// move forward; each phase is a precondition for the next.
type Phase string

const (
	PhaseDataTier      Phase = "data-tier"
	PhaseAwaitRelDB    Phase = "await-relational-db"
	PhaseSchema        Phase = "schema-bootstrap"
	PhaseAwaitDocStore Phase = "await-document-store"
	PhaseMessaging     Phase = "messaging-platform"
	PhaseMigrate       Phase = "messaging-migration"
	PhaseRemaining     Phase = "remaining-services"
	PhaseReport        Phase = "launch-report"
)

// Launcher drives the service launch state machine.
type Launcher struct {
	compose *compose.Client
	cfg     config.LaunchSettings

	// dbPassword is the messaging platform's database role password used
	// during schema bootstrap.
	dbPassword string

	// publicAddr is printed in the terminal access-URL report.
	publicAddr string

	// out receives the operator-facing launch report.
	out io.Writer

	// relDBReady and docStoreReady gate the migration: it must never run
	// before both readiness polls have succeeded.
	relDBReady    bool
	docStoreReady bool
}

// New creates a Launcher.
func New(c *compose.Client, cfg config.LaunchSettings, dbPassword, publicAddr string, out io.Writer) *Launcher {
	return &Launcher{
		compose:    c,
		cfg:        cfg,
		dbPassword: dbPassword,
		publicAddr: publicAddr,
		out:        out,
	}
}

// Launch runs every phase in order. Readiness poll exhaustion and data-tier
// start failures abort the launch; the migration command itself is
// best-effort because already-migrated is the expected steady state.
func (l *Launcher) Launch(ctx context.Context) error {
	phases := []struct {
		phase Phase
		run   func(context.Context) error
	}{
		{PhaseDataTier, l.startDataTier},
		{PhaseAwaitRelDB, l.awaitRelationalDB},
		{PhaseSchema, l.bootstrapSchema},
		{PhaseAwaitDocStore, l.awaitDocumentStore},
		{PhaseMessaging, l.startMessagingPlatform},
		{PhaseMigrate, l.migrateMessagingPlatform},
		{PhaseRemaining, l.startRemaining},
		{PhaseReport, l.report},
	}

	for _, p := range phases {
		logger := zerolog.Ctx(ctx).With().Str("phase", string(p.phase)).Logger()
		logger.Info().Msg("entering phase")
		if err := p.run(logger.WithContext(ctx)); err != nil {
			return fmt.Errorf("phase %s: %w", p.phase, err)
		}
	}
	return nil
}

func (l *Launcher) startDataTier(ctx context.Context) error {
	return l.compose.Up(ctx, l.cfg.DataServices...)
}

func (l *Launcher) awaitRelationalDB(ctx context.Context) error {
	attempts, err := pipeline.Poll(ctx, l.cfg.PollInterval, l.cfg.PollAttempts, func(ctx context.Context) error {
		_, err := l.compose.Exec(ctx, "postgres", "pg_isready", "-U", "postgres")
		return err
	})
	if err != nil {
		return fmt.Errorf("relational store not ready: %w", err)
	}
	zerolog.Ctx(ctx).Info().Int("attempts", attempts).Msg("relational store ready")
	l.relDBReady = true
	return nil
}

// bootstrapSchema creates the messaging platform's role and database. Both
// commands are idempotent at the semantic level: "already exists" responses
// are recognized and downgraded, everything else is surfaced.
func (l *Launcher) bootstrapSchema(ctx context.Context) error {
	if !l.relDBReady {
		return fmt.Errorf("relational store readiness not confirmed")
	}

	statements := []string{
		fmt.Sprintf("CREATE ROLE %s WITH LOGIN SUPERUSER PASSWORD '%s'", l.cfg.MessagingRole, l.dbPassword),
		fmt.Sprintf("CREATE DATABASE %s OWNER %s", l.cfg.MessagingDatabase, l.cfg.MessagingRole),
	}

	for _, stmt := range statements {
		res, err := l.compose.Exec(ctx, "postgres", "psql", "-U", "postgres", "-c", stmt)
		if err != nil {
			if strings.Contains(res.Stderr, "already exists") {
				zerolog.Ctx(ctx).Debug().Str("statement", stmt).Msg("already exists")
				continue
			}
			return fmt.Errorf("schema bootstrap: %w", err)
		}
	}
	return nil
}

func (l *Launcher) awaitDocumentStore(ctx context.Context) error {
	attempts, err := pipeline.Poll(ctx, l.cfg.PollInterval, l.cfg.PollAttempts, func(ctx context.Context) error {
		_, err := l.compose.Exec(ctx, "mongo", "mongosh", "--quiet", "--eval", "db.adminCommand('ping')")
		return err
	})
	if err != nil {
		return fmt.Errorf("document store not ready: %w", err)
	}
	zerolog.Ctx(ctx).Info().Int("attempts", attempts).Msg("document store ready")
	l.docStoreReady = true
	return nil
}

// startMessagingPlatform starts the messaging platform alone: it must run
// its own schema migration before anything that depends on its database.
func (l *Launcher) startMessagingPlatform(ctx context.Context) error {
	return l.compose.Up(ctx, l.cfg.MessagingService)
}

func (l *Launcher) migrateMessagingPlatform(ctx context.Context) error {
	if !l.relDBReady || !l.docStoreReady {
		return fmt.Errorf("migration attempted before readiness confirmation")
	}

	if err := pipeline.Sleep(ctx, l.cfg.SettleDelay); err != nil {
		return err
	}

	_, err := l.compose.Exec(ctx, l.cfg.MessagingService,
		"bundle", "exec", "rails", "db:chatwoot_prepare")
	if err != nil {
		// Already-migrated is the expected steady state on re-runs.
		zerolog.Ctx(ctx).Warn().Err(err).Msg("migration command failed, continuing")
	}
	return nil
}

func (l *Launcher) startRemaining(ctx context.Context) error {
	return l.compose.UpBuild(ctx)
}

// report prints disk usage and access URLs. Launch success does not imply
// application-level health; anything past the data-tier probes is on the
// operator to verify.
func (l *Launcher) report(ctx context.Context) error {
	usage, err := l.compose.DiskUsage(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("disk usage report failed")
	} else {
		fmt.Fprintln(l.out, usage)
	}

	fmt.Fprintf(l.out, "workflow engine:     http://%s:5678\n", l.publicAddr)
	fmt.Fprintf(l.out, "messaging platform:  http://%s:3000\n", l.publicAddr)
	fmt.Fprintf(l.out, "chat interface:      http://%s:3080\n", l.publicAddr)
	fmt.Fprintf(l.out, "bridge API:          http://%s:5000\n", l.publicAddr)
	return nil
}
