// Package compose wraps the docker compose CLI for service lifecycle
// operations within one project directory.
package compose

import (
	"context"
	"fmt"

	"github.com/aistack/stackup/pkg/host"
)

// Client invokes docker compose for a single project.
type Client struct {
	runner     host.Runner
	projectDir string
	file       string
}

// NewClient creates a compose client for the project at projectDir using
// the given compose file name.
func NewClient(runner host.Runner, projectDir, file string) *Client {
	return &Client{runner: runner, projectDir: projectDir, file: file}
}

func (c *Client) base() []string {
	return []string{"compose", "--project-directory", c.projectDir, "-f", c.file}
}

// Up starts the named services detached. With no services it starts the
// whole project.
func (c *Client) Up(ctx context.Context, services ...string) error {
	args := append(c.base(), "up", "-d")
	args = append(args, services...)
	if _, err := c.runner.Run(ctx, "docker", args...); err != nil {
		return fmt.Errorf("compose up %v: %w", services, err)
	}
	return nil
}

// UpBuild starts every declared service detached, rebuilding images as
// needed.
func (c *Client) UpBuild(ctx context.Context) error {
	args := append(c.base(), "up", "-d", "--build")
	if _, err := c.runner.Run(ctx, "docker", args...); err != nil {
		return fmt.Errorf("compose up --build: %w", err)
	}
	return nil
}

// Exec runs a command inside a running service container without a TTY.
func (c *Client) Exec(ctx context.Context, service string, cmd ...string) (host.Result, error) {
	args := append(c.base(), "exec", "-T", service)
	args = append(args, cmd...)
	res, err := c.runner.Run(ctx, "docker", args...)
	if err != nil {
		return res, fmt.Errorf("compose exec %s: %w", service, err)
	}
	return res, nil
}

// DiskUsage returns the container engine's disk usage summary.
func (c *Client) DiskUsage(ctx context.Context) (string, error) {
	res, err := c.runner.Run(ctx, "docker", "system", "df")
	if err != nil {
		return "", fmt.Errorf("docker system df: %w", err)
	}
	return res.Stdout, nil
}
