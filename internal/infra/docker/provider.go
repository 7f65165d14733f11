package docker

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/adampdxdotcom/GeordiLogger/internal/domain/containers"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Provider talks to the local Docker daemon through the docker CLI.
type Provider struct {
	bin     string
	timeout time.Duration
}

func NewProvider() *Provider {
	return &Provider{bin: "docker", timeout: 30 * time.Second}
}

// ListActive returns all running containers.
func (p *Provider) ListActive(ctx context.Context) ([]containers.Ref, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.bin, "ps", "--no-trunc", "--format", "{{.ID}}\t{{.Names}}")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, p.mapError(err, out)
	}

	var refs []containers.Ref
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		id, name, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		refs = append(refs, containers.Ref{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)})
	}
	return refs, nil
}

// RecentLogs fetches the last tailLines lines of a container's combined
// stdout/stderr output.
func (p *Provider) RecentLogs(ctx context.Context, containerID string, tailLines int) (string, error) {
	if !validID.MatchString(containerID) {
		return "", fmt.Errorf("invalid container id %q", containerID)
	}
	if tailLines <= 0 {
		tailLines = 100
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.bin, "logs", "--tail", strconv.Itoa(tailLines), containerID)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", p.mapError(err, out)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func (p *Provider) mapError(err error, out []byte) error {
	msg := string(out)
	switch {
	case strings.Contains(msg, "No such container"):
		return fmt.Errorf("%w: %s", containers.ErrNotFound, firstLine(msg))
	case strings.Contains(msg, "Cannot connect to the Docker daemon"),
		strings.Contains(msg, "connection refused"):
		return fmt.Errorf("%w: %s", containers.ErrConnection, firstLine(msg))
	default:
		return fmt.Errorf("docker: %v: %s", err, firstLine(msg))
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
