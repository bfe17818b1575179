//go:build integration

package integration

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const postgresImage = "postgres:16-alpine"

// startPostgresContainer starts a disposable Postgres on a Docker-assigned
// loopback port and returns its URL plus a function that removes it.
func startPostgresContainer(ctx context.Context) (string, func(), error) {
	out, err := exec.CommandContext(ctx, "docker", "run", "-d", "--rm",
		"-p", "127.0.0.1::5432",
		"-e", "POSTGRES_USER=healthcare",
		"-e", "POSTGRES_PASSWORD=healthcare",
		"-e", "POSTGRES_DB=healthcare_test",
		postgresImage,
	).CombinedOutput()
	if err != nil {
		return "", nil, fmt.Errorf("docker run %s: %w: %s", postgresImage, err, out)
	}
	id := strings.TrimSpace(string(out))
	stop := func() { _ = exec.Command("docker", "rm", "-f", id).Run() }

	out, err = exec.CommandContext(ctx, "docker", "port", id, "5432/tcp").Output()
	if err != nil {
		stop()
		return "", nil, fmt.Errorf("docker port: %w", err)
	}
	// First line looks like "127.0.0.1:49153".
	addr := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])

	url := fmt.Sprintf("postgres://healthcare:healthcare@%s/healthcare_test?sslmode=disable", addr)
	if err := waitForPostgres(ctx, url, 45*time.Second); err != nil {
		stop()
		return "", nil, err
	}
	return url, stop, nil
}

func waitForPostgres(ctx context.Context, url string, limit time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()
	for {
		conn, err := pgx.Connect(ctx, url)
		if err == nil {
			err = conn.Ping(ctx)
			conn.Close(ctx)
			if err == nil {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres at %s not ready: %w", url, err)
		case <-tick.C:
		}
	}
}
