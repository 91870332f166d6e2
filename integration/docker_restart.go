//go:build integration
// +build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

// composeService is the docker compose service the E2E run restarts.
var composeService = getenv("E2E_COMPOSE_SERVICE", "storefront")

// restartService bounces the storefront container and waits for it to report
// ready again, so tests can check what survives a restart.
func restartService(t *testing.T, ctx context.Context) {
	t.Helper()

	out, err := exec.CommandContext(ctx, "docker", "compose", "restart", composeService).CombinedOutput()
	if err != nil {
		t.Fatalf("restart %s: %v\n%s", composeService, err, out)
	}
	waitReady(t, ctx, baseURL+"/readyz")
}
