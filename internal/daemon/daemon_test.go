package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/groupweaver/internal/config"
	"github.com/matheus3301/groupweaver/internal/lock"
	"github.com/matheus3301/groupweaver/internal/profile"
	"github.com/matheus3301/groupweaver/internal/status"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func testParams(t *testing.T) Params {
	t.Helper()
	// Use a short path to avoid the 104-char Unix socket limit on macOS.
	base, err := os.MkdirTemp("/tmp", "gw-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(base) })

	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Banner = false
	cfg.Log.Level = "warn"
	return Params{Profile: "test", BaseDir: base, Config: cfg, Console: io.Discard}
}

func TestDaemonLifecycle(t *testing.T) {
	p := testParams(t)
	var srv *HTTPServer
	var machine *status.Machine
	app := fxtest.New(t, Module(p), fx.NopLogger, fx.Populate(&srv, &machine))
	app.RequireStart()

	if machine.Current() != status.Ready {
		t.Fatalf("state = %s, want READY", machine.Current())
	}

	resp, err := http.Get("http://" + srv.Addr().String() + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	var health map[string]any
	err = json.NewDecoder(resp.Body).Decode(&health)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if health["status"] != "ok" || health["state"] != "READY" {
		t.Errorf("health = %v", health)
	}

	paths := profile.New(p.BaseDir, p.Profile)
	if _, err := os.Stat(paths.StoragePath()); err != nil {
		t.Errorf("storage file not seeded: %v", err)
	}

	// A second daemon on the same profile must not start.
	if _, err := lock.Acquire(paths.LockPath()); err == nil {
		t.Error("lock should be held while the daemon runs")
	} else {
		var held *lock.HeldError
		if !errors.As(err, &held) {
			t.Errorf("error = %T, want *lock.HeldError", err)
		}
	}

	app.RequireStop()

	if _, err := os.Stat(paths.SocketPath()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("control socket should be removed on stop, stat error = %v", err)
	}
	if machine.Current() != status.Stopping {
		t.Errorf("state = %s, want STOPPING", machine.Current())
	}
}

func TestControlSocketFollowsState(t *testing.T) {
	p := testParams(t)
	paths := profile.New(p.BaseDir, p.Profile)
	if err := paths.EnsureDirs(); err != nil {
		t.Fatal(err)
	}

	machine := status.NewMachine()
	ctl, err := NewControlServer(paths.SocketPath(), machine, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = ctl.Start() }()
	defer ctl.Stop(context.Background())

	conn, err := grpc.NewClient(
		"unix://"+paths.SocketPath(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	client := healthpb.NewHealthClient(conn)

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: status.HealthService})
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		return resp.Status
	}

	if got := check(); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("booting status = %v, want NOT_SERVING", got)
	}
	_ = machine.Transition(status.Ready)
	if got := check(); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("ready status = %v, want SERVING", got)
	}
	_ = machine.Transition(status.Degraded)
	if got := check(); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("degraded status = %v, want NOT_SERVING", got)
	}
}

func TestWriteBanner(t *testing.T) {
	var buf bytes.Buffer
	writeBanner(&buf, "3002", "192.168.1.20", false)
	out := buf.String()

	for _, want := range []string{
		"http://localhost:3002",
		"http://192.168.1.20:3002",
		"ws://192.168.1.20:3002/ws",
		"AI not configured",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("banner missing %q:\n%s", want, out)
		}
	}
	if !strings.ContainsAny(out, "█▀▄") {
		t.Error("banner should contain a QR code")
	}
}
