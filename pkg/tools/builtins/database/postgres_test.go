package database

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func init() {
	// Configure testcontainers to use podman.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupPostgres starts a PostgreSQL container seeded with school data and
// returns a read-only backend on it.
func setupPostgres(t *testing.T) *Postgres {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}
	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()
	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("askdata_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	seed, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("connecting for fixtures: %v", err)
	}
	_, err = seed.Exec(ctx, `
		CREATE TABLE school (id uuid PRIMARY KEY, school_name text, latitude numeric(9,6), enrolment int);
		INSERT INTO school VALUES
			('6f1c2a52-5a5f-4b6e-9a43-0d5b1f0e6a11', 'Bedok Green Primary', 1.325100, 1200),
			('0b7d8e1a-3c4f-4d2a-8e6b-7a9c1d2e3f40', 'Yishun Primary', 1.429300, 1010);`)
	seed.Close()
	if err != nil {
		t.Fatalf("seeding fixtures: %v", err)
	}

	db, err := NewPostgres(ctx, PostgresConfig{DSN: connStr, MaxConns: 2})
	if err != nil {
		t.Fatalf("creating backend: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgres_QueryConvertsValues(t *testing.T) {
	db := setupPostgres(t)

	f, err := db.Query(context.Background(),
		"SELECT id, school_name, latitude, enrolment FROM school WHERE enrolment > ? ORDER BY enrolment DESC", 0, 1100)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if f.Len() != 1 {
		t.Fatalf("rows = %d, want 1", f.Len())
	}
	row := f.Rows[0]
	if row[0] != "6f1c2a52-5a5f-4b6e-9a43-0d5b1f0e6a11" {
		t.Errorf("id = %#v, want uuid string", row[0])
	}
	if row[2] != 1.3251 {
		t.Errorf("latitude = %#v, want 1.3251", row[2])
	}
	if row[3] != int32(1200) {
		t.Errorf("enrolment = %#v, want int32(1200)", row[3])
	}
}

func TestPostgres_ReadOnlySession(t *testing.T) {
	db := setupPostgres(t)

	_, err := db.Query(context.Background(), "INSERT INTO school (id) VALUES (gen_random_uuid()) RETURNING id", 0)
	if err == nil || !strings.Contains(err.Error(), "read-only") {
		t.Fatalf("expected read-only transaction error, got %v", err)
	}
}

func TestPostgres_Schema(t *testing.T) {
	db := setupPostgres(t)

	tables, err := db.Schema(context.Background())
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	want := "Table school(id uuid, school_name text, latitude numeric, enrolment integer)\n"
	if got := DescribeSchema(tables, nil); got != want {
		t.Errorf("DescribeSchema = %q, want %q", got, want)
	}
}
