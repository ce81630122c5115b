package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setup(t *testing.T) (*miniredis.Miniredis, string) {
	t.Helper()
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "settings.yml")
	content := fmt.Sprintf(`
store:
  redis_url: %s
github:
  post_receive_secret: s3cret
log:
  level: disabled
`, mr.Addr())
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return mr, cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDispatchCommand(t *testing.T) {
	mr, cfgPath := setup(t)

	payload := filepath.Join(t.TempDir(), "push.json")
	event := `{"ref":"refs/heads/master","after":"abc123","commits":[{"added":["a.tex","b.md"]},{"modified":["a.tex","c.tex"]}]}`
	if err := os.WriteFile(payload, []byte(event), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	out, err := run(t, "dispatch", "--config", cfgPath, "--payload", payload)
	if err != nil {
		t.Fatalf("dispatch error = %v; output %s", err, out)
	}
	if !strings.Contains(out, "accepted: 2 job(s)") {
		t.Errorf("output = %q", out)
	}

	jobs, err := mr.List("resque:queue:compilation")
	if err != nil || len(jobs) != 2 {
		t.Errorf("compilation queue = %v (%v), want 2 jobs", jobs, err)
	}

	if _, err := run(t, "dispatch", "--config", cfgPath, "--payload", payload, "--secret", "wrong"); err == nil {
		t.Error("dispatch with wrong secret error = nil")
	}
	pushSecret = ""
}

func TestStatsCommand(t *testing.T) {
	mr, cfgPath := setup(t)
	mr.SAdd("documents", "syllabus")
	mr.SAdd("syllabus:downloads",
		`{"ip":"A","user_agent":"ua","time":1709542800,"sha":"abc"}`,
		`{"ip":"B","user_agent":"ua","time":1709542900,"sha":"abc"}`,
	)

	out, err := run(t, "stats", "--config", cfgPath)
	if err != nil {
		t.Fatalf("stats error = %v; output %s", err, out)
	}
	if !strings.Contains(out, `"users_count": 2`) {
		t.Errorf("output = %s", out)
	}

	out, err = run(t, "stats", "syllabus", "--config", cfgPath)
	if err != nil {
		t.Fatalf("stats syllabus error = %v", err)
	}
	if !strings.Contains(out, `"downloads": 2`) {
		t.Errorf("output = %s", out)
	}
}
