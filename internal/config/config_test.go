package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestString(t *testing.T) {
	t.Setenv("CONFIG_TEST_SET", "value")

	if got := String(zap.NewNop(), "CONFIG_TEST_SET", "def"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
	if got := String(zap.NewNop(), "CONFIG_TEST_UNSET", "def"); got != "def" {
		t.Fatalf("expected default, got %q", got)
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("CONFIG_TEST_DUR", "45s")
	t.Setenv("CONFIG_TEST_BAD_DUR", "soon")

	if got := Duration(zap.NewNop(), "CONFIG_TEST_DUR", time.Minute); got != 45*time.Second {
		t.Fatalf("expected 45s, got %s", got)
	}
	if got := Duration(zap.NewNop(), "CONFIG_TEST_BAD_DUR", time.Minute); got != time.Minute {
		t.Fatalf("expected default on parse failure, got %s", got)
	}
	if got := Duration(zap.NewNop(), "CONFIG_TEST_NO_DUR", time.Minute); got != time.Minute {
		t.Fatalf("expected default when unset, got %s", got)
	}
}

func TestCSV(t *testing.T) {
	got := CSV(" a, ,b,,c ")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if CSV("") != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestParseEnvFile(t *testing.T) {
	t.Setenv("CONFIG_TEST_EXISTING", "keep")

	input := strings.Join([]string{
		"# comment",
		"",
		"export CONFIG_TEST_A=1",
		`CONFIG_TEST_B="quoted"`,
		"CONFIG_TEST_EXISTING=overwrite",
		"not-a-pair",
	}, "\n")

	if err := parseEnvFile(zap.NewNop(), strings.NewReader(input)); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got := os.Getenv("CONFIG_TEST_A"); got != "1" {
		t.Fatalf("expected CONFIG_TEST_A=1, got %q", got)
	}
	if got := os.Getenv("CONFIG_TEST_B"); got != "quoted" {
		t.Fatalf("expected quotes stripped, got %q", got)
	}
	if got := os.Getenv("CONFIG_TEST_EXISTING"); got != "keep" {
		t.Fatalf("expected existing env to win, got %q", got)
	}

	t.Cleanup(func() {
		os.Unsetenv("CONFIG_TEST_A")
		os.Unsetenv("CONFIG_TEST_B")
	})
}
