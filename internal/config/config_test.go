package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.Fee() != 25000 {
		t.Fatalf("fee = %d", cfg.Fee())
	}
	if !cfg.OpenMinting {
		t.Fatal("open minting should default on")
	}
	if cfg.Admin() == cfg.Treasury() {
		t.Fatal("default admin and treasury must differ")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ARTLEDGER_LISTEN_ADDR", ":9999")
	t.Setenv("ARTLEDGER_VERIFICATION_FEE", "100")
	t.Setenv("ARTLEDGER_OPEN_MINTING", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":9999" || cfg.Fee() != 100 || cfg.OpenMinting {
		t.Fatalf("environment not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadAddress(t *testing.T) {
	t.Setenv("ARTLEDGER_ADMIN_ADDRESS", "not-an-address")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid admin address")
	}
}

func TestLoadRejectsNegativeFee(t *testing.T) {
	t.Setenv("ARTLEDGER_VERIFICATION_FEE", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative fee")
	}
}
