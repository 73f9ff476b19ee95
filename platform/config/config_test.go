package config

import (
	"os"
	"testing"
)

const tenantsYAML = `
defaults:
  phoneRegion: US
databases:
  master:
    url: ${MASTER_URL}/
    serviceKey: ${MASTER_KEY}
    isMaster: true
  shop:
    name: Shop
    url: https://shop.example.co
    syncTo: master
    phoneRegion: GB
routing:
  shop:
    businessId: BC_SHOP
    weights: {formSubmit: 10}
    categories:
      - {name: highValue, minScore: 70}
      - {name: partner, tags: [partner-inquiry]}
`

func TestParseTenants(t *testing.T) {
	env := map[string]string{"MASTER_URL": "https://master.example.co", "MASTER_KEY": "svc-key"}
	file, err := ParseTenants([]byte(tenantsYAML), func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("ParseTenants() error = %v", err)
	}

	master := file.Databases["master"]
	if master.URL != "https://master.example.co" {
		t.Fatalf("master url = %q", master.URL)
	}
	if master.ServiceKey != "svc-key" || master.Name != "master" || master.PhoneRegion != "US" {
		t.Fatalf("master = %+v", master)
	}
	if got := file.Databases["shop"].PhoneRegion; got != "GB" {
		t.Fatalf("shop region = %q", got)
	}

	cats := file.Routing["shop"].Categories
	if len(cats) != 2 || cats[0].Name != "highValue" || cats[1].Tags[0] != "partner-inquiry" {
		t.Fatalf("categories = %+v", cats)
	}
}

func TestParseTenantsRejects(t *testing.T) {
	cases := map[string]string{
		"empty":       "defaults: {}\n",
		"bad yaml":    "databases: [",
		"unnamed cat": "databases: {m: {isMaster: true}}\nrouting: {m: {categories: [{minScore: 1}]}}\n",
	}
	for name, raw := range cases {
		if _, err := ParseTenants([]byte(raw), os.Getenv); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CRM_API_URL", "https://crm.example.co/api/")
	t.Setenv("CRM_API_KEY", "k")
	t.Setenv("SYNC_STAMP_ORIGIN", "TRUE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GetCRMAPIURL() != "https://crm.example.co/api" || !cfg.IsCRMEnabled() {
		t.Fatalf("crm url = %q", cfg.GetCRMAPIURL())
	}
	if !cfg.GetSyncStampOrigin() {
		t.Fatalf("stamp origin not enabled")
	}
	if cfg.GetWebhookDedupeTTL().Hours() != 24 {
		t.Fatalf("dedupe ttl = %v", cfg.GetWebhookDedupeTTL())
	}
	if err := (&Config{}).ValidateAPI(); err == nil {
		t.Fatalf("ValidateAPI() accepted empty JWT secret")
	}
}

func TestLoadRequiresCRMKey(t *testing.T) {
	t.Setenv("CRM_API_URL", "https://crm.example.co")
	t.Setenv("CRM_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without CRM_API_KEY")
	}
}
