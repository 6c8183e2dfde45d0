package testsupport

import (
	"testing"

	"ckcrowd/internal/campaign"
	"ckcrowd/internal/config"
)

// MustOpenStore opens the campaign store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *campaign.Store {
	t.Helper()

	store, err := campaign.Open(cfg.Paths.CampaignDir)
	if err != nil {
		t.Fatalf("campaign.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
