package network

import "testing"

func TestNamesOrder(t *testing.T) {
	names := Names()
	want := []string{"testnet", "mainnet", "betanet", "custom", "offline"}
	if len(names) != len(want) {
		t.Fatalf("unexpected menu length: %d", len(names))
	}
	for i, tag := range want {
		if names[i].Tag != tag {
			t.Fatalf("menu position %d: got %s, want %s", i, names[i].Tag, tag)
		}
	}
}

func TestResolveKnownNetworks(t *testing.T) {
	endpoint, err := Resolve("testnet", nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if endpoint.Tag != "testnet" || endpoint.URL != TestnetRPCURL {
		t.Fatalf("unexpected endpoint: %+v", endpoint)
	}

	endpoint, err = Resolve(" Mainnet ", nil)
	if err != nil {
		t.Fatalf("Resolve should normalize case and spacing: %v", err)
	}
	if endpoint.URL != MainnetRPCURL {
		t.Fatalf("unexpected URL: %s", endpoint.URL)
	}
}

func TestResolveOverride(t *testing.T) {
	endpoint, err := Resolve("betanet", map[string]string{"betanet": "https://rpc.example.org"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if endpoint.URL != "https://rpc.example.org" {
		t.Fatalf("override ignored: %s", endpoint.URL)
	}
}

func TestResolveRejectsUnknownAndSpecialTags(t *testing.T) {
	for _, tag := range []string{"", "devnet", "custom", "offline"} {
		if _, err := Resolve(tag, nil); err == nil {
			t.Fatalf("Resolve(%q) should fail", tag)
		}
	}
}

func TestResolveCustom(t *testing.T) {
	endpoint, err := ResolveCustom("https://rpc.example.org:3030")
	if err != nil {
		t.Fatalf("ResolveCustom failed: %v", err)
	}
	if !endpoint.IsCustom() {
		t.Fatal("custom endpoint should report IsCustom")
	}

	for _, raw := range []string{"", "ftp://rpc.example.org", "https://", "not a url"} {
		if _, err := ResolveCustom(raw); err == nil {
			t.Fatalf("ResolveCustom(%q) should fail", raw)
		}
	}
}
