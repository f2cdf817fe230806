package discovery

import "testing"

func TestParsePeerTXTRecord(t *testing.T) {
	entries := []string{
		"device_id=dev-1",
		"device_type=desktop",
		"app_version=1",
		"pubkey=aabbcc",
		"os=linux",
		"name=My Laptop",
		"unknown_key=ignored",
	}

	var p Peer
	for _, txt := range entries {
		applyTXT(&p, txt)
	}

	if p.DeviceID != "dev-1" {
		t.Errorf("DeviceID = %q, want dev-1", p.DeviceID)
	}
	if p.DeviceType != "desktop" {
		t.Errorf("DeviceType = %q, want desktop", p.DeviceType)
	}
	if p.AppVersion != "1" {
		t.Errorf("AppVersion = %q, want 1", p.AppVersion)
	}
	if p.PubKey != "aabbcc" {
		t.Errorf("PubKey = %q, want aabbcc", p.PubKey)
	}
	if p.OS != "linux" {
		t.Errorf("OS = %q, want linux", p.OS)
	}
	if p.Name != "My Laptop" {
		t.Errorf("Name = %q, want %q", p.Name, "My Laptop")
	}
}

func TestParsePeerTXTRecordMalformed(t *testing.T) {
	var p Peer
	applyTXT(&p, "no-equals-sign")
	if p.DeviceID != "" {
		t.Errorf("expected no fields set from a malformed entry, got %+v", p)
	}
}
