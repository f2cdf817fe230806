package discovery

import (
	"context"
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	serviceType   = "_vaultd-sync._tcp"
	serviceDomain = "local."

	// AppVersion is advertised in every TXT record so peers can warn
	// about a sync protocol mismatch before attempting an exchange.
	AppVersion = "1"
)

// Peer is one discovered vaultd instance on the local network.
type Peer struct {
	DeviceID   string
	DeviceType string
	AppVersion string
	PubKey     string // hex-encoded
	OS         string
	Name       string
	Addresses  []string
	Port       int
}

// Advertiser publishes this device's presence via mDNS.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers deviceID/name/port as a _vaultd-sync._tcp service,
// carrying deviceType and the device's long-term X25519 public key in
// its TXT record, and begins responding to mDNS queries. Call Shutdown
// when the daemon stops.
func Advertise(deviceID, name, deviceType string, pubKey []byte, port int) (*Advertiser, error) {
	txt := []string{
		"device_id=" + deviceID,
		"device_type=" + deviceType,
		"app_version=" + AppVersion,
		"pubkey=" + hex.EncodeToString(pubKey),
		"os=" + runtime.GOOS,
		"name=" + name,
	}
	server, err := zeroconf.Register(name, serviceType, serviceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("register mdns service: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown unregisters the mDNS service.
func (a *Advertiser) Shutdown() {
	a.server.Shutdown()
}

// Browse searches the local network for other _vaultd-sync._tcp
// instances for the given duration and returns whatever peers answered.
func Browse(ctx context.Context, timeout time.Duration) ([]Peer, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("create mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var peers []Peer
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			p := Peer{
				Name: entry.Instance,
				Port: entry.Port,
			}
			for _, ip := range entry.AddrIPv4 {
				p.Addresses = append(p.Addresses, ip.String())
			}
			for _, txt := range entry.Text {
				applyTXT(&p, txt)
			}
			peers = append(peers, p)
		}
	}()

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := resolver.Browse(browseCtx, serviceType, serviceDomain, entries); err != nil {
		return nil, fmt.Errorf("browse mdns: %w", err)
	}

	<-browseCtx.Done()
	<-done
	return peers, nil
}

// applyTXT parses one "key=value" TXT record entry into the matching
// Peer field. Unknown keys and entries with no "=" are ignored.
func applyTXT(p *Peer, txt string) {
	key, value, ok := strings.Cut(txt, "=")
	if !ok {
		return
	}
	switch key {
	case "device_id":
		p.DeviceID = value
	case "device_type":
		p.DeviceType = value
	case "app_version":
		p.AppVersion = value
	case "pubkey":
		p.PubKey = value
	case "os":
		p.OS = value
	case "name":
		p.Name = value
	}
}
