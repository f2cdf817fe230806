/*
Package discovery advertises and browses vaultd instances on the local
network via mDNS/DNS-SD, using github.com/grandcat/zeroconf.

Each instance advertises a service of type _vaultd-sync._tcp with
device_id, device_type, app_version, pubkey, os, and name in its TXT
record; browsing peers use this to find a device to connect (or pair)
with without needing its address configured ahead of time. The
advertised pubkey is the device's long-term X25519 public key, not a
secret — it lets a peer recognize an already-paired device, or begin a
pairing handshake, before any connection is made.
*/
package discovery
