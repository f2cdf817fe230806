package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/vaultd/pkg/config"
	"github.com/cuemby/vaultd/pkg/crypto"
	"github.com/cuemby/vaultd/pkg/discovery"
	"github.com/cuemby/vaultd/pkg/events"
	"github.com/cuemby/vaultd/pkg/health"
	"github.com/cuemby/vaultd/pkg/pairing"
	"github.com/cuemby/vaultd/pkg/reconciler"
	"github.com/cuemby/vaultd/pkg/relay"
	"github.com/cuemby/vaultd/pkg/sync"
	"github.com/cuemby/vaultd/pkg/transport"
	"github.com/cuemby/vaultd/pkg/trust"
	"github.com/cuemby/vaultd/pkg/types"
	"github.com/cuemby/vaultd/pkg/vault"
	"github.com/cuemby/vaultd/pkg/vaultlog"
	"github.com/cuemby/vaultd/pkg/vaultmetrics"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vaultd",
	Short: "vaultd - a peer-to-peer encrypted personal knowledge vault",
	Long: `vaultd pairs with other devices you own over the local network
and keeps their notes, tasks and attachments in sync without ever
sending plaintext through a third party.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"vaultd version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("vault-dir", defaultVaultDir(), "Vault directory")
	rootCmd.PersistentFlags().String("config", "", "Path to vaultd.yaml (daemon-wide settings, overridden by flags)")

	cobra.OnInitialize(initLogging)

	vaultCmd.AddCommand(vaultCreateCmd, vaultUnlockCmd, vaultLockCmd)
	deviceCmd.AddCommand(devicePairCmd, deviceListCmd, deviceRevokeCmd)
	syncCmd.AddCommand(syncNowCmd, syncStatusCmd, syncRelayCmd)
	relayCmd.AddCommand(relayServeCmd)

	rootCmd.AddCommand(vaultCmd, deviceCmd, syncCmd, relayCmd, runCmd)
}

func defaultVaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vaultd"
	}
	return filepath.Join(home, ".vaultd")
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	vaultlog.Init(vaultlog.Config{
		Level:      vaultlog.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// --- vault ---

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the local vault",
}

var vaultCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new vault in --vault-dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("vault-dir")
		password, _ := cmd.Flags().GetString("password")
		profile, _ := cmd.Flags().GetString("profile")
		if password == "" {
			return fmt.Errorf("--password is required")
		}

		v, codes, err := vault.Create(dir, password, types.DeviceProfile(profile))
		if err != nil {
			return fmt.Errorf("create vault: %w", err)
		}
		defer v.Lock()

		fmt.Println("Vault created at", dir)
		fmt.Println("Recovery codes (store these somewhere safe, shown only once):")
		for _, c := range codes {
			fmt.Println("  " + c)
		}
		return nil
	},
}

var vaultUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the vault and report its status",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("vault-dir")
		password, _ := cmd.Flags().GetString("password")
		v, err := vault.Unlock(dir, password)
		if err != nil {
			return fmt.Errorf("unlock vault: %w", err)
		}
		defer v.Lock()
		fmt.Println("Vault unlocked:", dir)
		return nil
	},
}

var vaultLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Zero the in-memory key for a running daemon (no-op for one-shot CLI use)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Locking only has effect against a running `vaultd run` process; send it SIGTERM.")
		return nil
	},
}

func init() {
	vaultCreateCmd.Flags().String("password", "", "Vault password")
	vaultCreateCmd.Flags().String("profile", string(types.DeviceProfileStandard), "Device profile (high_performance, standard, mobile, low_end)")
	vaultUnlockCmd.Flags().String("password", "", "Vault password")
}

// --- device ---

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage paired devices",
}

var devicePairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Discover nearby devices and begin a pairing handshake with one",
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		peers, err := discovery.Browse(context.Background(), timeout)
		if err != nil {
			return fmt.Errorf("browse: %w", err)
		}
		if len(peers) == 0 {
			fmt.Println("No peers found.")
			return nil
		}
		for _, p := range peers {
			fmt.Printf("  %s  %s  %v:%d  pubkey_hash=%s\n", p.DeviceID, p.Name, p.Addresses, p.Port, peerPubKeyHash(p.PubKey))
		}

		target, _ := cmd.Flags().GetString("device-id")
		if target == "" {
			fmt.Println("Pass --device-id to begin pairing with one of the devices above.")
			return nil
		}

		mgr := pairing.NewManager(target)
		localPub, err := mgr.Initiate()
		if err != nil {
			return fmt.Errorf("initiate pairing: %w", err)
		}
		fmt.Println("Local public key fingerprint:", publicKeyHash(localPub))
		fmt.Println("Exchange this out of band with the peer, then call ExchangeKeys with its public key to complete pairing.")
		return nil
	},
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List paired devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("vault-dir")
		password, _ := cmd.Flags().GetString("password")
		v, err := vault.Unlock(dir, password)
		if err != nil {
			return fmt.Errorf("unlock vault: %w", err)
		}
		defer v.Lock()

		devices, err := v.Store.ListDevices()
		if err != nil {
			return err
		}
		for _, d := range devices {
			reachable := "unknown"
			if d.Address != "" {
				checker := health.NewTCPChecker(d.Address).WithTimeout(2 * time.Second)
				if checker.Check(context.Background()).Healthy {
					reachable = "reachable"
				} else {
					reachable = "unreachable"
				}
			}
			fmt.Printf("  %s  %s  %s  (%s)\n", d.ID, d.Name, d.Address, reachable)
		}
		return nil
	},
}

var deviceRevokeCmd = &cobra.Command{
	Use:   "revoke <device-id>",
	Short: "Revoke a paired device's trust",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("vault-dir")
		password, _ := cmd.Flags().GetString("password")
		v, err := vault.Unlock(dir, password)
		if err != nil {
			return fmt.Errorf("unlock vault: %w", err)
		}
		defer v.Lock()

		dt, err := v.Store.GetDeviceTrust(args[0])
		if err != nil {
			return fmt.Errorf("lookup device trust: %w", err)
		}
		dt.TrustLevel = types.TrustLevelRevoked
		if err := v.Store.PutDeviceTrust(dt); err != nil {
			return err
		}
		fmt.Println("Revoked:", args[0])
		return nil
	},
}

func init() {
	devicePairCmd.Flags().Duration("timeout", 5*time.Second, "How long to browse for peers")
	devicePairCmd.Flags().String("device-id", "", "Begin pairing with this discovered device ID")
	deviceListCmd.Flags().String("password", "", "Vault password")
	deviceRevokeCmd.Flags().String("password", "", "Vault password")
}

// --- sync ---

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync with paired devices",
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Trigger an immediate sync with every reachable paired device",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("vault-dir")
		password, _ := cmd.Flags().GetString("password")
		v, err := vault.Unlock(dir, password)
		if err != nil {
			return fmt.Errorf("unlock vault: %w", err)
		}
		defer v.Lock()

		keys := &storeKeyProvider{v: v}
		client := transport.NewClient(localDeviceID(v), keys)
		devices, err := v.Store.ListDevices()
		if err != nil {
			return err
		}
		for _, d := range devices {
			if d.Address != "" {
				client.SetAddress(d.ID, d.Address)
			}
		}

		verifier := trust.New(v.Store)
		broker := events.NewBroker()
		agent := sync.NewAgent(v.Store, client, broker, localDeviceID(v), 0)
		for _, d := range devices {
			level, err := verifier.VerifyDevice(d.ID, d.Name, d.PublicKey)
			if err != nil {
				fmt.Printf("  %s: trust check failed: %v\n", d.ID, err)
				continue
			}
			if !level.AllowsSync() {
				fmt.Printf("  %s: skipped, trust level %s requires approval\n", d.ID, level)
				continue
			}
			if err := agent.SyncDevice(d); err != nil {
				fmt.Printf("  %s: FAILED: %v\n", d.ID, err)
				continue
			}
			fmt.Printf("  %s: ok\n", d.ID)
		}
		return nil
	},
}

var syncRelayCmd = &cobra.Command{
	Use:   "via-relay <device-id>",
	Short: "Push pending local deltas for device-id through a relay instead of a direct connection",
	Long: `Used when a paired device cannot be reached directly (different
network, asleep). Deltas are sealed to the recipient's public key before
leaving this process, so the relay only ever stores ciphertext.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID := args[0]
		relayURL, _ := cmd.Flags().GetString("relay-url")
		if relayURL == "" {
			return fmt.Errorf("--relay-url is required")
		}
		dir, _ := cmd.Flags().GetString("vault-dir")
		password, _ := cmd.Flags().GetString("password")
		v, err := vault.Unlock(dir, password)
		if err != nil {
			return fmt.Errorf("unlock vault: %w", err)
		}
		defer v.Lock()

		d, err := v.Store.GetDevice(deviceID)
		if err != nil {
			return fmt.Errorf("unknown device %s: %w", deviceID, err)
		}

		last, err := v.Store.LastSyncHistory(deviceID)
		since := int64(0)
		if err == nil {
			since = last.FinishedAt
		}
		gatherer := sync.NewGatherer(v.Store)
		deltas, err := gatherer.GatherSince(since)
		if err != nil {
			return fmt.Errorf("gather deltas: %w", err)
		}

		rc := relay.NewClient(relayURL, localDeviceID(v))
		if err := rc.Register(publicKeyHash(d.PublicKey)); err != nil {
			return fmt.Errorf("register with relay: %w", err)
		}
		env := sync.Envelope{FromDeviceID: localDeviceID(v), Deltas: deltas}
		if err := rc.Send(deviceID, d.PublicKey, env); err != nil {
			return fmt.Errorf("send via relay: %w", err)
		}
		fmt.Printf("queued %d deltas for %s on %s\n", len(deltas), deviceID, relayURL)
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show last sync status for each paired device",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("vault-dir")
		password, _ := cmd.Flags().GetString("password")
		v, err := vault.Unlock(dir, password)
		if err != nil {
			return fmt.Errorf("unlock vault: %w", err)
		}
		defer v.Lock()

		devices, err := v.Store.ListDevices()
		if err != nil {
			return err
		}
		for _, d := range devices {
			h, err := v.Store.LastSyncHistory(d.ID)
			if err != nil || h == nil {
				fmt.Printf("  %s: never synced\n", d.ID)
				continue
			}
			status := "ok"
			if h.Error != "" {
				status = "error: " + h.Error
			}
			fmt.Printf("  %s: finished at %d, pushed=%d pulled=%d %s\n", d.ID, h.FinishedAt, h.Pushed, h.Pulled, status)
		}
		return nil
	},
}

func init() {
	syncNowCmd.Flags().String("password", "", "Vault password")
	syncStatusCmd.Flags().String("password", "", "Vault password")
	syncRelayCmd.Flags().String("password", "", "Vault password")
	syncRelayCmd.Flags().String("relay-url", "", "Base URL of a relay server to push through")
}

// --- relay ---

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run a blind store-and-forward relay for devices that can't reach each other directly",
}

var relayServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the relay HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		addr, _ := cmd.Flags().GetString("addr")

		store, err := relay.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open relay store: %w", err)
		}
		defer store.Close()

		srv := relay.NewServer(store, vaultlog.WithComponent("relay"))
		mux := http.NewServeMux()
		mux.Handle("/", srv.Handler())
		mux.Handle("/metrics", vaultmetrics.Handler())
		mux.HandleFunc("/healthz", vaultmetrics.HealthHandler())
		vaultmetrics.RegisterComponent("relay", true, "")

		fmt.Println("Relay listening on", addr)
		return http.ListenAndServe(addr, mux)
	},
}

func init() {
	relayServeCmd.Flags().String("db", "relay.db", "Path to the relay's bbolt database")
	relayServeCmd.Flags().String("addr", ":8791", "Address to serve the relay HTTP API on")
}

// --- run (daemon) ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run vaultd as a long-lived daemon: sync listener, discovery, periodic sync, metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg := config.Default()
		if cfgPath != "" {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
		}

		dir, _ := cmd.Flags().GetString("vault-dir")
		if !cmd.Flags().Changed("vault-dir") && cfg.DataDir != "" {
			dir = cfg.DataDir
		}
		password, _ := cmd.Flags().GetString("password")
		syncAddr, _ := cmd.Flags().GetString("sync-addr")
		if !cmd.Flags().Changed("sync-addr") && cfg.SyncPort != 0 {
			syncAddr = fmt.Sprintf(":%d", cfg.SyncPort)
		}
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		syncInterval, _ := cmd.Flags().GetDuration("sync-interval")
		if !cmd.Flags().Changed("sync-interval") && cfg.SyncInterval != 0 {
			syncInterval = cfg.SyncInterval
		}

		v, err := vault.Unlock(dir, password)
		if err != nil {
			return fmt.Errorf("unlock vault: %w", err)
		}
		defer v.Lock()
		vaultmetrics.RegisterComponent("vault", true, "")

		keys := &storeKeyProvider{v: v}
		client := transport.NewClient(localDeviceID(v), keys)

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		agent := sync.NewAgent(v.Store, client, broker, localDeviceID(v), syncInterval)

		srv, err := transport.Listen(syncAddr, keys, func(deviceID string, in sync.Envelope) (sync.Envelope, error) {
			return agent.HandleIncoming(deviceID, in)
		})
		if err != nil {
			return fmt.Errorf("listen for sync: %w", err)
		}
		defer srv.Close()
		go srv.Serve()
		vaultmetrics.RegisterComponent("transport", true, "")

		if cfg.DiscoveryEnabled {
			tcpAddr, ok := srv.Addr().(*net.TCPAddr)
			port := 0
			if ok {
				port = tcpAddr.Port
			}
			adv, err := discovery.Advertise(localDeviceID(v), localDeviceID(v), "vaultd", localPublicKey(v), port)
			if err != nil {
				vaultlog.WithComponent("discovery").Warn().Err(err).Msg("advertise failed, continuing without mDNS")
			} else {
				defer adv.Shutdown()
			}
		}

		agent.Start()
		defer agent.Stop()

		rec := reconciler.NewReconciler(v.Store, agent, 30*time.Second)
		rec.Start()
		defer rec.Stop()

		mux := http.NewServeMux()
		mux.Handle("/metrics", vaultmetrics.Handler())
		mux.HandleFunc("/healthz", vaultmetrics.HealthHandler())
		mux.HandleFunc("/readyz", vaultmetrics.ReadyHandler())
		go http.ListenAndServe(metricsAddr, mux)

		fmt.Println("vaultd running. sync:", syncAddr, "metrics:", metricsAddr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("shutting down")
		return nil
	},
}

func init() {
	runCmd.Flags().String("password", "", "Vault password")
	runCmd.Flags().String("sync-addr", ":7391", "Address to listen for direct device sync connections")
	runCmd.Flags().String("metrics-addr", ":8790", "Address to serve /metrics, /healthz, /readyz")
	runCmd.Flags().Duration("sync-interval", 5*time.Minute, "How often to attempt a background sync with known devices")
}

// localDeviceID returns the fixed identifier "local" for every vault;
// no per-vault local-identity record exists.
func localDeviceID(v *vault.Vault) string {
	return "local"
}

func localPublicKey(v *vault.Vault) []byte {
	return []byte{}
}

// storeKeyProvider adapts a Vault's device-secret storage into
// transport.KeyProvider: the shared secret pairing agreed on is sealed
// at rest under the vault's DEK and only ever decrypted into memory for
// the duration of one exchange.
type storeKeyProvider struct {
	v *vault.Vault
}

func (p *storeKeyProvider) SharedSecret(deviceID string) ([]byte, error) {
	sealed, err := p.v.Store.GetDeviceSecret(deviceID)
	if err != nil {
		return nil, transport.ErrUnknownDevice
	}
	return crypto.DecryptBytes(p.v.DEK(), sealed)
}

// publicKeyHash returns the sha256 hex digest pairing uses to let a
// human visually compare two devices' keys out of band.
func publicKeyHash(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:])
}

// peerPubKeyHash re-hashes a peer's hex-encoded advertised public key so
// it prints in the same form as publicKeyHash, for side-by-side compare.
func peerPubKeyHash(hexPub string) string {
	pub, err := hex.DecodeString(hexPub)
	if err != nil {
		return "invalid"
	}
	return publicKeyHash(pub)
}
