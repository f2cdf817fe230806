package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	vsync "github.com/cuemby/vaultd/pkg/sync"
)

// Client is a device's connection to a blind relay, used when a peer
// can't be reached directly (different networks, asleep, behind NAT).
type Client struct {
	baseURL    string
	deviceID   string
	token      string
	httpClient *http.Client
}

// NewClient returns a relay Client pointed at baseURL (e.g.
// "https://relay.example.com"). Register must be called, or a prior
// token supplied via SetToken, before Send or Fetch will succeed.
func NewClient(baseURL, deviceID string) *Client {
	return &Client{
		baseURL:    baseURL,
		deviceID:   deviceID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs a previously-issued bearer token, skipping Register.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Register claims deviceID on the relay and stores the bearer token it
// returns for subsequent Send/Fetch calls.
func (c *Client) Register(publicKeyHash string) error {
	body, err := json.Marshal(registerRequest{DeviceID: c.deviceID, PublicKeyHash: publicKeyHash})
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Post(c.baseURL+"/register", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("relay: register: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay: register: %s", resp.Status)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	c.token = out.Token
	return nil
}

// Send seals env for toDevice using an ephemeral X25519 agreement
// against its long-term public key recipientPub, and submits it to the
// relay's pending queue.
func (c *Client) Send(toDevice string, recipientPub []byte, env vsync.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ciphertext, ephemeralPub, nonce, err := sealForRecipient(recipientPub, payload)
	if err != nil {
		return err
	}

	relayEnv := RelayEnvelope{
		ID:              ulidNow(),
		FromDevice:      c.deviceID,
		ToDevice:        toDevice,
		Ciphertext:      ciphertext,
		EphemeralPubKey: ephemeralPub,
		Nonce:           nonce,
		Timestamp:       time.Now().Unix(),
		MessageType:     "Batch",
	}

	body, err := json.Marshal(relayEnv)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("relay: send: %s: %s", resp.Status, msg)
	}
	return nil
}

// Fetch retrieves and unseals up to limit pending envelopes addressed
// to this device, using its own long-term private scalar to redo each
// envelope's ephemeral key agreement.
func (c *Client) Fetch(recipientPriv []byte, limit int) ([]vsync.Envelope, error) {
	url := fmt.Sprintf("%s/fetch?device_id=%s&limit=%d", c.baseURL, c.deviceID, limit)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("relay: fetch: %s: %s", resp.Status, msg)
	}

	var relayEnvs []RelayEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&relayEnvs); err != nil {
		return nil, err
	}

	out := make([]vsync.Envelope, 0, len(relayEnvs))
	for _, re := range relayEnvs {
		plaintext, err := openFromSender(recipientPriv, re.EphemeralPubKey, re.Ciphertext, re.Nonce)
		if err != nil {
			return nil, fmt.Errorf("relay: unseal envelope %s: %w", re.ID, err)
		}
		var env vsync.Envelope
		if err := json.Unmarshal(plaintext, &env); err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
