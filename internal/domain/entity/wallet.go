package entity

// WalletInfo is one derived wallet. PrivateKey is secret material; it lives only
// for the caller's session and is never persisted or logged.
type WalletInfo struct {
	Chain      ChainConfig `json:"chain"`
	Address    string      `json:"address"`
	EOAAddress string      `json:"eoaAddress,omitempty"` // set when Address is a smart account
	PrivateKey string      `json:"-"`
}

// Wipe drops the private key reference held by w.
func (w *WalletInfo) Wipe() {
	w.PrivateKey = ""
}

// SigningAddress returns the externally owned address that signs for this wallet.
func (w WalletInfo) SigningAddress() string {
	if w.EOAAddress != "" {
		return w.EOAAddress
	}
	return w.Address
}

// WipeAll clears the private keys of every wallet in ws.
func WipeAll(ws []WalletInfo) {
	for i := range ws {
		ws[i].Wipe()
	}
}

// WatchedAddress is an address tracked by the periodic refresh without any key material.
type WatchedAddress struct {
	ChainID string `json:"chainId"`
	Address string `json:"address"`
}
