package entity

// FeeDetails carries the kind-specific inputs behind a fee, for display.
// Only the fields relevant to the estimated kind are set.
type FeeDetails struct {
	GasLimit     uint64 `json:"gasLimit,omitempty"`
	GasPriceGwei string `json:"gasPrice,omitempty"`
	ComputeUnits uint64 `json:"computeUnits"`
	MinUTXO      string `json:"minUtxo,omitempty"`
	FeeRate      int64  `json:"feeRate,omitempty"` // sat/byte
	Size         int64  `json:"size,omitempty"`    // bytes
}

// FeeEstimate is a fee in the native currency of the estimated chain, never in
// the token being transferred.
type FeeEstimate struct {
	Kind    ChainKind  `json:"kind"`
	Fee     string     `json:"fee"`
	Details FeeDetails `json:"details"`
}

// FeeParams are the caller-supplied, kind-specific estimation inputs.
type FeeParams struct {
	// From is the sending address. Used for EVM simulation.
	From string `json:"from,omitempty"`
	// Symbol selects a token transfer on EVM chains; empty means native.
	Symbol string `json:"symbol,omitempty"`

	// Cardano linear fee inputs.
	TxSize     int `json:"txSize,omitempty"`
	NumInputs  int `json:"numInputs,omitempty"`
	NumOutputs int `json:"numOutputs,omitempty"`

	// Bitcoin inputs. FeeRate is the requested sat/byte before clamping.
	FeeRate       int64 `json:"feeRate,omitempty"`
	NumBTCInputs  int   `json:"numBtcInputs,omitempty"`
	NumBTCOutputs int   `json:"numBtcOutputs,omitempty"`
}

// TransferRequest describes a single transfer.
type TransferRequest struct {
	Chain      ChainConfig
	From       string
	To         string
	Amount     string
	Symbol     string
	PrivateKey string
}
