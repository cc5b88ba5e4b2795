package service

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/fxamacker/cbor/v2"
	"github.com/gagliardetto/solana-go"
	"github.com/matryer/is"
	"golang.org/x/crypto/blake2b"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/pkg/cardanokey"
	"multichain_wallet/internal/pkg/logger"
)

const otherBitcoinAddress = "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH"

var utxoTxID = strings.Repeat("ab", 32)

func TestSendEVMDynamicFee(t *testing.T) {
	is := is.New(t)

	evm := &fakeEVM{gas: 21_000, nonce: 3, fees: port.EVMFeeData{BaseFee: gwei(10), TipCap: gwei(2)}}
	s := NewTxService(&fakeClients{evm: evm}, logger.NewNop())

	to := "0x00000000000000000000000000000000000000aa"
	txID, err := s.Send(context.Background(), entity.TransferRequest{
		Chain: testEthereum, From: aliceEVMAddress, To: to, Amount: "0.5", PrivateKey: aliceEVMKey,
	})
	is.NoErr(err)
	is.Equal(len(evm.sent), 1)

	tx := evm.sent[0]
	is.Equal(txID, tx.Hash().Hex())
	is.Equal(tx.Type(), uint8(types.DynamicFeeTxType))
	is.Equal(tx.ChainId().Uint64(), uint64(1))
	is.Equal(tx.Nonce(), uint64(3))
	is.Equal(tx.Gas(), uint64(29_400))
	is.Equal(tx.GasTipCap().String(), gwei(2).String())
	is.Equal(tx.GasFeeCap().String(), gwei(22).String()) // 2*base + tip
	is.Equal(*tx.To(), common.HexToAddress(to))
	is.Equal(tx.Value().String(), "500000000000000000")

	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	is.NoErr(err)
	is.Equal(sender, common.HexToAddress(aliceEVMAddress))
}

func TestSendEVMLegacyToken(t *testing.T) {
	is := is.New(t)

	evm := &fakeEVM{gas: 50_000, fees: port.EVMFeeData{GasPrice: gwei(30)}}
	s := NewTxService(&fakeClients{evm: evm}, logger.NewNop())

	_, err := s.Send(context.Background(), entity.TransferRequest{
		Chain: testPolygon, To: aliceEVMAddress, Amount: "0.01", Symbol: "WBTC", PrivateKey: "0x" + aliceEVMKey,
	})
	is.NoErr(err)

	tx := evm.sent[0]
	is.Equal(tx.Type(), uint8(types.LegacyTxType))
	is.Equal(tx.ChainId().Uint64(), uint64(137))
	is.Equal(tx.GasPrice().String(), gwei(30).String())
	is.Equal(*tx.To(), common.HexToAddress(testPolygon.Tokens[0].Address))
	is.Equal(tx.Value().Sign(), 0)
	is.Equal(common.Bytes2Hex(tx.Data()[:4]), "a9059cbb")
	is.Equal(new(big.Int).SetBytes(tx.Data()[36:68]).Int64(), int64(1_000_000))
}

func TestSendEVMRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		req  entity.TransferRequest
		want error
	}{
		{"bad key", entity.TransferRequest{Chain: testEthereum, To: aliceEVMAddress, Amount: "1", PrivateKey: "zz"}, entity.ErrInvalidKeyMaterial},
		{"zero amount", entity.TransferRequest{Chain: testEthereum, To: aliceEVMAddress, Amount: "0", PrivateKey: aliceEVMKey}, entity.ErrInvalidAmount},
		{"bad recipient", entity.TransferRequest{Chain: testEthereum, To: aliceBitcoinAddress, Amount: "1", PrivateKey: aliceEVMKey}, entity.ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			evm := &fakeEVM{gas: 21_000, fees: port.EVMFeeData{GasPrice: gwei(1)}}
			s := NewTxService(&fakeClients{evm: evm}, logger.NewNop())
			_, err := s.Send(context.Background(), tt.req)
			is.True(errors.Is(err, tt.want))
			is.Equal(len(evm.sent), 0)
		})
	}
}

func TestSendEVMGasFailure(t *testing.T) {
	is := is.New(t)

	s := NewTxService(&fakeClients{evm: &fakeEVM{gasErr: errBoom}}, logger.NewNop())
	_, err := s.Send(context.Background(), entity.TransferRequest{Chain: testEthereum, To: aliceEVMAddress, Amount: "1", PrivateKey: aliceEVMKey})
	is.True(errors.Is(err, entity.ErrSubmissionFailed))
	is.True(errors.Is(err, errBoom))
}

func TestSendSolana(t *testing.T) {
	is := is.New(t)

	sol := &fakeSolana{}
	s := NewTxService(&fakeClients{solana: sol}, logger.NewNop())

	to := solana.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111")
	sig, err := s.Send(context.Background(), entity.TransferRequest{
		Chain: testSolana, To: to.String(), Amount: "1.5", PrivateKey: aliceSolanaKey,
	})
	is.NoErr(err)
	is.Equal(len(sol.sent), 1)

	tx := sol.sent[0]
	is.Equal(sig, tx.Signatures[0].String())
	is.Equal(tx.Message.AccountKeys[0].String(), aliceSolanaAddress) // fee payer
	is.NoErr(tx.VerifySignatures())
}

func TestSendSolanaRejectsBadInput(t *testing.T) {
	is := is.New(t)

	sol := &fakeSolana{}
	s := NewTxService(&fakeClients{solana: sol}, logger.NewNop())

	_, err := s.Send(context.Background(), entity.TransferRequest{Chain: testSolana, To: "nope-0OIl", Amount: "1", PrivateKey: aliceSolanaKey})
	is.True(errors.Is(err, entity.ErrInvalidAddress))
	_, err = s.Send(context.Background(), entity.TransferRequest{Chain: testSolana, To: aliceSolanaAddress, Amount: "0.0000000001", PrivateKey: aliceSolanaKey})
	is.True(errors.Is(err, entity.ErrInvalidAmount))
	_, err = s.Send(context.Background(), entity.TransferRequest{Chain: testSolana, To: aliceSolanaAddress, Amount: "1", PrivateKey: "garbage-0OIl"})
	is.True(errors.Is(err, entity.ErrInvalidKeyMaterial))
	is.Equal(len(sol.sent), 0)
}

func TestSelectBitcoinInputs(t *testing.T) {
	utxos := []port.BitcoinUTXO{
		{TxID: "a", Value: 10_000, Confirmed: true},
		{TxID: "b", Value: 50_000, Confirmed: true},
		{TxID: "c", Value: 1_000_000, Confirmed: false},
	}

	t.Run("largest first with change", func(t *testing.T) {
		is := is.New(t)
		plan, err := selectBitcoinInputs(utxos, 20_000, 10)
		is.NoErr(err)
		is.Equal(len(plan.inputs), 1)
		is.Equal(plan.inputs[0].TxID, "b")
		is.Equal(plan.fee, int64(2_260))
		is.Equal(plan.change, int64(27_740))
	})

	t.Run("dust change goes to fee", func(t *testing.T) {
		is := is.New(t)
		plan, err := selectBitcoinInputs([]port.BitcoinUTXO{{TxID: "d", Value: 21_000, Confirmed: true}}, 20_000, 3)
		is.NoErr(err)
		is.Equal(plan.change, int64(0))
		is.Equal(plan.fee, int64(1_000))
	})

	t.Run("two inputs", func(t *testing.T) {
		is := is.New(t)
		plan, err := selectBitcoinInputs(utxos, 55_000, 1)
		is.NoErr(err)
		is.Equal(len(plan.inputs), 2)
		is.Equal(plan.fee, int64(374))
		is.Equal(plan.change, int64(60_000-55_000-374))
	})

	t.Run("unconfirmed ignored", func(t *testing.T) {
		is := is.New(t)
		_, err := selectBitcoinInputs(utxos, 100_000, 1)
		is.True(errors.Is(err, entity.ErrInsufficientFunds))
	})
}

func TestSendBitcoin(t *testing.T) {
	is := is.New(t)

	btc := &fakeBitcoin{rate: 12.4, utxos: []port.BitcoinUTXO{{TxID: utxoTxID, Vout: 1, Value: 50_000, Confirmed: true}}}
	s := NewTxService(&fakeClients{bitcoin: btc}, logger.NewNop())

	txID, err := s.Send(context.Background(), entity.TransferRequest{
		Chain: testBitcoin, From: aliceBitcoinAddress, To: otherBitcoinAddress, Amount: "0.0002", PrivateKey: aliceBitcoinKey,
	})
	is.NoErr(err)
	is.Equal(len(btc.broadcast), 1)

	raw, err := hex.DecodeString(btc.broadcast[0])
	is.NoErr(err)
	var tx wire.MsgTx
	is.NoErr(tx.Deserialize(bytes.NewReader(raw)))
	is.Equal(txID, tx.TxHash().String())

	is.Equal(len(tx.TxIn), 1)
	is.Equal(tx.TxIn[0].PreviousOutPoint.Index, uint32(1))
	is.Equal(len(tx.TxOut), 2)
	is.Equal(tx.TxOut[0].Value, int64(20_000))
	is.Equal(tx.TxOut[1].Value, int64(50_000-20_000-226*13))

	params := &chaincfg.MainNetParams
	to, err := btcutil.DecodeAddress(otherBitcoinAddress, params)
	is.NoErr(err)
	toScript, err := txscript.PayToAddrScript(to)
	is.NoErr(err)
	is.Equal(tx.TxOut[0].PkScript, toScript)

	from, err := btcutil.DecodeAddress(aliceBitcoinAddress, params)
	is.NoErr(err)
	fromScript, err := txscript.PayToAddrScript(from)
	is.NoErr(err)
	is.Equal(tx.TxOut[1].PkScript, fromScript)

	fetcher := txscript.NewCannedPrevOutputFetcher(fromScript, 50_000)
	vm, err := txscript.NewEngine(fromScript, &tx, 0, txscript.StandardVerifyFlags, nil, txscript.NewTxSigHashes(&tx, fetcher), 50_000, fetcher)
	is.NoErr(err)
	is.NoErr(vm.Execute()) // signature verifies against the spent script
}

func TestSendBitcoinRejects(t *testing.T) {
	is := is.New(t)

	btc := &fakeBitcoin{rate: 5, utxos: []port.BitcoinUTXO{{TxID: utxoTxID, Value: 1_000_000}}}
	s := NewTxService(&fakeClients{bitcoin: btc}, logger.NewNop())

	_, err := s.Send(context.Background(), entity.TransferRequest{Chain: testBitcoin, To: otherBitcoinAddress, Amount: "0.001", PrivateKey: aliceBitcoinKey})
	is.True(errors.Is(err, entity.ErrInsufficientFunds)) // only unconfirmed funds
	_, err = s.Send(context.Background(), entity.TransferRequest{Chain: testBitcoin, To: otherBitcoinAddress, Amount: "0.000001", PrivateKey: aliceBitcoinKey})
	is.True(errors.Is(err, entity.ErrInvalidAmount)) // dust
	_, err = s.Send(context.Background(), entity.TransferRequest{Chain: testBitcoin, To: aliceEVMAddress, Amount: "0.001", PrivateKey: aliceBitcoinKey})
	is.True(errors.Is(err, entity.ErrInvalidAddress))
	_, err = s.Send(context.Background(), entity.TransferRequest{Chain: testBitcoin, To: otherBitcoinAddress, Amount: "0.001", PrivateKey: "abcd"})
	is.True(errors.Is(err, entity.ErrInvalidKeyMaterial))
	is.Equal(len(btc.broadcast), 0)
}

type decodedCardanoTx struct {
	body     []byte
	inputs   []any
	outputs  []cardanoValue
	fee      uint64
	ttl      uint64
	pub, sig []byte
}

// cardanoValue is an output value: a plain coin or [coin, multiasset].
type cardanoValue struct {
	_      struct{} `cbor:",toarray"`
	Coin   uint64
	Assets map[cbor.ByteString]map[cbor.ByteString]uint64
}

func decodeCardanoTx(t *testing.T, raw []byte) decodedCardanoTx {
	t.Helper()
	var parts []cbor.RawMessage
	if err := cbor.Unmarshal(raw, &parts); err != nil {
		t.Fatal(err)
	}
	if len(parts) != 4 {
		t.Fatalf("want 4 parts, got %d", len(parts))
	}
	var body map[uint64]cbor.RawMessage
	if err := cbor.Unmarshal(parts[0], &body); err != nil {
		t.Fatal(err)
	}
	var witnesses map[uint64][][][]byte
	if err := cbor.Unmarshal(parts[1], &witnesses); err != nil {
		t.Fatal(err)
	}
	vkeys := witnesses[0]
	if len(vkeys) != 1 || len(vkeys[0]) != 2 {
		t.Fatalf("unexpected witness set %v", witnesses)
	}

	tx := decodedCardanoTx{body: parts[0], pub: vkeys[0][0], sig: vkeys[0][1]}
	var outputs [][]cbor.RawMessage
	if err := cbor.Unmarshal(body[0], &tx.inputs); err != nil {
		t.Fatal(err)
	}
	if err := cbor.Unmarshal(body[1], &outputs); err != nil {
		t.Fatal(err)
	}
	if err := cbor.Unmarshal(body[2], &tx.fee); err != nil {
		t.Fatal(err)
	}
	if err := cbor.Unmarshal(body[3], &tx.ttl); err != nil {
		t.Fatal(err)
	}
	for _, o := range outputs {
		if len(o) != 2 {
			t.Fatalf("want [address, value], got %d items", len(o))
		}
		var v cardanoValue
		if err := cbor.Unmarshal(o[1], &v.Coin); err != nil {
			if err := cbor.Unmarshal(o[1], &v); err != nil {
				t.Fatal(err)
			}
		}
		tx.outputs = append(tx.outputs, v)
	}
	return tx
}

func TestSendCardano(t *testing.T) {
	is := is.New(t)

	ada := &fakeCardano{slot: 1_000, utxos: []port.CardanoUTXO{
		{TxHash: utxoTxID, OutputIndex: 0, Lovelace: 1_200_000},
		{TxHash: utxoTxID, OutputIndex: 2, Lovelace: 5_000_000},
	}}
	s := NewTxService(&fakeClients{cardano: ada}, logger.NewNop())

	txID, err := s.Send(context.Background(), entity.TransferRequest{
		Chain: testCardano, From: aliceCardanoAddress, To: aliceCardanoAddress, Amount: "2", PrivateKey: aliceCardanoKey,
	})
	is.NoErr(err)
	is.Equal(len(ada.submitted), 1)

	raw := ada.submitted[0]
	tx := decodeCardanoTx(t, raw)
	id := blake2b.Sum256(tx.body)
	is.Equal(txID, hex.EncodeToString(id[:]))
	is.Equal(tx.ttl, uint64(1_000+7_200))
	is.Equal(len(tx.inputs), 1) // the larger output covers it
	is.Equal(tx.inputs[0].([]any)[1].(uint64), uint64(2))

	is.Equal(len(tx.outputs), 2)
	is.Equal(tx.outputs[0].Coin, uint64(2_000_000))
	is.Equal(tx.outputs[0].Coin+tx.outputs[1].Coin+tx.fee, uint64(5_000_000))
	is.Equal(len(tx.outputs[1].Assets), 0)
	is.True(tx.fee >= cardanoFeeLovelace(len(raw), 1, 2))

	is.True(ed25519.Verify(ed25519.PublicKey(tx.pub), id[:], tx.sig))
}

func TestPlanCardanoTxInsufficient(t *testing.T) {
	is := is.New(t)

	key, err := parseCardanoKey(aliceCardanoKey)
	is.NoErr(err)
	raw, err := cardanokey.DecodeAddress(aliceCardanoAddress)
	is.NoErr(err)

	_, err = planCardanoTx([]port.CardanoUTXO{{TxHash: utxoTxID, Lovelace: 1_100_000}}, 1_000_000, raw, raw, 100, key)
	is.True(errors.Is(err, entity.ErrInsufficientFunds))
}

// tokenUnit is a policy id followed by the hex name "tok".
var tokenUnit = strings.Repeat("cd", 28) + "746f6b"

func TestPlanCardanoTxReturnsTokensInChange(t *testing.T) {
	is := is.New(t)

	key, err := parseCardanoKey(aliceCardanoKey)
	is.NoErr(err)
	addr, err := cardanokey.DecodeAddress(aliceCardanoAddress)
	is.NoErr(err)

	utxos := []port.CardanoUTXO{{TxHash: utxoTxID, OutputIndex: 1, Lovelace: 5_000_000, Assets: map[string]uint64{tokenUnit: 1000}}}
	plan, err := planCardanoTx(utxos, 2_000_000, addr, addr, 100, key)
	is.NoErr(err)

	tx := decodeCardanoTx(t, plan.raw)
	is.Equal(len(tx.outputs), 2)
	is.Equal(tx.outputs[0].Coin, uint64(2_000_000))
	is.Equal(len(tx.outputs[0].Assets), 0) // only ada to the recipient
	is.Equal(tx.outputs[0].Coin+tx.outputs[1].Coin+tx.fee, uint64(5_000_000))

	policy, _ := hex.DecodeString(strings.Repeat("cd", 28))
	is.Equal(tx.outputs[1].Assets[cbor.ByteString(policy)][cbor.ByteString("tok")], uint64(1000))

	change := cardanoOutput{address: addr, assets: map[string]uint64{tokenUnit: 1000}}
	minChange, err := change.minLovelace()
	is.NoErr(err)
	is.True(minChange > cardanoMinOutput)
	is.True(tx.outputs[1].Coin >= minChange)
}

func TestPlanCardanoTxPrefersAdaOnlyInputs(t *testing.T) {
	is := is.New(t)

	key, err := parseCardanoKey(aliceCardanoKey)
	is.NoErr(err)
	addr, err := cardanokey.DecodeAddress(aliceCardanoAddress)
	is.NoErr(err)

	utxos := []port.CardanoUTXO{
		{TxHash: utxoTxID, OutputIndex: 0, Lovelace: 9_000_000, Assets: map[string]uint64{tokenUnit: 5}},
		{TxHash: utxoTxID, OutputIndex: 4, Lovelace: 4_000_000},
	}
	plan, err := planCardanoTx(utxos, 2_000_000, addr, addr, 100, key)
	is.NoErr(err)

	tx := decodeCardanoTx(t, plan.raw)
	is.Equal(len(tx.inputs), 1)
	is.Equal(tx.inputs[0].([]any)[1].(uint64), uint64(4)) // the ada-only output
	for _, o := range tx.outputs {
		is.Equal(len(o.Assets), 0)
	}
	is.Equal(tx.outputs[0].Coin+tx.outputs[1].Coin+tx.fee, uint64(4_000_000))
}

func TestPlanCardanoTxTokenChangeTooSmall(t *testing.T) {
	is := is.New(t)

	key, err := parseCardanoKey(aliceCardanoKey)
	is.NoErr(err)
	addr, err := cardanokey.DecodeAddress(aliceCardanoAddress)
	is.NoErr(err)

	// 2.2 ADA minus amount and fee leaves about 1.0 ADA, below what a token output needs
	utxos := []port.CardanoUTXO{{TxHash: utxoTxID, Lovelace: 2_200_000, Assets: map[string]uint64{tokenUnit: 1000}}}
	_, err = planCardanoTx(utxos, 1_000_000, addr, addr, 100, key)
	is.True(errors.Is(err, entity.ErrInsufficientFunds))
}

func TestSendCardanoRejects(t *testing.T) {
	is := is.New(t)

	other, err := cardanokey.FromBIP39Entropy(bytes.Repeat([]byte{7}, 32), nil)
	is.NoErr(err)
	testnet, err := cardanokey.BaseAddress(0, make([]byte, cardanokey.KeyHashSize), make([]byte, cardanokey.KeyHashSize))
	is.NoErr(err)

	ada := &fakeCardano{utxos: []port.CardanoUTXO{{TxHash: utxoTxID, Lovelace: 50_000_000}}}
	s := NewTxService(&fakeClients{cardano: ada}, logger.NewNop())

	tests := []struct {
		name string
		req  entity.TransferRequest
		want error
	}{
		{"foreign key", entity.TransferRequest{From: aliceCardanoAddress, To: aliceCardanoAddress, Amount: "2", PrivateKey: hex.EncodeToString(other.PrivateKey())}, entity.ErrInvalidKeyMaterial},
		{"testnet recipient", entity.TransferRequest{From: aliceCardanoAddress, To: testnet, Amount: "2", PrivateKey: aliceCardanoKey}, entity.ErrInvalidAddress},
		{"bad sender", entity.TransferRequest{From: aliceBitcoinAddress, To: aliceCardanoAddress, Amount: "2", PrivateKey: aliceCardanoKey}, entity.ErrInvalidAddress},
		{"below minimum output", entity.TransferRequest{From: aliceCardanoAddress, To: aliceCardanoAddress, Amount: "0.5", PrivateKey: aliceCardanoKey}, entity.ErrInvalidAmount},
		{"short key", entity.TransferRequest{From: aliceCardanoAddress, To: aliceCardanoAddress, Amount: "2", PrivateKey: "abcd"}, entity.ErrInvalidKeyMaterial},
	}
	for _, tt := range tests {
		tt.req.Chain = testCardano
		_, err := s.Send(context.Background(), tt.req)
		is.True(errors.Is(err, tt.want)) // tt.name
	}
	is.Equal(len(ada.submitted), 0)
}

func TestSendUnsupportedKind(t *testing.T) {
	is := is.New(t)

	chain := testEthereum
	chain.Kind = entity.ChainKind(99)
	_, err := NewTxService(&fakeClients{}, logger.NewNop()).Send(context.Background(), entity.TransferRequest{Chain: chain})
	is.True(errors.Is(err, entity.ErrUnsupportedChainKind))
}
