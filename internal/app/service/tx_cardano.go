package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"maps"
	"math"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/pkg/cardanokey"
)

const (
	// cardanoMinOutput is the smallest ada-only output the ledger accepts with margin.
	cardanoMinOutput = 1_000_000
	// cardanoCoinsPerUTxOByte prices an output carrying tokens: the ledger wants
	// at least this many lovelace per byte of (160 + serialized output).
	cardanoCoinsPerUTxOByte = 4_310
	cardanoPolicyIDHexLen   = 56
)

var cardanoEncMode = mustCardanoEncMode()

func mustCardanoEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create cbor encoder: %v", err))
	}
	return em
}

type cardanoOutput struct {
	address  []byte
	lovelace uint64
	assets   map[string]uint64 // policy id + hex asset name -> quantity
}

// value encodes a plain coin, or [coin, {policy: {name: quantity}}] when the
// output carries tokens.
func (o cardanoOutput) value() (any, error) {
	if len(o.assets) == 0 {
		return o.lovelace, nil
	}
	multiAsset := make(map[cbor.ByteString]map[cbor.ByteString]uint64)
	for unit, qty := range o.assets {
		if len(unit) < cardanoPolicyIDHexLen {
			return nil, fmt.Errorf("bad asset unit %q", unit)
		}
		policy, err := hex.DecodeString(unit[:cardanoPolicyIDHexLen])
		if err != nil {
			return nil, fmt.Errorf("bad asset policy %q: %w", unit, err)
		}
		name, err := hex.DecodeString(unit[cardanoPolicyIDHexLen:])
		if err != nil {
			return nil, fmt.Errorf("bad asset name %q: %w", unit, err)
		}
		p := cbor.ByteString(policy)
		if multiAsset[p] == nil {
			multiAsset[p] = make(map[cbor.ByteString]uint64)
		}
		multiAsset[p][cbor.ByteString(name)] += qty
	}
	return []any{o.lovelace, multiAsset}, nil
}

// minLovelace is the smallest coin the output may hold. Outputs with tokens
// are sized with a full-width coin so the bound holds for any amount.
func (o cardanoOutput) minLovelace() (uint64, error) {
	if len(o.assets) == 0 {
		return cardanoMinOutput, nil
	}
	o.lovelace = math.MaxUint64
	v, err := o.value()
	if err != nil {
		return 0, err
	}
	enc, err := cardanoEncMode.Marshal([]any{o.address, v})
	if err != nil {
		return 0, err
	}
	return max(cardanoMinOutput, cardanoCoinsPerUTxOByte*uint64(160+len(enc))), nil
}

// cardanoTx is a signed transaction and the blake2b-256 hash of its body.
type cardanoTx struct {
	raw []byte
	id  [32]byte
}

// buildCardanoTx encodes [body, witnesses, true, null] with the body
// {0: inputs, 1: outputs, 2: fee, 3: ttl} and one vkey witness.
func buildCardanoTx(inputs []port.CardanoUTXO, outputs []cardanoOutput, fee, ttl uint64, key *cardanokey.ExtendedKey) (cardanoTx, error) {
	ins := make([]any, 0, len(inputs))
	for _, u := range inputs {
		h, err := hex.DecodeString(u.TxHash)
		if err != nil || len(h) != 32 {
			return cardanoTx{}, fmt.Errorf("bad utxo hash %q", u.TxHash)
		}
		ins = append(ins, []any{h, uint64(u.OutputIndex)})
	}
	outs := make([]any, 0, len(outputs))
	for _, o := range outputs {
		v, err := o.value()
		if err != nil {
			return cardanoTx{}, err
		}
		outs = append(outs, []any{o.address, v})
	}

	body, err := cardanoEncMode.Marshal(map[uint64]any{0: ins, 1: outs, 2: fee, 3: ttl})
	if err != nil {
		return cardanoTx{}, err
	}
	id := blake2b.Sum256(body)
	witnesses := map[uint64]any{0: []any{[]any{key.PublicKey(), key.Sign(id[:])}}}
	raw, err := cardanoEncMode.Marshal([]any{cbor.RawMessage(body), witnesses, true, nil})
	if err != nil {
		return cardanoTx{}, err
	}
	return cardanoTx{raw: raw, id: id}, nil
}

// settleCardanoFee iterates fee -> size -> fee until the fee covers the
// encoded size. outputsFor receives the candidate fee.
func settleCardanoFee(inputs []port.CardanoUTXO, outputsFor func(fee uint64) []cardanoOutput, ttl uint64, key *cardanokey.ExtendedKey) (uint64, cardanoTx, error) {
	fee := uint64(0)
	for i := 0; i < 10; i++ {
		outs := outputsFor(fee)
		tx, err := buildCardanoTx(inputs, outs, fee, ttl, key)
		if err != nil {
			return 0, cardanoTx{}, err
		}
		need := cardanoFeeLovelace(len(tx.raw), len(inputs), len(outs))
		if need <= fee {
			return fee, tx, nil
		}
		fee = need
	}
	return 0, cardanoTx{}, fmt.Errorf("fee did not converge")
}

func (s *TxServiceImpl) sendCardano(ctx context.Context, req entity.TransferRequest) (string, error) {
	key, err := parseCardanoKey(req.PrivateKey)
	if err != nil {
		return "", err
	}
	defer key.Wipe()

	if !cardanokey.ValidateAddress(req.From) {
		return "", entity.NewError(entity.CodeInvalidAddress, "send", entity.KindCardano, fmt.Errorf("invalid sender %q", req.From))
	}
	fromRaw, _ := cardanokey.DecodeAddress(req.From)
	if !bytes.Equal(fromRaw[1:1+cardanokey.KeyHashSize], key.KeyHash()) {
		return "", invalidKey("send", entity.KindCardano, fmt.Errorf("key does not control %s", req.From))
	}
	toRaw, err := cardanokey.DecodeAddress(req.To)
	if err != nil || len(toRaw) == 0 || toRaw[0]&0x0f != cardanokey.MainnetNetworkID {
		return "", entity.NewError(entity.CodeInvalidAddress, "send", entity.KindCardano, fmt.Errorf("invalid recipient %q", req.To))
	}
	amountBig, err := parseAmount(req.Amount, req.Chain.Native.Decimals, entity.KindCardano, false)
	if err != nil {
		return "", err
	}
	if !amountBig.IsUint64() || amountBig.Uint64() < cardanoMinOutput {
		return "", entity.NewError(entity.CodeInvalidAmount, "send", entity.KindCardano, fmt.Errorf("amount %s is below the minimum output", req.Amount))
	}
	amount := amountBig.Uint64()

	client, err := s.clients.Cardano(req.Chain)
	if err != nil {
		return "", submitFailed(entity.KindCardano, "get client", err)
	}
	utxos, err := client.AddressUTXOs(ctx, req.From)
	if err != nil {
		return "", submitFailed(entity.KindCardano, "list utxos", err)
	}
	slot, err := client.LatestSlot(ctx)
	if err != nil {
		return "", submitFailed(entity.KindCardano, "latest slot", err)
	}
	ttl := slot + cardanoTTLOffsetSlots

	tx, err := planCardanoTx(utxos, amount, toRaw, fromRaw, ttl, key)
	if err != nil {
		return "", err
	}
	txID, err := client.SubmitTx(ctx, tx.raw)
	if err != nil {
		return "", submitFailed(entity.KindCardano, "submit", err)
	}
	if txID == "" {
		txID = hex.EncodeToString(tx.id[:])
	}
	return txID, nil
}

// planCardanoTx selects ada-only inputs largest first, then inputs carrying
// tokens, and returns the first signed transaction whose inputs cover amount
// and fee. Tokens on spent inputs go back to the sender in the change output.
func planCardanoTx(utxos []port.CardanoUTXO, amount uint64, toRaw, fromRaw []byte, ttl uint64, key *cardanokey.ExtendedKey) (cardanoTx, error) {
	sorted := append([]port.CardanoUTXO(nil), utxos...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := len(sorted[i].Assets) > 0, len(sorted[j].Assets) > 0
		if ti != tj {
			return tj
		}
		return sorted[i].Lovelace > sorted[j].Lovelace
	})

	var total uint64
	carried := make(map[string]uint64)
	for n := 1; n <= len(sorted); n++ {
		total += sorted[n-1].Lovelace
		for unit, qty := range sorted[n-1].Assets {
			carried[unit] += qty
		}
		if total <= amount {
			continue
		}
		inputs := sorted[:n]

		change := cardanoOutput{address: fromRaw, assets: maps.Clone(carried)}
		minChange, err := change.minLovelace()
		if err != nil {
			return cardanoTx{}, submitFailed(entity.KindCardano, "build", err)
		}
		withChange := func(fee uint64) []cardanoOutput {
			c := change
			c.lovelace = 0
			if total > amount+fee {
				c.lovelace = total - amount - fee
			}
			return []cardanoOutput{{address: toRaw, lovelace: amount}, c}
		}
		fee, tx, err := settleCardanoFee(inputs, withChange, ttl, key)
		if err != nil {
			return cardanoTx{}, submitFailed(entity.KindCardano, "build", err)
		}
		if total >= amount+fee+minChange {
			return tx, nil
		}
		if len(carried) > 0 {
			// tokens cannot be dropped, so a change output is mandatory
			continue
		}

		single := func(uint64) []cardanoOutput { return []cardanoOutput{{address: toRaw, lovelace: amount}} }
		fee, _, err = settleCardanoFee(inputs, single, ttl, key)
		if err != nil {
			return cardanoTx{}, submitFailed(entity.KindCardano, "build", err)
		}
		if total < amount+fee {
			continue
		}
		// the remainder goes to the fee
		tx, err = buildCardanoTx(inputs, single(0), total-amount, ttl, key)
		if err != nil {
			return cardanoTx{}, submitFailed(entity.KindCardano, "build", err)
		}
		if cardanoFeeLovelace(len(tx.raw), n, 1) <= total-amount {
			return tx, nil
		}
	}
	return cardanoTx{}, entity.NewError(entity.CodeInsufficientFunds, "select inputs", entity.KindCardano,
		fmt.Errorf("balance %d lovelace does not cover %d lovelace plus fee", total, amount))
}
