package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
)

// bitcoinPlan is the outcome of coin selection.
type bitcoinPlan struct {
	inputs []port.BitcoinUTXO
	fee    int64
	change int64 // zero when the change would be dust
}

// selectBitcoinInputs picks confirmed outputs largest first until amount plus
// the fee of the resulting transaction is covered. The fee uses the full
// virtual size, since the node enforces its relay minimum on it.
func selectBitcoinInputs(utxos []port.BitcoinUTXO, amount, rate int64) (bitcoinPlan, error) {
	confirmed := make([]port.BitcoinUTXO, 0, len(utxos))
	for _, u := range utxos {
		if u.Confirmed {
			confirmed = append(confirmed, u)
		}
	}
	sort.SliceStable(confirmed, func(i, j int) bool { return confirmed[i].Value > confirmed[j].Value })

	var total int64
	for n := 1; n <= len(confirmed); n++ {
		total += confirmed[n-1].Value

		feeWithChange := bitcoinVSize(n, 2) * rate
		if change := total - amount - feeWithChange; change >= bitcoinDustLimit {
			return bitcoinPlan{inputs: confirmed[:n], fee: feeWithChange, change: change}, nil
		}
		feeNoChange := bitcoinVSize(n, 1) * rate
		if total-amount >= feeNoChange {
			return bitcoinPlan{inputs: confirmed[:n], fee: total - amount}, nil
		}
	}
	return bitcoinPlan{}, entity.NewError(entity.CodeInsufficientFunds, "select inputs", entity.KindBitcoin,
		fmt.Errorf("confirmed balance %d sat does not cover %d sat plus fee", total, amount))
}

func (s *TxServiceImpl) sendBitcoin(ctx context.Context, req entity.TransferRequest) (string, error) {
	priv, err := parseBitcoinKey(req.PrivateKey)
	if err != nil {
		return "", err
	}
	params := &chaincfg.MainNetParams
	fromAddr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(priv.PubKey().SerializeCompressed()), params)
	if err != nil {
		return "", invalidKey("send", entity.KindBitcoin, err)
	}
	toAddr, err := btcutil.DecodeAddress(req.To, params)
	if err != nil || !toAddr.IsForNet(params) {
		return "", entity.NewError(entity.CodeInvalidAddress, "send", entity.KindBitcoin, fmt.Errorf("invalid recipient %q", req.To))
	}
	amount, err := parseAmount(req.Amount, req.Chain.Native.Decimals, entity.KindBitcoin, false)
	if err != nil {
		return "", err
	}
	if !amount.IsInt64() || amount.Int64() < bitcoinDustLimit {
		return "", entity.NewError(entity.CodeInvalidAmount, "send", entity.KindBitcoin, fmt.Errorf("amount %s is below the dust limit", req.Amount))
	}

	client, err := s.clients.Bitcoin(req.Chain)
	if err != nil {
		return "", submitFailed(entity.KindBitcoin, "get client", err)
	}
	utxos, err := client.UTXOs(ctx, fromAddr.EncodeAddress())
	if err != nil {
		return "", submitFailed(entity.KindBitcoin, "list utxos", err)
	}
	rate, err := client.FeeRate(ctx, bitcoinTargetBlocks)
	if err != nil {
		return "", submitFailed(entity.KindBitcoin, "fee rate", err)
	}
	plan, err := selectBitcoinInputs(utxos, amount.Int64(), clampFeeRate(rate))
	if err != nil {
		return "", err
	}

	tx, err := buildBitcoinTx(plan, amount.Int64(), fromAddr, toAddr)
	if err != nil {
		return "", submitFailed(entity.KindBitcoin, "build", err)
	}
	fromScript, err := txscript.PayToAddrScript(fromAddr)
	if err != nil {
		return "", submitFailed(entity.KindBitcoin, "build", err)
	}
	for i := range tx.TxIn {
		sigScript, err := txscript.SignatureScript(tx, i, fromScript, txscript.SigHashAll, priv, true)
		if err != nil {
			return "", submitFailed(entity.KindBitcoin, "sign", err)
		}
		tx.TxIn[i].SignatureScript = sigScript
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", submitFailed(entity.KindBitcoin, "serialize", err)
	}
	txID, err := client.Broadcast(ctx, hex.EncodeToString(buf.Bytes()))
	if err != nil {
		return "", submitFailed(entity.KindBitcoin, "broadcast", err)
	}
	if txID == "" {
		txID = tx.TxHash().String()
	}
	return txID, nil
}

func buildBitcoinTx(plan bitcoinPlan, amount int64, from, to btcutil.Address) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(wire.TxVersion)
	for _, u := range plan.inputs {
		hash, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("bad utxo txid %q: %w", u.TxID, err)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, u.Vout), nil, nil))
	}
	if len(tx.TxIn) == 0 {
		return nil, errors.New("no inputs selected")
	}

	toScript, err := txscript.PayToAddrScript(to)
	if err != nil {
		return nil, err
	}
	tx.AddTxOut(wire.NewTxOut(amount, toScript))
	if plan.change > 0 {
		changeScript, err := txscript.PayToAddrScript(from)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(plan.change, changeScript))
	}
	return tx, nil
}
