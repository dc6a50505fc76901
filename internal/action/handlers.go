package action

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fystack/stacks-connector/internal/rpc"
	"github.com/fystack/stacks-connector/internal/rpc/bitcoin"
	"github.com/fystack/stacks-connector/internal/rpc/hiro"
	"github.com/fystack/stacks-connector/pkg/clarity"
	"github.com/fystack/stacks-connector/pkg/common/stringutils"
	"github.com/fystack/stacks-connector/pkg/stacks"
)

// defaultTransferFee is the flat STX transfer fee estimate.
const defaultTransferFee = "0.001"

func broadcastTransaction(ctx context.Context, e *Executor, p Params) (any, error) {
	txHex, err := p.Required("txHex")
	if err != nil {
		return nil, err
	}
	raw, err := stringutils.HexToBytes(txHex)
	if err != nil || len(raw) == 0 {
		return nil, fmt.Errorf("%w: txHex must be non-empty hex", ErrInvalidParam)
	}
	res, err := e.hiro.PostRaw(ctx, hiro.PathBroadcast, rpc.ContentTypeOctetStream, raw)
	if err != nil {
		return nil, err
	}
	if txID, ok := res.(string); ok {
		return map[string]any{"txId": strings.Trim(txID, `"`)}, nil
	}
	return res, nil
}

func estimateTransferFee(ctx context.Context, e *Executor, _ Params) (any, error) {
	info, err := e.hiro.GetCoreInfo(ctx)
	if err != nil {
		return nil, err
	}
	micro, err := stacks.STXToMicro(defaultTransferFee)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"estimatedFee":           defaultTransferFee,
		"estimatedFeeInMicroStx": micro.String(),
		"currentBlockHeight":     info.StacksTipHeight,
	}, nil
}

// functionArgs accepts a JSON array (or a Go slice) whose elements are hex
// strings or typed value descriptors. The result is 0x-prefixed hex.
func functionArgs(p Params) ([]string, error) {
	var raw []any
	switch v := p["functionArgs"].(type) {
	case nil:
	case []any:
		raw = v
	case []string:
		for _, s := range v {
			raw = append(raw, s)
		}
	case string:
		if strings.TrimSpace(v) == "" {
			break
		}
		dec := json.NewDecoder(strings.NewReader(v))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: functionArgs must be a JSON array: %v", ErrInvalidParam, err)
		}
	default:
		return nil, fmt.Errorf("%w: functionArgs has type %T", ErrInvalidParam, v)
	}

	args := make([]string, 0, len(raw))
	for i, a := range raw {
		arg, err := encodeArg(a)
		if err != nil {
			return nil, fmt.Errorf("%w: functionArgs[%d]: %w", ErrInvalidParam, i, err)
		}
		args = append(args, arg)
	}
	return args, nil
}

func encodeArg(a any) (string, error) {
	if s, ok := a.(string); ok && !strings.HasPrefix(strings.TrimSpace(s), "{") {
		s = stringutils.Trim0x(s)
		if _, err := hex.DecodeString(s); err != nil {
			return "", fmt.Errorf("not hex: %w", err)
		}
		return "0x" + s, nil
	}
	v, err := clarity.ParseDescriptor(a)
	if err != nil {
		return "", err
	}
	encoded, err := clarity.EncodeValue(v)
	if err != nil {
		return "", err
	}
	return "0x" + encoded, nil
}

func callReadOnly(ctx context.Context, e *Executor, p Params) (any, error) {
	contractID, err := p.Required("contractId")
	if err != nil {
		return nil, err
	}
	function, err := p.Required("functionName")
	if err != nil {
		return nil, err
	}
	sender, err := p.Required("senderAddress")
	if err != nil {
		return nil, err
	}
	args, err := functionArgs(p)
	if err != nil {
		return nil, err
	}

	res, err := e.hiro.CallReadOnly(ctx, contractID, function, sender, args)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"okay": res.Okay}
	if res.Cause != "" {
		out["cause"] = res.Cause
	}
	if res.Result != "" {
		out["result"] = res.Result
		withDecoded(out, res.Result)
	}
	return out, nil
}

func mapEntryKey(_ *Executor, p Params) (any, error) {
	if !p.Has("mapKey") {
		return nil, fmt.Errorf("%w: mapKey", ErrMissingParam)
	}
	key, err := encodeArg(p["mapKey"])
	if err != nil {
		return nil, fmt.Errorf("%w: mapKey: %w", ErrInvalidParam, err)
	}
	return key, nil
}

// withDecoded adds the plain decoding of a Clarity hex to out, or the
// decoding error when it is not valid.
func withDecoded(out map[string]any, hexValue string) {
	decoded, err := clarity.DecodeHex(hexValue)
	if err == nil {
		decoded, err = toPlain(decoded)
	}
	if err != nil {
		out["decodeError"] = err.Error()
		return
	}
	out["decoded"] = decoded
}

func clarityEncode(_ context.Context, _ *Executor, p Params) (any, error) {
	typeTag, err := p.Required("clarityType")
	if err != nil {
		return nil, err
	}
	value := p["value"]
	encoded, err := clarity.EncodeHex(typeTag, value)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":          typeTag,
		"originalValue": value,
		"encodedHex":    "0x" + encoded,
	}, nil
}

func clarityDecode(_ context.Context, _ *Executor, p Params) (any, error) {
	hexValue, err := p.Required("hexValue")
	if err != nil {
		return nil, err
	}
	decoded, err := clarity.DecodeHex(hexValue)
	if err != nil {
		return nil, err
	}
	plain, err := toPlain(decoded)
	if err != nil {
		return nil, err
	}
	return map[string]any{"originalHex": hexValue, "decodedValue": plain}, nil
}

func rosettaNetwork(e *Executor) map[string]any {
	return map[string]any{"blockchain": "stacks", "network": e.network.RosettaNetwork()}
}

func rosettaNetworkBody(e *Executor, _ Params) (any, error) {
	return map[string]any{"network_identifier": rosettaNetwork(e)}, nil
}

// rosettaBlockBody selects the block by index when blockIdentifier is all
// digits and by hash otherwise.
func rosettaBlockBody(e *Executor, p Params) (any, error) {
	id, err := p.Required("blockIdentifier")
	if err != nil {
		return nil, err
	}
	block := map[string]any{"hash": id}
	if isNumeric(id) {
		index, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: blockIdentifier: %v", ErrInvalidParam, err)
		}
		block = map[string]any{"index": index}
	}
	return map[string]any{
		"network_identifier": rosettaNetwork(e),
		"block_identifier":   block,
	}, nil
}

func rosettaAccountBody(e *Executor, p Params) (any, error) {
	address, err := p.Required("address")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"network_identifier": rosettaNetwork(e),
		"account_identifier": map[string]any{"address": address},
	}, nil
}

func validateAddress(_ context.Context, _ *Executor, p Params) (any, error) {
	address := p.String("address")
	valid := stacks.IsValidAddress(address)
	message := "Invalid Stacks address format"
	if valid {
		message = "Valid Stacks address"
	}
	return map[string]any{"address": address, "valid": valid, "message": message}, nil
}

func validateContractID(_ context.Context, _ *Executor, p Params) (any, error) {
	id := p.String("contractId")
	valid := stacks.IsValidContractID(id)
	message := "Invalid contract ID format"
	if valid {
		message = "Valid contract ID"
	}
	return map[string]any{"contractId": id, "valid": valid, "message": message}, nil
}

func stxToMicro(_ context.Context, _ *Executor, p Params) (any, error) {
	amount, err := p.Required("stxAmount")
	if err != nil {
		return nil, err
	}
	micro, err := stacks.STXToMicro(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: stxAmount: %w", ErrInvalidParam, err)
	}
	return map[string]any{
		"stx":       amount,
		"microStx":  micro.String(),
		"formatted": fmt.Sprintf("%s STX = %s µSTX", amount, micro.String()),
	}, nil
}

func microToSTX(_ context.Context, _ *Executor, p Params) (any, error) {
	amount, err := p.Required("microStxAmount")
	if err != nil {
		return nil, err
	}
	stx, err := stacks.MicroToSTX(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: microStxAmount: %w", ErrInvalidParam, err)
	}
	return map[string]any{
		"microStx":  amount,
		"stx":       stx,
		"formatted": fmt.Sprintf("%s µSTX = %s STX", amount, stx),
	}, nil
}

func btcToSTXAddress(_ context.Context, _ *Executor, p Params) (any, error) {
	btc, err := p.Required("btcAddress")
	if err != nil {
		return nil, err
	}
	stx, err := stacks.BTCToSTXAddress(btc)
	if err != nil {
		return nil, err
	}
	return map[string]any{"btcAddress": btc, "stxAddress": stx}, nil
}

func stxToBTCAddress(_ context.Context, _ *Executor, p Params) (any, error) {
	stx, err := p.Required("address")
	if err != nil {
		return nil, err
	}
	btc, err := stacks.STXToBTCAddress(stx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"stxAddress": stx, "btcAddress": btc}, nil
}

func (e *Executor) btc() (bitcoin.BitcoinAPI, error) {
	if e.bitcoin == nil {
		return nil, fmt.Errorf("no Bitcoin connection configured")
	}
	return e.bitcoin, nil
}

func btcTipHeight(ctx context.Context, e *Executor, _ Params) (any, error) {
	c, err := e.btc()
	if err != nil {
		return nil, err
	}
	height, err := c.GetTipHeight(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"height": height}, nil
}

func btcBlock(ctx context.Context, e *Executor, p Params) (any, error) {
	c, err := e.btc()
	if err != nil {
		return nil, err
	}
	id, err := p.Required("blockHashOrHeight")
	if err != nil {
		return nil, err
	}
	block, err := c.GetBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPlain(block)
}

func btcTransaction(ctx context.Context, e *Executor, p Params) (any, error) {
	c, err := e.btc()
	if err != nil {
		return nil, err
	}
	txID, err := p.Required("txId")
	if err != nil {
		return nil, err
	}
	tx, err := c.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	return toPlain(tx)
}

func btcAddress(ctx context.Context, e *Executor, p Params) (any, error) {
	c, err := e.btc()
	if err != nil {
		return nil, err
	}
	address, err := p.Required("address")
	if err != nil {
		return nil, err
	}
	info, err := c.GetAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	plain, err := toPlain(info)
	if err != nil {
		return nil, err
	}
	out := plain.(map[string]any)
	out["balance"] = info.Balance()
	out["balanceFormatted"] = bitcoin.SatsToBTC(info.Balance()) + " BTC"
	out["addressType"] = bitcoin.GetAddressType(address)
	return out, nil
}

func btcAddressUTXOs(ctx context.Context, e *Executor, p Params) (any, error) {
	c, err := e.btc()
	if err != nil {
		return nil, err
	}
	address, err := p.Required("address")
	if err != nil {
		return nil, err
	}
	utxos, err := c.GetAddressUTXOs(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(utxos) == 0 {
		return []any{}, nil
	}
	return toPlain(utxos)
}

func btcFeeEstimates(ctx context.Context, e *Executor, _ Params) (any, error) {
	c, err := e.btc()
	if err != nil {
		return nil, err
	}
	fees, err := c.GetFeeEstimates(ctx)
	if err != nil {
		return nil, err
	}
	return toPlain(fees)
}
