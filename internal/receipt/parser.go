package receipt

import (
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/keystonelabs/chainkit/internal/codec"
	"github.com/keystonelabs/chainkit/internal/metrics"
)

// EthDecimals is the wei scale of the fee string.
const EthDecimals = 18

// Parser decodes receipts against an immutable event signature database.
type Parser struct {
	db  *codec.SignatureDB
	log *zap.Logger
}

func NewParser(db *codec.SignatureDB, log *zap.Logger) *Parser {
	return &Parser{db: db, log: log.Named("receipt")}
}

// Parse decodes every log of the receipt and aggregates gas cost. An empty
// log list is a valid receipt with no events.
func (p *Parser) Parse(r *Receipt) *ParsedReceipt {
	out := &ParsedReceipt{
		TransactionHash: r.TransactionHash,
		BlockNumber:     uint64(r.BlockNumber),
		From:            r.From,
		To:              r.To,
		ContractAddress: r.ContractAddress,
		Succeeded:       r.Status == 1,
		GasUsed:         uint64(r.GasUsed),
		Events:          make([]DecodedEvent, 0, len(r.Logs)),
	}

	out.EffectiveGasPrice = new(big.Int)
	if r.EffectiveGasPrice != nil {
		out.EffectiveGasPrice.Set(r.EffectiveGasPrice.ToInt())
	}
	out.TotalFeeWei = new(big.Int).Mul(new(big.Int).SetUint64(out.GasUsed), out.EffectiveGasPrice)
	out.TotalFeeEth = FormatWei(out.TotalFeeWei, EthDecimals)

	for _, l := range r.Logs {
		out.Events = append(out.Events, p.decodeLog(l))
	}
	return out
}

// decodeLog matches topic0 against the event database. A miss, a log without
// topics, or data that does not fit the declared shape all produce the
// unknown variant with the raw topics and data preserved.
func (p *Parser) decodeLog(l Log) DecodedEvent {
	ev := DecodedEvent{
		Address:   l.Address,
		RawTopics: l.Topics,
		RawData:   l.Data,
		LogIndex:  uint64(l.LogIndex),
	}

	if len(l.Topics) == 0 {
		metrics.DecodedEvents.WithLabelValues("unknown").Inc()
		return ev
	}
	sig, ok := p.db.EventByTopic(l.Topics[0])
	if !ok {
		p.log.Debug("unknown event topic", zap.String("topic0", l.Topics[0].Hex()))
		metrics.DecodedEvents.WithLabelValues("unknown").Inc()
		return ev
	}

	args, ok := decodeArgs(sig, l)
	if !ok {
		p.log.Debug("event data does not fit declared shape",
			zap.String("event", sig.Name),
			zap.String("topic0", l.Topics[0].Hex()))
		metrics.DecodedEvents.WithLabelValues("unknown").Inc()
		return ev
	}

	ev.Event = sig
	ev.Args = args
	metrics.DecodedEvents.WithLabelValues("known").Inc()
	return ev
}

// decodeArgs decodes indexed arguments from topics[1:] (one word each, in
// declared order) and the remaining arguments positionally from the data
// field. Events with no non-indexed arguments skip data decoding entirely.
func decodeArgs(sig *codec.EventSignature, l Log) ([]EventArg, bool) {
	var dataTypes []codec.Type
	for _, a := range sig.Args {
		if !a.Indexed {
			dataTypes = append(dataTypes, a.Type)
		}
	}

	var dataValues []any
	if len(dataTypes) > 0 {
		var err error
		dataValues, err = codec.DecodeReturn(dataTypes, l.Data)
		if err != nil {
			return nil, false
		}
	}

	args := make([]EventArg, 0, len(sig.Args))
	topicIdx, dataIdx := 1, 0
	for _, a := range sig.Args {
		arg := EventArg{Name: a.Name, Type: a.Type, Indexed: a.Indexed}
		if a.Indexed {
			if topicIdx >= len(l.Topics) {
				return nil, false
			}
			v, err := codec.DecodeReturn([]codec.Type{a.Type}, l.Topics[topicIdx].Bytes())
			if err != nil {
				return nil, false
			}
			arg.Value = v[0]
			topicIdx++
		} else {
			arg.Value = dataValues[dataIdx]
			dataIdx++
		}
		args = append(args, arg)
	}
	return args, true
}

// FormatWei renders an integer amount as a decimal string scaled by the given
// number of decimals, with trailing zeros trimmed: 420000000000000 wei at 18
// decimals is "0.00042".
func FormatWei(amount *big.Int, decimals int) string {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(amount, scale, new(big.Int))

	if frac.Sign() == 0 {
		return whole.String()
	}
	fracStr := strings.TrimRight(
		strings.Repeat("0", decimals-len(frac.String()))+frac.String(), "0")
	return whole.String() + "." + fracStr
}
