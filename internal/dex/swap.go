package dex

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"rangeSim/internal/model"
)

// SwapDecoder decodes V3 pool Swap logs.
type SwapDecoder struct {
	event abi.Event
	topic string
}

func NewSwapDecoder() (*SwapDecoder, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	event := parsed.Events["Swap"]
	return &SwapDecoder{event: event, topic: strings.ToLower(event.ID.Hex())}, nil
}

// Topic returns the Swap event signature hash.
func (d *SwapDecoder) Topic() common.Hash {
	return d.event.ID
}

// IsSwap reports whether record carries the Swap topic.
func (d *SwapDecoder) IsSwap(record model.LogRecord) bool {
	return len(record.Topics) > 0 && strings.ToLower(record.Topics[0]) == d.topic
}

// Decode converts a raw Swap log into its payload.
func (d *SwapDecoder) Decode(record model.LogRecord) (model.SwapEventData, error) {
	if !d.IsSwap(record) {
		return model.SwapEventData{}, fmt.Errorf("not a swap log")
	}
	indexedTopics, err := parseIndexedTopics(d.event, record.Topics)
	if err != nil {
		return model.SwapEventData{}, err
	}

	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(d.event.Inputs), indexedTopics); err != nil {
		return model.SwapEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(d.event, record.Data)
	if err != nil {
		return model.SwapEventData{}, err
	}
	if len(values) != 5 {
		return model.SwapEventData{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	ints := make([]string, 4)
	for i := range ints {
		v, err := asBigInt(values[i])
		if err != nil {
			return model.SwapEventData{}, fmt.Errorf("swap field %d: %w", i, err)
		}
		ints[i] = v.String()
	}
	tickInt, err := asBigInt(values[4])
	if err != nil {
		return model.SwapEventData{}, fmt.Errorf("swap tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.SwapEventData{}, err
	}

	return model.SwapEventData{
		Sender:       indexed.Sender.Hex(),
		Recipient:    indexed.Recipient.Hex(),
		Amount0:      ints[0],
		Amount1:      ints[1],
		SqrtPriceX96: ints[2],
		Liquidity:    ints[3],
		Tick:         tick,
	}, nil
}

// DecodeEvent decodes record straight into a simulator swap event.
func (d *SwapDecoder) DecodeEvent(record model.LogRecord) (model.SwapEvent, error) {
	data, err := d.Decode(record)
	if err != nil {
		return model.SwapEvent{}, err
	}
	return data.SwapEvent(record.BlockNumber, record.Timestamp)
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	out := make([]common.Hash, 0, indexedCount)
	for _, topic := range topics[1:] {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
