package bitbank

import (
	"context"
	"strings"
)

// MessageHandler receives raw channel payloads from the streaming layer.
// Handlers may be invoked from the transport's own goroutines and must not
// block.
type MessageHandler func(channel string, payload []byte)

// StreamClient abstracts the venue's realtime feed. Implementations own the
// socket lifecycle and invoke the registered handlers for inbound messages
// and connection loss.
type StreamClient interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Subscribe(ctx context.Context, channel string) error
	SetMessageHandler(handler MessageHandler)
	SetDisconnectHandler(handler func())
}

// Public market-data channel prefixes and private push channels.
const (
	tickerPrefix       = "ticker_"
	transactionsPrefix = "transactions_"
	depthWholePrefix   = "depth_whole_"

	channelOrder    = "spot_order"
	channelOrderNew = "spot_order_new"
	channelTrade    = "spot_trade"
	channelAssets   = "asset_update"
)

// TickerChannel returns the ticker channel name for a venue pair code.
func TickerChannel(pair string) string { return tickerPrefix + pair }

// TransactionsChannel returns the public trades channel name for a pair.
func TransactionsChannel(pair string) string { return transactionsPrefix + pair }

// DepthChannel returns the whole-book channel name for a pair.
func DepthChannel(pair string) string { return depthWholePrefix + pair }

// MessageKind routes an inbound stream message to its decoder.
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindTicker
	KindTransactions
	KindDepthWhole
	KindOrderUpdate
	KindTradeUpdate
	KindAssetUpdate
)

// ClassifyChannel maps a channel name to its message kind and, for market
// data channels, the venue pair code it carries.
func ClassifyChannel(channel string) (MessageKind, string) {
	switch {
	case strings.HasPrefix(channel, tickerPrefix):
		return KindTicker, channel[len(tickerPrefix):]
	case strings.HasPrefix(channel, depthWholePrefix):
		return KindDepthWhole, channel[len(depthWholePrefix):]
	case strings.HasPrefix(channel, transactionsPrefix):
		return KindTransactions, channel[len(transactionsPrefix):]
	case channel == channelOrder, channel == channelOrderNew:
		return KindOrderUpdate, ""
	case channel == channelTrade:
		return KindTradeUpdate, ""
	case channel == channelAssets:
		return KindAssetUpdate, ""
	default:
		return KindUnknown, ""
	}
}
