package mt4

// Command identifies the inner-header command id carried by every
// decrypted frame, both directions.
type Command uint16

const (
	CmdAuthToken         Command = 0
	CmdAuthPassword      Command = 1
	CmdLogout            Command = 2
	CmdAccountInfo       Command = 3
	CmdCurrentPositions  Command = 4
	CmdOrdersRequest     Command = 5 // history orders, both directions (spec.md §4.7)
	CmdHistoryRequest    Command = 6
	CmdQuotesRequest     Command = 8
	CmdHistoryOrders     Command = 9 // unassigned by the routing table; reserved
	CmdOrderUpdate       Command = 10
	CmdChartRequest      Command = 11
	CmdTradeRequest      Command = 12
	CmdCloseOrder        Command = 13
	CmdConnectionStatus  Command = 15
	CmdModifyOrder       Command = 16
	CmdQuoteSubscribe    Command = 26
	CmdQuoteHistory      Command = 27
	CmdDisconnect        Command = 28
	CmdCancelOrder       Command = 29
	CmdPing              Command = 51
)

// OrderType is the pending/market order kind carried in a TradeRequest's
// Cmd field for new orders.
type OrderType int16

const (
	OrderBuy      OrderType = 0
	OrderSell     OrderType = 1
	OrderBuyLimit OrderType = 2
	OrderSellLimit OrderType = 3
	OrderBuyStop  OrderType = 4
	OrderSellStop OrderType = 5
)

// TradeType is the TradeRequest.Type byte identifying the operation being
// requested: open, modify, or close, and by what mechanism.
type TradeType uint8

const (
	TradeQuote        TradeType = 0
	TradeInstant      TradeType = 64
	TradeRequestOpen  TradeType = 65
	TradeMarket       TradeType = 66
	TradePending      TradeType = 67
	TradeCloseInstant TradeType = 68
	TradeCloseRequest TradeType = 69
	TradeCloseMarket  TradeType = 70
	TradeModify       TradeType = 71
	TradeDelete       TradeType = 72
)
