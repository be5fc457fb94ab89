package mt4

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"mt4adapter/internal/mt4codec"
	"mt4adapter/internal/mt4errors"
)

// OpenParams describes a new market or pending order.
type OpenParams struct {
	Symbol     string
	Type       OrderType
	Volume     decimal.Decimal // lots
	Price      float64         // required for limit/stop orders, ignored for market
	StopLoss   float64
	TakeProfit float64
	Slippage   int32
	Comment    string
	Expiration time.Time // zero value means no expiration
}

// Buy opens a market buy order.
func (s *Session) Buy(ctx context.Context, p OpenParams) (int32, bool, error) {
	p.Type = OrderBuy
	return s.submitOpen(ctx, p, uint8(TradeMarket))
}

// Sell opens a market sell order.
func (s *Session) Sell(ctx context.Context, p OpenParams) (int32, bool, error) {
	p.Type = OrderSell
	return s.submitOpen(ctx, p, uint8(TradeMarket))
}

// BuyLimit places a pending buy-limit order.
func (s *Session) BuyLimit(ctx context.Context, p OpenParams) (int32, bool, error) {
	p.Type = OrderBuyLimit
	return s.submitOpen(ctx, p, uint8(TradePending))
}

// SellLimit places a pending sell-limit order.
func (s *Session) SellLimit(ctx context.Context, p OpenParams) (int32, bool, error) {
	p.Type = OrderSellLimit
	return s.submitOpen(ctx, p, uint8(TradePending))
}

// submitOpen returns the allocated request id, whether it was rejected as
// a duplicate of an in-flight request on the same lock key (spec.md
// §4.8/§7, scenario S4), and any other error.
func (s *Session) submitOpen(ctx context.Context, p OpenParams, tradeType uint8) (int32, bool, error) {
	if p.Symbol == "" {
		return 0, false, &mt4errors.InvalidParamsError{Field: "Symbol", Reason: "must not be empty"}
	}
	if p.Volume.Sign() <= 0 {
		return 0, false, &mt4errors.InvalidParamsError{Field: "Volume", Reason: "must be positive"}
	}

	requestID := s.tracker.Allocate()
	var expiration int32
	if !p.Expiration.IsZero() {
		expiration = int32(p.Expiration.Unix())
	}

	req := mt4codec.TradeRequest{
		Type:       tradeType,
		Cmd:        int16(p.Type),
		Ticket:     0,
		Symbol:     p.Symbol,
		Volume:     mt4codec.LotsToCentiLots(p.Volume),
		Price:      p.Price,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		Slippage:   p.Slippage,
		Comment:    p.Comment,
		Expiration: expiration,
		RequestID:  requestID,
	}

	// New orders have no ticket yet; use the negative request ID as the
	// tracker's per-ticket key so concurrent opens never collide with
	// each other or with any real ticket number.
	lockKey := -requestID
	if err := s.tracker.TrySubmit(requestID, lockKey, time.Now()); err != nil {
		if errors.Is(err, mt4errors.ErrDuplicate) {
			return requestID, true, nil
		}
		return 0, false, err
	}

	if err := s.sendCommand(uint16(CmdTradeRequest), mt4codec.EncodeTradeRequest(req), false); err != nil {
		s.tracker.Confirm(requestID)
		return 0, false, fmt.Errorf("mt4: %w", err)
	}
	return requestID, false, nil
}

// CloseParams describes an existing ticket to close.
type CloseParams struct {
	Ticket   int32
	Volume   decimal.Decimal // zero means close in full
	Price    float64
	Slippage int32
}

// CloseOrder closes an open position, in full or in part. The returned
// bool reports whether ticket already had another request in flight — in
// that case requestID is still the id this call allocated, duplicate is
// true, no frame is sent, and err is nil (spec.md §4.8/§7, scenario S4).
func (s *Session) CloseOrder(ctx context.Context, p CloseParams) (int32, bool, error) {
	if p.Ticket <= 0 {
		return 0, false, &mt4errors.InvalidParamsError{Field: "Ticket", Reason: "must be positive"}
	}

	requestID := s.tracker.Allocate()
	req := mt4codec.TradeRequest{
		Type:      uint8(TradeCloseMarket),
		Cmd:       0,
		Ticket:    p.Ticket,
		Volume:    mt4codec.LotsToCentiLots(p.Volume),
		Price:     p.Price,
		Slippage:  p.Slippage,
		RequestID: requestID,
	}

	if err := s.tracker.TrySubmit(requestID, p.Ticket, time.Now()); err != nil {
		if errors.Is(err, mt4errors.ErrDuplicate) {
			return requestID, true, nil
		}
		return 0, false, err
	}
	if err := s.sendCommand(uint16(CmdCloseOrder), mt4codec.EncodeTradeRequest(req), false); err != nil {
		s.tracker.Confirm(requestID)
		return 0, false, fmt.Errorf("mt4: %w", err)
	}
	return requestID, false, nil
}

// CancelOrder withdraws a pending order that has not yet triggered. See
// CloseOrder for the duplicate-return convention.
func (s *Session) CancelOrder(ctx context.Context, ticket int32) (int32, bool, error) {
	if ticket <= 0 {
		return 0, false, &mt4errors.InvalidParamsError{Field: "Ticket", Reason: "must be positive"}
	}

	requestID := s.tracker.Allocate()
	req := mt4codec.TradeRequest{
		Type:      uint8(TradeDelete),
		Ticket:    ticket,
		RequestID: requestID,
	}

	if err := s.tracker.TrySubmit(requestID, ticket, time.Now()); err != nil {
		if errors.Is(err, mt4errors.ErrDuplicate) {
			return requestID, true, nil
		}
		return 0, false, err
	}
	if err := s.sendCommand(uint16(CmdCancelOrder), mt4codec.EncodeTradeRequest(req), false); err != nil {
		s.tracker.Confirm(requestID)
		return 0, false, fmt.Errorf("mt4: %w", err)
	}
	return requestID, false, nil
}

// ModifyOrder changes stop loss / take profit (and, for pending orders,
// price) on an existing ticket. See CloseOrder for the duplicate-return
// convention.
func (s *Session) ModifyOrder(ctx context.Context, ticket int32, price, stopLoss, takeProfit float64) (int32, bool, error) {
	if ticket <= 0 {
		return 0, false, &mt4errors.InvalidParamsError{Field: "Ticket", Reason: "must be positive"}
	}

	requestID := s.tracker.Allocate()
	req := mt4codec.TradeRequest{
		Type:       uint8(TradeModify),
		Ticket:     ticket,
		Price:      price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		RequestID:  requestID,
	}

	if err := s.tracker.TrySubmit(requestID, ticket, time.Now()); err != nil {
		if errors.Is(err, mt4errors.ErrDuplicate) {
			return requestID, true, nil
		}
		return 0, false, err
	}
	if err := s.sendCommand(uint16(CmdModifyOrder), mt4codec.EncodeTradeRequest(req), false); err != nil {
		s.tracker.Confirm(requestID)
		return 0, false, fmt.Errorf("mt4: %w", err)
	}
	return requestID, false, nil
}

// Ping sends a keepalive. The server replies with command 51, surfaced
// as EventPong.
func (s *Session) Ping(ctx context.Context) error {
	if err := s.sendCommand(uint16(CmdPing), nil, false); err != nil {
		return fmt.Errorf("mt4: %w", err)
	}
	return nil
}

// RequestAccountInfo asks the server to push the current AccountInfo,
// surfaced as EventAccountInfo.
func (s *Session) RequestAccountInfo(ctx context.Context) error {
	if err := s.sendCommand(uint16(CmdAccountInfo), nil, false); err != nil {
		return fmt.Errorf("mt4: %w", err)
	}
	return nil
}

// RequestCurrentPositions asks the server to push a full positions
// snapshot, surfaced as EventPositionsSnapshot and used to replace the
// local mirror.
func (s *Session) RequestCurrentPositions(ctx context.Context) error {
	if err := s.sendCommand(uint16(CmdCurrentPositions), nil, false); err != nil {
		return fmt.Errorf("mt4: %w", err)
	}
	return nil
}

// RequestOrderHistoryRange asks for closed orders within [start, end],
// fire-and-forget on command 5 both directions (spec.md §4.7's routing
// table), surfaced as EventHistoryOrders.
func (s *Session) RequestOrderHistoryRange(ctx context.Context, start, end time.Time) error {
	payload := mt4codec.EncodeHistoryRange(mt4codec.HistoryRange{
		Start: start.Unix(),
		End:   end.Unix(),
	})
	if err := s.sendCommand(uint16(CmdOrdersRequest), payload, false); err != nil {
		return fmt.Errorf("mt4: %w", err)
	}
	return nil
}
