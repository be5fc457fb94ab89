package mt4

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mt4adapter/internal/config"
	"mt4adapter/internal/mt4codec"
	"mt4adapter/internal/mt4crypto"
	"mt4adapter/internal/mt4errors"
	"mt4adapter/internal/mt4handshake"
	"mt4adapter/internal/mt4token"
	"mt4adapter/internal/mt4tracker"
	"mt4adapter/internal/mt4transport"
)

const eventBufferSize = 256

// Session drives one authenticated connection to the Web Terminal
// gateway: the handshake, the duplex frame channel, request tracking, and
// a mirror of open positions kept current from snapshot and delta
// updates.
type Session struct {
	cfg    config.Config
	logger *slog.Logger

	cipher    *mt4crypto.Cipher
	channel   *mt4transport.Channel
	handshake *mt4handshake.Driver
	tracker   *mt4tracker.Tracker

	positionsMu sync.RWMutex
	positions   map[int32]mt4codec.Order

	events chan Event

	authDone chan error
}

// New builds a Session from config. It performs no I/O until Connect is
// called.
func New(cfg config.Config, logger *slog.Logger) (*Session, error) {
	cipher, err := mt4crypto.New()
	if err != nil {
		return nil, fmt.Errorf("mt4: %w", err)
	}
	s := &Session{
		cfg:       cfg,
		logger:    logger,
		cipher:    cipher,
		tracker:   mt4tracker.New(),
		positions: make(map[int32]mt4codec.Order),
		events:    make(chan Event, eventBufferSize),
		authDone:  make(chan error, 1),
	}
	s.handshake = mt4handshake.New(s.sendCommand)
	return s, nil
}

// Events returns the channel every unsolicited push and request outcome
// arrives on. Consumers should drain it continuously; a full buffer
// causes the reader loop to block.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Connect performs the token exchange, opens the WebSocket, drives the
// handshake to completion, and starts the background reader and sweeper.
// It blocks until authentication succeeds, fails, or ctx is cancelled.
func (s *Session) Connect(ctx context.Context) error {
	tokenClient := mt4token.NewClient(s.cfg.Gateway.BaseURL, s.logger)
	tokenResp, err := tokenClient.GetToken(ctx, s.cfg.Login.Login, s.cfg.Login.Server, s.cfg.Gateway.GatewayID)
	if err != nil {
		return fmt.Errorf("mt4: token exchange: %w", err)
	}
	// The session key comes from the Token Service response, not from any
	// WebSocket reply, and must be installed before the socket is even
	// opened (spec.md §4.1/§4.3; original client.rs:85 calls
	// set_session_key before dialing).
	if err := s.cipher.SetSessionKey(tokenResp.Key); err != nil {
		return fmt.Errorf("mt4: install session key: %w", err)
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, s.cfg.Gateway.DialTimeout)
	defer cancelDial()
	channel, err := mt4transport.Dial(dialCtx, tokenResp.WebSocketURL())
	if err != nil {
		return fmt.Errorf("mt4: %w", err)
	}
	channel.SetLogger(s.logger)
	s.channel = channel

	s.events <- newConnectedEvent()
	s.handshake.OnTokenFetched(tokenResp.Token, s.cfg.Login.Password)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return s.channel.Run(egCtx, s.dispatch)
	})
	eg.Go(func() error {
		return s.sweepLoop(egCtx)
	})

	if err := s.handshake.OnSocketOpened(); err != nil {
		return fmt.Errorf("mt4: %w", err)
	}

	select {
	case err := <-s.authDone:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	go func() {
		err := eg.Wait()
		s.events <- newDisconnectedEvent(err)
		close(s.events)
	}()

	return nil
}

// sendCommand encrypts payload under the key the handshake phase calls
// for and sends the resulting frame. A random 2-byte nonce occupies the
// first two bytes of the inner header, matching the server's expectation
// that every frame body varies even for identical commands.
func (s *Session) sendCommand(command uint16, payload []byte, useAuthKey bool) error {
	inner := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint16(inner[0:2], uint16(rand.Intn(1<<16)))
	binary.LittleEndian.PutUint16(inner[2:4], command)
	copy(inner[4:], payload)

	ciphertext, err := s.cipher.Encrypt(inner, useAuthKey)
	if err != nil {
		return fmt.Errorf("mt4: encrypt: %w", err)
	}
	return s.channel.Send(context.Background(), ciphertext)
}

// dispatch decrypts one inbound frame and routes it by inner-header
// command. Decryption or decode failures drop the single frame rather
// than tearing down the session.
func (s *Session) dispatch(ciphertext []byte) {
	plaintext, err := s.cipher.Decrypt(ciphertext)
	if err != nil {
		s.logger.Warn("dropping undecryptable frame", "error", err)
		return
	}
	if len(plaintext) < 5 {
		s.logger.Warn("dropping short frame", "length", len(plaintext))
		return
	}

	command := Command(binary.LittleEndian.Uint16(plaintext[2:4]))
	errorCode := plaintext[4]
	body := plaintext[5:]

	switch command {
	case CmdAuthToken:
		s.handleAuthTokenReply(errorCode)
	case CmdAuthPassword:
		s.handleAuthPasswordReply(errorCode)
	case CmdAccountInfo:
		info := mt4codec.DecodeAccountInfo(body)
		s.events <- newAccountInfoEvent(info)
		// Per spec.md §4.5, the account-info reply triggers the current
		// positions request automatically; callers never have to chain
		// these two themselves during the post-auth warm-up.
		if err := s.sendCommand(uint16(CmdCurrentPositions), nil, false); err != nil {
			s.logger.Warn("auto-request current positions failed", "error", err)
			s.events <- newErrorEvent(fmt.Errorf("mt4: auto-request current positions: %w", err))
		}
	case CmdCurrentPositions:
		s.handlePositionsSnapshot(body)
	case CmdOrdersRequest:
		s.handleHistoryOrders(body)
	case CmdOrderUpdate:
		s.handleOrderUpdates(body)
	case CmdTradeRequest:
		s.handleTradeResponse(errorCode, body)
	case CmdPing:
		s.events <- newPongEvent()
	default:
		s.logger.Debug("unhandled command, surfacing as raw message", "command", command)
		s.events <- newRawMessageEvent(command, errorCode, body)
	}
}

// SendRaw is the escape hatch for protocol commands this adapter does not
// build a dedicated operation for (e.g. quote subscription, chart
// history — spec.md Non-goals exclude those as first-class operations,
// but inbound frames for them still surface as RawMessage events, so a
// caller-built feature on top of this adapter can issue the matching
// request here).
func (s *Session) SendRaw(command uint16, payload []byte) error {
	return s.sendCommand(command, payload, false)
}

func (s *Session) handleAuthTokenReply(errorCode uint8) {
	if err := s.handshake.OnAuthTokenReply(errorCode); err != nil {
		s.emitAuthFailure(err)
		s.finishAuth(err)
	}
}

func (s *Session) handleAuthPasswordReply(errorCode uint8) {
	err := s.handshake.OnAuthPasswordReply(errorCode)
	if err != nil {
		s.emitAuthFailure(err)
		s.finishAuth(err)
		return
	}
	s.events <- newAuthenticatedEvent()
	// Per spec.md §4.5, a successful handshake automatically requests
	// account info once; the command-3 reply handler chains the
	// current-positions request in turn.
	if err := s.sendCommand(uint16(CmdAccountInfo), nil, false); err != nil {
		s.logger.Warn("auto-request account info failed", "error", err)
		s.events <- newErrorEvent(fmt.Errorf("mt4: auto-request account info: %w", err))
	}
	s.finishAuth(nil)
}

// emitAuthFailure surfaces an AuthFailed event for handshake rejections,
// carrying the server's error code so callers don't have to unwrap the
// error value to react to it.
func (s *Session) emitAuthFailure(err error) {
	var rejected *mt4handshake.AuthRejectedError
	if errors.As(err, &rejected) {
		s.events <- newAuthFailedEvent(rejected.Code)
	}
}

func (s *Session) finishAuth(err error) {
	select {
	case s.authDone <- err:
	default:
	}
}

func (s *Session) handlePositionsSnapshot(body []byte) {
	var positions []mt4codec.Order
	for off := 0; off+mt4codec.OrderSize <= len(body); off += mt4codec.OrderSize {
		o, err := mt4codec.DecodeOrder(body[off : off+mt4codec.OrderSize])
		if err != nil {
			s.logger.Warn("dropping malformed position in snapshot", "error", err)
			continue
		}
		positions = append(positions, o)
	}

	fresh := make(map[int32]mt4codec.Order, len(positions))
	for _, o := range positions {
		fresh[o.Ticket] = o
	}

	s.positionsMu.Lock()
	s.positions = fresh
	s.positionsMu.Unlock()

	s.events <- newPositionsSnapshotEvent(positions)
}

func (s *Session) handleHistoryOrders(body []byte) {
	var orders []mt4codec.Order
	for off := 0; off+mt4codec.OrderSize <= len(body); off += mt4codec.OrderSize {
		o, err := mt4codec.DecodeOrder(body[off : off+mt4codec.OrderSize])
		if err != nil {
			s.logger.Warn("dropping malformed history order", "error", err)
			continue
		}
		orders = append(orders, o)
	}
	s.events <- newHistoryOrdersEvent(orders)
}

func (s *Session) handleOrderUpdates(body []byte) {
	updates, err := mt4codec.DecodeOrderUpdates(body)
	if err != nil {
		s.logger.Warn("dropping malformed order update frame", "error", err)
		return
	}
	for _, u := range updates {
		s.applyOrderUpdate(u)
		s.events <- newOrderUpdateEvent(u)
	}
}

// applyOrderUpdate keeps the positions mirror current: a close
// notification removes the ticket, anything else upserts it.
func (s *Session) applyOrderUpdate(u mt4codec.OrderUpdate) {
	s.positionsMu.Lock()
	defer s.positionsMu.Unlock()
	if u.IsCloseNotification() {
		delete(s.positions, u.Order.Ticket)
		return
	}
	s.positions[u.Order.Ticket] = u.Order
}

// handleTradeResponse decides the trade outcome primarily from
// response.status, per spec.md §4.7 and Design Note (b): status 0/1 is
// success (1 is "accepted, pending" — still a success for the caller),
// status >= 2 is a trade rejection using the trade error-code table. The
// frame-level errorCode is a transport-layer warning only; it is logged
// but never overrides a status-derived outcome.
func (s *Session) handleTradeResponse(errorCode uint8, body []byte) {
	resp, err := mt4codec.DecodeTradeResponse(body)
	if err != nil {
		s.logger.Warn("dropping malformed trade response", "error", err)
		return
	}
	if errorCode != 0 {
		s.logger.Warn("trade response carries transport warning error_code", "request_id", resp.RequestID, "error_code", errorCode)
	}

	pending, known := s.tracker.Confirm(resp.RequestID)

	if resp.Status >= 2 {
		s.events <- newTradeFailedEvent(resp.RequestID, &mt4errors.TradeRejectedError{
			Code:    resp.Status,
			Message: mt4errors.TradeMessage(resp.Status),
		})
		return
	}

	// For new-order requests the tracker's ticket key is a negative
	// placeholder (the real ticket didn't exist yet); the server-assigned
	// ticket from the embedded order takes priority whenever present.
	ticket := int32(0)
	switch {
	case len(resp.Orders) > 0:
		ticket = resp.Orders[0].Ticket
	case known && pending.Ticket > 0:
		ticket = pending.Ticket
	}

	s.events <- newTradeSuccessEvent(TradeResult{
		RequestID: resp.RequestID,
		Status:    resp.Status,
		Ticket:    ticket,
		Price:     resp.Price1,
		Orders:    resp.Orders,
	})
}

// sweepLoop periodically releases timed-out requests and emits
// TradeTimeout for each.
func (s *Session) sweepLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Tracker.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			for _, p := range s.tracker.Sweep(now, s.cfg.Tracker.RequestTimeout) {
				elapsed := now.Sub(p.SentAt)
				s.events <- newTradeTimeoutEvent(p.RequestID, elapsed, &mt4errors.TradeTimeoutError{RequestID: p.RequestID})
				// Per spec.md §5/§7, a timeout also surfaces as
				// TradeFailed{128,"Trade timeout"} so callers can treat
				// every trade failure path uniformly.
				s.events <- newTradeFailedEvent(p.RequestID, &mt4errors.TradeRejectedError{
					Code:    128,
					Message: mt4errors.TradeMessage(128),
				})
			}
		}
	}
}

// Positions returns a snapshot copy of the current positions mirror.
func (s *Session) Positions() []mt4codec.Order {
	s.positionsMu.RLock()
	defer s.positionsMu.RUnlock()
	out := make([]mt4codec.Order, 0, len(s.positions))
	for _, o := range s.positions {
		out = append(out, o)
	}
	return out
}
