// Package client is the composition root of the reconciliation core: it
// routes inbound push events to the session manager, the balance
// reconciler and the table differ, and dispatches the side effects they
// emit. All routing happens on one goroutine in transport arrival order.
package client

import (
	"context"
	"errors"
	"expvar"
	"time"

	"github.com/rs/zerolog/log"

	"plaza-client/internal/config"
	"plaza-client/internal/effects"
	"plaza-client/internal/profile"
	"plaza-client/internal/protocol"
	"plaza-client/internal/reconcile"
	"plaza-client/internal/session"
	"plaza-client/internal/state"
	"plaza-client/internal/tablediff"
	"plaza-client/internal/transport"
)

var (
	framesTotal       = expvar.NewInt("frames_total")
	decodeErrorsTotal = expvar.NewInt("decode_errors_total")
	reconnectsTotal   = expvar.NewInt("reconnects_total")
	tableEventsTotal  = expvar.NewInt("table_events_total")
	effectsTotal      = expvar.NewInt("effects_total")
)

type Client struct {
	cfg    config.ClientConfig
	conn   *transport.Conn
	sess   *session.Manager
	rec    *reconcile.Reconciler
	differ *tablediff.Differ
	store  profile.Store
	disp   effects.Dispatcher
}

func New(cfg config.ClientConfig, store profile.Store, disp effects.Dispatcher) *Client {
	if disp == nil {
		disp = effects.Nop{}
	}
	conn := transport.New(cfg.SessionWSURL, cfg.ReconnectMaxInterval)
	sess := session.NewManager(conn)
	world := state.NewWorld()
	rec := reconcile.New(world, store, conn, sess, reconcile.Options{
		DriftThreshold: cfg.BalanceDriftThreshold,
		SlotsDelay:     cfg.SlotsRevealDelay,
		LootboxTries:   cfg.LootboxWriteTries,
		NoiseRadius:    cfg.PositionNoiseRadius,
		TeleportRadius: cfg.PositionTeleportRadius,
	})
	return &Client{
		cfg:    cfg,
		conn:   conn,
		sess:   sess,
		rec:    rec,
		differ: tablediff.New(),
		store:  store,
		disp:   disp,
	}
}

// Run pumps transport events until ctx is done.
func (c *Client) Run(ctx context.Context) {
	go c.conn.Run(ctx)
	c.sess.CheckRejoin()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.conn.Events():
			if !ok {
				return
			}
			c.handle(ctx, ev)
		}
	}
}

func (c *Client) handle(ctx context.Context, ev transport.Event) {
	switch ev.Kind {
	case transport.EventConnected:
		reconnectsTotal.Add(1)
		c.sess.HandleConnected()
	case transport.EventDisconnected:
		c.sess.HandleDisconnected()
	case transport.EventFrame:
		framesTotal.Add(1)
		c.handleFrame(ctx, ev.Data)
	}
}

func (c *Client) handleFrame(ctx context.Context, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		decodeErrorsTotal.Add(1)
		log.Debug().Err(err).Msg("frame_decode_failed")
		return
	}

	switch m := msg.(type) {
	case *protocol.RoomState:
		hasLocal, effs := c.rec.ApplyRoomState(m)
		c.differ.Reset()
		c.sess.HandleRoomConfirmed(hasLocal)
		c.dispatch(effs)
	case *protocol.PlayerJoined:
		c.dispatch(c.rec.ApplyPlayerJoined(m))
	case *protocol.PlayerLeft:
		c.dispatch(c.rec.ApplyPlayerLeft(m))
	case *protocol.PlayerMoved:
		c.dispatch(c.rec.ApplyMove(m))
	case *protocol.ChatMessage:
		c.dispatch(c.rec.ApplyChat(m))
	case *protocol.BalanceUpdate:
		c.dispatch(c.rec.ApplyBalance(ctx, m))
	case *protocol.InventoryHint:
		c.dispatch(c.rec.ApplyInventoryHint(ctx, m))
	case *protocol.TableSnapshot:
		events := c.differ.Apply(m)
		tableEventsTotal.Add(int64(len(events)))
		c.rec.SetInBlackjack(c.differ.SeatedAt(c.rec.LocalID()))
		c.dispatch(tableEffects(events))
	case *protocol.TableError:
		c.dispatch(append(
			[]effects.Effect{effects.Notice(m.Code, true)},
			c.rec.ResyncLocal(ctx)...))
	case *protocol.ErrorMessage:
		c.handleServerError(ctx, m)
	}
}

func (c *Client) handleServerError(ctx context.Context, m *protocol.ErrorMessage) {
	if cleared := c.sess.HandleServerError(m.Code); cleared {
		c.rec.ResetWorld()
		c.rec.ResetGuards()
		c.differ.Reset()
		c.dispatch([]effects.Effect{effects.Notice(m.Code, true)})
		return
	}
	// Gameplay validation errors are transient; re-sync in case the server
	// rejected something we predicted.
	c.dispatch(append(
		[]effects.Effect{effects.Notice(m.Code, true)},
		c.rec.ResyncLocal(ctx)...))
}

// tableEffects maps differ events to presentation effects.
func tableEffects(events []tablediff.Event) []effects.Effect {
	var out []effects.Effect
	for _, ev := range events {
		switch ev.Kind {
		case tablediff.EventDealingStarted:
			out = append(out, effects.SoundCue("shuffle"))
		case tablediff.EventHandRevealed, tablediff.EventHit, tablediff.EventDealerHit:
			out = append(out, effects.SoundCue("card"))
		case tablediff.EventDoubleDown:
			out = append(out, effects.SoundCue("chips"))
		case tablediff.EventBetPlaced:
			out = append(out, effects.SoundCue("chip_down"))
		case tablediff.EventRoundFinished:
			out = append(out, effects.Notice(string(ev.Outcome), false), effects.SoundCue("round_end"))
		}
	}
	return out
}

// dispatch applies the two actionable effect kinds (background profile
// writes, deferred balance landings) and forwards everything to the
// presentation dispatcher without awaiting it.
func (c *Client) dispatch(effs []effects.Effect) {
	if len(effs) == 0 {
		return
	}
	effectsTotal.Add(int64(len(effs)))
	for _, eff := range effs {
		switch eff.Kind {
		case effects.KindProfileWrite:
			playerID, balance := eff.PlayerID, eff.Balance
			go func() {
				if err := c.store.WriteBalance(context.Background(), playerID, balance); err != nil {
					log.Warn().Err(err).Str("player_id", playerID).Msg("background_balance_write_failed")
				}
			}()
		case effects.KindDeferredBalance:
			playerID, balance := eff.PlayerID, eff.Balance
			epoch := c.sess.Epoch()
			time.AfterFunc(eff.Delay, func() {
				c.rec.ApplyDeferred(playerID, balance, epoch)
			})
		}
	}
	c.disp.Dispatch(effs)
}

// Join reads the persisted profile so the join carries current balance and
// equipment, then hands off to the session manager.
func (c *Client) Join(ctx context.Context, roomID, playerName, password string) error {
	prof, err := c.store.ReadProfile(ctx, playerName)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return err
	}
	return c.sess.Join(session.JoinRequest{
		RoomID:     roomID,
		PlayerName: playerName,
		MapType:    c.cfg.MapType,
		Balance:    prof.Balance,
		Equipment:  prof.Equipment,
		Password:   password,
	})
}

// Move records the local prediction and notifies the server.
func (c *Client) Move(x, y float64, direction string) error {
	c.rec.SetLocalPosition(x, y, direction)
	return c.conn.Send(protocol.Move{Type: "move", X: x, Y: y, Direction: direction})
}

func (c *Client) Chat(text string) error {
	return c.conn.Send(protocol.Chat{Type: "chat", Text: text})
}

func (c *Client) CollectItem(itemID string) error {
	return c.conn.Send(protocol.CollectItem{Type: "collect_item", ItemID: itemID})
}

func (c *Client) TableAction(tableID, action string, handIndex *int) error {
	return c.conn.Send(protocol.TableAction{Type: "table_action", TableID: tableID, Action: action, HandIndex: handIndex})
}

// Purchase runs the optimistic purchase flow; safe to call from any
// goroutine, guarded single-flight per operation class.
func (c *Client) Purchase(ctx context.Context, itemID string, price int64) error {
	effs, err := c.rec.Purchase(ctx, itemID, price)
	c.dispatch(effs)
	return err
}

func (c *Client) OpenLootbox(ctx context.Context, price int64, reward string) error {
	effs, err := c.rec.OpenLootbox(ctx, price, reward)
	c.dispatch(effs)
	return err
}

// SessionView and WorldView feed the status API.
func (c *Client) SessionView() session.View {
	return c.sess.Snapshot()
}

func (c *Client) WorldView() map[string]state.Player {
	return c.rec.WorldView()
}

func (c *Client) ProfileStore() profile.Store {
	return c.store
}
