// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package subscriptions streams committed staking events over websocket.
package subscriptions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/termvault/termvault/api/utils"
	"github.com/termvault/termvault/event"
	"github.com/termvault/termvault/log"
	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault"
	"github.com/termvault/termvault/vault/plans"
)

var logger = log.WithContext("pkg", "subscriptions")

const eventBufferSize = 64

// Message is one staking event on the wire. Fields a kind does not carry
// are omitted.
type Message struct {
	Event     event.Kind            `json:"event"`
	Owner     termvault.Address     `json:"owner"`
	Plan      *plans.Plan           `json:"plan,omitempty"`
	Amount    *math.HexOrDecimal256 `json:"amount,omitempty"`
	Principal *math.HexOrDecimal256 `json:"principal,omitempty"`
	Reward    *math.HexOrDecimal256 `json:"reward,omitempty"`
	PrevOwner *termvault.Address    `json:"prevOwner,omitempty"`
	Timestamp uint64                `json:"timestamp"`
}

type Subscriptions struct {
	vault    *vault.Vault
	upgrader *websocket.Upgrader
	cache    *messageCache
	done     chan struct{}
}

func New(vlt *vault.Vault, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		vault: vlt,
		upgrader: &websocket.Upgrader{
			CheckOrigin: checkOrigin(allowedOrigins),
		},
		cache: newMessageCache(256),
		done:  make(chan struct{}),
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

func (s *Subscriptions) handleSubscribeStaking(w http.ResponseWriter, req *http.Request) error {
	var owner *termvault.Address
	if q := req.URL.Query().Get("owner"); q != "" {
		parsed, err := termvault.ParseAddress(q)
		if err != nil {
			return utils.BadRequest(errors.WithMessage(err, "owner"))
		}
		owner = parsed
	}

	ch := make(chan event.Event, eventBufferSize)
	sub := s.vault.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader already replied
		return nil
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-s.done:
			return nil
		case <-closed:
			return nil
		case <-sub.Err():
			return nil
		case ev := <-ch:
			if owner != nil && ev.Account() != *owner {
				continue
			}
			msg, _, err := s.cache.GetOrAdd(messageKey(ev), func() ([]byte, error) {
				return json.Marshal(convertEvent(ev))
			})
			if err != nil {
				logger.Warn("failed to encode event", "kind", ev.Kind(), "err", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return nil
			}
		}
	}
}

// messageKey folds every field into the key, so equal keys mean equal
// payloads.
func messageKey(ev event.Event) string {
	return fmt.Sprintf("%v|%v", ev.Kind(), ev)
}

func convertEvent(ev event.Event) *Message {
	msg := &Message{
		Event:     ev.Kind(),
		Owner:     ev.Account(),
		Timestamp: ev.Time(),
	}
	switch ev := ev.(type) {
	case event.Opened:
		plan := ev.Plan
		msg.Plan = &plan
		msg.Amount = (*math.HexOrDecimal256)(ev.Amount)
	case event.Updated:
		plan := ev.Plan
		msg.Plan = &plan
		msg.Amount = (*math.HexOrDecimal256)(ev.Amount)
		msg.Principal = (*math.HexOrDecimal256)(ev.Principal)
	case event.RewardClaimed:
		plan := ev.Plan
		msg.Plan = &plan
		msg.Reward = (*math.HexOrDecimal256)(ev.Reward)
	case event.Closed:
		plan := ev.Plan
		msg.Plan = &plan
		msg.Principal = (*math.HexOrDecimal256)(ev.Principal)
		msg.Reward = (*math.HexOrDecimal256)(ev.Reward)
	case event.EmergencyClosed:
		plan := ev.Plan
		msg.Plan = &plan
		msg.Principal = (*math.HexOrDecimal256)(ev.Principal)
	case event.OwnerChanged:
		prev := ev.Previous
		msg.PrevOwner = &prev
	}
	return msg
}

// Close drops every open stream. Handlers return and close their
// connections on their own goroutines.
func (s *Subscriptions) Close() {
	close(s.done)
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/staking").
		Methods(http.MethodGet).
		Name("subscriptions_staking").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeStaking))
}
