// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking exposes the vault over REST: the plan table, position
// queries and the staking operations, plus the admin and notification-log
// surfaces.
package staking

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/termvault/termvault/api/utils"
	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault"
	"github.com/termvault/termvault/vault/plans"
	"github.com/termvault/termvault/vault/reverts"
)

type Staking struct {
	vault    *vault.Vault
	registry *plans.Registry
}

func New(v *vault.Vault, registry *plans.Registry) *Staking {
	return &Staking{
		vault:    v,
		registry: registry,
	}
}

// convertError maps vault rejections to status codes: busy or underfunded
// is a conflict, a missing position is not found, a foreign caller on an
// admin call is forbidden, every other rejection is the caller's mistake.
func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, reverts.ErrNoBalance):
		return utils.HTTPError(err, http.StatusNotFound)
	case errors.Is(err, reverts.ErrNotOwner):
		return utils.Forbidden(err)
	case errors.Is(err, reverts.ErrReentrantCall), errors.Is(err, reverts.ErrInsufficientPool):
		return utils.HTTPError(err, http.StatusConflict)
	case reverts.IsRevertErr(err):
		return utils.BadRequest(err)
	default:
		return err
	}
}

func parseAddressVar(req *http.Request) (termvault.Address, error) {
	addr, err := termvault.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return termvault.Address{}, utils.BadRequest(errors.WithMessage(err, "address"))
	}
	return *addr, nil
}

func parsePlanVar(req *http.Request) (plans.Plan, error) {
	plan, err := plans.Parse(mux.Vars(req)["plan"])
	if err != nil {
		return 0, utils.BadRequest(errors.WithMessage(err, "plan"))
	}
	return plan, nil
}

func parseAmountBody(req *http.Request) (*big.Int, error) {
	var body AmountRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Amount == nil {
		return nil, utils.BadRequest(errors.New("amount: missing"))
	}
	return (*big.Int)(body.Amount), nil
}

func (s *Staking) handleGetPlans(w http.ResponseWriter, _ *http.Request) error {
	all := plans.All()
	rows := make([]*Plan, 0, len(all))
	for _, p := range all {
		rows = append(rows, &Plan{
			Plan:         p,
			RatePermille: s.registry.Rate(p),
			LockDays:     s.registry.LockDays(p),
			LockSeconds:  s.registry.LockSeconds(p),
			Flexible:     p.IsFlexible(),
		})
	}
	return utils.WriteJSON(w, rows)
}

func (s *Staking) handleGetTotal(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, &Total{
		Total: (*math.HexOrDecimal256)(s.vault.TotalStaked()),
	})
}

func (s *Staking) handleGetCount(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, &Count{
		Count: s.vault.PositionCount(),
	})
}

func (s *Staking) handleGetPool(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, &PoolStatus{
		Balance: (*math.HexOrDecimal256)(s.vault.PoolBalance()),
	})
}

func (s *Staking) handleGetPage(w http.ResponseWriter, req *http.Request) error {
	start, err := strconv.ParseUint(req.URL.Query().Get("start"), 10, 64)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "start"))
	}
	end, err := strconv.ParseUint(req.URL.Query().Get("end"), 10, 64)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "end"))
	}

	infos, err := s.vault.Page(start, end)
	if err != nil {
		return convertError(err)
	}
	page := make([]*Position, 0, len(infos))
	for _, info := range infos {
		page = append(page, convertPosition(info))
	}
	return utils.WriteJSON(w, page)
}

func (s *Staking) handleGetBalances(w http.ResponseWriter, req *http.Request) error {
	addr, err := parseAddressVar(req)
	if err != nil {
		return err
	}

	balances := s.vault.AllBalances(addr)
	out := make([]*math.HexOrDecimal256, len(balances))
	for i, b := range balances {
		out[i] = (*math.HexOrDecimal256)(b)
	}
	return utils.WriteJSON(w, &Balances{
		Owner:    addr,
		Balances: out,
	})
}

func (s *Staking) handleGetPosition(w http.ResponseWriter, req *http.Request) error {
	addr, err := parseAddressVar(req)
	if err != nil {
		return err
	}
	plan, err := parsePlanVar(req)
	if err != nil {
		return err
	}

	info, err := s.vault.Info(addr, plan)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, convertPosition(info))
}

func (s *Staking) handleOpen(w http.ResponseWriter, req *http.Request) error {
	addr, err := parseAddressVar(req)
	if err != nil {
		return err
	}
	plan, err := parsePlanVar(req)
	if err != nil {
		return err
	}
	amount, err := parseAmountBody(req)
	if err != nil {
		return err
	}

	if err := s.vault.Open(req.Context(), addr, plan, amount); err != nil {
		return convertError(err)
	}
	return s.writePosition(w, addr, plan)
}

func (s *Staking) handleTopUp(w http.ResponseWriter, req *http.Request) error {
	addr, err := parseAddressVar(req)
	if err != nil {
		return err
	}
	plan, err := parsePlanVar(req)
	if err != nil {
		return err
	}
	amount, err := parseAmountBody(req)
	if err != nil {
		return err
	}

	if err := s.vault.TopUp(req.Context(), addr, plan, amount); err != nil {
		return convertError(err)
	}
	return s.writePosition(w, addr, plan)
}

func (s *Staking) handleClaim(w http.ResponseWriter, req *http.Request) error {
	addr, err := parseAddressVar(req)
	if err != nil {
		return err
	}
	plan, err := parsePlanVar(req)
	if err != nil {
		return err
	}

	if err := s.vault.Claim(req.Context(), addr, plan); err != nil {
		return convertError(err)
	}
	return s.writePosition(w, addr, plan)
}

func (s *Staking) handleExit(w http.ResponseWriter, req *http.Request) error {
	addr, err := parseAddressVar(req)
	if err != nil {
		return err
	}
	plan, err := parsePlanVar(req)
	if err != nil {
		return err
	}

	if err := s.vault.Exit(req.Context(), addr, plan); err != nil {
		return convertError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Staking) handleEmergencyExit(w http.ResponseWriter, req *http.Request) error {
	addr, err := parseAddressVar(req)
	if err != nil {
		return err
	}
	plan, err := parsePlanVar(req)
	if err != nil {
		return err
	}

	if err := s.vault.EmergencyExit(req.Context(), addr, plan); err != nil {
		return convertError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Staking) writePosition(w http.ResponseWriter, addr termvault.Address, plan plans.Plan) error {
	info, err := s.vault.Info(addr, plan)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, convertPosition(info))
}

func (s *Staking) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/plans").
		Methods(http.MethodGet).
		Name("staking_get_plans").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetPlans))
	sub.Path("/total").
		Methods(http.MethodGet).
		Name("staking_get_total").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetTotal))
	sub.Path("/positions/count").
		Methods(http.MethodGet).
		Name("staking_get_position_count").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetCount))
	sub.Path("/positions").
		Methods(http.MethodGet).
		Name("staking_get_positions").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetPage))
	sub.Path("/pool").
		Methods(http.MethodGet).
		Name("staking_get_pool").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetPool))
	sub.Path("/accounts/{address}/balances").
		Methods(http.MethodGet).
		Name("staking_get_balances").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetBalances))
	sub.Path("/accounts/{address}/positions/{plan}").
		Methods(http.MethodGet).
		Name("staking_get_position").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetPosition))
	sub.Path("/accounts/{address}/positions/{plan}/open").
		Methods(http.MethodPost).
		Name("staking_open").
		HandlerFunc(utils.WrapHandlerFunc(s.handleOpen))
	sub.Path("/accounts/{address}/positions/{plan}/topup").
		Methods(http.MethodPost).
		Name("staking_topup").
		HandlerFunc(utils.WrapHandlerFunc(s.handleTopUp))
	sub.Path("/accounts/{address}/positions/{plan}/claim").
		Methods(http.MethodPost).
		Name("staking_claim").
		HandlerFunc(utils.WrapHandlerFunc(s.handleClaim))
	sub.Path("/accounts/{address}/positions/{plan}/exit").
		Methods(http.MethodPost).
		Name("staking_exit").
		HandlerFunc(utils.WrapHandlerFunc(s.handleExit))
	sub.Path("/accounts/{address}/positions/{plan}/emergency").
		Methods(http.MethodPost).
		Name("staking_emergency_exit").
		HandlerFunc(utils.WrapHandlerFunc(s.handleEmergencyExit))
}
