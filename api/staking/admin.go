// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/termvault/termvault/api/utils"
	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault"
)

// Admin exposes the operator mutations. The vault checks the caller
// against the owner either way; a non-empty token additionally gates the
// routes behind a bearer header.
type Admin struct {
	vault *vault.Vault
	token string
}

func NewAdmin(v *vault.Vault, token string) *Admin {
	return &Admin{
		vault: v,
		token: token,
	}
}

func (a *Admin) handleFundPool(w http.ResponseWriter, req *http.Request) error {
	var body FundRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Amount == nil {
		return utils.BadRequest(errors.New("amount: missing"))
	}

	if err := a.vault.FundPool(req.Context(), body.Caller, (*big.Int)(body.Amount)); err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, &PoolStatus{
		Balance: (*math.HexOrDecimal256)(a.vault.PoolBalance()),
	})
}

func (a *Admin) handleTransferOwner(w http.ResponseWriter, req *http.Request) error {
	var body OwnerRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}

	if err := a.vault.TransferOwnership(body.Caller, body.Owner); err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, &OwnerResponse{Owner: a.vault.Owner()})
}

func (a *Admin) handleRenounceOwner(w http.ResponseWriter, req *http.Request) error {
	caller, err := termvault.ParseAddress(req.URL.Query().Get("caller"))
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "caller"))
	}

	if err := a.vault.RenounceOwnership(*caller); err != nil {
		return convertError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *Admin) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+a.token {
			http.Error(w, "invalid admin token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Admin) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	if a.token != "" {
		sub.Use(a.gate)
	}

	sub.Path("/pool").
		Methods(http.MethodPost).
		Name("admin_fund_pool").
		HandlerFunc(utils.WrapHandlerFunc(a.handleFundPool))
	sub.Path("/owner").
		Methods(http.MethodPut).
		Name("admin_transfer_owner").
		HandlerFunc(utils.WrapHandlerFunc(a.handleTransferOwner))
	sub.Path("/owner").
		Methods(http.MethodDelete).
		Name("admin_renounce_owner").
		HandlerFunc(utils.WrapHandlerFunc(a.handleRenounceOwner))
}
