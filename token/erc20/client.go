// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package erc20 talks to a deployed ERC-20 token over an Ethereum JSON-RPC
// backend. Mutators submit a transaction and wait for the receipt; the mined
// status carries the ok/fail verdict. A token that returns false without
// reverting still mines a successful receipt, which is why the gateway
// double-checks every inbound transfer against the observed balance delta.
package erc20

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/termvault/termvault/log"
	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/token"
)

var logger = log.WithContext("pkg", "erc20")

const jsonABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"holder","type":"address"}],"outputs":[{"type":"uint256"}]},
	{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint8"}]},
	{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"string"}]},
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"holder","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"type":"uint256"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"type":"bool"}]},
	{"name":"transfer","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"type":"bool"}]},
	{"name":"transferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"type":"bool"}]}
]`

// Backend is the slice of an Ethereum client the ERC-20 client needs.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Client binds one token address. Reads go through eth_call; writes are
// signed with the configured transactor and considered failed when the
// receipt status says so.
type Client struct {
	addr     common.Address
	contract *bind.BoundContract
	backend  Backend
	opts     *bind.TransactOpts
}

var (
	_ token.Token      = (*Client)(nil)
	_ token.CodeProber = (*Client)(nil)
)

// NewClient binds addr on backend. opts may be nil for a read-only client;
// mutators then fail until a transactor is provided.
func NewClient(backend Backend, addr termvault.Address, opts *bind.TransactOpts) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(jsonABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse token abi")
	}
	tokenAddr := common.Address(addr)
	return &Client{
		addr:     tokenAddr,
		contract: bind.NewBoundContract(tokenAddr, parsed, backend, backend, backend),
		backend:  backend,
		opts:     opts,
	}, nil
}

// Address returns the bound token address.
func (c *Client) Address() termvault.Address {
	return termvault.Address(c.addr)
}

func (c *Client) BalanceOf(ctx context.Context, holder termvault.Address) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", common.Address(holder)); err != nil {
		return nil, errors.Wrap(err, "balanceOf")
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c *Client) TotalSupply(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "totalSupply"); err != nil {
		return nil, errors.Wrap(err, "totalSupply")
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Decimals reads the token's display precision.
func (c *Client) Decimals(ctx context.Context) (uint8, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return 0, errors.Wrap(err, "decimals")
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// Symbol reads the token's ticker symbol.
func (c *Client) Symbol(ctx context.Context) (string, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "symbol"); err != nil {
		return "", errors.Wrap(err, "symbol")
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// Allowance reads how much spender may pull from holder.
func (c *Client) Allowance(ctx context.Context, holder, spender termvault.Address) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", common.Address(holder), common.Address(spender)); err != nil {
		return nil, errors.Wrap(err, "allowance")
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Approve authorizes spender to pull up to amount from the transactor's
// account.
func (c *Client) Approve(ctx context.Context, spender termvault.Address, amount *big.Int) (bool, error) {
	return c.transact(ctx, "approve", common.Address(spender), amount)
}

func (c *Client) Transfer(ctx context.Context, to termvault.Address, amount *big.Int) (bool, error) {
	return c.transact(ctx, "transfer", common.Address(to), amount)
}

func (c *Client) TransferFrom(ctx context.Context, from, to termvault.Address, amount *big.Int) (bool, error) {
	return c.transact(ctx, "transferFrom", common.Address(from), common.Address(to), amount)
}

// HasCode probes for contract code behind the token address.
func (c *Client) HasCode(ctx context.Context) (bool, error) {
	code, err := c.backend.CodeAt(ctx, c.addr, nil)
	if err != nil {
		return false, errors.Wrap(err, "code probe")
	}
	return len(code) > 0, nil
}

func (c *Client) transact(ctx context.Context, method string, params ...interface{}) (bool, error) {
	if c.opts == nil {
		return false, errors.New("no transactor configured")
	}
	opts := *c.opts
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, method, params...)
	if err != nil {
		return false, errors.Wrap(err, method)
	}

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return false, errors.Wrap(err, "wait mined")
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		logger.Debug("token call reverted", "method", method, "tx", tx.Hash())
		return false, nil
	}
	logger.Debug("token call mined", "method", method, "tx", tx.Hash(), "gasUsed", receipt.GasUsed)
	return true, nil
}
