// Package chain provides the Polygon log source for exchange trade events.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// DefaultExchangeAddress is the Polymarket CTF Exchange contract on Polygon.
const DefaultExchangeAddress = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"

// Client fetches block numbers and exchange logs from a Polygon RPC node.
// Log fetches for a fixed block range are idempotent and safe to retry.
type Client struct {
	eth      *ethclient.Client
	exchange common.Address
}

// Dial connects to the given RPC endpoint. exchangeAddr may be empty to use
// the default CTF Exchange contract.
func Dial(rpcURL, exchangeAddr string) (*Client, error) {
	if exchangeAddr == "" {
		exchangeAddr = DefaultExchangeAddress
	}
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc %s: %w", rpcURL, err)
	}
	return &Client{
		eth:      eth,
		exchange: common.HexToAddress(exchangeAddr),
	}, nil
}

// LatestBlock returns the current chain head block number.
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return n, nil
}

// FetchLogs returns all logs emitted by the exchange contract in
// [fromBlock, toBlock], inclusive.
func (c *Client) FetchLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.exchange},
	}
	logs, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs %d-%d: %w", fromBlock, toBlock, err)
	}
	return logs, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
