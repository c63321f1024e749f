// Package decoder turns raw CTF Exchange log records into trade facts.
//
// The decoder targets one fixed event layout (OrderFilled) and reads it at
// hard-coded byte offsets instead of going through a generic ABI description.
// That keeps the dependency surface small but makes the decoder brittle to
// any change in the event's field order; the exact-length tests guard it.
package decoder

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/polyscout/polyscout/internal/models"
)

const (
	// OrderFilled carries the signature plus 3 indexed fields:
	// orderHash, maker, taker.
	minTopics = 4

	// Five non-indexed uint256 words: makerAssetId, takerAssetId,
	// makerAmountFilled, takerAmountFilled, fee.
	wordSize    = 32
	minDataSize = 5 * wordSize

	// Amounts are USDC-style fixed point with 6 implied decimals.
	amountScale = 1e6
)

// Decode parses one raw log into the two trade facts of a fill (maker and
// taker side). It returns nil for any log that does not match the expected
// shape; malformed input is never an error.
func Decode(log types.Log, at time.Time) []models.TradeFact {
	if len(log.Topics) < minTopics || len(log.Data) < minDataSize {
		return nil
	}

	maker := addressFromTopic(log.Topics[2])
	taker := addressFromTopic(log.Topics[3])

	makerAssetID := wordAt(log.Data, 0)
	takerAssetID := wordAt(log.Data, 1)
	makerAmount := wordAt(log.Data, 2)
	takerAmount := wordAt(log.Data, 3)
	// word 4 is the fee; not attributed to either side.

	txHash := strings.ToLower(log.TxHash.Hex())

	return []models.TradeFact{
		{
			Wallet:      maker,
			MarketID:    makerAssetID.String(),
			Outcome:     models.UnresolvedOutcome,
			VolumeUSD:   toUSD(makerAmount),
			Price:       0, // not derivable from fill amounts; enrichment fills it
			Timestamp:   at,
			BlockNumber: log.BlockNumber,
			TxHash:      txHash,
			Role:        models.RoleMaker,
		},
		{
			Wallet:      taker,
			MarketID:    takerAssetID.String(),
			Outcome:     models.UnresolvedOutcome,
			VolumeUSD:   toUSD(takerAmount),
			Price:       0,
			Timestamp:   at,
			BlockNumber: log.BlockNumber,
			TxHash:      txHash,
			Role:        models.RoleTaker,
		},
	}
}

// addressFromTopic recovers the low-order 20 bytes of a 32-byte topic word
// as a lower-cased hex address. Addresses are left-zero-padded inside topics.
func addressFromTopic(topic common.Hash) string {
	return strings.ToLower(common.BytesToAddress(topic.Bytes()).Hex())
}

// wordAt reads the i-th 32-byte big-endian unsigned integer from data.
func wordAt(data []byte, i int) *big.Int {
	return new(big.Int).SetBytes(data[i*wordSize : (i+1)*wordSize])
}

// toUSD converts a raw fixed-point amount to a human-scale quantity.
func toUSD(raw *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), big.NewFloat(amountScale)).Float64()
	return f
}
