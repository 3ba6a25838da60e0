package verification

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// maxScanBlocks bounds one Verify call; anything older is the previous
// poll's responsibility (Since already covers the request window).
const maxScanBlocks = 128

var (
	dialEVMVerifier    = ethclient.Dial
	getVerifierChainID = func(client *ethclient.Client, ctx context.Context) (*big.Int, error) {
		return client.ChainID(ctx)
	}
)

// EVMVerifier scans recent blocks for an incoming native transfer matching
// the query. Token transfers are out of scope for the direct-RPC mode; a
// dedicated oracle service handles those.
type EVMVerifier struct {
	client         *ethclient.Client
	chainID        *big.Int
	nativeCurrency string

	// test seams; nil means use the real client
	testBlockNumber   func(ctx context.Context) (uint64, error)
	testBlockByNumber func(ctx context.Context, number *big.Int) (*types.Block, error)
}

// NewEVMVerifier dials the RPC endpoint and resolves its chain ID.
func NewEVMVerifier(rpcURL, nativeCurrency string) (*EVMVerifier, error) {
	client, err := dialEVMVerifier(rpcURL)
	if err != nil {
		return nil, err
	}

	chainID, err := getVerifierChainID(client, context.Background())
	if err != nil {
		return nil, err
	}

	return &EVMVerifier{
		client:         client,
		chainID:        chainID,
		nativeCurrency: nativeCurrency,
	}, nil
}

// NewEVMVerifierWithBlockSource creates a verifier backed by injected block
// readers. This is intended for unit tests where RPC sockets are unavailable.
func NewEVMVerifierWithBlockSource(
	chainID *big.Int,
	nativeCurrency string,
	blockNumberFn func(ctx context.Context) (uint64, error),
	blockByNumberFn func(ctx context.Context, number *big.Int) (*types.Block, error),
) *EVMVerifier {
	if chainID == nil {
		chainID = big.NewInt(1)
	}
	return &EVMVerifier{
		chainID:           chainID,
		nativeCurrency:    nativeCurrency,
		testBlockNumber:   blockNumberFn,
		testBlockByNumber: blockByNumberFn,
	}
}

// Verify walks blocks from the head backwards until it leaves the Since
// window or hits the scan cap. An empty query currency means the chain's
// native asset.
func (v *EVMVerifier) Verify(ctx context.Context, q Query) (*Result, error) {
	if q.Currency != "" && !strings.EqualFold(q.Currency, v.nativeCurrency) {
		return nil, fmt.Errorf("currency %s is not the native asset; direct-RPC verification handles native transfers only", q.Currency)
	}

	wanted, err := parseNativeAmount(q.Amount)
	if err != nil {
		return nil, err
	}

	latest, err := v.blockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain head: %w", err)
	}

	recipient := common.HexToAddress(q.Recipient)
	signer := types.LatestSignerForChainID(v.chainID)

	for scanned := 0; scanned < maxScanBlocks; scanned++ {
		number := new(big.Int).SetUint64(latest - uint64(scanned))
		block, err := v.blockByNumber(ctx, number)
		if err != nil {
			return nil, fmt.Errorf("failed to read block %s: %w", number, err)
		}

		blockTime := time.Unix(int64(block.Time()), 0)
		if blockTime.Before(q.Since) {
			break
		}

		for _, tx := range block.Transactions() {
			to := tx.To()
			if to == nil || *to != recipient {
				continue
			}
			if tx.Value().Cmp(wanted) < 0 {
				continue
			}

			result := &Result{
				Verified:  true,
				TxHash:    tx.Hash().Hex(),
				ToAddress: to.Hex(),
				Amount:    formatNativeAmount(tx.Value()),
				Timestamp: blockTime,
			}
			if from, err := types.Sender(signer, tx); err == nil {
				result.FromAddress = from.Hex()
			}
			return result, nil
		}

		if latest == uint64(scanned) {
			break // genesis reached
		}
	}

	return &Result{Verified: false}, nil
}

func (v *EVMVerifier) blockNumber(ctx context.Context) (uint64, error) {
	if v.testBlockNumber != nil {
		return v.testBlockNumber(ctx)
	}
	return v.client.BlockNumber(ctx)
}

func (v *EVMVerifier) blockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	if v.testBlockByNumber != nil {
		return v.testBlockByNumber(ctx, number)
	}
	return v.client.BlockByNumber(ctx, number)
}

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// parseNativeAmount converts a decimal string in whole native units to wei.
func parseNativeAmount(amount string) (*big.Int, error) {
	rat, ok := new(big.Rat).SetString(amount)
	if !ok || rat.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	rat.Mul(rat, new(big.Rat).SetInt(weiPerEther))
	if !rat.IsInt() {
		return nil, fmt.Errorf("amount %q has more than 18 decimal places", amount)
	}
	return rat.Num(), nil
}

// formatNativeAmount renders wei as a decimal string in whole native units.
func formatNativeAmount(wei *big.Int) string {
	s := new(big.Rat).SetFrac(wei, weiPerEther).FloatString(18)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
