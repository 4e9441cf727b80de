package proof

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EthReceiptChecker resolves bare transaction-hash proofs against an EVM
// node. It answers inclusion and status only; recipient, amount and token
// checks belong to the facilitator tier.
type EthReceiptChecker struct {
	client *ethclient.Client
}

// NewEthReceiptChecker dials the RPC endpoint.
func NewEthReceiptChecker(rpcURL string) (*EthReceiptChecker, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, err
	}
	return &EthReceiptChecker{client: client}, nil
}

// TxSucceeded looks up the transaction receipt. A missing receipt is not
// an error: the transaction may simply be unknown or still pending.
func (c *EthReceiptChecker) TxSucceeded(ctx context.Context, txHash string) (succeeded, found bool, err error) {
	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return false, false, nil
		}
		return false, false, err
	}
	return receipt.Status == types.ReceiptStatusSuccessful, true, nil
}

// Close releases the underlying RPC connection.
func (c *EthReceiptChecker) Close() {
	c.client.Close()
}
