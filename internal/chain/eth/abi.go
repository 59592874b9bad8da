package eth

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/xueqianLu/dappdash/internal/chain"
)

const dappStateABI = `[
	{"type":"function","name":"isContractRunStateActive","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"setContractRunState","stateMutability":"nonpayable","inputs":[{"name":"mode","type":"bool"}],"outputs":[]},
	{"type":"function","name":"isContractAdmin","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"addContractAdmin","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"}],"outputs":[]},
	{"type":"function","name":"removeContractAdmin","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"}],"outputs":[]},
	{"type":"function","name":"removeLastContractAdmin","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"}],"outputs":[]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balance","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const dappABI = `[
	{"type":"function","name":"getStateContractOwner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getStateCounter","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"incrementStateCounter","stateMutability":"nonpayable","inputs":[{"name":"increment","type":"uint256"}],"outputs":[]}
]`

// ContractABIs returns the parsed interfaces of the dashboard contracts.
func ContractABIs() (map[chain.ContractName]abi.ABI, error) {
	sources := map[chain.ContractName]string{
		chain.DappStateContract: dappStateABI,
		chain.DappContract:      dappABI,
	}
	out := make(map[chain.ContractName]abi.ABI, len(sources))
	for name, src := range sources {
		parsed, err := abi.JSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s abi: %w", name, err)
		}
		out[name] = parsed
	}
	return out, nil
}
