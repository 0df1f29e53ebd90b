package chain

import (
	"errors"
	"strings"
)

// ErrChainNotFound is returned when a network is not in the registry.
var ErrChainNotFound = errors.New("network not found")

// UnknownNetwork is the name reported for chain IDs the registry doesn't know.
const UnknownNetwork = "unknown"

// Network holds the metadata for one EVM test network.
type Network struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	ChainID        int64    `json:"chain_id"`
	NativeCurrency string   `json:"native_currency"`
	RPCs           []string `json:"rpcs"`
	Explorer       string   `json:"explorer"`
	FaucetURL      string   `json:"faucet_url,omitempty"`
}

// TxURL returns the explorer link for a transaction hash, or "" if the
// network has no explorer.
func (n *Network) TxURL(hash string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/tx/" + hash
}

// Registry is the network registry.
type Registry struct {
	networks []Network
	byName   map[string]*Network
	byID     map[int64]*Network
}

// NewRegistry returns the registry of supported test networks.
func NewRegistry() *Registry {
	nets := allNetworks()
	r := &Registry{
		networks: nets,
		byName:   make(map[string]*Network, len(nets)),
		byID:     make(map[int64]*Network, len(nets)),
	}
	for i := range r.networks {
		n := &r.networks[i]
		r.byName[n.Name] = n
		r.byID[n.ChainID] = n
	}
	return r
}

// All returns every network in the registry.
func (r *Registry) All() []Network {
	return r.networks
}

// GetByName finds a network by slug ("sepolia", "base-sepolia").
func (r *Registry) GetByName(name string) (*Network, error) {
	n, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrChainNotFound
	}
	return n, nil
}

// GetByChainID finds a network by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Network, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, ErrChainNotFound
	}
	return n, nil
}

// NameOf returns the slug for a chain ID, or UnknownNetwork.
func (r *Registry) NameOf(id int64) string {
	if n, ok := r.byID[id]; ok {
		return n.Name
	}
	return UnknownNetwork
}

// Next returns the network after name in registry order, wrapping around.
// Used by the console's network button.
func (r *Registry) Next(name string) *Network {
	for i := range r.networks {
		if r.networks[i].Name == name {
			return &r.networks[(i+1)%len(r.networks)]
		}
	}
	return &r.networks[0]
}

// --- network data ---

func allNetworks() []Network {
	return []Network{
		{
			Name: "sepolia", DisplayName: "Ethereum Sepolia", ChainID: 11155111,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://ethereum-sepolia-rpc.publicnode.com", "https://sepolia.gateway.tenderly.co", "https://rpc.sepolia.org"},
			Explorer:       "https://sepolia.etherscan.io",
			FaucetURL:      "https://sepoliafaucet.com",
		},
		{
			Name: "holesky", DisplayName: "Ethereum Holesky", ChainID: 17000,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://ethereum-holesky-rpc.publicnode.com"},
			Explorer:       "https://holesky.etherscan.io",
		},
		{
			Name: "base-sepolia", DisplayName: "Base Sepolia", ChainID: 84532,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://sepolia.base.org", "https://base-sepolia-rpc.publicnode.com"},
			Explorer:       "https://sepolia.basescan.org",
			FaucetURL:      "https://www.alchemy.com/faucets/base-sepolia",
		},
		{
			Name: "arbitrum-sepolia", DisplayName: "Arbitrum Sepolia", ChainID: 421614,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://sepolia-rollup.arbitrum.io/rpc"},
			Explorer:       "https://sepolia.arbiscan.io",
			FaucetURL:      "https://www.alchemy.com/faucets/arbitrum-sepolia",
		},
		{
			Name: "optimism-sepolia", DisplayName: "OP Sepolia", ChainID: 11155420,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://sepolia.optimism.io"},
			Explorer:       "https://sepolia-optimism.etherscan.io",
		},
		{
			Name: "amoy", DisplayName: "Polygon Amoy", ChainID: 80002,
			NativeCurrency: "POL",
			RPCs:           []string{"https://rpc-amoy.polygon.technology"},
			Explorer:       "https://amoy.polygonscan.com",
			FaucetURL:      "https://faucet.polygon.technology",
		},
		{
			Name: "anvil", DisplayName: "Local Anvil", ChainID: 31337,
			NativeCurrency: "ETH",
			RPCs:           []string{"http://127.0.0.1:8545"},
		},
	}
}
