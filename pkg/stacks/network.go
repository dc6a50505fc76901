package stacks

import "fmt"

type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Devnet  Network = "devnet"
)

const (
	MainnetURL = "https://api.mainnet.hiro.so"
	TestnetURL = "https://api.testnet.hiro.so"
	DevnetURL  = "http://localhost:3999"

	MainnetChainID uint32 = 0x00000001
	TestnetChainID uint32 = 0x80000000
)

func (n Network) URL() string {
	switch n {
	case Testnet:
		return TestnetURL
	case Devnet:
		return DevnetURL
	default:
		return MainnetURL
	}
}

func (n Network) ChainID() uint32 {
	if n == Mainnet {
		return MainnetChainID
	}
	return TestnetChainID
}

// RosettaNetwork is the network identifier sent in Rosetta requests.
func (n Network) RosettaNetwork() string {
	if n == Mainnet {
		return string(Mainnet)
	}
	return string(Testnet)
}

func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case Mainnet, Testnet, Devnet:
		return Network(s), nil
	case "":
		return Mainnet, nil
	}
	return "", fmt.Errorf("unknown network %q", s)
}

// Bitcoin API providers.
type BitcoinProvider string

const (
	Blockstream BitcoinProvider = "blockstream"
	Mempool     BitcoinProvider = "mempool"
	CustomBTC   BitcoinProvider = "custom"
)

var bitcoinURLs = map[BitcoinProvider]map[Network]string{
	Blockstream: {
		Mainnet: "https://blockstream.info/api",
		Testnet: "https://blockstream.info/testnet/api",
	},
	Mempool: {
		Mainnet: "https://mempool.space/api",
		Testnet: "https://mempool.space/testnet/api",
	},
}

// BitcoinURL returns the public Esplora base URL for provider and network.
func BitcoinURL(provider BitcoinProvider, network Network) (string, error) {
	byNet, ok := bitcoinURLs[provider]
	if !ok {
		return "", fmt.Errorf("no public url for bitcoin provider %q", provider)
	}
	if network != Testnet {
		network = Mainnet
	}
	return byNet[network], nil
}
