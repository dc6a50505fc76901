package hiro

import (
	"fmt"
	"net/url"
	"regexp"
)

// API header carrying the Hiro API key.
const APIKeyHeader = "x-hiro-api-key"

// Path templates. {name} placeholders are filled by Expand.
const (
	PathAccountBalance    = "/extended/v1/address/{address}/balances"
	PathAccountSTXBalance = "/extended/v1/address/{address}/stx"
	PathAccountTxs        = "/extended/v1/address/{address}/transactions"
	PathAccountAssets     = "/extended/v1/address/{address}/assets"
	PathAccountNonces     = "/extended/v1/address/{address}/nonces"
	PathAccountMempool    = "/extended/v1/address/{address}/mempool"
	PathAccountContracts  = "/extended/v1/address/{address}/contracts"

	PathTransaction    = "/extended/v1/tx/{txId}"
	PathTransactionRaw = "/extended/v1/tx/{txId}/raw"
	PathTransactions   = "/extended/v1/tx"
	PathBroadcast      = "/v2/transactions"
	PathMempoolTxs     = "/extended/v1/tx/mempool"
	PathMempoolStats   = "/extended/v1/tx/mempool/stats"
	PathMempoolDropped = "/extended/v1/tx/mempool/dropped"

	PathBlocks            = "/extended/v1/block"
	PathBlocksV2          = "/extended/v2/blocks"
	PathBlock             = "/extended/v1/block/{hashOrHeight}"
	PathBlockByHeight     = "/extended/v1/block/by_height/{height}"
	PathBlockTransactions = "/extended/v1/block/{hashOrHeight}/txs"

	PathBurnBlocks = "/extended/v1/burnchain/blocks"
	PathBurnBlock  = "/extended/v1/burnchain/block/{heightOrHash}"

	PathMicroblocks = "/extended/v1/microblock"
	PathMicroblock  = "/extended/v1/microblock/{hash}"
	PathUnanchored  = "/extended/v1/microblock/unanchored/txs"

	PathContractInfo      = "/extended/v1/contract/{contractId}"
	PathContractEvents    = "/extended/v1/contract/{contractId}/events"
	PathContractSource    = "/v2/contracts/source/{contractAddress}/{contractName}"
	PathContractInterface = "/v2/contracts/interface/{contractAddress}/{contractName}"
	PathReadOnlyCall      = "/v2/contracts/call-read/{contractAddress}/{contractName}/{functionName}"
	PathMapEntry          = "/v2/map_entry/{contractAddress}/{contractName}/{mapName}"

	PathNFTHoldings = "/extended/v1/tokens/nft/holdings"
	PathNFTHistory  = "/extended/v1/tokens/nft/history"
	PathNFTMints    = "/extended/v1/tokens/nft/mints"

	PathFTMetadata = "/metadata/v1/ft/{contractId}"
	PathFTHolders  = "/extended/v1/tokens/ft/{token}/holders"

	PathPoxInfo     = "/v2/pox"
	PathPoxCycle    = "/extended/v1/pox/cycle/{cycleNumber}"
	PathPoxCycles   = "/extended/v1/pox/cycles"
	PathStackerInfo = "/extended/v1/pox/stacker/{address}"

	PathBNSNames      = "/v1/addresses/stacks/{address}"
	PathBNSName       = "/v1/names/{name}"
	PathBNSZoneFile   = "/v1/names/{name}/zonefile"
	PathBNSNamespaces = "/v1/namespaces"
	PathBNSNamespace  = "/v1/namespaces/{namespace}"
	PathBNSPrice      = "/v2/prices/names/{name}"

	PathInscription          = "/ordinals/v1/inscriptions/{inscriptionId}"
	PathInscriptions         = "/ordinals/v1/inscriptions"
	PathInscriptionTransfers = "/ordinals/v1/inscriptions/{inscriptionId}/transfers"
	PathSatoshi              = "/ordinals/v1/sats/{ordinal}"
	PathBRC20Tokens          = "/ordinals/v1/brc-20/tokens"
	PathBRC20Token           = "/ordinals/v1/brc-20/tokens/{ticker}"

	PathSearch = "/extended/v1/search/{query}"

	PathCoreInfo          = "/v2/info"
	PathNetworkBlockTimes = "/extended/v1/info/network_block_times"
	PathSTXSupply         = "/extended/v1/stx_supply"
	PathFeeRate           = "/v2/fees/transfer"
	PathStatus            = "/extended"

	PathRosettaNetworkList    = "/rosetta/v1/network/list"
	PathRosettaNetworkOptions = "/rosetta/v1/network/options"
	PathRosettaNetworkStatus  = "/rosetta/v1/network/status"
	PathRosettaAccountBalance = "/rosetta/v1/account/balance"
	PathRosettaBlock          = "/rosetta/v1/block"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z]+)\}`)

// Expand fills {name} placeholders in tpl with path-escaped values from
// vars. Every placeholder must be present and non-empty.
func Expand(tpl string, vars map[string]string) (string, error) {
	var missing string
	out := placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := vars[name]
		if (!ok || v == "") && missing == "" {
			missing = name
		}
		return url.PathEscape(v)
	})
	if missing != "" {
		return "", fmt.Errorf("path %s: missing %q", tpl, missing)
	}
	return out, nil
}

// Placeholders lists the placeholder names in tpl in order of appearance.
func Placeholders(tpl string) []string {
	matches := placeholderRe.FindAllStringSubmatch(tpl, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}
