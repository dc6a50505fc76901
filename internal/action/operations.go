package action

import (
	"net/http"
	"strings"

	"github.com/fystack/stacks-connector/internal/rpc/hiro"
)

var (
	limit20 = Query{Key: "limit", Default: "20"}
	limit50 = Query{Key: "limit", Default: "50"}
	offset0 = Query{Key: "offset", Default: "0"}
)

func builtinOperations() []Operation {
	var ops []Operation
	for _, group := range [][]Operation{
		accountOperations(),
		transactionOperations(),
		tokenTransferOperations(),
		fungibleTokenOperations(),
		nftOperations(),
		contractOperations(),
		clarityOperations(),
		stackingOperations(),
		sbtcOperations(),
		blockOperations(),
		burnBlockOperations(),
		microblockOperations(),
		mempoolOperations(),
		namesOperations(),
		ordinalsOperations(),
		searchOperations(),
		infoOperations(),
		rosettaOperations(),
		utilityOperations(),
		bitcoinOperations(),
	} {
		ops = append(ops, group...)
	}
	return ops
}

func accountOperations() []Operation {
	const r = "account"
	return []Operation{
		{Resource: r, Name: "getBalance", Description: "Get account balance including STX and tokens",
			Path: hiro.PathAccountBalance, Shape: shapeBalance},
		{Resource: r, Name: "getStxBalance", Description: "Get STX balance only",
			Path: hiro.PathAccountSTXBalance},
		{Resource: r, Name: "getTransactions", Description: "Get account transaction history",
			Path: hiro.PathAccountTxs, Query: []Query{limit20, offset0}, Paginated: true, Shape: shapeTransactions},
		{Resource: r, Name: "getAssets", Description: "Get account asset holdings",
			Path: hiro.PathAccountAssets, Paginated: true},
		{Resource: r, Name: "getNonce", Description: "Get account nonce for transactions",
			Path: hiro.PathAccountNonces},
		{Resource: r, Name: "getMempoolTransactions", Description: "Get pending transactions for account",
			Path: hiro.PathAccountMempool, Paginated: true, Shape: shapeTransactions},
	}
}

func transactionOperations() []Operation {
	const r = "transaction"
	return []Operation{
		{Resource: r, Name: "getTransaction", Description: "Get transaction by ID",
			Path: hiro.PathTransaction, Shape: shapeTransaction},
		{Resource: r, Name: "getRawTransaction", Description: "Get raw transaction hex",
			Path: hiro.PathTransactionRaw},
		{Resource: r, Name: "listTransactions", Description: "List recent transactions",
			Path: hiro.PathTransactions, Query: []Query{limit20, offset0}, Paginated: true, Shape: shapeTransactions},
		{Resource: r, Name: "broadcastTransaction", Description: "Broadcast a signed transaction",
			Handler: broadcastTransaction},
		{Resource: r, Name: "getMempoolTransactions", Description: "List pending mempool transactions",
			Path: hiro.PathMempoolTxs, Query: []Query{limit20, offset0}, Paginated: true, Shape: shapeTransactions},
	}
}

func tokenTransferOperations() []Operation {
	const r = "tokenTransfer"
	return []Operation{
		{Resource: r, Name: "getBalance", Description: "Get STX balance of an address",
			Path: hiro.PathAccountSTXBalance},
		{Resource: r, Name: "getTransferHistory", Description: "Get transfer history of an address",
			Path: hiro.PathAccountTxs, Query: []Query{limit20}, Paginated: true, Shape: shapeTransactions},
		{Resource: r, Name: "estimateFee", Description: "Estimate the fee of an STX transfer",
			Handler: estimateTransferFee},
	}
}

func fungibleTokenOperations() []Operation {
	const r = "fungibleToken"
	return []Operation{
		{Resource: r, Name: "getHoldings", Description: "Get fungible token holdings of an address",
			Path: hiro.PathAccountBalance},
		{Resource: r, Name: "getMetadata", Description: "Get token metadata",
			Path: hiro.PathFTMetadata},
		{Resource: r, Name: "getHolders", Description: "Get token holders",
			Path: hiro.PathFTHolders, Vars: map[string]string{"token": "contractId"},
			Query: []Query{limit20}, Paginated: true},
	}
}

func nftOperations() []Operation {
	const r = "nft"
	return []Operation{
		{Resource: r, Name: "getHoldings", Description: "Get NFT holdings of an address",
			Path:  hiro.PathNFTHoldings,
			Query: []Query{{Key: "principal", Param: "address", Required: true}, limit50, offset0}, Paginated: true},
		{Resource: r, Name: "getHistory", Description: "Get ownership history of one NFT",
			Path: hiro.PathNFTHistory,
			Query: []Query{
				{Key: "asset_identifier", Param: "assetIdentifier", Required: true},
				{Key: "value", Param: "nftValue", Required: true},
			}, Paginated: true},
		{Resource: r, Name: "getMints", Description: "Get mint events of an NFT collection",
			Path:  hiro.PathNFTMints,
			Query: []Query{{Key: "asset_identifier", Param: "assetIdentifier", Required: true}, limit50, offset0}, Paginated: true},
	}
}

func contractOperations() []Operation {
	const r = "contract"
	return []Operation{
		{Resource: r, Name: "getContractInfo", Description: "Get contract deployment info",
			Path: hiro.PathContractInfo},
		{Resource: r, Name: "getContractSource", Description: "Get contract source code",
			Path: hiro.PathContractSource},
		{Resource: r, Name: "getContractInterface", Description: "Get contract ABI",
			Path: hiro.PathContractInterface},
		{Resource: r, Name: "getContractEvents", Description: "Get contract events",
			Path: hiro.PathContractEvents, Query: []Query{limit20}, Paginated: true},
		{Resource: r, Name: "callReadOnly", Description: "Call a read-only function",
			Handler: callReadOnly},
		{Resource: r, Name: "getMapEntry", Description: "Read a data map entry",
			Method: http.MethodPost, Path: hiro.PathMapEntry, Body: mapEntryKey, Shape: shapeMapEntry},
		{Resource: r, Name: "getDeployedContracts", Description: "List contracts deployed by an address",
			Path: hiro.PathAccountContracts},
	}
}

func clarityOperations() []Operation {
	const r = "clarity"
	return []Operation{
		{Resource: r, Name: "encode", Description: "Encode a value to Clarity hex", Handler: clarityEncode},
		{Resource: r, Name: "decode", Description: "Decode Clarity hex", Handler: clarityDecode},
	}
}

func stackingOperations() []Operation {
	const r = "stacking"
	return []Operation{
		{Resource: r, Name: "getPoxInfo", Description: "Get current PoX state", Path: hiro.PathPoxInfo},
		{Resource: r, Name: "getPoxCycle", Description: "Get one PoX cycle", Path: hiro.PathPoxCycle},
		{Resource: r, Name: "listPoxCycles", Description: "List PoX cycles",
			Path: hiro.PathPoxCycles, Query: []Query{limit20}, Paginated: true},
		{Resource: r, Name: "getStackerInfo", Description: "Get stacking info of an address",
			Path: hiro.PathStackerInfo},
	}
}

func sbtcOperations() []Operation {
	return []Operation{
		{Resource: "sbtc", Name: "getBalance", Description: "Get sBTC balance of an address",
			Path: hiro.PathAccountBalance, Shape: shapeSBTCBalance},
	}
}

func blockOperations() []Operation {
	const r = "block"
	return []Operation{
		{Resource: r, Name: "getBlock", Description: "Get block by hash or height",
			Path: hiro.PathBlock, Vars: map[string]string{"hashOrHeight": "blockHashOrHeight"}},
		{Resource: r, Name: "getBlockByHeight", Description: "Get block by height",
			Path: hiro.PathBlockByHeight, Vars: map[string]string{"height": "blockHeight"}},
		{Resource: r, Name: "listBlocks", Description: "List recent blocks",
			Path: hiro.PathBlocks, Query: []Query{limit20, offset0}, Paginated: true},
		{Resource: r, Name: "getBlockTransactions", Description: "Get transactions of a block",
			Path: hiro.PathBlockTransactions, Vars: map[string]string{"hashOrHeight": "blockHashOrHeight"},
			Paginated: true, Shape: shapeTransactions},
		{Resource: r, Name: "getLatestBlock", Description: "Get the latest block",
			Path: hiro.PathBlocks, Query: []Query{{Key: "limit", Default: "1", Fixed: true}}, Shape: shapeFirstResult},
	}
}

func burnBlockOperations() []Operation {
	const r = "burnBlock"
	return []Operation{
		{Resource: r, Name: "getBurnBlock", Description: "Get Bitcoin anchor block by height or hash",
			Path: hiro.PathBurnBlock},
		{Resource: r, Name: "listBurnBlocks", Description: "List recent burn blocks",
			Path: hiro.PathBurnBlocks, Query: []Query{limit20}, Paginated: true},
	}
}

func microblockOperations() []Operation {
	const r = "microblock"
	return []Operation{
		{Resource: r, Name: "getMicroblock", Description: "Get microblock by hash", Path: hiro.PathMicroblock},
		{Resource: r, Name: "listMicroblocks", Description: "List recent microblocks",
			Path: hiro.PathMicroblocks, Query: []Query{limit20}, Paginated: true},
		{Resource: r, Name: "getUnanchored", Description: "Get unanchored microblock transactions",
			Path: hiro.PathUnanchored, Paginated: true},
	}
}

func mempoolOperations() []Operation {
	const r = "mempool"
	return []Operation{
		{Resource: r, Name: "getStats", Description: "Get mempool statistics", Path: hiro.PathMempoolStats},
		{Resource: r, Name: "getPending", Description: "Get pending transactions",
			Path: hiro.PathMempoolTxs, Query: []Query{limit20}, Paginated: true, Shape: shapeTransactions},
		{Resource: r, Name: "getDropped", Description: "Get dropped transactions",
			Path: hiro.PathMempoolDropped, Paginated: true},
	}
}

func namesOperations() []Operation {
	const r = "names"
	return []Operation{
		{Resource: r, Name: "getNamesByAddress", Description: "Get BNS names owned by an address", Path: hiro.PathBNSNames},
		{Resource: r, Name: "getNameInfo", Description: "Get BNS name details", Path: hiro.PathBNSName},
		{Resource: r, Name: "getZoneFile", Description: "Get the zone file of a name", Path: hiro.PathBNSZoneFile},
		{Resource: r, Name: "getNamePrice", Description: "Get the registration price of a name", Path: hiro.PathBNSPrice},
		{Resource: r, Name: "listNamespaces", Description: "List BNS namespaces", Path: hiro.PathBNSNamespaces},
		{Resource: r, Name: "getNamespaceInfo", Description: "Get namespace details", Path: hiro.PathBNSNamespace},
	}
}

func ordinalsOperations() []Operation {
	const r = "ordinals"
	return []Operation{
		{Resource: r, Name: "getInscription", Description: "Get inscription by ID", Path: hiro.PathInscription},
		{Resource: r, Name: "listInscriptions", Description: "List inscriptions",
			Path: hiro.PathInscriptions, Query: []Query{limit20, {Key: "address", Param: "addressFilter"}}, Paginated: true},
		{Resource: r, Name: "getInscriptionTransfers", Description: "Get inscription transfers",
			Path: hiro.PathInscriptionTransfers, Paginated: true},
		{Resource: r, Name: "getSatoshi", Description: "Get satoshi by ordinal number",
			Path: hiro.PathSatoshi, Vars: map[string]string{"ordinal": "satoshiOrdinal"}},
		{Resource: r, Name: "listBrc20", Description: "List BRC-20 tokens",
			Path: hiro.PathBRC20Tokens, Query: []Query{limit20}, Paginated: true},
		{Resource: r, Name: "getBrc20Token", Description: "Get BRC-20 token details",
			Path: hiro.PathBRC20Token, Vars: map[string]string{"ticker": "brc20Ticker"}},
	}
}

func searchOperations() []Operation {
	return []Operation{
		{Resource: "search", Name: "search", Description: "Search blocks, transactions, contracts and addresses",
			Path: hiro.PathSearch, Vars: map[string]string{"query": "searchTerm"}},
	}
}

func infoOperations() []Operation {
	const r = "info"
	return []Operation{
		{Resource: r, Name: "getCoreApiInfo", Description: "Get core node info", Path: hiro.PathCoreInfo},
		{Resource: r, Name: "getNetworkStatus", Description: "Get network block times", Path: hiro.PathNetworkBlockTimes},
		{Resource: r, Name: "getStxSupply", Description: "Get STX supply", Path: hiro.PathSTXSupply},
		{Resource: r, Name: "getFeeRate", Description: "Get the transfer fee rate",
			Path: hiro.PathFeeRate, Shape: shapeFeeRate},
		{Resource: r, Name: "getPoxInfo", Description: "Get current PoX state", Path: hiro.PathPoxInfo},
	}
}

func rosettaOperations() []Operation {
	const r = "rosetta"
	post := http.MethodPost
	return []Operation{
		{Resource: r, Name: "getNetworkList", Description: "List Rosetta networks",
			Method: post, Path: hiro.PathRosettaNetworkList, Body: func(*Executor, Params) (any, error) {
				return map[string]any{"metadata": map[string]any{}}, nil
			}},
		{Resource: r, Name: "getNetworkStatus", Description: "Get Rosetta network status",
			Method: post, Path: hiro.PathRosettaNetworkStatus, Body: rosettaNetworkBody},
		{Resource: r, Name: "getNetworkOptions", Description: "Get Rosetta network options",
			Method: post, Path: hiro.PathRosettaNetworkOptions, Body: rosettaNetworkBody},
		{Resource: r, Name: "getBlock", Description: "Get a block through Rosetta",
			Method: post, Path: hiro.PathRosettaBlock, Body: rosettaBlockBody},
		{Resource: r, Name: "getAccountBalance", Description: "Get an account balance through Rosetta",
			Method: post, Path: hiro.PathRosettaAccountBalance, Body: rosettaAccountBody},
	}
}

func utilityOperations() []Operation {
	const r = "utility"
	return []Operation{
		{Resource: r, Name: "validateAddress", Description: "Validate a Stacks address", Handler: validateAddress},
		{Resource: r, Name: "validateContractId", Description: "Validate a contract ID", Handler: validateContractID},
		{Resource: r, Name: "stxToMicro", Description: "Convert STX to microSTX", Handler: stxToMicro},
		{Resource: r, Name: "microToStx", Description: "Convert microSTX to STX", Handler: microToSTX},
		{Resource: r, Name: "btcToStxAddress", Description: "Convert a Bitcoin address to a Stacks address", Handler: btcToSTXAddress},
		{Resource: r, Name: "stxToBtcAddress", Description: "Convert a Stacks address to a Bitcoin address", Handler: stxToBTCAddress},
	}
}

func bitcoinOperations() []Operation {
	const r = "bitcoin"
	return []Operation{
		{Resource: r, Name: "getTipHeight", Description: "Get the Bitcoin tip height", Handler: btcTipHeight},
		{Resource: r, Name: "getBlock", Description: "Get a Bitcoin block by hash or height", Handler: btcBlock},
		{Resource: r, Name: "getTransaction", Description: "Get a Bitcoin transaction", Handler: btcTransaction},
		{Resource: r, Name: "getAddress", Description: "Get Bitcoin address stats and balance", Handler: btcAddress},
		{Resource: r, Name: "getAddressUtxos", Description: "Get unspent outputs of a Bitcoin address", Handler: btcAddressUTXOs},
		{Resource: r, Name: "getFeeEstimates", Description: "Get fee estimates by confirmation target", Handler: btcFeeEstimates},
	}
}

// RequiredParams lists the parameters op needs before any I/O happens.
func (op *Operation) RequiredParams() []string {
	var names []string
	for _, ph := range hiro.Placeholders(op.Path) {
		if name, ok := op.Vars[ph]; ok {
			names = append(names, name)
			continue
		}
		if ph == "contractAddress" || ph == "contractName" {
			if len(names) == 0 || names[len(names)-1] != "contractId" {
				names = append(names, "contractId")
			}
			continue
		}
		names = append(names, ph)
	}
	for _, q := range op.Query {
		if q.Required {
			names = append(names, q.param())
		}
	}
	return names
}

func isNumeric(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}
