package classify

import "strings"

// knownRouters maps lowercased addresses of widely used DEX routers.
// Symmetric same-symbol movement through one of these still counts as
// an economic exchange (wrapped-token routing and the like).
var knownRouters = map[string]string{
	"0x7a250d5630b4cf539739df2c5dacb4c659f2488d": "Uniswap V2 Router",
	"0xe592427a0aece92de3edee1f18e0157c05861564": "Uniswap V3 Router",
	"0x68b3465833fb72a70ecdf485e0e4c7bd8665fc45": "Uniswap V3 Router 2",
	"0x3fc91a3afd70395cd496c647d5a6cc9d4b2b7fad": "Uniswap Universal Router",
	"0xd9e1ce17f2641f24ae83637ab66a2cca9c378b9f": "SushiSwap Router",
	"0x1111111254eeb25477b68fb85ed929f73a960582": "1inch V5 Router",
	"0x1111111254fb6c44bac0bed2854e76f90643097d": "1inch V4 Router",
	"0xdef1c0ded9bec7f1a1670819833240f027b25eff": "0x Exchange Proxy",
}

// IsKnownRouter reports whether the address belongs to a recognized
// decentralized exchange router.
func IsKnownRouter(address string) bool {
	if address == "" {
		return false
	}
	_, ok := knownRouters[strings.ToLower(address)]
	return ok
}

// RouterName returns the display name of a known router, or empty.
func RouterName(address string) string {
	return knownRouters[strings.ToLower(address)]
}
