// Package universe maps a market and asset type to the curated ticker list.
package universe

import "strings"

// Market is an exchange selection as shown to users.
type Market string

// AssetType is the instrument kind selection.
type AssetType string

const (
	MarketNYSE      Market = "NYSE (EEUU)"
	MarketBME       Market = "Bolsa Española (BME)"
	MarketEuroStoxx Market = "EuroStoxx"

	AssetStocks AssetType = "Acciones"
	AssetETFs   AssetType = "ETFs"
)

// Markets lists the selectable markets in display order.
var Markets = []Market{MarketNYSE, MarketBME, MarketEuroStoxx}

// AssetTypes lists the selectable asset types in display order.
var AssetTypes = []AssetType{AssetStocks, AssetETFs}

var (
	nyseStocks = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA", "JPM", "WMT", "UNH", "KO", "PEP", "V", "BAC", "HD"}

	spainStocks = []string{"SAN.MC", "BBVA.MC", "ITX.MC", "IBE.MC", "REP.MC", "AMS.MC", "ANA.MC", "CABK.MC", "CLNX.MC", "ENG.MC", "FER.MC", "GRF.MC", "IAG.MC", "MAP.MC", "TEF.MC"}

	euroStoxxStocks = []string{"AIR.PA", "ADS.DE", "ALV.DE", "BN.PA", "ENEL.MI", "ENGI.PA", "OR.PA", "SAP.DE", "SIE.DE", "SU.PA", "TTE.PA", "VOW3.DE", "DTE.DE", "DPW.DE", "BAS.DE"}

	etfs = []string{"SPY", "QQQ", "DIA", "VTI", "IWM", "EFA", "EEM", "VNQ", "LQD", "HYG", "XLF", "XLK", "XLE", "XLY", "XLV"}
)

// Selection is one (market, asset type) choice.
type Selection struct {
	Market Market    `yaml:"market"`
	Asset  AssetType `yaml:"asset"`
}

func (s Selection) String() string {
	if s.Asset == AssetETFs {
		return string(AssetETFs)
	}
	return string(s.Market) + " / " + string(s.Asset)
}

// Select returns the ticker list for a market and asset type. ETFs share a
// single list whatever the market. Any stock selection that is not NYSE or
// EuroStoxx resolves to the Spanish list, unknown markets included.
func Select(market Market, asset AssetType) []string {
	var src []string
	switch {
	case asset == AssetETFs:
		src = etfs
	case market == MarketEuroStoxx:
		src = euroStoxxStocks
	case market == MarketNYSE:
		src = nyseStocks
	default:
		src = spainStocks
	}
	return clone(src)
}

// Lookup is the strict form of Select: it reports false for a market or
// asset type outside the known values instead of falling back.
func Lookup(market Market, asset AssetType) ([]string, bool) {
	if !knownAsset(asset) {
		return nil, false
	}
	if asset == AssetStocks && !knownMarket(market) {
		return nil, false
	}
	return Select(market, asset), true
}

// All returns every distinct selection, one per ticker list.
func All() []Selection {
	return []Selection{
		{Market: MarketNYSE, Asset: AssetStocks},
		{Market: MarketBME, Asset: AssetStocks},
		{Market: MarketEuroStoxx, Asset: AssetStocks},
		{Market: MarketNYSE, Asset: AssetETFs},
	}
}

var marketAliases = map[string]Market{
	"nyse":      MarketNYSE,
	"eeuu":      MarketNYSE,
	"usa":       MarketNYSE,
	"us":        MarketNYSE,
	"bme":       MarketBME,
	"españa":    MarketBME,
	"espana":    MarketBME,
	"spain":     MarketBME,
	"ibex":      MarketBME,
	"eurostoxx": MarketEuroStoxx,
	"stoxx":     MarketEuroStoxx,
	"europa":    MarketEuroStoxx,
}

// ParseMarket accepts a display name or a short alias such as "nyse" or "bme".
func ParseMarket(s string) (Market, bool) {
	s = strings.TrimSpace(s)
	for _, m := range Markets {
		if strings.EqualFold(s, string(m)) {
			return m, true
		}
	}
	m, ok := marketAliases[strings.ToLower(s)]
	return m, ok
}

// ParseAssetType accepts "acciones"/"stocks" or "etf"/"etfs".
func ParseAssetType(s string) (AssetType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "acciones", "accion", "stocks", "stock":
		return AssetStocks, true
	case "etf", "etfs":
		return AssetETFs, true
	}
	return "", false
}

func knownMarket(m Market) bool {
	for _, k := range Markets {
		if k == m {
			return true
		}
	}
	return false
}

func knownAsset(a AssetType) bool {
	return a == AssetStocks || a == AssetETFs
}

func clone(src []string) []string {
	out := make([]string, len(src))
	copy(out, src)
	return out
}
