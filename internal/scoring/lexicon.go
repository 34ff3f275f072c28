package scoring

// Lexicon is the immutable word and pattern configuration of the scoring
// engine. Engines copy the slices at construction time, so a Lexicon value
// can be shared and modified test-side without affecting a built engine.
type Lexicon struct {
	// Keywords add one point each when found as a case-insensitive
	// substring of title+summary.
	Keywords []string
	// Patterns are regular expressions adding two points each on match.
	Patterns []string
	// Positive and Negative drive the sentiment majority vote.
	Positive []string
	Negative []string
}

// DefaultLexicon returns the compiled-in bilingual (German/English) financial
// lexicon.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Keywords: []string{
			// indices and exchanges
			"dax", "mdax", "tecdax", "eurostoxx", "dow jones", "nasdaq", "s&p 500", "börse", "stock market",
			// instruments
			"aktie", "aktien", "etf", "anleihe", "anleihen", "fonds", "dividende", "shares", "stocks", "bonds", "dividend",
			// macro
			"inflation", "zinsen", "leitzins", "ezb", "fed", "rezession", "konjunktur", "bip",
			"interest rate", "central bank", "recession", "gdp",
			// crypto
			"bitcoin", "ethereum", "krypto", "crypto", "blockchain",
			// fx and commodities
			"euro", "dollar", "wechselkurs", "devisen", "forex", "gold", "ölpreis", "oil price", "rohstoffe", "commodities",
			// corporate
			"quartalszahlen", "bilanz", "gewinn", "umsatz", "übernahme", "fusion", "ipo",
			"earnings", "revenue", "profit", "merger", "takeover",
		},
		Patterns: []string{
			// percentage move with a rise/fall verb, e.g. "um 3,2 Prozent gestiegen", "fell 4%"
			`\d+(?:[.,]\d+)?\s*(?:%|prozent|percent)\s*(?:gestiegen|gefallen|zugelegt|verloren|eingebrochen|up|down|higher|lower)`,
			`(?:steigt|stieg|fällt|fiel|klettert|rose|fell|gained|dropped|jumped|plunged|surged)\s+(?:um\s+|by\s+)?\d+(?:[.,]\d+)?\s*(?:%|prozent|percent)`,
			// large currency amounts
			`\d+(?:[.,]\d+)?\s*(?:milliarden|millionen|billion|million)\s*(?:euro|dollar|€|\$)`,
			// quarterly results phrasing
			`quartalszahlen|quartalsbericht|quarterly\s+(?:results|earnings|report)|q[1-4][\s-](?:zahlen|ergebnis|results|earnings)`,
			// price movement phrasing
			`(?:kurs|aktienkurs|price|stock)\s+(?:steigt|fällt|springt|bricht\s+ein|surges?|plunges?|jumps?|drops?|rallies|slides?)`,
		},
		Positive: []string{
			"gewinn", "wachstum", "steigt", "stieg", "rekord", "erfolg", "aufschwung", "erholung",
			"boom", "stark", "positiv", "optimistisch", "übertroffen",
			"profit", "growth", "record", "rally", "recovery", "strong", "surge", "gains", "beats", "optimistic", "bullish",
		},
		Negative: []string{
			"verlust", "krise", "fällt", "fiel", "einbruch", "pleite", "insolvenz", "abschwung",
			"schwach", "negativ", "warnung", "risiko", "enttäuscht",
			"loss", "crisis", "crash", "slump", "bankruptcy", "weak", "plunge", "drops", "warning", "misses", "bearish",
		},
	}
}
