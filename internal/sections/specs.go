package sections

import "market-report/internal/types"

// SectionSpec defines one report section. Template holds the instructions sent to
// the model and Data the market context appended after them; both are text/template
// sources rendered over a view of the snapshot.
type SectionSpec struct {
	ID      types.SectionID
	Title   string
	Ordinal int
	// Template and Data may call {{section "id"}} for any ID listed in DependsOn.
	Template  string
	Data      string
	DependsOn []types.SectionID
	// NewsKeywords filters .News to headlines containing any keyword. Empty keeps all.
	NewsKeywords []string
	// NewsLimit caps .News; zero means defaultNewsLimit.
	NewsLimit int
}

var (
	macroKeywords       = []string{"technology", "ai", "regulation", "policy", "climate", "esg"}
	consumerKeywords    = []string{"consumer", "retail", "spending", "confidence", "inflation"}
	riskKeywords        = []string{"risk", "crisis", "tension", "inflation", "recession", "cyber", "supply chain"}
	opportunityKeywords = []string{"growth", "opportunity", "innovation", "merger", "acquisition", "ipo"}
)

// DefaultSpecs returns the eight report sections in ordinal order.
func DefaultSpecs() []SectionSpec {
	return []SectionSpec{
		{
			ID:      types.ExecutiveSummary,
			Title:   "Executive Summary",
			Ordinal: 1,
			Template: `Create an Executive Summary for a stock market report covering {{.Period}}. Include:
1. Overall economic climate assessment
2. High-level opportunities and risks across markets
3. Key takeaways for investors and businesses

Make it concise but comprehensive, suitable for C-level executives.`,
			Data: `Market Indices Performance:
{{.Indices}}

Market Sentiment: {{.Sentiment}}

Recent News Headlines:
{{.Headlines}}`,
			NewsLimit: 10,
		},
		{
			ID:      types.GlobalOverview,
			Title:   "Global Market Overview",
			Ordinal: 2,
			Template: `Create a Global Market Overview section that covers:
1. Current size and growth of global economy
2. Key regions driving growth (North America, Asia-Pacific, Europe)
3. Broad market segmentation analysis
4. Cross-regional market correlations and trends`,
			Data: `Major Indices Performance:
{{.Indices}}

Economic Indicators:
{{.Indicators}}`,
		},
		{
			ID:      types.MacroTrends,
			Title:   "Macro Trends & Drivers",
			Ordinal: 3,
			Template: `Analyze and describe Macro Trends & Drivers affecting markets:
1. Technology trends (AI, automation, digitalization)
2. Demographics (population shifts, urbanization, aging)
3. Environment & sustainability (climate policies, ESG focus)
4. Regulation & policy changes (trade, tariffs, taxes)

Focus on how these trends are currently impacting markets.`,
			Data: `Market Performance Data:
{{.Indices}}

Relevant News:
{{.News}}

Economic Indicators:
{{.Indicators}}`,
			NewsKeywords: macroKeywords,
			NewsLimit:    15,
		},
		{
			ID:      types.SectorHighlights,
			Title:   "Sector Highlights",
			Ordinal: 4,
			Template: `Provide Sector Highlights covering:
1. Performance analysis of major sectors (Technology, Healthcare, Financial, etc.)
2. Which sectors are expanding, contracting, or transforming
3. Sector rotation trends and implications
4. Key sector-specific opportunities and challenges`,
			Data: `Sector Performance Data:
{{.Sectors}}

Top Volume Stocks:
{{.Stocks}}`,
		},
		{
			ID:      types.ConsumerInsights,
			Title:   "Consumer Insights",
			Ordinal: 5,
			Template: `Analyze Consumer Insights based on market data and news:
1. Shifts in consumer confidence and spending patterns
2. Behavioral changes (digital adoption, value-seeking, brand loyalty)
3. Impact on retail and consumer-facing sectors
4. Implications for businesses and investors`,
			Data: `Consumer-Related News:
{{.News}}

All Recent Headlines:
{{.Headlines}}`,
			NewsKeywords: consumerKeywords,
			NewsLimit:    20,
		},
		{
			ID:      types.InvestmentOutlook,
			Title:   "Investment & Financial Outlook",
			Ordinal: 6,
			Template: `Provide Investment & Financial Outlook covering:
1. Market confidence and risk appetite assessment
2. Capital flows and investment trends
3. Financial forecasts (GDP growth expectations, inflation outlook, interest rate trends)
4. Asset allocation recommendations

Keep the outlook consistent with the sector picture below.`,
			Data: `Market Performance:
{{.Indices}}

Economic Indicators:
{{.Indicators}}

Market Sentiment: {{.Sentiment}}

Volatility Analysis:
{{.Volatility}}

Sector Highlights (earlier in this report):
{{section "sector_highlights"}}`,
			DependsOn: []types.SectionID{types.SectorHighlights},
		},
		{
			ID:      types.RisksAndChallenges,
			Title:   "Risks & Challenges",
			Ordinal: 7,
			Template: `Identify and analyze Risks & Challenges:
1. Global risks (geopolitical tensions, supply chain disruptions, inflationary pressures)
2. Industry-agnostic business risks (cybersecurity, labor shortages)
3. Market-specific risks and vulnerabilities
4. Risk mitigation strategies`,
			Data: `Risk-Related News:
{{.News}}

Market Volatility (VIX): {{.VIX}}

Market Trends:
{{.Trends}}`,
			NewsKeywords: riskKeywords,
			NewsLimit:    20,
		},
		{
			ID:      types.OpportunitiesAndRecommendations,
			Title:   "Opportunities & Recommendations",
			Ordinal: 8,
			Template: `Provide Opportunities & Recommendations:
1. Growth opportunities across regions and sectors
2. Strategic actions for businesses (innovation, diversification, partnerships)
3. Investment recommendations for different risk profiles
4. Emerging market opportunities and trends to watch

Weigh every recommendation against the risks already identified.`,
			Data: `Market Performance Trends:
{{.Trends}}

Sector Performance:
{{.Sectors}}

Top Performing Stocks:
{{.Stocks}}

Opportunity-Related News:
{{.News}}

Identified Risks (earlier in this report):
{{section "risks_and_challenges"}}`,
			DependsOn:    []types.SectionID{types.RisksAndChallenges},
			NewsKeywords: opportunityKeywords,
			NewsLimit:    15,
		},
	}
}
