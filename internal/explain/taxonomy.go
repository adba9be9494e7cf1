// Package explain translates rationale tags into human-readable
// explanations. It is purely presentational: nothing here recalculates any
// signal value.
package explain

// Category buckets a rationale tag for presentation.
type Category string

const (
	CategoryDriver Category = "driver"
	CategoryRisk   Category = "risk"
	CategoryNote   Category = "note"
)

type taxonomyEntry struct {
	category Category
	text     string
}

// taxonomy maps every known rationale tag to its category and sentence.
// Unknown tags fall through to a generic note.
var taxonomy = map[string]taxonomyEntry{
	// Drivers: positive indicators.
	"strong_agreement":       {CategoryDriver, "Strong alignment across multiple timeframes"},
	"moderate_agreement":     {CategoryDriver, "Moderate agreement between analyzed timeframes"},
	"majority_bullish":       {CategoryDriver, "Majority of timeframes show bullish bias"},
	"majority_bearish":       {CategoryDriver, "Majority of timeframes show bearish bias"},
	"high_confidence_signal": {CategoryDriver, "High confidence due to quality data and clear trend"},
	"high_data_quality":      {CategoryDriver, "Excellent data quality with minimal gaps"},

	"1m_strong_bullish":  {CategoryDriver, "1-minute timeframe shows strong bullish momentum"},
	"1m_weak_bullish":    {CategoryDriver, "1-minute timeframe shows weak bullish bias"},
	"5m_strong_bullish":  {CategoryDriver, "5-minute timeframe shows strong bullish momentum"},
	"5m_weak_bullish":    {CategoryDriver, "5-minute timeframe shows weak bullish bias"},
	"15m_strong_bullish": {CategoryDriver, "15-minute timeframe shows strong bullish momentum"},
	"15m_weak_bullish":   {CategoryDriver, "15-minute timeframe shows weak bullish bias"},
	"1h_strong_bullish":  {CategoryDriver, "1-hour timeframe shows strong bullish momentum"},
	"1h_weak_bullish":    {CategoryDriver, "1-hour timeframe shows weak bullish bias"},
	"4h_strong_bullish":  {CategoryDriver, "4-hour timeframe shows strong bullish momentum"},
	"4h_weak_bullish":    {CategoryDriver, "4-hour timeframe shows weak bullish bias"},
	"1d_strong_bullish":  {CategoryDriver, "Daily timeframe shows strong bullish momentum"},
	"1d_weak_bullish":    {CategoryDriver, "Daily timeframe shows weak bullish bias"},
	"1w_strong_bullish":  {CategoryDriver, "Weekly timeframe shows strong bullish momentum"},
	"1w_weak_bullish":    {CategoryDriver, "Weekly timeframe shows weak bullish bias"},

	"1m_strong_bearish":  {CategoryDriver, "1-minute timeframe shows strong bearish momentum"},
	"1m_weak_bearish":    {CategoryDriver, "1-minute timeframe shows weak bearish bias"},
	"5m_strong_bearish":  {CategoryDriver, "5-minute timeframe shows strong bearish momentum"},
	"5m_weak_bearish":    {CategoryDriver, "5-minute timeframe shows weak bearish bias"},
	"15m_strong_bearish": {CategoryDriver, "15-minute timeframe shows strong bearish momentum"},
	"15m_weak_bearish":   {CategoryDriver, "15-minute timeframe shows weak bearish bias"},
	"1h_strong_bearish":  {CategoryDriver, "1-hour timeframe shows strong bearish momentum"},
	"1h_weak_bearish":    {CategoryDriver, "1-hour timeframe shows weak bearish bias"},
	"4h_strong_bearish":  {CategoryDriver, "4-hour timeframe shows strong bearish momentum"},
	"4h_weak_bearish":    {CategoryDriver, "4-hour timeframe shows weak bearish bias"},
	"1d_strong_bearish":  {CategoryDriver, "Daily timeframe shows strong bearish momentum"},
	"1d_weak_bearish":    {CategoryDriver, "Daily timeframe shows weak bearish bias"},
	"1w_strong_bearish":  {CategoryDriver, "Weekly timeframe shows strong bearish momentum"},
	"1w_weak_bearish":    {CategoryDriver, "Weekly timeframe shows weak bearish bias"},

	"signal_strong_buy":  {CategoryDriver, "Signal strength exceeds strong buy threshold (>=0.65)"},
	"signal_buy":         {CategoryDriver, "Signal strength exceeds buy threshold (>=0.20)"},
	"signal_strong_sell": {CategoryDriver, "Signal strength exceeds strong sell threshold (<=-0.65)"},
	"signal_sell":        {CategoryDriver, "Signal strength exceeds sell threshold (<=-0.20)"},

	"long_position":     {CategoryDriver, "Buy signal suggests long position"},
	"short_position":    {CategoryDriver, "Sell signal suggests short position"},
	"aggressive_sizing": {CategoryDriver, "High confidence supports larger position size"},

	// Risks: warnings and degradations.
	"weak_agreement":                       {CategoryRisk, "Weak agreement between timeframes - conflicting signals detected"},
	"conflicting_signals":                  {CategoryRisk, "Timeframes show conflicting directional bias"},
	"mixed_directions":                     {CategoryRisk, "Mixed bullish and bearish signals across horizons"},
	"short_term_bullish_long_term_bearish": {CategoryRisk, "Short-term uptrend conflicts with long-term downtrend"},
	"short_term_bearish_long_term_bullish": {CategoryRisk, "Short-term downtrend conflicts with long-term uptrend"},
	"low_confidence_signal":                {CategoryRisk, "Low confidence due to data quality or uncertainty"},
	"low_data_quality":                     {CategoryRisk, "Limited or gappy data reduces signal reliability"},
	"low_agreement_warning":                {CategoryRisk, "Low agreement between timeframes - proceed with caution"},
	"conservative_sizing":                  {CategoryRisk, "Low confidence suggests smaller position size"},

	"1m_neutral":  {CategoryRisk, "1-minute timeframe shows no clear direction"},
	"5m_neutral":  {CategoryRisk, "5-minute timeframe shows no clear direction"},
	"15m_neutral": {CategoryRisk, "15-minute timeframe shows no clear direction"},
	"1h_neutral":  {CategoryRisk, "1-hour timeframe shows no clear direction"},
	"4h_neutral":  {CategoryRisk, "4-hour timeframe shows no clear direction"},
	"1d_neutral":  {CategoryRisk, "Daily timeframe shows no clear direction"},
	"1w_neutral":  {CategoryRisk, "Weekly timeframe shows no clear direction"},

	"signal_neutral":      {CategoryRisk, "Signal strength within neutral range (+/-0.20)"},
	"no_position_neutral": {CategoryRisk, "Neutral signal - no clear trade opportunity"},

	// Notes: informational, non-directional.
	"1m_high_volatility":  {CategoryNote, "1-minute timeframe experiencing high volatility"},
	"1m_low_volatility":   {CategoryNote, "1-minute timeframe experiencing low volatility"},
	"5m_high_volatility":  {CategoryNote, "5-minute timeframe experiencing high volatility"},
	"5m_low_volatility":   {CategoryNote, "5-minute timeframe experiencing low volatility"},
	"15m_high_volatility": {CategoryNote, "15-minute timeframe experiencing high volatility"},
	"15m_low_volatility":  {CategoryNote, "15-minute timeframe experiencing low volatility"},
	"1h_high_volatility":  {CategoryNote, "1-hour timeframe experiencing high volatility"},
	"1h_low_volatility":   {CategoryNote, "1-hour timeframe experiencing low volatility"},
	"4h_high_volatility":  {CategoryNote, "4-hour timeframe experiencing high volatility"},
	"4h_low_volatility":   {CategoryNote, "4-hour timeframe experiencing low volatility"},
	"1d_high_volatility":  {CategoryNote, "Daily timeframe experiencing high volatility"},
	"1d_low_volatility":   {CategoryNote, "Daily timeframe experiencing low volatility"},
	"1w_high_volatility":  {CategoryNote, "Weekly timeframe experiencing high volatility"},
	"1w_low_volatility":   {CategoryNote, "Weekly timeframe experiencing low volatility"},

	"1m_high_confidence":  {CategoryNote, "1-minute timeframe has high confidence data"},
	"1m_low_confidence":   {CategoryNote, "1-minute timeframe has low confidence data"},
	"5m_high_confidence":  {CategoryNote, "5-minute timeframe has high confidence data"},
	"5m_low_confidence":   {CategoryNote, "5-minute timeframe has low confidence data"},
	"15m_high_confidence": {CategoryNote, "15-minute timeframe has high confidence data"},
	"15m_low_confidence":  {CategoryNote, "15-minute timeframe has low confidence data"},
	"1h_high_confidence":  {CategoryNote, "1-hour timeframe has high confidence data"},
	"1h_low_confidence":   {CategoryNote, "1-hour timeframe has low confidence data"},
	"4h_high_confidence":  {CategoryNote, "4-hour timeframe has high confidence data"},
	"4h_low_confidence":   {CategoryNote, "4-hour timeframe has low confidence data"},
	"1d_high_confidence":  {CategoryNote, "Daily timeframe has high confidence data"},
	"1d_low_confidence":   {CategoryNote, "Daily timeframe has low confidence data"},
	"1w_high_confidence":  {CategoryNote, "Weekly timeframe has high confidence data"},
	"1w_low_confidence":   {CategoryNote, "Weekly timeframe has low confidence data"},

	"no_data": {CategoryNote, "Insufficient data available for analysis"},
}

// Lookup resolves a tag to its category and sentence. Unknown tags become
// notes with a generic sentence.
func Lookup(tag string) (Category, string) {
	if entry, ok := taxonomy[tag]; ok {
		return entry.category, entry.text
	}
	return CategoryNote, "Unknown rationale: " + tag
}
