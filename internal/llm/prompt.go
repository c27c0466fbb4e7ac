package llm

import "strings"

// BuildSystemPrompt returns the fixed extractor instruction preamble.
func BuildSystemPrompt() string {
	return strings.Join([]string{
		"You are a precise legal metadata extractor. Always return STRICT JSON only.",
		"If a field is unknown, use null. Dates MUST be ISO YYYY-MM-DD.",
		"If you are unsure or find conflicting values, populate 'uncertain_fields' with the field names,",
		"and include up to 3 options per such field in 'candidate_dates' using ISO YYYY-MM-DD strings.",
		"Add a short 'extraction_notes' explaining uncertainty in <120 chars.",
	}, " ")
}

// BuildUserPrompt embeds the document text in the field-extraction request.
func BuildUserPrompt(text string) string {
	var b strings.Builder
	b.WriteString(`Extract these fields from the following purchase agreement text:
- vendor_name (string or null): The vendor/supplier company name. Look for "Seller", "Provider", "Vendor", company names after "Inc.", "Corp.", "LLC", etc. Extract the clean company name without legal suffixes unless they're part of the common name (e.g., "DocuSign" not "DocuSign, Inc.", but keep "Microsoft Corporation" if that's how it appears)
- start_date (ISO YYYY-MM-DD or null): Look for "Effective Date", "Start Date", "Commencement Date"
- end_date (ISO YYYY-MM-DD or null): Look for "End Date", "Expiration Date", "Term End". If not explicitly stated but you have start_date and term length (e.g., "24 months", "2 years"), calculate: start_date + term_length
- renewal_date (ISO YYYY-MM-DD or null): Date when contract renews, often same as end_date if auto-renewal
- renewal_term (string or null): Description of renewal terms (e.g., "No auto-renewal", "Auto-renews annually")
- notice_period_days (integer or null): Days of notice required (e.g., "30 days notice" = 30)
- notice_deadline (ISO YYYY-MM-DD or null): Last date to give notice, if explicitly stated

Additionally return uncertainty metadata:
- uncertain_fields (array of strings) — any of: ["start_date","end_date","renewal_date"] when conflicting/unsure
- candidate_dates (object) — for each uncertain field, a list of up to 3 ISO dates
- extraction_notes (string or null) — short note about ambiguity

IMPORTANT:
- If you see "Term Length" or "Term" with months/years, calculate end_date = start_date + term_length.
- For vendor_name, prioritize the actual company name that provides the service, not the buyer.

If unknown, use null. Output STRICT JSON with exactly these keys and no extras.

TEXT:
`)
	b.WriteString(text)
	return b.String()
}
