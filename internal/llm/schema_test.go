package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const validResponse = `{
	"vendor_name": "Acme, Inc.",
	"start_date": "2024-01-01",
	"end_date": null,
	"renewal_date": "2025-01-01",
	"renewal_term": "Auto-renews annually",
	"notice_period_days": 60,
	"notice_deadline": null,
	"uncertain_fields": ["end_date"],
	"candidate_dates": {"end_date": ["2026-01-01"]},
	"extraction_notes": null
}`

func TestValidateJSONAgainstSchemaAccepts(t *testing.T) {
	err := ValidateJSONAgainstSchema(BuildContractJSONSchema(), []byte(validResponse))
	require.NoError(t, err)
}

func TestValidateJSONAgainstSchemaRejects(t *testing.T) {
	cases := []string{
		`{"vendor_name": "Acme"}`, // missing required keys
		strings.Replace(validResponse, `"start_date": "2024-01-01"`, `"start_date": "January 1st"`, 1),
		strings.Replace(validResponse, `"extraction_notes": null`, `"extraction_notes": null, "extra": 1`, 1),
	}
	for _, c := range cases {
		require.Error(t, ValidateJSONAgainstSchema(BuildContractJSONSchema(), []byte(c)), c)
	}
}

func TestPromptsCarryInstructionsAndText(t *testing.T) {
	system := BuildSystemPrompt()
	require.Contains(t, system, "STRICT JSON")
	require.Contains(t, system, "uncertain_fields")

	user := BuildUserPrompt("THE DOCUMENT BODY")
	require.Contains(t, user, "vendor_name")
	require.Contains(t, user, "notice_period_days")
	require.True(t, strings.HasSuffix(user, "THE DOCUMENT BODY"))
}
