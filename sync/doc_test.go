package sync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFieldDocumentation(t *testing.T) {
	specs := []AttributeSpec{
		{CapturePath: "givenName", CampaignVar: "givenName"},
		{CapturePath: "primaryAddress.country", Modifier: "@countryName", CampaignVar: "primaryAddress_country"},
		{CapturePath: "primaryAddress.mobile", Modifier: "@phone:44", CampaignVar: "primaryAddress_mobile"},
	}

	doc := GenerateFieldDocumentation(ExtIDPrimaryWithMerge, specs)
	assert.Equal(t, ExtIDPrimaryWithMerge, doc.IdentityMode)
	assert.Equal(t, []FieldDocRow{
		{SailthruField: "extid", IsKey: true, SourcePath: "uuid", Notes: "Upsert key"},
		{SailthruField: "email", IsKey: true, SourcePath: "email", Notes: "Merged on conflict"},
		{SailthruField: "givenName", SourcePath: "givenName"},
		{SailthruField: "primaryAddress_country", SourcePath: "primaryAddress.country", Notes: "Uses @countryName modifier"},
		{SailthruField: "primaryAddress_mobile", SourcePath: "primaryAddress.mobile", Notes: "Uses @phone:44 modifier"},
	}, doc.Rows)

	doc = GenerateFieldDocumentation(EmailPrimary, nil)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, "Upsert key when the email is new to Sailthru", doc.Rows[0].Notes)
	assert.Equal(t, "Upsert key when the email exists in Sailthru", doc.Rows[1].Notes)
}

func TestFormatModifierNote(t *testing.T) {
	assert.Equal(t, "Uses @countryCode modifier", formatModifierNote("@countryCode"))
	assert.Equal(t, "Uses @contains:VIP modifier", formatModifierNote("@contains:VIP"))
	assert.Equal(t, "Modifier: @reverse", formatModifierNote("@reverse"))
}

func TestFormatCSV(t *testing.T) {
	doc := GenerateFieldDocumentation(EmailPrimary, []AttributeSpec{
		{CapturePath: "profile.name", CampaignVar: "profile_name"},
	})

	csv, err := doc.FormatCSV()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	assert.Equal(t, []string{
		"# Identity mode: email",
		"Sailthru Field Name,Sailthru Key,Capture Source Path,Mapping Notes",
		"extid,✓,uuid,Upsert key when the email is new to Sailthru",
		"email,✓,email,Upsert key when the email exists in Sailthru",
		"profile_name,,profile.name,",
	}, lines)
}
